package webchat

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// MarkdownRenderer turns workflow replies into HTML for the browser UI. Raw
// HTML in replies is dropped.
type MarkdownRenderer struct {
	md goldmark.Markdown
}

func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
}

func (r *MarkdownRenderer) Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderOrEmpty returns "" when rendering fails or r is nil; the UI then
// falls back to the plain reply.
func (r *MarkdownRenderer) RenderOrEmpty(src string) string {
	if r == nil {
		return ""
	}
	out, err := r.Render(src)
	if err != nil {
		return ""
	}
	return out
}
