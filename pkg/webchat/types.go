package webchat

import (
	"context"

	"github.com/go-go-golems/hookchat/pkg/relay"
	"github.com/go-go-golems/hookchat/pkg/workflows"
)

// ChatService is the relay surface used by the HTTP and websocket handlers.
type ChatService interface {
	SendMessage(ctx context.Context, text string, testMode bool) (string, error)
	CheckReachable(ctx context.Context, testMode bool) bool
	Endpoints() relay.Endpoints
}

// WorkflowLister lists workflows for display; failures degrade to an empty list.
type WorkflowLister interface {
	ListOrEmpty(ctx context.Context, limit int) []workflows.Workflow
}

// ChatRequestBody is the JSON body of POST /api/chat. A missing test_mode
// means test mode, as on /api/status.
type ChatRequestBody struct {
	Text     string `json:"text"`
	TestMode *bool  `json:"test_mode,omitempty"`
}

func testModeOrDefault(p *bool) bool {
	if p == nil {
		return true
	}
	return *p
}

type ChatResponse struct {
	Reply string `json:"reply"`
	HTML  string `json:"html,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Status values shown by the connection indicator.
const (
	StatusChecking = "checking"
	StatusOnline   = "online"
	StatusOffline  = "offline"
)

type StatusResponse struct {
	Mode     string `json:"mode"`
	Endpoint string `json:"endpoint"`
	Status   string `json:"status"`
}

type WorkflowsResponse struct {
	Data []workflows.Workflow `json:"data"`
}

// Frame is the websocket message shape in both directions.
type Frame struct {
	Type     string `json:"type"`
	ID       string `json:"id,omitempty"`
	Text     string `json:"text,omitempty"`
	HTML     string `json:"html,omitempty"`
	TestMode *bool  `json:"test_mode,omitempty"`
	Status   string `json:"status,omitempty"`
	Mode     string `json:"mode,omitempty"`
	Error    string `json:"error,omitempty"`
}

const (
	FrameSend   = "send"
	FrameStatus = "status"
	FrameReply  = "reply"
	FrameError  = "error"
	FrameHello  = "hello"
)

// AllFailedMessage is shown when every relay attempt failed.
const AllFailedMessage = "Every attempt to reach the webhook failed, including all CORS relays. The server may be blocking relay traffic too."
