package webchat

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/go-go-golems/hookchat/pkg/relay"
)

const wsWriteTimeout = 10 * time.Second

// wsConn serializes writes on one websocket; gorilla allows a single writer.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(f)
}

// NewWSHTTPHandler upgrades to a websocket and serves send/status frames.
// Each send runs in its own goroutine so the read loop notices a closed
// socket; closing cancels every delivery still in flight for that socket.
func NewWSHTTPHandler(baseCtx context.Context, svc ChatService, md *MarkdownRenderer, upgrader websocket.Upgrader, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if svc == nil {
			http.Error(w, "chat service not initialized", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		connID := uuid.NewString()
		l := logger.With().Str("conn_id", connID).Logger()
		c := &wsConn{conn: conn}

		ctx, cancel := context.WithCancel(baseCtx)
		var wg sync.WaitGroup
		defer func() {
			cancel()
			wg.Wait()
			_ = conn.Close()
			l.Debug().Msg("websocket closed")
		}()

		_ = c.send(Frame{Type: FrameHello, ID: connID})

		for {
			var in Frame
			if err := conn.ReadJSON(&in); err != nil {
				return
			}
			switch in.Type {
			case FrameSend:
				text := strings.TrimSpace(in.Text)
				if text == "" {
					_ = c.send(Frame{Type: FrameError, ID: in.ID, Error: "missing text"})
					continue
				}
				wg.Add(1)
				go func(in Frame, text string) {
					defer wg.Done()
					reply, err := svc.SendMessage(ctx, text, testModeOrDefault(in.TestMode))
					if err != nil {
						if ctx.Err() != nil {
							return
						}
						out := Frame{Type: FrameError, ID: in.ID, Error: "delivery failed", Text: err.Error()}
						if stderrors.Is(err, relay.ErrAllStrategiesFailed) {
							out.Error = relay.ErrAllStrategiesFailed.Error()
							out.Text = AllFailedMessage
						}
						_ = c.send(out)
						return
					}
					_ = c.send(Frame{Type: FrameReply, ID: in.ID, Text: reply, HTML: md.RenderOrEmpty(reply)})
				}(in, text)
			case FrameStatus:
				wg.Add(1)
				go func(in Frame) {
					defer wg.Done()
					testMode := testModeOrDefault(in.TestMode)
					mode := relay.ModeFor(testMode)
					_ = c.send(Frame{Type: FrameStatus, ID: in.ID, Mode: string(mode), Status: StatusChecking})
					status := StatusOffline
					if svc.CheckReachable(ctx, testMode) {
						status = StatusOnline
					}
					if ctx.Err() != nil {
						return
					}
					_ = c.send(Frame{Type: FrameStatus, ID: in.ID, Mode: string(mode), Status: status})
				}(in)
			default:
				_ = c.send(Frame{Type: FrameError, ID: in.ID, Error: "unknown frame type"})
			}
		}
	}
}
