package webchat

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/go-go-golems/hookchat/pkg/relay"
	"github.com/go-go-golems/hookchat/pkg/workflows"
)

const maxChatBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func NewChatHTTPHandler(svc ChatService, md *MarkdownRenderer, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if svc == nil {
			http.Error(w, "chat service not initialized", http.StatusServiceUnavailable)
			return
		}
		var body ChatRequestBody
		if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxChatBodyBytes)).Decode(&body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		text := strings.TrimSpace(body.Text)
		if text == "" {
			http.Error(w, "missing text", http.StatusBadRequest)
			return
		}

		reply, err := svc.SendMessage(req.Context(), text, testModeOrDefault(body.TestMode))
		if err != nil {
			if stderrors.Is(err, relay.ErrAllStrategiesFailed) {
				writeJSON(w, http.StatusBadGateway, ErrorResponse{
					Error:   relay.ErrAllStrategiesFailed.Error(),
					Message: AllFailedMessage,
				})
				return
			}
			if req.Context().Err() != nil {
				logger.Debug().Err(err).Msg("client went away during delivery")
				return
			}
			logger.Error().Err(err).Msg("chat delivery failed")
			http.Error(w, "delivery failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, ChatResponse{Reply: reply, HTML: md.RenderOrEmpty(reply)})
	}
}

func parseTestMode(req *http.Request) (bool, error) {
	s := strings.TrimSpace(req.URL.Query().Get("test_mode"))
	if s == "" {
		return true, nil
	}
	return strconv.ParseBool(s)
}

func NewStatusHTTPHandler(svc ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if svc == nil {
			http.Error(w, "chat service not initialized", http.StatusServiceUnavailable)
			return
		}
		testMode, err := parseTestMode(req)
		if err != nil {
			http.Error(w, "invalid test_mode", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, statusFor(req, svc, testMode))
	}
}

func statusFor(req *http.Request, svc ChatService, testMode bool) StatusResponse {
	status := StatusOffline
	if svc.CheckReachable(req.Context(), testMode) {
		status = StatusOnline
	}
	return StatusResponse{
		Mode:     string(relay.ModeFor(testMode)),
		Endpoint: svc.Endpoints().Resolve(testMode).String(),
		Status:   status,
	}
}

func NewWorkflowsHTTPHandler(lister WorkflowLister, limit int) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if lister == nil {
			writeJSON(w, http.StatusOK, WorkflowsResponse{Data: []workflows.Workflow{}})
			return
		}
		writeJSON(w, http.StatusOK, WorkflowsResponse{Data: lister.ListOrEmpty(req.Context(), limit)})
	}
}
