package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/api/response"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/kie"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/redact"
	"github.com/ownthefirstpage-afk/sfk-com-post-enhancer/internal/waiter"
)

// CallbackAck tells kie.ai the delivery was received. Matched is false for
// unknown tasks, non-terminal states and unreadable bodies.
type CallbackAck struct {
	OK      bool `json:"ok"`
	Matched bool `json:"matched"`
}

// NewCallbackHandler returns an http.HandlerFunc for POST /kie-callback.
// It always answers 200 so the provider does not redeliver. cb may be nil
// when the service polls instead.
func NewCallbackHandler(cb waiter.CallbackHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			slog.WarnContext(r.Context(), "kie.ai callback unreadable", "error", err)
			response.JSON(w, CallbackAck{OK: true})
			return
		}

		var payload kie.CallbackPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			slog.WarnContext(r.Context(), "kie.ai callback is not JSON",
				"body", redact.Snippet(body, 200))
			response.JSON(w, CallbackAck{OK: true})
			return
		}

		matched := false
		if cb != nil {
			matched = cb.HandleCallback(payload)
		}
		response.JSON(w, CallbackAck{OK: true, Matched: matched})
	}
}
