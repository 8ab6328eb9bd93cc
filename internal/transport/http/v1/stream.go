package v1

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
)

const (
	streamWriteTimeout = 10 * time.Second
	maxClaimSize       = 1 << 20
)

// Stream message types.
const (
	StreamTypeTurn  = "turn"
	StreamTypeDone  = "done"
	StreamTypeError = "error"
)

// StreamMessage is one server message on the workflow stream.
type StreamMessage struct {
	Type          string  `json:"type"`
	Ts            int64   `json:"ts"`
	Role          string  `json:"role,omitempty"`
	Content       string  `json:"content,omitempty"`
	WorkerName    string  `json:"worker_name,omitempty"`
	RunID         string  `json:"run_id,omitempty"`
	FinalDecision *string `json:"final_decision,omitempty"`
	Message       string  `json:"message,omitempty"`
}

// StreamWorkflow runs a claim and streams merged trace entries.
// The client sends the claim JSON as its first message.
// GET /api/v1/workflow/stream
func (h *Handler) StreamWorkflow(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Warn().Err(err).Str("origin", c.Request().Header.Get("Origin")).Msg("failed to upgrade websocket")
		return err
	}
	defer ws.Close()
	ws.SetReadLimit(maxClaimSize)

	send := func(msg StreamMessage) error {
		msg.Ts = time.Now().UnixMilli()
		ws.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		return ws.WriteJSON(msg)
	}

	_, data, err := ws.ReadMessage()
	if err != nil {
		return nil
	}
	var claim domain.Claim
	if err := json.Unmarshal(data, &claim); err != nil || claim == nil {
		send(StreamMessage{Type: StreamTypeError, Message: "invalid claim JSON"})
		return nil
	}

	// A closed connection cancels the run.
	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug().Err(err).Msg("stream client disconnected")
				}
				return
			}
		}
	}()

	res, err := h.service.StreamClaim(ctx, claim, func(entries []domain.TraceEntry) error {
		for _, e := range entries {
			if err := send(StreamMessage{Type: StreamTypeTurn, Role: string(e.Role), Content: e.Content, WorkerName: e.Worker}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		msg := StreamMessage{Type: StreamTypeError, Message: err.Error()}
		var failure *domain.RunFailure
		if errors.As(err, &failure) {
			msg.RunID = failure.RunID
		}
		send(msg)
	} else {
		send(StreamMessage{Type: StreamTypeDone, RunID: res.RunID, FinalDecision: res.FinalDecision})
	}

	ws.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return nil
}
