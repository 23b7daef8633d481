package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"examprep-engine/internal/app"
	"examprep-engine/internal/domain"
)

type WSHandler struct {
	engine   *app.Engine
	upgrader websocket.Upgrader
}

func NewWSHandler(engine *app.Engine) *WSHandler {
	return &WSHandler{
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	TopicID     string `json:"topicId"`
	TargetCount int    `json:"targetCount"`
	Balanced    bool   `json:"balanced"`
}

type attemptPayload struct {
	AttemptID string `json:"attemptId"`
}

type answerPayload struct {
	AttemptID        string             `json:"attemptId"`
	QuestionID       string             `json:"questionId"`
	Label            domain.AnswerLabel `json:"label"`
	TimeSpentSeconds int                `json:"timeSpentSeconds"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz
// engine use cases. All writes happen from this goroutine, so no writer
// pump is needed.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "start":
			var payload startPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.writeError(conn, "invalid start payload")
				continue
			}
			view, err := h.engine.StartAttempt(r.Context(), userID, payload.TopicID, domain.SelectionPolicy{
				TargetCount: payload.TargetCount,
				Balanced:    payload.Balanced,
			})
			if err != nil {
				h.writeError(conn, err.Error())
				continue
			}
			h.write(conn, "attempt", view)
		case "resume":
			var payload attemptPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.writeError(conn, "invalid resume payload")
				continue
			}
			view, err := h.engine.ResumeAttempt(r.Context(), userID, payload.AttemptID)
			if err != nil {
				h.writeError(conn, err.Error())
				continue
			}
			h.write(conn, "attempt", view)
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.writeError(conn, "invalid answer payload")
				continue
			}
			outcome, err := h.engine.SubmitAnswer(r.Context(), userID, payload.AttemptID, payload.QuestionID, payload.Label, payload.TimeSpentSeconds)
			// A duplicate submission is answered with the original result,
			// so a retrying client converges instead of erroring.
			if err != nil && !errors.Is(err, domain.ErrAlreadyAnswered) {
				h.writeError(conn, err.Error())
				continue
			}
			h.write(conn, "answerResult", outcome)
		case "abandon":
			var payload attemptPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.writeError(conn, "invalid abandon payload")
				continue
			}
			if err := h.engine.AbandonAttempt(r.Context(), userID, payload.AttemptID); err != nil {
				h.writeError(conn, err.Error())
				continue
			}
			h.write(conn, "abandoned", attemptPayload{AttemptID: payload.AttemptID})
		case "profile":
			profile, err := h.engine.Profile(r.Context(), userID)
			if err != nil {
				h.writeError(conn, err.Error())
				continue
			}
			h.write(conn, "profile", profile)
		default:
			h.writeError(conn, "unsupported message type")
		}
	}
}

func (h *WSHandler) write(conn *websocket.Conn, msgType string, payload any) {
	if err := conn.WriteJSON(outboundMessage[any]{Type: msgType, Payload: payload}); err != nil {
		log.Printf("ws write error: %v", err)
	}
}

func (h *WSHandler) writeError(conn *websocket.Conn, message string) {
	h.write(conn, "error", errorPayload{Message: message})
}
