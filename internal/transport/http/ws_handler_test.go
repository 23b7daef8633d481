package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"examprep-engine/internal/app"
	"examprep-engine/internal/domain"
	"examprep-engine/internal/infra/memory"
	"examprep-engine/internal/selection"
)

func TestWebSocketQuizFlow(t *testing.T) {
	content := memory.NewContentStore(memory.NewStaticContentLoader(sampleTopics()), time.Minute)
	engine := app.NewEngine(content, memory.NewAttemptRepository(), memory.NewProfileRepository(), selection.New(), domain.DefaultGameRules())
	wsHandler := NewWSHandler(engine)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?userId=u1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Start a one-question quiz.
	start := map[string]any{
		"type": "start",
		"payload": map[string]any{
			"topicId":     "anatomy",
			"targetCount": 1,
		},
	}
	if err := conn.WriteJSON(start); err != nil {
		t.Fatalf("write start: %v", err)
	}
	_, payload := readNext(conn, t, "attempt")
	attemptID, _ := payload["id"].(string)
	if attemptID == "" {
		t.Fatalf("expected attempt id in payload %v", payload)
	}
	next, ok := payload["nextQuestion"].(map[string]any)
	if !ok {
		t.Fatalf("expected first question in payload %v", payload)
	}
	if _, leaked := next["correctAnswer"]; leaked {
		t.Fatalf("prompt leaked the correct answer: %v", next)
	}
	questionID, _ := next["id"].(string)

	// Answer it correctly.
	answer := map[string]any{
		"type": "answer",
		"payload": map[string]any{
			"attemptId":        attemptID,
			"questionId":       questionID,
			"label":            "B",
			"timeSpentSeconds": 4,
		},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	_, result := readNext(conn, t, "answerResult")
	if correct, _ := result["isCorrect"].(bool); !correct {
		t.Fatalf("expected correct answer, got %v", result)
	}
	if status, _ := result["status"].(string); status != string(domain.StatusCompleted) {
		t.Fatalf("expected completed attempt, got %v", result)
	}

	// A retried answer converges on the original result instead of erroring.
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("rewrite answer: %v", err)
	}
	_, retried := readNext(conn, t, "answerResult")
	if pts, _ := retried["pointsThisAnswer"].(float64); pts != 100 {
		t.Fatalf("expected original 100 points back, got %v", retried)
	}

	// Completion credited the profile.
	if err := conn.WriteJSON(map[string]any{"type": "profile"}); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	_, profile := readNext(conn, t, "profile")
	if pts, _ := profile["totalPoints"].(float64); pts != 100 {
		t.Fatalf("expected 100 total points, got %v", profile)
	}
}

func TestWebSocketRejectsMissingUser(t *testing.T) {
	engine := app.NewEngine(
		memory.NewContentStore(memory.NewStaticContentLoader(sampleTopics()), time.Minute),
		memory.NewAttemptRepository(),
		memory.NewProfileRepository(),
		selection.New(),
		domain.DefaultGameRules(),
	)
	server := httptest.NewServer(http.HandlerFunc(NewWSHandler(engine).ServeWS))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without userId, got %d", resp.StatusCode)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%v)", expect, msg.Type, msg.Payload)
	}
	return msg.Type, msg.Payload
}

func sampleTopics() map[string][]domain.QuestionSnapshot {
	return map[string][]domain.QuestionSnapshot{
		"anatomy": {
			{
				ID:       "q1",
				Category: "skeletal",
				Prompt:   "How many bones does the adult human body have?",
				Options: []domain.Option{
					{Label: domain.LabelA, Text: "196"},
					{Label: domain.LabelB, Text: "206"},
				},
				CorrectAnswer: domain.LabelB,
			},
		},
	}
}
