package http

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func TestCreateSession(t *testing.T) {
	service := newTestService()
	server := newTestServer(service)
	defer server.Close()

	resp, err := http.Post(server.URL+"/sessions", "application/json", strings.NewReader(`{"quizId":"quiz-1"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var created createSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(created.JoinCode) != 6 {
		t.Fatalf("expected 6-char join code, got %q", created.JoinCode)
	}
	if len(created.HostSecret) != 64 {
		t.Fatalf("expected 64-char host secret, got %d chars", len(created.HostSecret))
	}
	if created.SessionID == "" {
		t.Fatalf("expected session id")
	}
}

func TestCreateSessionUnknownQuiz(t *testing.T) {
	service := newTestService()
	server := newTestServer(service)
	defer server.Close()

	resp, err := http.Post(server.URL+"/sessions", "application/json", strings.NewReader(`{"quizId":"missing"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestResultsCSV(t *testing.T) {
	service := newTestService()
	server := newTestServer(service)
	defer server.Close()

	session, err := service.CreateSession(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	alice, err := session.Join("Alice")
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	url := server.URL + "/sessions/" + session.Code() + "/results.csv?secret=" + session.HostSecret()

	// Results are host-only and refuse to render before the session finishes.
	if resp, err := http.Get(server.URL + "/sessions/" + session.Code() + "/results.csv?secret=wrong"); err != nil {
		t.Fatalf("get: %v", err)
	} else if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong secret, got %d", resp.StatusCode)
	}
	if resp, err := http.Get(url); err != nil {
		t.Fatalf("get: %v", err)
	} else if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 before finish, got %d", resp.StatusCode)
	}

	if err := session.StartQuestion(session.HostSecret(), 0); err != nil {
		t.Fatalf("start question: %v", err)
	}
	if _, err := session.Submit(alice.ID, []string{"o2"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("expected text/csv, got %s", ct)
	}

	rows, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus one row, got %d rows", len(rows))
	}
	header := strings.Join(rows[0], ",")
	if header != "participant,question,answer,is_correct,response_ms" {
		t.Fatalf("unexpected header %q", header)
	}
	if rows[1][0] != "Alice" || rows[1][3] != "1" {
		t.Fatalf("unexpected row %v", rows[1])
	}
}
