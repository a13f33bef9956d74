package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/foxseedlab/dispatchd/internal/webhook"
)

func TestSendAlert_EmptyWebhookURL(t *testing.T) {
	sender := NewHTTPSender("", 0)
	if err := sender.SendAlert(context.Background(), webhook.Alert{Message: "hello"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestSendAlert_Success(t *testing.T) {
	var got webhook.Alert

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL, 0)
	err := sender.SendAlert(context.Background(), webhook.Alert{
		Severity:   webhook.SeverityCritical,
		Component:  "dispatch",
		Message:    "session without protocol version",
		Attributes: map[string]string{"session_id": "s1"},
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got.Component != "dispatch" || got.Attributes["session_id"] != "s1" {
		t.Fatalf("unexpected alert: %+v", got)
	}
	if got.OccurredAt.IsZero() {
		t.Fatal("expected occurred_at to be stamped")
	}
}

func TestSendAlert_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL, 0)
	if err := sender.SendAlert(context.Background(), webhook.Alert{Message: "x"}); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestSendAlert_Throttled(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL, 2)
	for range 2 {
		if err := sender.SendAlert(context.Background(), webhook.Alert{Message: "x"}); err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
	}
	err := sender.SendAlert(context.Background(), webhook.Alert{Message: "x"})
	if !errors.Is(err, ErrAlertThrottled) {
		t.Fatalf("expected throttled error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 webhook calls, got %d", calls)
	}
}
