package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestURLVerificationEchoesChallenge(t *testing.T) {
	h := &Handler{}
	body := `{"type":"url_verification","challenge":"abc123"}`
	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.HandleSlackEvents(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out["challenge"] != "abc123" {
		t.Errorf("challenge: got %q", out["challenge"])
	}
}

func TestEventsRejectsMalformedBody(t *testing.T) {
	h := &Handler{}
	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader("not json"))
	rec := httptest.NewRecorder()

	h.HandleSlackEvents(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestInteractionsIgnoresNonBlockActions(t *testing.T) {
	h := &Handler{}
	form := "payload=" + `{"type":"view_submission"}`
	req := httptest.NewRequest(http.MethodPost, "/slack/interactions", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	h.HandleSlackInteractions(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d", rec.Code)
	}
}
