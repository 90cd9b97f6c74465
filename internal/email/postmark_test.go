package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSend(t *testing.T) {
	var received postmarkEmail
	var gotToken string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Postmark-Server-Token")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	client := NewClient("test-token", "borrel@example.org", WithAPIURL(server.URL), WithHTTPClient(server.Client()))

	err := client.Send(context.Background(), "tapper@example.org",
		"Inschrijving geopend", "Je kunt je nu inschrijven.", "<p>Je kunt je nu inschrijven.</p>")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if gotToken != "test-token" {
		t.Errorf("server token = %q, want %q", gotToken, "test-token")
	}
	if received.To != "tapper@example.org" {
		t.Errorf("To = %q", received.To)
	}
	if received.From != "borrel@example.org" {
		t.Errorf("From = %q", received.From)
	}
	if received.Subject != "Inschrijving geopend" {
		t.Errorf("Subject = %q", received.Subject)
	}
}

func TestSendUnconfigured(t *testing.T) {
	client := NewClient("", "borrel@example.org")
	if client.Configured() {
		t.Error("client without token should not report configured")
	}
	if err := client.Send(context.Background(), "tapper@example.org", "s", "b", ""); err == nil {
		t.Error("expected error from unconfigured client")
	}
}

func TestSendServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient("test-token", "borrel@example.org", WithAPIURL(server.URL), WithHTTPClient(server.Client()))
	if err := client.Send(context.Background(), "tapper@example.org", "s", "b", ""); err == nil {
		t.Error("expected error on 4xx response")
	}
}
