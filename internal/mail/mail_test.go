package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mockdesk/dashboard/internal/backend"
)

func TestSendgridPrepare(t *testing.T) {
	s := NewSendgridSender("key", "Mock Test Centre", "noreply@example.com")
	msg := TRFMessage{ToName: "Ayesha", ToEmail: "ayesha@example.com", TestName: "IELTS", Filename: "IELTS_TRF_Ayesha.pdf", PDF: []byte("%PDF-1.3")}
	m, err := s.prepare(msg)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if len(m.Attachments) != 1 {
		t.Fatalf("expected one attachment")
	}
	att := m.Attachments[0]
	raw, _ := base64.StdEncoding.DecodeString(att.Content)
	if att.Filename != "IELTS_TRF_Ayesha.pdf" || att.Type != "application/pdf" || string(raw) != "%PDF-1.3" {
		t.Fatalf("unexpected attachment %+v", att)
	}
	if m.Personalizations[0].Subject != "Your IELTS Test Report Form" {
		t.Fatalf("unexpected subject %q", m.Personalizations[0].Subject)
	}
	if _, err := s.prepare(TRFMessage{}); err == nil {
		t.Fatalf("expected error without recipient")
	}
}

func TestSendgridSend(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != sendgridEndpoint || r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("unexpected request %s %s", r.URL.Path, r.Header.Get("Authorization"))
		}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewSendgridSender("key", "Centre", "noreply@example.com")
	s.host = srv.URL
	err := s.SendTRF(context.Background(), TRFMessage{ToEmail: "a@example.com", Filename: "f.pdf", PDF: []byte("x")})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, ok := body["attachments"]; !ok {
		t.Fatalf("attachment missing from payload %v", body)
	}
}

func TestSendgridSendHonoursCancelledContext(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewSendgridSender("key", "Centre", "noreply@example.com")
	s.host = srv.URL
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.SendTRF(ctx, TRFMessage{ToEmail: "a@example.com", Filename: "f.pdf", PDF: []byte("x")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if hits != 0 {
		t.Fatalf("nothing should reach sendgrid, got %d requests", hits)
	}
}

func TestBackendSender(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("expected multipart upload")
		}
	}))
	defer srv.Close()
	s := BackendSender{Client: backend.New(backend.Options{BaseURL: srv.URL})}
	if s.Channel() != ChannelBackend {
		t.Fatalf("unexpected channel")
	}
	if err := s.SendTRF(context.Background(), TRFMessage{UserID: "u1", ScheduleID: "s1", Filename: "f.pdf", PDF: []byte("x")}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if path != "/api/v1/admin/send-trf-email/u1/s1" {
		t.Fatalf("unexpected path %s", path)
	}
}
