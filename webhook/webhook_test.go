package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNotify_SignsBody(t *testing.T) {
	var got Event
	var sig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		sig = r.Header.Get(SignatureHeader)
		if want := "sha256=" + Sign("s3cret", body); sig != want {
			t.Errorf("signature = %q, want %q", sig, want)
		}
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("bad body: %v", err)
		}
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, "s3cret")
	n.Notify(context.Background(), &Event{Type: EventRunCompleted, Timestamp: 42, Data: map[string]int{"orders": 2}})

	if got.Type != EventRunCompleted || got.Timestamp != 42 {
		t.Errorf("received event = %+v", got)
	}
	if sig == "" {
		t.Error("signature header missing")
	}
}

func TestNotify_Retries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, "")
	n.delays = []time.Duration{0, time.Millisecond, time.Millisecond, time.Millisecond}
	n.Notify(context.Background(), &Event{Type: EventRunFailed})

	if got := calls.Load(); got != 3 {
		t.Errorf("endpoint called %d times, want 3", got)
	}
}

func TestNotify_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, "")
	n.delays = []time.Duration{0, time.Millisecond}
	n.Notify(context.Background(), &Event{Type: EventRunFailed})

	if got := calls.Load(); got != 2 {
		t.Errorf("endpoint called %d times, want 2", got)
	}
}

func TestNilNotifier(t *testing.T) {
	n := NewNotifier("", "secret")
	if n != nil {
		t.Fatal("empty URL should yield a nil notifier")
	}
	n.Notify(context.Background(), &Event{Type: EventRunCompleted})
}
