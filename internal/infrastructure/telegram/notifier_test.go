package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPublishDigest(t *testing.T) {
	t.Parallel()

	type sent struct {
		path, chatID, text, mode string
	}
	got := make(chan sent, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		got <- sent{
			path:   r.URL.Path,
			chatID: r.PostForm.Get("chat_id"),
			text:   r.PostForm.Get("text"),
			mode:   r.PostForm.Get("parse_mode"),
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewNotifier("123:abc", "-100").WithAPIBase(srv.URL + "/")
	if err := n.PublishDigest(context.Background(), "*News Analysis: solar*"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg := <-got
	if msg.path != "/bot123:abc/sendMessage" {
		t.Fatalf("unexpected path: %s", msg.path)
	}
	if msg.chatID != "-100" || msg.text != "*News Analysis: solar*" || msg.mode != "Markdown" {
		t.Fatalf("unexpected form: %+v", msg)
	}
}

func TestPublishDigestErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"chat not found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewNotifier("t", "c").WithAPIBase(srv.URL).PublishDigest(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected API error with description, got %v", err)
	}

	if err := NewNotifier("", "c").PublishDigest(context.Background(), "x"); err == nil {
		t.Fatalf("expected misconfiguration error")
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := truncate("short", 10); got != "short" {
		t.Fatalf("short text changed: %q", got)
	}

	long := strings.Repeat("ü", 50)
	got := truncate(long, 20)
	if utf8.RuneCountInString(got) != 20 {
		t.Fatalf("expected 20 runes, got %d", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, truncationMark) || !utf8.ValidString(got) {
		t.Fatalf("bad truncation: %q", got)
	}
}
