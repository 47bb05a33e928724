package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

type stubReader struct {
	title string
	text  string
	err   error
}

func (s *stubReader) Read(_ context.Context, _ string) (string, string, error) {
	return s.title, s.text, s.err
}

func longText(n int) string {
	return strings.Repeat("Conteúdo relevante sobre o mercado brasileiro. ", n)
}

func TestReaderStrategyWinsWhenLongEnough(t *testing.T) {
	e := New(NewSession(5*time.Second), &stubReader{title: "T", text: longText(20)})

	got, err := e.Extract(context.Background(), "https://example.com/a")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if got.Method != "reader_service" {
		t.Errorf("expected reader_service to win, got %s", got.Method)
	}
}

func TestFallsBackWhenReaderTooShort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, "<html><head><title>Página</title></head><body><article>%s</article></body></html>", longText(30))
	}))
	defer srv.Close()

	e := New(NewSession(5*time.Second), &stubReader{text: "curto"})

	got, err := e.Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if got.Method == "reader_service" {
		t.Error("short reader output should not win")
	}
	if len(got.Text) < MinContentChars {
		t.Errorf("extracted %d chars, want >= %d", len(got.Text), MinContentChars)
	}
	if got.Title != "Página" {
		t.Errorf("title = %q, want Página", got.Title)
	}
}

func TestStructuredPrefersMainOverBody(t *testing.T) {
	mainContent := longText(20)
	html := fmt.Sprintf(`<html><body>
		<nav>menu menu menu</nav>
		<main>%s</main>
		<footer>rodapé</footer>
	</body></html>`, mainContent)

	_, text, err := structuredText([]byte(html))
	if err != nil {
		t.Fatalf("structuredText failed: %v", err)
	}
	if strings.Contains(text, "menu") || strings.Contains(text, "rodapé") {
		t.Error("boilerplate leaked into extracted text")
	}
}

func TestStructuredContentDivFallback(t *testing.T) {
	html := fmt.Sprintf(`<html><body>
		<div class="sidebar">lateral</div>
		<div class="post-content">%s</div>
	</body></html>`, longText(15))

	_, text, err := structuredText([]byte(html))
	if err != nil {
		t.Fatalf("structuredText failed: %v", err)
	}
	if !strings.Contains(text, "mercado brasileiro") {
		t.Error("content div text missing")
	}
}

func TestTruncationAtCeiling(t *testing.T) {
	e := New(NewSession(5*time.Second), &stubReader{text: strings.Repeat("a", MaxContentChars+500) + " fim."})

	got, err := e.Extract(context.Background(), "https://example.com/long")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !strings.HasSuffix(got.Text, TruncationMarker) {
		t.Error("truncated content must carry the truncation marker")
	}
	if len(got.Text) > MaxContentChars+len(TruncationMarker) {
		t.Errorf("content exceeds ceiling: %d", len(got.Text))
	}
}

func TestTruncationKeepsRuneBoundaries(t *testing.T) {
	// The ceiling lands on the continuation byte of "ç"; the cut must back up
	// instead of leaving an invalid byte before the marker.
	text := strings.Repeat("a", MaxContentChars-1) + strings.Repeat("ção", 200)

	got := truncateContent(text)
	if !utf8.ValidString(got) {
		t.Error("truncated content must remain valid UTF-8")
	}
	if !strings.HasSuffix(got, TruncationMarker) {
		t.Error("truncated content must carry the truncation marker")
	}
	body := strings.TrimSuffix(got, TruncationMarker)
	if len(body) != MaxContentChars-1 {
		t.Errorf("expected cut at the last rune boundary (%d bytes), got %d", MaxContentChars-1, len(body))
	}
}

func TestAllStrategiesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html><body><p>curto</p></body></html>"))
	}))
	defer srv.Close()

	e := New(NewSession(5*time.Second), &stubReader{err: errors.New("reader down")})

	if _, err := e.Extract(context.Background(), srv.URL); err == nil {
		t.Fatal("expected composite failure when every strategy comes up short")
	}
}

func TestSessionRetriesOn429(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	s := NewSession(5 * time.Second)
	body, err := s.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(body) != "ok" || calls != 2 {
		t.Errorf("expected retry to succeed on second call, calls=%d body=%q", calls, body)
	}
}
