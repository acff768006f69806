package browser

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/aluiziolira/go-scrape-rentals/config"
)

func TestPacerNextWithinBounds(t *testing.T) {
	p := NewPacer(time.Second, 3*time.Second)
	for i := 0; i < 1000; i++ {
		d := p.Next()
		if d < time.Second || d > 3*time.Second {
			t.Fatalf("delay %v outside [1s, 3s]", d)
		}
	}
}

func TestPacerFixedDelay(t *testing.T) {
	p := NewPacer(2*time.Second, time.Second)
	if got := p.Next(); got != 2*time.Second {
		t.Fatalf("delay = %v, want 2s", got)
	}
}

func TestPacerWaitUsesDrawnDelay(t *testing.T) {
	p := NewPacer(time.Second, 3*time.Second)
	var slept []time.Duration
	p.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	for i := 0; i < 3; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	if len(slept) != 3 {
		t.Fatalf("sleeps = %d, want 3", len(slept))
	}
	for _, d := range slept {
		if d < time.Second || d > 3*time.Second {
			t.Fatalf("slept %v outside [1s, 3s]", d)
		}
	}
}

func TestPacerWaitCancelled(t *testing.T) {
	p := NewPacer(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPacerZeroDelay(t *testing.T) {
	p := NewPacer(0, 0)
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
}

func newMockedStaticSession(t *testing.T) (*StaticSession, *httpmock.MockTransport) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Backend = config.BackendStatic

	s := NewStaticSession(cfg)
	transport := httpmock.NewMockTransport()
	s.WithTransport(transport)
	return s, transport
}

func TestStaticSessionNavigateAndSnapshot(t *testing.T) {
	s, transport := newMockedStaticSession(t)
	defer s.Close()

	transport.RegisterResponder("GET", "http://example.test/rooms/1",
		httpmock.NewStringResponder(http.StatusOK, "<html><body><h1>Villa</h1></body></html>"))

	ctx := context.Background()
	if err := s.Navigate(ctx, "http://example.test/rooms/1"); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	page, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if page.URL != "http://example.test/rooms/1" {
		t.Fatalf("url = %q", page.URL)
	}
	if page.HTML != "<html><body><h1>Villa</h1></body></html>" {
		t.Fatalf("html = %q", page.HTML)
	}

	// Revisiting the same page must fetch it again.
	if err := s.Navigate(ctx, "http://example.test/rooms/1"); err != nil {
		t.Fatalf("second navigate: %v", err)
	}
	if got := transport.GetCallCountInfo()["GET http://example.test/rooms/1"]; got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
}

func TestStaticSessionNavigateError(t *testing.T) {
	s, transport := newMockedStaticSession(t)

	transport.RegisterResponder("GET", "http://example.test/ok",
		httpmock.NewStringResponder(http.StatusOK, "<html></html>"))
	transport.RegisterResponder("GET", "http://example.test/gone",
		httpmock.NewStringResponder(http.StatusNotFound, "gone"))

	ctx := context.Background()
	if err := s.Navigate(ctx, "http://example.test/ok"); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if err := s.Navigate(ctx, "http://example.test/gone"); err == nil {
		t.Fatalf("expected error for 404")
	}
	if _, err := s.Snapshot(ctx); !errors.Is(err, ErrNoPage) {
		t.Fatalf("expected ErrNoPage after failed navigation, got %v", err)
	}
}

func TestStaticSessionCancelled(t *testing.T) {
	s, _ := newMockedStaticSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Navigate(ctx, "http://example.test/"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Backend = "lynx"
	if _, err := Open(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestOpenStatic(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Backend = config.BackendStatic
	s, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*StaticSession); !ok {
		t.Fatalf("session = %T, want *StaticSession", s)
	}
}
