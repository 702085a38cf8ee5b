package dispatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dominggo/ai-osp/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	// Same server behind both targets unless a test overrides.
	return New(srv.URL, srv.URL), srv
}

func TestSubmitSuccess(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %q", ct)
		}
		w.Write([]byte(`{"ok":true}`))
	}))

	body, err := c.Submit(context.Background(), models.TargetA, "/v1/plan/sync",
		map[string]string{"mode": "ftth"}, Policy{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestSubmitTimeout(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))

	_, err := c.Submit(context.Background(), models.TargetA, "/v1/plan/sync",
		map[string]string{}, Policy{Timeout: 50 * time.Millisecond})
	de, ok := AsError(err)
	if !ok {
		t.Fatalf("expected dispatch error, got %v", err)
	}
	if de.Kind != KindTimeout {
		t.Fatalf("expected KindTimeout, got %s", de.Kind)
	}
	if de.Target != models.TargetA {
		t.Fatalf("error should carry the target, got %s", de.Target)
	}
}

func TestTimeoutPolicyIsPerCall(t *testing.T) {
	// A slow handler that beats target B's budget but not target A's.
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(150 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))

	_, err := c.Submit(context.Background(), models.TargetA, "/v1/plan/sync", nil, Policy{Timeout: 50 * time.Millisecond})
	if de, ok := AsError(err); !ok || de.Kind != KindTimeout {
		t.Fatalf("short policy should time out, got %v", err)
	}

	if _, err := c.Submit(context.Background(), models.TargetB, "/v1/plan/sync", nil, Policy{Timeout: 2 * time.Second}); err != nil {
		t.Fatalf("long policy should succeed, got %v", err)
	}
}

func TestSubmitUnreachable(t *testing.T) {
	c := New("http://127.0.0.1:1", "http://127.0.0.1:1")

	_, err := c.Submit(context.Background(), models.TargetB, "/v1/plan/sync", nil, Policy{Timeout: 2 * time.Second})
	de, ok := AsError(err)
	if !ok {
		t.Fatalf("expected dispatch error, got %v", err)
	}
	if de.Kind != KindUnreachable {
		t.Fatalf("expected KindUnreachable, got %s", de.Kind)
	}
}

func TestSubmitRejectedStructuredBody(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotImplemented)
		w.Write([]byte(`{"error":"Planning endpoint not yet implemented","message":"Phase 5"}`))
	}))

	_, err := c.Submit(context.Background(), models.TargetB, "/v1/plan/sync", nil, Policy{Timeout: time.Second})
	de, ok := AsError(err)
	if !ok {
		t.Fatalf("expected dispatch error, got %v", err)
	}
	if de.Kind != KindRejected || de.Status != http.StatusNotImplemented {
		t.Fatalf("expected rejected/501, got %s/%d", de.Kind, de.Status)
	}
	if de.Detail != "Planning endpoint not yet implemented: Phase 5" {
		t.Fatalf("unexpected detail %q", de.Detail)
	}
}

func TestSubmitRejectedUnparseableBody(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))

	_, err := c.Submit(context.Background(), models.TargetA, "/v1/plan/sync", nil, Policy{Timeout: time.Second})
	de, ok := AsError(err)
	if !ok || de.Kind != KindRejected {
		t.Fatalf("expected KindRejected, got %v", err)
	}
	if de.Detail != "request rejected with status 502" {
		t.Fatalf("expected generic detail, got %q", de.Detail)
	}
}

func TestSubmitCanceled(t *testing.T) {
	block := make(chan struct{})
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := c.Submit(ctx, models.TargetB, "/v1/plan/sync", nil, Policy{Timeout: time.Minute})
	de, ok := AsError(err)
	if !ok {
		t.Fatalf("expected dispatch error, got %v", err)
	}
	if de.Kind != KindCanceled {
		t.Fatalf("expected KindCanceled, got %s", de.Kind)
	}
}

func TestGetProbe(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("expected /health, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"status":"healthy"}`))
	}))

	if _, err := c.Get(context.Background(), models.TargetA, "/health", Policy{Timeout: time.Second}); err != nil {
		t.Fatalf("probe: %v", err)
	}
}
