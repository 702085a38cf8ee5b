package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dominggo/ai-osp/internal/dispatch"
	"github.com/dominggo/ai-osp/internal/models"
)

func TestProbeOnceIndependentTargets(t *testing.T) {
	// Target A answers promptly, target B sleeps past the probe timeout.
	srvA := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"healthy","server_id":"A","capabilities":{"max_sites":20,"timeout_seconds":5}}`))
	}))
	t.Cleanup(srvA.Close)
	srvB := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	t.Cleanup(srvB.Close)

	m := New(dispatch.New(srvA.URL, srvB.URL), 100*time.Millisecond, time.Minute)
	results := m.ProbeOnce(context.Background())

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	byTarget := map[models.Target]models.HealthStatus{}
	for _, st := range results {
		byTarget[st.Target] = st
	}

	a := byTarget[models.TargetA]
	if !a.Online() {
		t.Fatalf("target A should be online, got %+v", a)
	}
	if a.Capabilities == nil || a.Capabilities.MaxSites != 20 {
		t.Fatalf("target A capabilities not parsed: %+v", a.Capabilities)
	}

	b := byTarget[models.TargetB]
	if b.Online() {
		t.Fatal("target B should be offline after probe timeout")
	}
	if b.Err == "" {
		t.Fatal("offline status should carry the probe error")
	}
}

func TestProbeFailureDegradesToOffline(t *testing.T) {
	m := New(dispatch.New("http://127.0.0.1:1", "http://127.0.0.1:1"), 200*time.Millisecond, time.Minute)
	results := m.ProbeOnce(context.Background())
	for _, st := range results {
		if st.State != models.HealthOffline {
			t.Fatalf("target %s: expected offline, got %s", st.Target, st.State)
		}
	}
}

func TestCycleSkipsOverlappingProbes(t *testing.T) {
	var probes atomic.Int32
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes.Add(1)
		<-block
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(block) })

	m := New(dispatch.New(srv.URL, srv.URL), time.Minute, time.Minute)

	ctx := context.Background()
	m.cycle(ctx)
	time.Sleep(50 * time.Millisecond) // let the first probes reach the server
	m.cycle(ctx)
	m.cycle(ctx)
	time.Sleep(50 * time.Millisecond)

	// Two targets, one in-flight probe each; later cycles must be skipped.
	if got := probes.Load(); got != 2 {
		t.Fatalf("expected 2 in-flight probes, got %d", got)
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"healthy"}`))
	}))
	t.Cleanup(srv.Close)

	m := New(dispatch.New(srv.URL, srv.URL), time.Second, time.Minute)

	updates := make(chan models.HealthStatus, 4)
	unsub := m.Subscribe(func(st models.HealthStatus) { updates <- st })
	defer unsub()

	m.cycle(context.Background())

	for i := 0; i < 2; i++ {
		select {
		case st := <-updates:
			if !st.Online() {
				t.Fatalf("expected online update, got %+v", st)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for status update")
		}
	}
}
