package planning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/dominggo/ai-osp/internal/dispatch"
	"github.com/dominggo/ai-osp/internal/models"
)

// fakeSubmitter lets tests script the dispatch outcome.
type fakeSubmitter struct {
	body  []byte
	err   error
	block chan struct{} // when set, Submit blocks until closed or ctx done
	calls int
}

func (f *fakeSubmitter) Submit(ctx context.Context, target models.Target, path string, payload any, policy dispatch.Policy) ([]byte, error) {
	f.calls++
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, &dispatch.Error{Kind: dispatch.KindCanceled, Target: target, Path: path}
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

func fixedPolicy(models.Target) dispatch.Policy {
	return dispatch.Policy{Timeout: time.Second}
}

func ftthRequest() models.PlanRequest {
	return models.PlanRequest{
		Mode:    models.ModeFTTH,
		GeoJSON: geojson.NewFeatureCollection(),
		FTTH:    &models.FTTHConfig{MaxDropLength: 150, SplitterRatio: "1:32"},
	}
}

func TestSubmitSuccess(t *testing.T) {
	sub := &fakeSubmitter{body: []byte(`{"routes":{"type":"FeatureCollection","features":[]},"summary":{"total_length_m":1234.5}}`)}
	s := New(sub, fixedPolicy)

	if s.State() != StateIdle {
		t.Fatalf("expected idle, got %s", s.State())
	}

	res, err := s.Submit(context.Background(), models.TargetA, ftthRequest())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if s.State() != StateSucceeded {
		t.Fatalf("expected succeeded, got %s", s.State())
	}
	if res.Target != models.TargetA || res.Mode != models.ModeFTTH {
		t.Fatalf("result not stamped: %+v", res)
	}
	if res.Summary["total_length_m"] != 1234.5 {
		t.Fatalf("summary not decoded: %+v", res.Summary)
	}
}

func TestSubmitFailureClassified(t *testing.T) {
	sub := &fakeSubmitter{err: &dispatch.Error{Kind: dispatch.KindTimeout, Target: models.TargetA, Path: "/v1/plan/sync"}}
	s := New(sub, fixedPolicy)

	_, err := s.Submit(context.Background(), models.TargetA, ftthRequest())
	if err == nil {
		t.Fatal("expected error")
	}
	if s.State() != StateFailed {
		t.Fatalf("expected failed, got %s", s.State())
	}
	if s.Result() != nil {
		t.Fatal("failed submission must not leave a result")
	}

	reason := FailureReason(err)
	if reason == "" || reason == err.Error() {
		t.Fatalf("timeout should render a distinct user-facing reason, got %q", reason)
	}
}

func TestNewSubmitDiscardsPreviousResult(t *testing.T) {
	sub := &fakeSubmitter{body: []byte(`{"summary":{"run":1}}`)}
	s := New(sub, fixedPolicy)

	if _, err := s.Submit(context.Background(), models.TargetA, ftthRequest()); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	// Second submission fails; the first result must be gone.
	sub.body = nil
	sub.err = &dispatch.Error{Kind: dispatch.KindUnreachable, Target: models.TargetB}
	if _, err := s.Submit(context.Background(), models.TargetB, ftthRequest()); err == nil {
		t.Fatal("expected failure")
	}
	if s.Result() != nil {
		t.Fatal("new submission must discard the previous result")
	}
}

func TestSubmitWhileInFlightIsRejected(t *testing.T) {
	block := make(chan struct{})
	sub := &fakeSubmitter{body: []byte(`{}`), block: block}
	s := New(sub, fixedPolicy)

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), models.TargetB, ftthRequest())
		done <- err
	}()

	// Wait for the first submission to be in flight.
	for i := 0; i < 100 && s.State() != StateSubmitting; i++ {
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := s.Submit(context.Background(), models.TargetA, ftthRequest()); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	close(block)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
}

func TestCancelInFlightSubmission(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	sub := &fakeSubmitter{block: block}
	s := New(sub, fixedPolicy)

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), models.TargetB, ftthRequest())
		done <- err
	}()
	for i := 0; i < 100 && s.State() != StateSubmitting; i++ {
		time.Sleep(5 * time.Millisecond)
	}

	s.Cancel()

	err := <-done
	de, ok := dispatch.AsError(err)
	if !ok || de.Kind != dispatch.KindCanceled {
		t.Fatalf("expected canceled dispatch error, got %v", err)
	}
	if s.State() != StateFailed {
		t.Fatalf("expected failed after cancel, got %s", s.State())
	}
}

func TestEnrichMergesSPOF(t *testing.T) {
	sub := &fakeSubmitter{body: []byte(`{"summary":{}}`)}
	s := New(sub, fixedPolicy)
	if _, err := s.Submit(context.Background(), models.TargetA, ftthRequest()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	err := s.Enrich(context.Background(), geojson.NewFeatureCollection(), func(ctx context.Context, merged *geojson.FeatureCollection, result *models.PlanResult) (map[string]any, error) {
		return map[string]any{"critical_nodes": []string{"n7"}}, nil
	})
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if s.State() != StateSucceeded {
		t.Fatalf("expected succeeded after enrichment, got %s", s.State())
	}
	if s.Result().SPOF == nil {
		t.Fatal("SPOF sub-document not merged into result")
	}
}

func TestEnrichFailureRetainsResult(t *testing.T) {
	sub := &fakeSubmitter{body: []byte(`{"summary":{"run":1}}`)}
	s := New(sub, fixedPolicy)
	if _, err := s.Submit(context.Background(), models.TargetA, ftthRequest()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	boom := &dispatch.Error{Kind: dispatch.KindUnreachable, Target: models.TargetA, Path: "/api/spof/analyze"}
	err := s.Enrich(context.Background(), geojson.NewFeatureCollection(), func(ctx context.Context, merged *geojson.FeatureCollection, result *models.PlanResult) (map[string]any, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected enrichment error, got %v", err)
	}
	if s.State() != StateFailed {
		t.Fatalf("expected failed, got %s", s.State())
	}
	if s.Result() == nil {
		t.Fatal("enrichment failure must retain the plan result")
	}
	if s.Result().SPOF != nil {
		t.Fatal("failed enrichment must not attach SPOF data")
	}
}

func TestEnrichRequiresSuccess(t *testing.T) {
	s := New(&fakeSubmitter{}, fixedPolicy)
	err := s.Enrich(context.Background(), geojson.NewFeatureCollection(), func(ctx context.Context, merged *geojson.FeatureCollection, result *models.PlanResult) (map[string]any, error) {
		return nil, nil
	})
	if err == nil {
		t.Fatal("enrichment without a plan must fail")
	}
}

func TestSubmitValidatesInput(t *testing.T) {
	s := New(&fakeSubmitter{}, fixedPolicy)
	if _, err := s.Submit(context.Background(), models.Target("C"), ftthRequest()); err == nil {
		t.Fatal("unknown target must be rejected")
	}
	req := ftthRequest()
	req.Mode = models.PlanMode("teleport")
	if _, err := s.Submit(context.Background(), models.TargetA, req); err == nil {
		t.Fatal("unknown mode must be rejected")
	}
}
