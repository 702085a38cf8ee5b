// Package planning tracks the lifecycle of one planning request against a
// remote target, including downstream SPOF enrichment. One result is live at
// a time; submitting a new plan discards the previous one.
package planning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/dominggo/ai-osp/internal/dispatch"
	"github.com/dominggo/ai-osp/internal/models"
)

// State is the session lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
	StateEnriching  State = "enriching"
)

// ErrBusy is returned when a submission or enrichment is already in flight.
var ErrBusy = errors.New("a planning operation is already in flight")

// Submitter is the dispatch surface the session needs. *dispatch.Client
// satisfies it.
type Submitter interface {
	Submit(ctx context.Context, target models.Target, path string, payload any, policy dispatch.Policy) ([]byte, error)
}

// Enricher runs SPOF analysis for a completed plan and returns the SPOF
// sub-document to merge into the result.
type Enricher func(ctx context.Context, merged *geojson.FeatureCollection, result *models.PlanResult) (map[string]any, error)

// planResponse is the wire shape of a target's plan payload.
type planResponse struct {
	Routes  *geojson.FeatureCollection `json:"routes"`
	Summary map[string]any             `json:"summary"`
}

// Session is the planning state machine:
//
//	Idle -> Submitting -> Succeeded | Failed
//	Succeeded -> Enriching -> Succeeded (SPOF merged) | Failed (result retained)
//
// A new submission is allowed from Idle and from either terminal state, and
// discards the previous result. In-flight work can be canceled explicitly.
type Session struct {
	submitter Submitter
	policyFor func(models.Target) dispatch.Policy

	mu     sync.Mutex
	state  State
	result *models.PlanResult
	err    error
	cancel context.CancelFunc
}

// New creates an idle session. policyFor supplies the per-target submission
// timeout policy.
func New(submitter Submitter, policyFor func(models.Target) dispatch.Policy) *Session {
	return &Session{
		submitter: submitter,
		policyFor: policyFor,
		state:     StateIdle,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the live plan result. It stays available in StateFailed
// when only enrichment failed.
func (s *Session) Result() *models.PlanResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Err returns the failure that put the session into StateFailed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Cancel aborts an in-flight submission or enrichment. A no-op otherwise.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Submit sends a planning request to the chosen target and blocks until it
// resolves. Any previous result is discarded on entry.
func (s *Session) Submit(ctx context.Context, target models.Target, req models.PlanRequest) (*models.PlanResult, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("unknown target %q", target)
	}
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("unknown planning mode %q", req.Mode)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.state == StateSubmitting || s.state == StateEnriching {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.state = StateSubmitting
	s.result = nil
	s.err = nil
	s.cancel = cancel
	s.mu.Unlock()

	slog.Info("submitting plan", "target", target, "mode", req.Mode)
	body, err := s.submitter.Submit(ctx, target, "/v1/plan/sync", req, s.policyFor(target))
	if err != nil {
		s.fail(err)
		return nil, err
	}

	var resp planResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		err = fmt.Errorf("decode plan response: %w", err)
		s.fail(err)
		return nil, err
	}

	result := &models.PlanResult{
		Target:      target,
		Mode:        req.Mode,
		Routes:      resp.Routes,
		Summary:     resp.Summary,
		CompletedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.state = StateSucceeded
	s.result = result
	s.cancel = nil
	s.mu.Unlock()
	return result, nil
}

// Enrich runs SPOF analysis for the current result and merges the SPOF
// sub-document into it. Enrichment failure moves the session to StateFailed
// but retains the plan result.
func (s *Session) Enrich(ctx context.Context, merged *geojson.FeatureCollection, enrich Enricher) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.state != StateSucceeded {
		s.mu.Unlock()
		if s.state == StateSubmitting || s.state == StateEnriching {
			return ErrBusy
		}
		return fmt.Errorf("no successful plan to enrich (state %s)", s.state)
	}
	result := s.result
	s.state = StateEnriching
	s.cancel = cancel
	s.mu.Unlock()

	spof, err := enrich(ctx, merged, result)
	if err != nil {
		s.mu.Lock()
		s.state = StateFailed
		s.err = err
		s.cancel = nil
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	result.SPOF = spof
	s.state = StateSucceeded
	s.cancel = nil
	s.mu.Unlock()
	return nil
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	s.state = StateFailed
	s.err = err
	s.cancel = nil
	s.mu.Unlock()
}

// FailureReason renders a user-facing explanation of a failed submission.
// Timeouts and rejections read differently on purpose: a timeout suggests
// retrying with simpler input, a rejection means the input was refused.
func FailureReason(err error) string {
	de, ok := dispatch.AsError(err)
	if !ok {
		return err.Error()
	}
	switch de.Kind {
	case dispatch.KindTimeout:
		return fmt.Sprintf("target %s did not answer in time; try a smaller network or target B", de.Target)
	case dispatch.KindUnreachable:
		return fmt.Sprintf("target %s is unreachable; check connectivity and server status", de.Target)
	case dispatch.KindCanceled:
		return "planning request canceled"
	default:
		if de.Detail != "" {
			return fmt.Sprintf("target %s rejected the request: %s", de.Target, de.Detail)
		}
		return fmt.Sprintf("target %s rejected the request", de.Target)
	}
}
