package fixer

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/shopaudit/imagefix/internal/compliance"
	"github.com/shopaudit/imagefix/internal/gemini"
)

// subscriberBuffer is the per-subscriber channel depth. Slow consumers skip
// intermediate snapshots rather than stalling the run.
const subscriberBuffer = 16

// Service owns the live fix runs, keyed by asset ID. Each run is an
// independent goroutine; loops for different assets never share state and
// cancelling one does not affect the others.
type Service struct {
	gen     Generator
	ver     Verifier
	invoker *gemini.Invoker

	mu   sync.Mutex
	runs map[string]*run
}

type run struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	state FixProgressState
	subs  []chan FixProgressState
}

// NewService creates a run registry over the given capabilities. A nil
// invoker gets the default retry budget.
func NewService(gen Generator, ver Verifier, invoker *gemini.Invoker) *Service {
	if invoker == nil {
		invoker = gemini.NewInvoker()
	}
	return &Service{gen: gen, ver: ver, invoker: invoker, runs: make(map[string]*run)}
}

// StartFix launches the fix loop for an asset and returns a stream of state
// snapshots. The stream closes when the run reaches a terminal phase. A
// second start for an asset whose run is still in flight is rejected.
func (s *Service) StartFix(ctx context.Context, asset *compliance.Asset, report *compliance.ComplianceResult, reference *compliance.Asset, opts Options) (<-chan FixProgressState, error) {
	if asset == nil || asset.ID == "" {
		return nil, fmt.Errorf("asset with an ID is required")
	}

	s.mu.Lock()
	if existing, ok := s.runs[asset.ID]; ok {
		select {
		case <-existing.done:
			// Prior run finished, replace it.
		default:
			s.mu.Unlock()
			return nil, fmt.Errorf("fix already running for asset %s", asset.ID)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &run{cancel: cancel, done: make(chan struct{})}
	r.state = FixProgressState{AssetID: asset.ID, Phase: PhaseGenerating, Attempt: 1}
	s.runs[asset.ID] = r
	s.mu.Unlock()

	stream := r.subscribe()

	orch := NewOrchestrator(s.gen, s.ver, s.invoker, r.publishSnapshot)
	go func() {
		defer cancel()
		final, err := orch.Run(runCtx, asset, report, reference, opts)
		if err != nil {
			log.Warn().Err(err).Str("asset", asset.ID).Msg("Fix run ended with error")
		}
		r.finish(final)
	}()

	return stream, nil
}

// Progress returns the latest snapshot for an asset's run.
func (s *Service) Progress(assetID string) (FixProgressState, bool) {
	s.mu.Lock()
	r, ok := s.runs[assetID]
	s.mu.Unlock()
	if !ok {
		return FixProgressState{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, true
}

// Subscribe attaches a new snapshot stream to an in-flight run. The second
// return is false when no run exists for the asset. The stream starts with
// the current snapshot and closes when the run ends.
func (s *Service) Subscribe(assetID string) (<-chan FixProgressState, bool) {
	s.mu.Lock()
	r, ok := s.runs[assetID]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	return r.subscribe(), true
}

// Cancel abandons an in-flight run. In-flight provider calls are not
// force-cancelled server-side beyond their context; the orchestrator stops
// before issuing further attempts and never writes back a fixed image for an
// abandoned run. Returns false when no run is in flight.
func (s *Service) Cancel(assetID string) bool {
	s.mu.Lock()
	r, ok := s.runs[assetID]
	s.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
	}
	log.Info().Str("asset", assetID).Msg("Cancelling fix run")
	r.cancel()
	return true
}

func (r *run) subscribe() <-chan FixProgressState {
	ch := make(chan FixProgressState, subscriberBuffer)
	r.mu.Lock()
	defer r.mu.Unlock()
	select {
	case <-r.done:
		ch <- r.state
		close(ch)
		return ch
	default:
	}
	ch <- r.state
	r.subs = append(r.subs, ch)
	return ch
}

// publishSnapshot replaces the stored snapshot and fans it out. Full
// subscriber buffers are skipped; they catch up on the next snapshot.
func (r *run) publishSnapshot(state FixProgressState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
	for _, ch := range r.subs {
		select {
		case ch <- state:
		default:
		}
	}
}

func (r *run) finish(final FixProgressState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = final
	for _, ch := range r.subs {
		select {
		case ch <- final:
		default:
		}
		close(ch)
	}
	r.subs = nil
	close(r.done)
}
