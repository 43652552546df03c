package consensus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"news-trading-bot/internal/interfaces"
	"news-trading-bot/internal/store"
	"news-trading-bot/internal/types"
)

type fakeClassifier struct {
	id    string
	score int
	delay time.Duration
	err   error
}

func (f *fakeClassifier) ID() string { return f.id }

func (f *fakeClassifier) Classify(ctx context.Context, obs types.Observation, _ types.Contract) (types.Classification, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return types.Classification{}, ctx.Err()
		}
	}
	if f.err != nil {
		return types.Classification{}, f.err
	}
	return types.Classification{ClassifierID: f.id, ObservationID: obs.ID, Score: f.score}, nil
}

type recordingEngine struct {
	mu       sync.Mutex
	received []types.Consensus
}

func (e *recordingEngine) HandleConsensus(ctx context.Context, c types.Consensus) (*types.DecisionResult, error) {
	e.mu.Lock()
	e.received = append(e.received, c)
	e.mu.Unlock()
	return &types.DecisionResult{State: types.StateIdle}, nil
}

func (e *recordingEngine) snapshot() []types.Consensus {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]types.Consensus, len(e.received))
	copy(out, e.received)
	return out
}

func orchestratorConfig(t *testing.T, deadlineMS int) *store.Config {
	t.Helper()
	cfg := &store.Config{
		Sources: []store.SourceConfig{
			{ID: "wire-a", ContractID: "ELECTION-2026", OutcomeID: "CANDIDATE-A"},
			{ID: "wire-b", ContractID: "ELECTION-2026", OutcomeID: "CANDIDATE-B"},
		},
		Contracts: []store.ContractConfig{
			{ID: "ELECTION-2026", Outcomes: []string{"CANDIDATE-A", "CANDIDATE-B"}, TickSize: 0.01},
		},
	}
	cfg.Classifiers.Quorum = 2
	cfg.Classifiers.DeadlineMS = deadlineMS
	cfg.Classifiers.MinAgreement = 0.5
	return cfg
}

func obsFrom(source, id string) types.Observation {
	return types.Observation{
		ID:        id,
		SourceID:  source,
		ContentID: "content-" + id,
		IsNew:     true,
	}
}

func TestClassifyFansOutAndReduces(t *testing.T) {
	classifiers := []interfaces.Classifier{
		&fakeClassifier{id: "a", score: 4},
		&fakeClassifier{id: "b", score: 3},
		&fakeClassifier{id: "c", score: 4},
	}
	o := New(orchestratorConfig(t, 500), classifiers, &recordingEngine{})

	cons := o.Classify(context.Background(), obsFrom("wire-a", "obs-1"))

	if cons.ResolvedScore != 4 {
		t.Errorf("expected resolved score 4, got %d", cons.ResolvedScore)
	}
	if cons.ContractID != "ELECTION-2026" || cons.OutcomeID != "CANDIDATE-A" {
		t.Errorf("source binding not applied: %+v", cons)
	}
	if cons.Respondents != 3 {
		t.Errorf("expected 3 respondents, got %d", cons.Respondents)
	}
}

func TestClassifyDeadlineDropsSlowClassifier(t *testing.T) {
	classifiers := []interfaces.Classifier{
		&fakeClassifier{id: "fast-1", score: 2},
		&fakeClassifier{id: "fast-2", score: 2},
		&fakeClassifier{id: "slow", score: -1, delay: 2 * time.Second},
	}
	o := New(orchestratorConfig(t, 50), classifiers, &recordingEngine{})

	start := time.Now()
	cons := o.Classify(context.Background(), obsFrom("wire-a", "obs-1"))

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("classify did not honor the deadline, took %v", elapsed)
	}
	if cons.Respondents != 2 {
		t.Errorf("slow classifier should not count as respondent, got %d", cons.Respondents)
	}
	if cons.ResolvedScore != 2 {
		t.Errorf("expected resolved score 2 from the fast pair, got %d", cons.ResolvedScore)
	}
	if cons.DissentCount != 1 {
		t.Errorf("non-responder should count as dissent, got %d", cons.DissentCount)
	}
}

func TestClassifyErrorAndInvalidScoreAbstain(t *testing.T) {
	classifiers := []interfaces.Classifier{
		&fakeClassifier{id: "broken", err: errors.New("upstream 500")},
		&fakeClassifier{id: "wild", score: 99},
		&fakeClassifier{id: "sane", score: 3},
	}
	o := New(orchestratorConfig(t, 500), classifiers, &recordingEngine{})

	cons := o.Classify(context.Background(), obsFrom("wire-b", "obs-1"))

	if cons.Respondents != 1 {
		t.Errorf("expected only the sane classifier to respond, got %d", cons.Respondents)
	}
	if cons.ResolvedScore != types.ScoreNeutral || !cons.LowConfidence {
		t.Errorf("1 respondent under quorum 2 must force neutral low-confidence, got %+v", cons)
	}
	if cons.OutcomeID != "CANDIDATE-B" {
		t.Errorf("expected wire-b binding, got %q", cons.OutcomeID)
	}
}

func TestRunDispatchesToEngineAndStops(t *testing.T) {
	classifiers := []interfaces.Classifier{
		&fakeClassifier{id: "a", score: 4},
		&fakeClassifier{id: "b", score: 4},
	}
	eng := &recordingEngine{}
	o := New(orchestratorConfig(t, 500), classifiers, eng)

	in := make(chan types.Observation, 4)
	in <- obsFrom("wire-a", "obs-1")
	in <- obsFrom("wire-a", "obs-2")
	in <- types.Observation{ID: "baseline", SourceID: "wire-a", IsNew: false}
	close(in)

	done := make(chan struct{})
	go func() {
		o.Run(context.Background(), in)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after channel close")
	}

	got := eng.snapshot()
	if len(got) != 2 {
		t.Fatalf("expected 2 consensi at the engine, got %d", len(got))
	}
	if got[0].ObservationID != "obs-1" || got[1].ObservationID != "obs-2" {
		t.Errorf("per-source order not preserved: %q then %q", got[0].ObservationID, got[1].ObservationID)
	}
}

// stallingEngine holds every CANDIDATE-A consensus on a gate so that
// source's worker backs up while other sources keep flowing.
type stallingEngine struct {
	recordingEngine
	gate chan struct{}
}

func (e *stallingEngine) HandleConsensus(ctx context.Context, c types.Consensus) (*types.DecisionResult, error) {
	if c.OutcomeID == "CANDIDATE-A" {
		<-e.gate
	}
	return e.recordingEngine.HandleConsensus(ctx, c)
}

func TestDispatchShedsInsteadOfStallingOtherSources(t *testing.T) {
	classifiers := []interfaces.Classifier{
		&fakeClassifier{id: "a", score: 4},
		&fakeClassifier{id: "b", score: 4},
	}
	eng := &stallingEngine{gate: make(chan struct{})}
	o := New(orchestratorConfig(t, 500), classifiers, eng)

	// Far more wire-a observations than its worker buffer holds while
	// the engine refuses to make progress on that source.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 40; i++ {
			o.dispatch(context.Background(), obsFrom("wire-a", fmt.Sprintf("obs-a-%d", i)))
		}
		o.dispatch(context.Background(), obsFrom("wire-b", "obs-b"))
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("a backlogged source stalled dispatch for the others")
	}

	deadline := time.After(2 * time.Second)
	for {
		var seen bool
		for _, c := range eng.snapshot() {
			if c.OutcomeID == "CANDIDATE-B" {
				seen = true
			}
		}
		if seen {
			break
		}
		select {
		case <-deadline:
			t.Fatal("wire-b consensus never reached the engine")
		case <-time.After(10 * time.Millisecond):
		}
	}

	close(eng.gate)
	o.drain()
}
