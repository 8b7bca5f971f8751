package swarm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DrSkyle/assetpulse/pkg/config"
	"github.com/DrSkyle/assetpulse/pkg/engine/sources"
	"github.com/DrSkyle/assetpulse/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu    sync.Mutex
	t     time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
	c.slept = append(c.slept, d)
}

type stubSource struct {
	name  string
	err   error
	block bool
	boom  bool
}

func (s *stubSource) Name() string        { return s.name }
func (s *stubSource) Perspective() string { return "perspective of " + s.name }

func (s *stubSource) Analyze(ctx context.Context, req sources.Request) ([]model.Finding, error) {
	switch {
	case s.boom:
		panic("source exploded")
	case s.block:
		<-ctx.Done()
		return nil, ctx.Err()
	case s.err != nil:
		return nil, s.err
	}
	return []model.Finding{{
		Anomaly:    model.Anomaly{Title: s.name + " finding", Field: s.name, ImpactScore: 10},
		SourceName: s.name,
	}}, nil
}

type fallbackSource struct {
	stubSource
}

func (s *fallbackSource) Fallback(req sources.Request) []model.Finding {
	return []model.Finding{{
		Anomaly:    model.Anomaly{Title: s.name + " fallback", Field: s.name},
		SourceName: s.name,
	}}
}

func stubs(n int) []sources.Source {
	out := make([]sources.Source, n)
	for i := range out {
		out[i] = &stubSource{name: fmt.Sprintf("s%02d", i)}
	}
	return out
}

func testConfig() config.OrchestratorConfig {
	return config.OrchestratorConfig{
		BatchSize:         5,
		SourceTimeout:     90 * time.Second,
		GlobalTimeout:     300 * time.Second,
		MinBatchBudget:    0,
		BatchCooldown:     12 * time.Second,
		EnrichmentTopK:    2,
		EnrichmentTimeout: time.Second,
	}
}

func TestRun_BatchesAndCooldowns(t *testing.T) {
	clock := newFakeClock()
	o := New(testConfig(), WithClock(clock.Now, clock.Sleep))

	srcs := stubs(25)
	out := o.Run(context.Background(), srcs, sources.Request{})

	assert.Equal(t, 5, out.Batches)
	assert.Equal(t, 4, out.Cooldowns)
	assert.Equal(t, []time.Duration{12 * time.Second, 12 * time.Second, 12 * time.Second, 12 * time.Second}, clock.slept)

	require.Len(t, out.Statuses, 25)
	require.Len(t, out.Findings, 25)
	for i, st := range out.Statuses {
		assert.Equal(t, srcs[i].Name(), st.Name)
		assert.Equal(t, model.OutcomeSuccess, st.Outcome)
		assert.Equal(t, 1, st.Count)
		assert.Equal(t, srcs[i].Name(), out.Findings[i].SourceName, "findings follow registration order")
	}
}

func TestRun_GlobalBudgetExhaustedInThirdBatch(t *testing.T) {
	clock := newFakeClock()
	cfg := testConfig()
	cfg.GlobalTimeout = 24*time.Second + 200*time.Millisecond
	o := New(cfg, WithClock(clock.Now, clock.Sleep))

	srcs := stubs(25)
	for i := 10; i < 15; i++ {
		srcs[i] = &fallbackSource{stubSource{name: fmt.Sprintf("slow%02d", i), block: true}}
	}

	out := o.Run(context.Background(), srcs, sources.Request{})

	assert.Equal(t, 3, out.Batches)
	assert.Equal(t, 2, out.Cooldowns)
	counts := out.Counts()
	assert.Equal(t, 10, counts[model.OutcomeSuccess])
	assert.Equal(t, 5, counts[model.OutcomeTimedOut])
	assert.Equal(t, 10, counts[model.OutcomeNotRun])

	for i := 10; i < 15; i++ {
		assert.True(t, out.Statuses[i].UsedFallback)
		assert.Equal(t, 1, out.Statuses[i].Count)
	}
	for i := 15; i < 25; i++ {
		assert.Equal(t, model.OutcomeNotRun, out.Statuses[i].Outcome)
		assert.Zero(t, out.Statuses[i].Count)
	}
	assert.Len(t, out.Findings, 15)
	assert.Equal(t, "slow10 fallback", out.Findings[10].Title)
}

func TestRun_ErrorsAreIsolated(t *testing.T) {
	clock := newFakeClock()
	o := New(testConfig(), WithClock(clock.Now, clock.Sleep))

	srcs := []sources.Source{
		&stubSource{name: "ok-1"},
		&stubSource{name: "broken", err: errors.New("upstream 500")},
		&fallbackSource{stubSource{name: "recovering", err: errors.New("bad json")}},
		&stubSource{name: "panicky", boom: true},
		&stubSource{name: "ok-2"},
	}
	out := o.Run(context.Background(), srcs, sources.Request{})

	assert.Equal(t, 1, out.Batches)
	assert.Equal(t, 0, out.Cooldowns)
	assert.Equal(t, model.OutcomeSuccess, out.Statuses[0].Outcome)
	assert.Equal(t, model.OutcomeError, out.Statuses[1].Outcome)
	assert.Contains(t, out.Statuses[1].Message, "upstream 500")
	assert.False(t, out.Statuses[1].UsedFallback)
	assert.Equal(t, model.OutcomeError, out.Statuses[2].Outcome)
	assert.True(t, out.Statuses[2].UsedFallback)
	assert.Equal(t, model.OutcomeError, out.Statuses[3].Outcome)
	assert.Contains(t, out.Statuses[3].Message, "source exploded")
	assert.Equal(t, model.OutcomeSuccess, out.Statuses[4].Outcome)

	titles := make([]string, len(out.Findings))
	for i, f := range out.Findings {
		titles[i] = f.Title
	}
	assert.Equal(t, []string{"ok-1 finding", "recovering fallback", "ok-2 finding"}, titles)
}

func TestRun_PerSourceTimeoutDoesNotStopScheduling(t *testing.T) {
	clock := newFakeClock()
	cfg := testConfig()
	cfg.BatchSize = 2
	cfg.SourceTimeout = 20 * time.Millisecond
	o := New(cfg, WithClock(clock.Now, clock.Sleep))

	srcs := []sources.Source{
		&stubSource{name: "slow", block: true},
		&stubSource{name: "a"},
		&stubSource{name: "b"},
	}
	out := o.Run(context.Background(), srcs, sources.Request{})

	assert.Equal(t, 2, out.Batches)
	assert.Equal(t, model.OutcomeTimedOut, out.Statuses[0].Outcome)
	assert.Equal(t, model.OutcomeSuccess, out.Statuses[2].Outcome)
}

func TestRun_ZeroCooldown(t *testing.T) {
	clock := newFakeClock()
	cfg := testConfig()
	cfg.BatchCooldown = 0
	o := New(cfg, WithClock(clock.Now, clock.Sleep))

	out := o.Run(context.Background(), stubs(12), sources.Request{})
	assert.Equal(t, 3, out.Batches)
	assert.Zero(t, out.Cooldowns)
	assert.Empty(t, clock.slept)
}

func TestRun_NoSources(t *testing.T) {
	o := New(testConfig())
	out := o.Run(context.Background(), nil, sources.Request{})
	assert.Empty(t, out.Statuses)
	assert.Empty(t, out.Findings)
	assert.Zero(t, out.Batches)
}

func TestWithTimeout(t *testing.T) {
	ctx := context.Background()

	r := WithTimeout(ctx, time.Second, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, r.Err)
	assert.Equal(t, 7, r.Value)

	r = WithTimeout(ctx, 10*time.Millisecond, func(c context.Context) (int, error) {
		<-c.Done()
		return 0, c.Err()
	})
	assert.ErrorIs(t, r.Err, ErrTimeout)
	assert.ErrorIs(t, r.Err, context.DeadlineExceeded)

	r = WithTimeout(ctx, time.Second, func(context.Context) (int, error) { panic("nope") })
	var perr *PanicError
	require.ErrorAs(t, r.Err, &perr)
	assert.Equal(t, "nope", perr.Value)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	r = WithTimeout(cctx, time.Second, func(c context.Context) (int, error) {
		<-c.Done()
		return 0, c.Err()
	})
	assert.ErrorIs(t, r.Err, context.Canceled)
}

type stubEnricher struct{}

func (stubEnricher) Enrich(ctx context.Context, f model.Finding, req sources.Request) (Enrichment, error) {
	if f.Title == "fails" {
		return Enrichment{}, errors.New("lookup failed")
	}
	return Enrichment{Context: "background for " + f.Title, WebReferences: []string{"https://example.com"}}, nil
}

func TestEnrich_TopKByImpact(t *testing.T) {
	o := New(testConfig())
	in := []model.Finding{
		{Anomaly: model.Anomaly{Title: "low", ImpactScore: 5}},
		{Anomaly: model.Anomaly{Title: "fails", ImpactScore: 90}},
		{Anomaly: model.Anomaly{Title: "high", ImpactScore: 80}},
	}
	out := o.Enrich(context.Background(), in, sources.Request{}, stubEnricher{})

	require.Len(t, out, 3)
	assert.Empty(t, out[0].Context, "outside top-k")
	assert.Empty(t, out[1].Context, "failures are swallowed")
	assert.Equal(t, "background for high", out[2].Context)
	assert.Equal(t, []string{"https://example.com"}, out[2].WebReferences)
	assert.Empty(t, in[2].Context, "input is not modified")
	assert.Equal(t, in[2].Anomaly, out[2].Anomaly)
}

type textCompleter string

func (c textCompleter) Complete(context.Context, sources.Completion) (string, error) {
	return string(c), nil
}

func TestCompleterEnricher(t *testing.T) {
	e := CompleterEnricher{Completer: textCompleter("```json\n{\"context\":\"pumps cavitate\",\"references\":[\"https://ref\"]}\n```")}
	en, err := e.Enrich(context.Background(), model.Finding{}, sources.Request{SystemType: "hydraulic_press"})
	require.NoError(t, err)
	assert.Equal(t, "pumps cavitate", en.Context)
	assert.Equal(t, []string{"https://ref"}, en.WebReferences)

	_, err = CompleterEnricher{}.Enrich(context.Background(), model.Finding{}, sources.Request{})
	assert.ErrorIs(t, err, sources.ErrNoCompleter)
}

func TestPartition(t *testing.T) {
	assert.Equal(t, []batchRange{{0, 5}, {5, 10}, {10, 12}}, partition(12, 5))
	assert.Nil(t, partition(0, 5))
}
