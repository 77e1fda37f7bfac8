package validation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/giygas/pharmacy-validator/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockFetcher answers from a fixed table and records every call
type mockFetcher struct {
	answers map[string][]entities.Candidate
	errs    map[string]error
	calls   []string
}

func (m *mockFetcher) Fetch(_ context.Context, name string) ([]entities.Candidate, error) {
	m.calls = append(m.calls, name)
	if err, ok := m.errs[name]; ok {
		return nil, err
	}
	return m.answers[name], nil
}

func newTestValidator(f *mockFetcher, delay time.Duration) (*Validator, *[]time.Duration) {
	var waits []time.Duration
	v := NewValidator(f, delay)
	v.wait = func(_ context.Context, d time.Duration) {
		waits = append(waits, d)
	}
	return v, &waits
}

func TestValidateExactMatchScenario(t *testing.T) {
	f := &mockFetcher{answers: map[string][]entities.Candidate{
		"ABC Pharmacy": {
			{Name: "ABC Pharmacy", Status: "Active"},
			{Name: "ABD Pharmacy", Status: "Suspended"},
		},
	}}
	v, _ := newTestValidator(f, 0)

	results := v.Validate(context.Background(), []string{"ABC Pharmacy"})

	require.Len(t, results, 1)
	assert.Equal(t, entities.Result{
		PharmacyName: "ABC Pharmacy",
		BestMatch:    "ABC Pharmacy",
		MatchScore:   100,
		Status:       "Active",
	}, results[0])
}

func TestValidateNoCandidatesScenario(t *testing.T) {
	f := &mockFetcher{answers: map[string][]entities.Candidate{"XYZ Chemist": {}}}
	v, _ := newTestValidator(f, 0)

	results := v.Validate(context.Background(), []string{"XYZ Chemist"})

	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, "XYZ Chemist", r.PharmacyName)
	assert.Equal(t, "None", r.BestMatch)
	assert.Equal(t, "No match", r.Status)
	assert.GreaterOrEqual(t, r.MatchScore, 0)
	assert.Less(t, r.MatchScore, 100)
}

func TestValidateFetchErrorBecomesErrorResult(t *testing.T) {
	f := &mockFetcher{errs: map[string]error{"Broken Pharmacy": errors.New("register request failed: timeout")}}
	v, _ := newTestValidator(f, 0)

	results := v.Validate(context.Background(), []string{"Broken Pharmacy"})

	require.Len(t, results, 1)
	assert.Equal(t, "Error", results[0].BestMatch)
	assert.Equal(t, "register request failed: timeout", results[0].Status)
}

func TestValidatePreservesOrderAndCount(t *testing.T) {
	f := &mockFetcher{
		answers: map[string][]entities.Candidate{
			"Alpha":   {{Name: "Alpha Pharmacy", Status: "Active"}},
			"Charlie": {{Name: "Charlie", Status: "Closed"}},
		},
		errs: map[string]error{"Bravo": errors.New("boom")},
	}
	v, waits := newTestValidator(f, 1500*time.Millisecond)

	names := []string{"Alpha", "  Bravo ", "Charlie", "Delta"}
	results := v.Validate(context.Background(), names)

	require.Len(t, results, len(names))
	assert.Equal(t, []string{"Alpha", "Bravo", "Charlie", "Delta"}, f.calls)
	for i, want := range []string{"Alpha", "Bravo", "Charlie", "Delta"} {
		assert.Equal(t, want, results[i].PharmacyName)
	}
	assert.Equal(t, "Error", results[1].BestMatch)
	assert.Equal(t, "None", results[3].BestMatch)

	// one pause between each pair of lookups, none after the last
	assert.Equal(t, []time.Duration{1500 * time.Millisecond, 1500 * time.Millisecond, 1500 * time.Millisecond}, *waits)
}

func TestValidateEmptyInput(t *testing.T) {
	v, waits := newTestValidator(&mockFetcher{}, time.Second)

	results := v.Validate(context.Background(), nil)

	assert.Empty(t, results)
	assert.Empty(t, *waits)
}

func TestValidateAfterCancellationStillAnswersEveryRow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &mockFetcher{answers: map[string][]entities.Candidate{}}
	v := NewValidator(f, time.Hour)

	done := make(chan []entities.Result)
	go func() { done <- v.Validate(ctx, []string{"A", "B", "C"}) }()

	select {
	case results := <-done:
		assert.Len(t, results, 3)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled context should cut the pause between lookups short")
	}
}

// slowFetcher holds every lookup for a while and remembers the highest number
// of lookups in flight at the same time
type slowFetcher struct {
	hold     time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
	calls    int
}

func (s *slowFetcher) Fetch(_ context.Context, _ string) ([]entities.Candidate, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}

	time.Sleep(s.hold)

	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return nil, nil
}

func TestValidateConcurrentRunsNeverOverlapLookups(t *testing.T) {
	f := &slowFetcher{hold: 20 * time.Millisecond}
	v := NewValidator(f, 0)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results := v.Validate(context.Background(), []string{"A", "B"})
			assert.Len(t, results, 2)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), f.peak.Load(), "register lookups of different runs overlapped")
	assert.Equal(t, 8, f.calls)
}

func TestValidateKeepsDelayAcrossRuns(t *testing.T) {
	v, waits := newTestValidator(&mockFetcher{}, time.Minute)

	v.Validate(context.Background(), []string{"A"})
	require.Empty(t, *waits, "first lookup of a fresh validator is not delayed")

	v.Validate(context.Background(), []string{"B"})
	require.Len(t, *waits, 1)
	assert.Greater(t, (*waits)[0], time.Duration(0))
	assert.LessOrEqual(t, (*waits)[0], time.Minute)
}

func TestValidateCancelledWhileQueued(t *testing.T) {
	f := &mockFetcher{}
	v := NewValidator(f, 0)

	// another run holds the register
	v.turn <- struct{}{}
	defer func() { <-v.turn }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	results := v.Validate(ctx, []string{" A ", "B"})

	require.Len(t, results, 2)
	assert.Equal(t, "A", results[0].PharmacyName)
	for _, r := range results {
		assert.Equal(t, entities.ErrorName, r.BestMatch)
		assert.Equal(t, context.DeadlineExceeded.Error(), r.Status)
	}
	assert.Empty(t, f.calls)
}

func TestBestMatch(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		candidates []entities.Candidate
		wantName   string
		wantStatus string
		wantScore  int
	}{
		{
			name:  "case insensitive exact match",
			input: "abc pharmacy",
			candidates: []entities.Candidate{
				{Name: "ABD Pharmacy", Status: "Suspended"},
				{Name: "ABC PHARMACY", Status: "Active"},
			},
			wantName:   "ABC PHARMACY",
			wantStatus: "Active",
			wantScore:  100,
		},
		{
			name:  "tie keeps the first candidate",
			input: "abc",
			candidates: []entities.Candidate{
				{Name: "abd", Status: "first"},
				{Name: "abe", Status: "second"},
			},
			wantName:   "abd",
			wantStatus: "first",
			wantScore:  67,
		},
		{
			name:       "nil candidates",
			input:      "none",
			candidates: nil,
			wantName:   "None",
			wantStatus: "No match",
			wantScore:  100,
		},
		{
			name:       "error sentinel",
			input:      "ABC",
			candidates: []entities.Candidate{entities.ErrorCandidate(errors.New("dial tcp: refused"))},
			wantName:   "Error",
			wantStatus: "dial tcp: refused",
			wantScore:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BestMatch(tt.input, tt.candidates)
			assert.Equal(t, tt.input, got.PharmacyName)
			assert.Equal(t, tt.wantName, got.BestMatch)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantScore, got.MatchScore)
		})
	}
}

func TestNames(t *testing.T) {
	records := []entities.InputRecord{{PharmacyName: "A"}, {PharmacyName: "B"}}

	assert.Equal(t, []string{"A", "B"}, Names(records))
}
