// Package validation runs a batch of pharmacy names through the register and
// picks the closest register entry for each one.
package validation

import (
	"context"
	"strings"
	"time"

	"github.com/giygas/pharmacy-validator/entities"
	"github.com/giygas/pharmacy-validator/interfaces"
	"github.com/giygas/pharmacy-validator/logging"
	"github.com/giygas/pharmacy-validator/matching"
	"github.com/giygas/pharmacy-validator/metrics"
	"github.com/google/uuid"
)

// Compile-time check to ensure Validator implements interfaces.Validator
var _ interfaces.Validator = (*Validator)(nil)

// Validator processes names strictly one after another, pausing between
// register calls. Runs sharing a Validator are queued, so the register never
// sees two lookups at once and the pause also holds across runs.
type Validator struct {
	fetcher interfaces.Fetcher
	delay   time.Duration
	wait    func(ctx context.Context, d time.Duration)

	// turn admits one run at a time; lastFetch is only touched while holding it
	turn      chan struct{}
	lastFetch time.Time
}

// NewValidator creates a validator that waits delay between two lookups
func NewValidator(fetcher interfaces.Fetcher, delay time.Duration) *Validator {
	return &Validator{
		fetcher: fetcher,
		delay:   delay,
		wait:    sleep,
		turn:    make(chan struct{}, 1),
	}
}

// Validate returns exactly one result per name, in input order. A failed
// lookup yields an "Error" result carrying the failure message; it never
// stops the run. If ctx ends while another run still holds the register,
// every row is answered with the context error and nothing is fetched.
func (v *Validator) Validate(ctx context.Context, names []string) []entities.Result {
	log := logging.With("run_id", uuid.NewString())

	select {
	case v.turn <- struct{}{}:
	case <-ctx.Done():
		log.Warn("Validation run cancelled while waiting for its turn", "rows", len(names), "error", ctx.Err())
		return failAll(names, ctx.Err())
	}
	defer func() { <-v.turn }()

	log.Info("Validation run started", "rows", len(names))
	start := time.Now()

	results := make([]entities.Result, 0, len(names))
	failures := 0

	for i, raw := range names {
		v.pause(ctx, i)

		name := strings.TrimSpace(raw)
		log.Info("Validating pharmacy", "row", i+1, "name", name)

		candidates, err := v.fetcher.Fetch(ctx, name)
		v.lastFetch = time.Now()
		if err != nil {
			failures++
			log.Warn("Register lookup failed", "row", i+1, "name", name, "error", err)
			candidates = []entities.Candidate{entities.ErrorCandidate(err)}
		}

		result := BestMatch(name, candidates)
		metrics.MatchScore.Observe(float64(result.MatchScore))
		results = append(results, result)
	}

	log.Info("Validation run completed",
		"rows", len(results),
		"failed_lookups", failures,
		"duration", time.Since(start).String())

	return results
}

// pause waits the full delay between two rows of a run. Before the first row
// it only waits what is left of the delay since the previous run's last
// lookup.
func (v *Validator) pause(ctx context.Context, row int) {
	if v.delay <= 0 {
		return
	}
	if row > 0 {
		v.wait(ctx, v.delay)
		return
	}
	if v.lastFetch.IsZero() {
		return
	}
	if left := v.delay - time.Since(v.lastFetch); left > 0 {
		v.wait(ctx, left)
	}
}

// failAll answers every name with the same error
func failAll(names []string, err error) []entities.Result {
	results := make([]entities.Result, len(names))
	for i, raw := range names {
		results[i] = BestMatch(strings.TrimSpace(raw), []entities.Candidate{entities.ErrorCandidate(err)})
	}
	return results
}

// BestMatch scores every candidate against name and keeps the highest; on a
// tie the earlier candidate wins. With no candidates the "None"/"No match"
// sentinel is used, and it is scored like any other candidate.
func BestMatch(name string, candidates []entities.Candidate) entities.Result {
	best := entities.NoMatch
	bestScore := -1

	for _, c := range candidates {
		if score := matching.Ratio(name, c.Name); score > bestScore {
			best, bestScore = c, score
		}
	}

	if bestScore < 0 {
		bestScore = matching.Ratio(name, best.Name)
	}

	return entities.Result{
		PharmacyName: name,
		BestMatch:    best.Name,
		MatchScore:   bestScore,
		Status:       best.Status,
	}
}

// Names pulls the pharmacy names out of input records
func Names(records []entities.InputRecord) []string {
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.PharmacyName
	}
	return names
}

// sleep blocks for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
