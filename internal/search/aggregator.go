package search

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/patentlens/kernel/internal/clock"
)

const (
	maxRetriesPerSource  = 2
	maxFailoverPerSource = 5
	maxEmergencyResults  = 5
	rankTieWindow        = 0.05
	maxDiversityResults  = 20
)

var backoffSchedule = []time.Duration{1 * time.Second, 2 * time.Second}

// failoverChain implements spec §4.5 step 3's deterministic ordering.
var failoverChain = map[SourceName][]SourceName{
	SourceCNKI:  {SourceBocha, SourceWeb},
	SourceBocha: {SourceCNKI, SourceWeb},
	SourceWeb:   {SourceBocha, SourceCNKI},
}

// Sleeper abstracts time.Sleep for deterministic backoff tests.
type Sleeper func(ctx context.Context, d time.Duration)

// RealSleeper sleeps for real, respecting context cancellation.
func RealSleeper(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Request is the parsed search request (spec §4.5 input).
type Request struct {
	Keywords   []string
	SearchType Type
	Limit      int
	Sources    []SourceName
}

// Aggregator implements the Search Aggregator (C5).
type Aggregator struct {
	clock       clock.Clock
	sleep       Sleeper
	sources     map[SourceName]Source
	rateLimiter map[SourceName]RateLimiter
}

// New creates a search aggregator over the given sources.
func New(c clock.Clock, sources map[SourceName]Source) *Aggregator {
	return &Aggregator{
		clock:       c,
		sleep:       RealSleeper,
		sources:     sources,
		rateLimiter: make(map[SourceName]RateLimiter),
	}
}

// SetSleeper overrides the backoff sleep function (tests use a no-op).
func (a *Aggregator) SetSleeper(s Sleeper) { a.sleep = s }

// SetRateLimiter configures a per-source limiter; defaults to none.
func (a *Aggregator) SetRateLimiter(name SourceName, rl RateLimiter) {
	a.rateLimiter[name] = rl
}

func (a *Aggregator) limiterFor(name SourceName) RateLimiter {
	if rl, ok := a.rateLimiter[name]; ok {
		return rl
	}

	return NoLimiter()
}

type sourceOutcome struct {
	source    SourceName
	records   []Record
	healthy   bool
	degraded  bool
	failedOut bool
}

// Search executes the full pipeline described in spec §4.5.
func (a *Aggregator) Search(ctx context.Context, req Request) []Scored {
	healthy := a.healthGate(ctx, req.Sources)
	if len(healthy) == 0 {
		return a.emergencyFallback(req)
	}

	outcomes := a.parallelSearch(ctx, healthy, req)

	allRecords := a.applyFailover(ctx, outcomes, req)

	deduped := Dedup(allRecords)
	ranked := Rank(deduped)

	limit := req.Limit
	if limit <= 0 || limit > maxDiversityResults {
		limit = maxDiversityResults
	}

	return Diversify(ranked, limit)
}

func (a *Aggregator) healthGate(ctx context.Context, requested []SourceName) []SourceName {
	var healthy []SourceName

	for _, name := range requested {
		src, ok := a.sources[name]
		if !ok {
			continue
		}

		if src.Health(ctx) {
			healthy = append(healthy, name)
		}
	}

	return healthy
}

func (a *Aggregator) emergencyFallback(req Request) []Scored {
	currentYear := currentYearFrom(a.clock.Now())

	n := maxEmergencyResults
	if req.Limit > 0 && req.Limit < n {
		n = req.Limit
	}

	out := make([]Scored, 0, n)

	for i := 0; i < n; i++ {
		rec := Record{
			Title:   "placeholder result (all sources unavailable)",
			URL:     "",
			Content: "No search source was healthy; returning an emergency fallback placeholder.",
			Source:  SourceWeb,
		}

		s := scoreRecord(rec, req.Keywords, currentYear)
		s.applyEmergencyFallback()
		out = append(out, s)
	}

	return out
}

func (a *Aggregator) parallelSearch(ctx context.Context, healthy []SourceName, req Request) []sourceOutcome {
	outcomes := make([]sourceOutcome, len(healthy))

	var wg sync.WaitGroup

	for i, name := range healthy {
		wg.Add(1)

		go func(i int, name SourceName) {
			defer wg.Done()

			outcomes[i] = a.searchOneSource(ctx, name, req)
		}(i, name)
	}

	wg.Wait()

	return outcomes
}

func (a *Aggregator) searchOneSource(ctx context.Context, name SourceName, req Request) sourceOutcome {
	src := a.sources[name]

	var (
		records []Record
		lastErr error
	)

	for attempt := 0; attempt <= maxRetriesPerSource; attempt++ {
		if err := a.limiterFor(name).Wait(ctx); err != nil {
			return sourceOutcome{source: name, healthy: true, failedOut: true}
		}

		result, err := src.Search(ctx, req.Keywords, req.SearchType, req.Limit)
		lastErr = err

		if err == nil {
			records = result

			break
		}

		if attempt < len(backoffSchedule) {
			a.sleep(ctx, backoffSchedule[attempt])
		}
	}

	if lastErr != nil {
		return sourceOutcome{source: name, healthy: true, failedOut: true}
	}

	if len(records) == 0 {
		degraded, ok := a.degradedSearch(ctx, src, req)
		if ok {
			return sourceOutcome{source: name, records: degraded, healthy: true, degraded: true}
		}

		return sourceOutcome{source: name, healthy: true, failedOut: true}
	}

	return sourceOutcome{source: name, records: records, healthy: true}
}

// degradedSearch retries with fewer keywords and a lower limit (spec §4.5
// step 2).
func (a *Aggregator) degradedSearch(ctx context.Context, src Source, req Request) ([]Record, bool) {
	kw := req.Keywords
	if len(kw) > 1 {
		kw = kw[:1]
	}

	limit := req.Limit / 2
	if limit < 1 {
		limit = 1
	}

	result, err := src.Search(ctx, kw, req.SearchType, limit)
	if err != nil || len(result) == 0 {
		return nil, false
	}

	return result, true
}

func (a *Aggregator) applyFailover(ctx context.Context, outcomes []sourceOutcome, req Request) []Scored {
	currentYear := currentYearFrom(a.clock.Now())

	var all []Scored

	for _, oc := range outcomes {
		for _, rec := range oc.records {
			s := scoreRecord(rec, req.Keywords, currentYear)
			if oc.degraded {
				s.applyDegraded()
			}

			all = append(all, s)
		}

		if oc.failedOut {
			all = append(all, a.failoverFor(ctx, oc.source, req, currentYear)...)
		}
	}

	return all
}

func (a *Aggregator) failoverFor(ctx context.Context, failed SourceName, req Request, currentYear int) []Scored {
	var out []Scored

	for _, candidate := range failoverChain[failed] {
		src, ok := a.sources[candidate]
		if !ok || !src.Health(ctx) {
			continue
		}

		result, err := src.Search(ctx, req.Keywords, req.SearchType, req.Limit)
		if err != nil || len(result) == 0 {
			continue
		}

		if len(result) > maxFailoverPerSource {
			result = result[:maxFailoverPerSource]
		}

		for _, rec := range result {
			s := scoreRecord(rec, req.Keywords, currentYear)
			s.applyFailover()
			out = append(out, s)
		}

		break
	}

	return out
}

// Dedup removes near-duplicate records (spec §4.5 step 4 / invariant 4).
// Signature similarity above 0.8 (Jaccard-mean of title/content parts)
// marks a pair as duplicates; the higher-Final record is kept.
func Dedup(records []Scored) []Scored {
	type entry struct {
		scored Scored
		sig    contentSignature
	}

	entries := make([]entry, len(records))
	for i, r := range records {
		entries[i] = entry{scored: r, sig: buildSignature(r.Record)}
	}

	kept := make([]bool, len(entries))
	for i := range kept {
		kept[i] = true
	}

	const dupThreshold = 0.8

	for i := 0; i < len(entries); i++ {
		if !kept[i] {
			continue
		}

		for j := i + 1; j < len(entries); j++ {
			if !kept[j] {
				continue
			}

			if entries[i].sig.similarity(entries[j].sig) > dupThreshold {
				if entries[j].scored.Final > entries[i].scored.Final {
					kept[i] = false

					break
				}

				kept[j] = false
			}
		}
	}

	out := make([]Scored, 0, len(entries))

	for i, e := range entries {
		if kept[i] {
			out = append(out, e.scored)
		}
	}

	return out
}

// Rank sorts by Final descending; within a 0.05 window, ties are broken by
// Freshness descending (spec §4.5 step 6).
func Rank(records []Scored) []Scored {
	out := append([]Scored(nil), records...)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Final-out[j].Final > rankTieWindow || out[j].Final-out[i].Final > rankTieWindow {
			return out[i].Final > out[j].Final
		}

		if out[i].Final != out[j].Final {
			return out[i].Freshness > out[j].Freshness
		}

		return out[i].Final > out[j].Final
	})

	return out
}

// Diversify performs the greedy diversity pass (spec §4.5 step 7): start
// with the top-ranked record, then repeatedly pick the candidate maximizing
// 0.7*Final + 0.3*(1 - max similarity to already-selected), up to limit.
func Diversify(ranked []Scored, limit int) []Scored {
	if len(ranked) == 0 {
		return nil
	}

	if limit <= 0 || limit > len(ranked) {
		limit = len(ranked)
	}

	selected := []int{0}
	chosen := map[int]bool{0: true}

	for len(selected) < limit {
		bestIdx := -1
		bestScore := -1.0

		for i := range ranked {
			if chosen[i] {
				continue
			}

			maxSim := 0.0

			for _, s := range selected {
				if sim := diversitySimilarity(ranked[i].Content, ranked[s].Content); sim > maxSim {
					maxSim = sim
				}
			}

			score := 0.7*ranked[i].Final + 0.3*(1-maxSim)
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}

		if bestIdx == -1 {
			break
		}

		selected = append(selected, bestIdx)
		chosen[bestIdx] = true
	}

	out := make([]Scored, len(selected))
	for i, idx := range selected {
		out[i] = ranked[idx]
	}

	return out
}
