package search

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/patentlens/kernel/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	name    SourceName
	healthy bool
	records []Record
	err     error
	calls   int
}

func (f *fakeSource) Search(_ context.Context, _ []string, _ Type, limit int) ([]Record, error) {
	f.calls++

	if f.err != nil {
		return nil, f.err
	}

	recs := f.records
	if limit > 0 && limit < len(recs) {
		recs = recs[:limit]
	}

	return recs, nil
}

func (f *fakeSource) Health(context.Context) bool { return f.healthy }
func (f *fakeSource) Close() error                { return nil }

func fixedYear(y int) clock.Clock {
	return clock.NewFixed(time.Date(y, time.June, 1, 0, 0, 0, 0, time.UTC))
}

func noSleep(context.Context, time.Duration) {}

func TestS3Dedup(t *testing.T) {
	t.Parallel()

	cnki := &fakeSource{
		name:    SourceCNKI,
		healthy: true,
		records: []Record{
			{
				Title:           "Lithium battery thermal management system",
				URL:             "https://cnki.example/1",
				Content:         "A thermal management system for lithium battery packs in electric vehicles, improving cooling efficiency and extending battery cycle life.",
				Source:          SourceCNKI,
				PublicationYear: 2024,
				HasAbstract:     true,
				HasAuthor:       true,
				HasDate:         true,
			},
		},
	}

	web := &fakeSource{
		name:    SourceWeb,
		healthy: true,
		records: []Record{
			{
				Title:           "Lithium battery thermal management system design",
				URL:             "https://web.example/1",
				Content:         "A thermal management system for lithium battery packs in electric vehicles, improving cooling efficiency and extending battery cycle life.",
				Source:          SourceWeb,
				PublicationYear: 2022,
			},
		},
	}

	agg := New(fixedYear(2026), map[SourceName]Source{
		SourceCNKI: cnki,
		SourceWeb:  web,
	})
	agg.SetSleeper(noSleep)

	results := agg.Search(context.Background(), Request{
		Keywords:   []string{"battery", "thermal"},
		SearchType: TypePatent,
		Limit:      10,
		Sources:    []SourceName{SourceCNKI, SourceWeb},
	})

	require.Len(t, results, 1, "near-duplicate records from different sources should collapse to one")
	assert.Equal(t, SourceCNKI, results[0].Source, "higher-quality duplicate (more complete, fresher, more authoritative source) should survive")
}

func TestDedupIdempotent(t *testing.T) {
	t.Parallel()

	recs := []Scored{
		{Record: Record{Title: "a", Content: "alpha beta gamma", Source: SourceCNKI}, Final: 0.9},
		{Record: Record{Title: "a", Content: "alpha beta gamma", Source: SourceWeb}, Final: 0.5},
		{Record: Record{Title: "totally different", Content: "xray yankee zulu", Source: SourceWeb}, Final: 0.4},
	}

	once := Dedup(recs)
	twice := Dedup(once)

	assert.Equal(t, once, twice, "deduping an already-deduped set must be a no-op (invariant 4)")
}

func TestS4Failover(t *testing.T) {
	t.Parallel()

	cnki := &fakeSource{name: SourceCNKI, healthy: true, err: fmt.Errorf("upstream timeout")}
	bocha := &fakeSource{
		name:    SourceBocha,
		healthy: true,
		records: []Record{
			{Title: "Failover result one", Content: "content about ai models and neural networks", Source: SourceBocha, PublicationYear: 2025},
			{Title: "Failover result two", Content: "content about semiconductor wafers", Source: SourceBocha, PublicationYear: 2024},
		},
	}
	web := &fakeSource{name: SourceWeb, healthy: true, records: []Record{
		{Title: "Web backup result", Content: "generic web content about AI", Source: SourceWeb, PublicationYear: 2023},
	}}

	agg := New(fixedYear(2026), map[SourceName]Source{
		SourceCNKI:  cnki,
		SourceBocha: bocha,
		SourceWeb:   web,
	})
	agg.SetSleeper(noSleep)

	results := agg.Search(context.Background(), Request{
		Keywords:   []string{"ai"},
		SearchType: TypePatent,
		Limit:      10,
		Sources:    []SourceName{SourceCNKI, SourceBocha, SourceWeb},
	})

	require.NotEmpty(t, results)

	assert.Equal(t, 1+len(backoffSchedule), cnki.calls, "a permanently failing source should be retried per the backoff schedule before failing over")

	var sawFailover bool

	for _, r := range results {
		if r.IsFailover {
			sawFailover = true

			assert.Equal(t, SourceBocha, r.Source, "cnki's failover chain is bocha, then web (spec §4.5 step 3)")
		}
	}

	assert.True(t, sawFailover, "expected at least one result tagged as a failover result")
}

func TestEmergencyFallbackWhenNoSourceHealthy(t *testing.T) {
	t.Parallel()

	cnki := &fakeSource{name: SourceCNKI, healthy: false}
	web := &fakeSource{name: SourceWeb, healthy: false}

	agg := New(fixedYear(2026), map[SourceName]Source{SourceCNKI: cnki, SourceWeb: web})
	agg.SetSleeper(noSleep)

	results := agg.Search(context.Background(), Request{
		Keywords: []string{"anything"},
		Limit:    3,
		Sources:  []SourceName{SourceCNKI, SourceWeb},
	})

	require.Len(t, results, 3)

	for _, r := range results {
		assert.True(t, r.IsEmergencyFallback)
	}
}

func TestDegradedSearchTagged(t *testing.T) {
	t.Parallel()

	src := &degradingSource{fallback: Record{Title: "degraded hit", Content: "short content here", Source: SourceWeb, PublicationYear: 2025}}

	agg := New(fixedYear(2026), map[SourceName]Source{SourceWeb: src})
	agg.SetSleeper(noSleep)

	results := agg.Search(context.Background(), Request{
		Keywords: []string{"one", "two", "three"},
		Limit:    10,
		Sources:  []SourceName{SourceWeb},
	})

	require.Len(t, results, 1)
	assert.True(t, results[0].IsDegraded)
}

// degradingSource returns no results for the first (full) query and a
// single record for any subsequent (degraded) query.
type degradingSource struct {
	fallback Record
	calls    int
}

func (d *degradingSource) Search(_ context.Context, keywords []string, _ Type, _ int) ([]Record, error) {
	d.calls++
	if len(keywords) <= 1 {
		return []Record{d.fallback}, nil
	}

	return nil, nil
}

func (d *degradingSource) Health(context.Context) bool { return true }
func (d *degradingSource) Close() error                { return nil }

func TestRankingDeterministic(t *testing.T) {
	t.Parallel()

	recs := []Scored{
		{Record: Record{Title: "a"}, Final: 0.5, Freshness: 0.5},
		{Record: Record{Title: "b"}, Final: 0.52, Freshness: 0.9},
		{Record: Record{Title: "c"}, Final: 0.9, Freshness: 0.1},
	}

	r1 := Rank(recs)
	r2 := Rank(recs)

	assert.Equal(t, r1, r2, "ranking must be deterministic given the same input (invariant 5)")
	assert.Equal(t, "c", r1[0].Title, "the clear high-score outlier should rank first")
}

func TestDiversifyRespectsLimit(t *testing.T) {
	t.Parallel()

	recs := make([]Scored, 5)
	for i := range recs {
		recs[i] = Scored{
			Record: Record{Title: fmt.Sprintf("rec-%d", i), Content: fmt.Sprintf("unique content block number %d about topic %d", i, i)},
			Final:  1.0 - float64(i)*0.1,
		}
	}

	out := Diversify(recs, 2)
	assert.Len(t, out, 2)
}
