// Package search implements the Search Aggregator (spec §4.5): parallel
// multi-source search with health gating, retry, failover, deduplication,
// multi-dimensional ranking, and a diversity pass.
package search

import "context"

// Type is the requested search category (spec §4.5).
type Type string

const (
	TypeGeneral  Type = "general"
	TypePatent   Type = "patent"
	TypeAcademic Type = "academic"
	TypeNews     Type = "news"
)

// SourceName identifies one of the configured search sources.
type SourceName string

const (
	SourceCNKI  SourceName = "cnki"
	SourceBocha SourceName = "bocha"
	SourceWeb   SourceName = "web"
)

// Record is a single raw search hit as returned by a Source, before quality
// scoring and ranking (spec §4.5 "Result record fields").
type Record struct {
	Title   string
	URL     string
	Content string
	Source  SourceName

	PublicationYear int
	HasAbstract     bool
	HasAuthor       bool
	HasDate         bool

	Metadata map[string]any
}

// Source is the §6 SearchSource external interface.
type Source interface {
	Search(ctx context.Context, keywords []string, searchType Type, limit int) ([]Record, error)
	Health(ctx context.Context) bool
	Close() error
}

// RateLimiter paces outbound calls to a single source (SPEC_FULL §5,
// supplementing spec §5's "rate limiting in search sources" mention).
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// noLimiter never blocks; used when a source has no configured rate limit.
type noLimiter struct{}

func (noLimiter) Wait(ctx context.Context) error { return ctx.Err() }

// NoLimiter returns a RateLimiter that never throttles.
func NoLimiter() RateLimiter { return noLimiter{} }
