package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/quindex/quindex/internal/catalog"
	"github.com/quindex/quindex/internal/observe"
)

// LookupStore is the slice of the entity store the service needs: candidate
// search plus the query cache.
type LookupStore interface {
	catalog.Searcher
	catalog.QueryCache
}

// Service answers entity lookups. Safe for concurrent use.
type Service struct {
	store   LookupStore
	log     *slog.Logger
	metrics *observe.Metrics
}

// NewService creates a lookup service. A nil logger falls back to
// [slog.Default]; nil metrics fall back to [observe.DefaultMetrics].
func NewService(store LookupStore, log *slog.Logger, metrics *observe.Metrics) *Service {
	if log == nil {
		log = slog.Default()
	}
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Service{store: store, log: log, metrics: metrics}
}

// Response is the full lookup result. It is what gets serialized into the
// query cache, so cached and fresh responses are structurally identical apart
// from CacheHit.
type Response struct {
	Mention             string   `json:"mention"`
	MentionNorm         string   `json:"mention_norm"`
	MentionContextTerms []string `json:"mention_context_terms"`
	CrosslinkHints      []string `json:"crosslink_hints"`
	CrosslinkTerms      []string `json:"crosslink_terms"`
	CoarseHints         []string `json:"coarse_hints"`
	FineHints           []string `json:"fine_hints"`

	// Strategy names the retrieval path taken; currently always "fuzzy".
	Strategy string `json:"strategy"`

	// Returned is the number of candidates after reranking and truncation.
	Returned int `json:"returned"`

	// CacheHit is true when the response was served from the query cache. Not
	// part of the cached payload's identity; rewritten on every read.
	CacheHit bool `json:"cache_hit"`

	Top1 *catalog.Candidate  `json:"top1"`
	TopK []catalog.Candidate `json:"top_k,omitempty"`
}

// Lookup resolves a mention to ranked catalog candidates.
//
// Failures are typed: *ValidationError for malformed input, *UpstreamError
// when the store is unreachable. Neither outcome is ever cached. Cache read
// failures degrade to a miss; cache write failures are logged and dropped.
func (s *Service) Lookup(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "lookup.Lookup")
	defer span.End()

	q, err := Normalize(req)
	if err != nil {
		s.metrics.RecordLookup(ctx, "validation_error", time.Since(start).Seconds())
		return nil, err
	}

	key := q.CacheKey()
	log := observe.Logger(ctx).With(
		slog.String("mention_norm", q.MentionNorm),
		slog.String("cache_key", key[:12]),
	)

	if q.UseCache {
		if resp := s.cachedResponse(ctx, log, key); resp != nil {
			s.metrics.RecordCacheLookup(ctx, "hit")
			s.metrics.RecordLookup(ctx, "ok", time.Since(start).Seconds())
			log.DebugContext(ctx, "lookup served from cache", slog.Int("returned", resp.Returned))
			return resp, nil
		}
		s.metrics.RecordCacheLookup(ctx, "miss")
	}

	candidates, err := s.searchCandidates(ctx, q)
	if err != nil {
		s.metrics.RecordLookup(ctx, "upstream_error", time.Since(start).Seconds())
		log.ErrorContext(ctx, "candidate search failed", slog.String("error", err.Error()))
		return nil, &UpstreamError{Err: err}
	}

	ranked := Rerank(candidates, q)
	resp := buildResponse(q, ranked)

	if q.UseCache {
		s.writeCache(ctx, log, key, resp)
	}

	s.metrics.RecordLookup(ctx, "ok", time.Since(start).Seconds())
	log.InfoContext(ctx, "lookup complete",
		slog.Int("candidates", len(candidates)),
		slog.Int("returned", resp.Returned),
		slog.Duration("elapsed", time.Since(start)),
	)
	return resp, nil
}

// PruneCache deletes cache entries older than ttl and returns how many rows
// were removed.
func (s *Service) PruneCache(ctx context.Context, ttl time.Duration) (int64, error) {
	pruned, err := s.store.PruneQueryCache(ctx, ttl)
	if err != nil {
		return 0, fmt.Errorf("lookup: prune cache: %w", err)
	}
	return pruned, nil
}

// cachedResponse returns the decoded cached response for key, or nil on miss.
// Read and decode errors degrade to a miss so a damaged cache row never fails
// a lookup.
func (s *Service) cachedResponse(ctx context.Context, log *slog.Logger, key string) *Response {
	data, ok, err := s.store.GetQueryCache(ctx, key)
	if err != nil {
		log.WarnContext(ctx, "cache read failed, treating as miss", slog.String("error", err.Error()))
		return nil
	}
	if !ok {
		return nil
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		log.WarnContext(ctx, "cache entry undecodable, treating as miss", slog.String("error", err.Error()))
		return nil
	}
	resp.CacheHit = true
	return &resp
}

// writeCache stores the response under key. Write failures only cost future
// hit rate, so they are logged and swallowed.
func (s *Service) writeCache(ctx context.Context, log *slog.Logger, key string, resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		log.WarnContext(ctx, "cache encode failed", slog.String("error", err.Error()))
		return
	}
	if err := s.store.PutQueryCache(ctx, key, data); err != nil {
		log.WarnContext(ctx, "cache write failed", slog.String("error", err.Error()))
	}
}

func (s *Service) searchCandidates(ctx context.Context, q Query) ([]catalog.Candidate, error) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "lookup.searchCandidates",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	candidates, err := s.store.SearchCandidates(ctx, catalog.SearchQuery{
		Mention:     q.MentionNorm,
		Context:     q.ContextQuery(),
		Crosslink:   q.CrosslinkQuery(),
		CoarseHints: q.CoarseHints,
		FineHints:   q.FineHints,
		Size:        q.Limit,
	})
	s.metrics.SearchDuration.Record(ctx, time.Since(start).Seconds())
	return candidates, err
}

// buildResponse assembles the response from the reranked candidates. Top1 is
// always the best candidate (nil when none survive); TopK is only populated
// when the caller asked for the full list.
func buildResponse(q Query, ranked []catalog.Candidate) *Response {
	resp := &Response{
		Mention:             q.Mention,
		MentionNorm:         q.MentionNorm,
		MentionContextTerms: emptyIfNil(q.ContextTerms),
		CrosslinkHints:      emptyIfNil(q.CrosslinkHints),
		CrosslinkTerms:      emptyIfNil(q.CrosslinkTerms),
		CoarseHints:         emptyIfNil(q.CoarseHints),
		FineHints:           emptyIfNil(q.FineHints),
		Strategy:            "fuzzy",
		Returned:            len(ranked),
	}
	if len(ranked) > 0 {
		top := ranked[0]
		resp.Top1 = &top
	}
	if q.IncludeTopK {
		resp.TopK = ranked
	}
	return resp
}
