package store

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/fleetscan/fleetscan/pkg/checks"
	"github.com/fleetscan/fleetscan/pkg/duration"
	"github.com/fleetscan/fleetscan/pkg/finding"
)

// Source supplies findings to the store. Scan report readers and the
// local audit scanner both implement it.
type Source interface {
	// Name identifies the source in logs.
	Name() string

	// Findings produces the source's current findings. An error marks
	// the whole source failed; the store logs and skips it rather than
	// failing the aggregate.
	Findings(ctx context.Context) ([]finding.Finding, error)
}

// Options configures a Store.
type Options struct {
	// TTL is how long a snapshot stays fresh (default: 5m).
	TTL time.Duration

	// Registry resolves auto-fixable check ids (default: checks.Builtin()).
	Registry *checks.Registry

	// Logger for source failures and callback panics (default: slog.Default()).
	Logger *slog.Logger
}

// Store aggregates findings from registered sources into a cached
// SecurityData snapshot.
type Store struct {
	ttl      time.Duration
	registry *checks.Registry
	logger   *slog.Logger

	mu        sync.RWMutex
	sources   []Source
	data      *SecurityData
	stale     bool
	onRefresh []func(*SecurityData)
}

// New creates an empty store. Register sources with AddSource before
// the first Load.
func New(opts Options) *Store {
	if opts.TTL == 0 {
		opts.TTL = duration.CacheTTL
	}
	if opts.Registry == nil {
		opts.Registry = checks.Builtin()
	}
	return &Store{
		ttl:      opts.TTL,
		registry: opts.Registry,
		logger:   orDefault(opts.Logger),
	}
}

func orDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

// AddSource registers a findings source. Sources are consulted in
// registration order on every refresh.
func (s *Store) AddSource(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = append(s.sources, src)
}

// SourceNames returns the registered source names in order.
func (s *Store) SourceNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.sources))
	for i, src := range s.sources {
		names[i] = src.Name()
	}
	return names
}

// OnRefresh registers a callback invoked after every refresh with the
// new snapshot. Panics in callbacks are recovered and logged; they
// never propagate to the loader.
func (s *Store) OnRefresh(fn func(*SecurityData)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRefresh = append(s.onRefresh, fn)
}

// Load returns the current snapshot, refreshing first when the cache
// is expired, invalidated, or force is set. Two loads within the TTL
// return the identical pointer. Failing sources are logged and
// skipped: aggregation always yields a valid snapshot, even an empty
// one.
func (s *Store) Load(ctx context.Context, force bool) (*SecurityData, error) {
	s.mu.RLock()
	if data := s.data; !force && !s.stale && data != nil && !data.Expired(time.Now()) {
		s.mu.RUnlock()
		return data, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	data, callbacks, err := s.refreshLocked(ctx, force)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	// Callbacks run outside the lock so they may call back into the
	// store.
	for _, fn := range callbacks {
		s.invoke(fn, data)
	}
	return data, nil
}

// refreshLocked re-ingests every source unless a fresh snapshot
// appeared while the caller waited for the write lock. The returned
// callback slice is nil when the cached snapshot was reused.
func (s *Store) refreshLocked(ctx context.Context, force bool) (*SecurityData, []func(*SecurityData), error) {
	if data := s.data; !force && !s.stale && data != nil && !data.Expired(time.Now()) {
		return data, nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var all []finding.Finding
	for _, src := range s.sources {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		found, err := src.Findings(ctx)
		if err != nil {
			s.logger.Warn("store: source failed, skipping",
				slog.String("source", src.Name()),
				slog.String("error", err.Error()))
			continue
		}
		all = append(all, found...)
	}

	data := build(all, s.ttl)
	s.data = data
	s.stale = false
	return data, slices.Clone(s.onRefresh), nil
}

func (s *Store) invoke(fn func(*SecurityData), data *SecurityData) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("store: refresh callback panicked", slog.Any("panic", r))
		}
	}()
	fn(data)
}

// Data returns the current snapshot without loading. It may be nil
// (never loaded or cleared) or stale; callers that need fresh data use
// Load.
func (s *Store) Data() *SecurityData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// Filtered loads (respecting the cache) and returns the findings that
// match the filters. The snapshot itself is never mutated.
func (s *Store) Filtered(ctx context.Context, filters Filters) ([]finding.Finding, error) {
	data, err := s.Load(ctx, false)
	if err != nil {
		return nil, err
	}
	return filters.Apply(data.Findings), nil
}

// AutoFixable returns the failed findings whose check ids the registry
// marks as automatically remediable.
func (s *Store) AutoFixable(ctx context.Context) ([]finding.Finding, error) {
	data, err := s.Load(ctx, false)
	if err != nil {
		return nil, err
	}
	var out []finding.Finding
	for _, f := range data.Findings {
		if f.IsFailed() && s.registry.IsAutoFixable(f.CheckID) {
			out = append(out, f)
		}
	}
	return out, nil
}

// Invalidate marks the snapshot stale so the next Load re-ingests.
// Readers holding the current pointer are unaffected.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stale = true
}

// Clear drops the snapshot entirely. Data returns nil until the next
// Load.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	s.stale = false
}
