package library

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/abelbrown/codesim/internal/model"
	"github.com/abelbrown/codesim/internal/otel"
)

// DefaultCachePages is how many pages the Loader keeps when unset.
const DefaultCachePages = 32

// Lister fetches one page of the library. internal/api.Client
// implements it.
type Lister interface {
	ListFiles(ctx context.Context, page, size int) (model.Page[model.CodeFile], error)
}

type pageKey struct {
	page, size int
}

// Loader fronts a Lister with a page cache and collapses identical
// concurrent loads into one request. Errors are never cached.
type Loader struct {
	src   Lister
	cache *lru.Cache[pageKey, model.Page[model.CodeFile]]
	group singleflight.Group
	gen   atomic.Uint64
	log   *otel.Logger
}

// NewLoader creates a Loader caching up to cachePages pages.
// log may be nil.
func NewLoader(src Lister, cachePages int, log *otel.Logger) (*Loader, error) {
	if cachePages <= 0 {
		cachePages = DefaultCachePages
	}
	cache, err := lru.New[pageKey, model.Page[model.CodeFile]](cachePages)
	if err != nil {
		return nil, fmt.Errorf("page cache: %w", err)
	}
	return &Loader{src: src, cache: cache, log: log}, nil
}

// Load returns the page, from cache when possible. Concurrent callers
// asking for the same page share one request, which runs under the
// first caller's context.
func (l *Loader) Load(ctx context.Context, page, size int) (model.Page[model.CodeFile], error) {
	key := pageKey{page: page, size: size}
	if p, ok := l.cache.Get(key); ok {
		l.log.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindPageCacheHit, Comp: "library", Page: page})
		return p, nil
	}

	gen := l.gen.Load()
	flight := fmt.Sprintf("%d/%d/%d", gen, page, size)
	v, err, _ := l.group.Do(flight, func() (any, error) {
		start := time.Now()
		l.log.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindPageRequest, Comp: "library", Page: page})

		p, err := l.src.ListFiles(ctx, page, size)
		if err != nil {
			l.log.Emit(otel.Event{
				Level: otel.LevelWarn,
				Kind:  otel.KindPageError,
				Comp:  "library",
				Page:  page,
				Dur:   time.Since(start),
				Err:   err.Error(),
			})
			return nil, err
		}

		// A page fetched before an Invalidate must not repopulate the cache.
		if l.gen.Load() == gen {
			l.cache.Add(key, p)
		}
		l.log.Emit(otel.Event{
			Level: otel.LevelInfo,
			Kind:  otel.KindPageLoaded,
			Comp:  "library",
			Page:  page,
			Count: len(p.Content),
			Dur:   time.Since(start),
		})
		return p, nil
	})
	if err != nil {
		return model.Page[model.CodeFile]{}, err
	}
	return v.(model.Page[model.CodeFile]), nil
}

// Invalidate drops every cached page. Loads already in flight finish but
// are not cached.
func (l *Loader) Invalidate() {
	l.gen.Add(1)
	l.cache.Purge()
}

// Cached reports how many pages are cached.
func (l *Loader) Cached() int {
	return l.cache.Len()
}
