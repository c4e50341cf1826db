package content

import (
	"context"
	"sync"

	"github.com/mandirseva/mandir-platform/internal/observability/metrics"
	"github.com/mandirseva/mandir-platform/pkg/logging"
)

// Resolver is the single place the fallback policy lives. Every getter makes
// one attempt against the store and substitutes the snapshot on any failure;
// callers never see an error and list categories never return nil. The
// marketing site must not render a broken page because the content backend
// is down.
type Resolver struct {
	store    Reader
	fallback *Snapshot
	metrics  *metrics.ContentMetrics
	logger   *logging.Logger
}

// NewResolver builds a resolver. Store and fallback are required; the
// fallback snapshot is the availability guarantee, not an optional extra.
func NewResolver(store Reader, fallback *Snapshot, m *metrics.ContentMetrics, logger *logging.Logger) *Resolver {
	if store == nil {
		panic("content: store cannot be nil")
	}
	if fallback == nil {
		panic("content: fallback snapshot cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{
		store:    store,
		fallback: fallback,
		metrics:  m,
		logger:   logger,
	}
}

// Homepage resolves the hero/counters document.
func (r *Resolver) Homepage(ctx context.Context) Item {
	return r.single(ctx, TypeHomepage)
}

// AboutUs resolves the about-us document.
func (r *Resolver) AboutUs(ctx context.Context) Item {
	return r.single(ctx, TypeAboutUs)
}

// Contact resolves the contact document.
func (r *Resolver) Contact(ctx context.Context) Item {
	return r.single(ctx, TypeContact)
}

// News resolves the news collection, optionally filtered to featured items.
func (r *Resolver) News(ctx context.Context, featured bool) []Item {
	return r.list(ctx, TypeNews, featured)
}

// Events resolves the events collection.
func (r *Resolver) Events(ctx context.Context, featured bool) []Item {
	return r.list(ctx, TypeEvents, featured)
}

// Projects resolves the projects collection.
func (r *Resolver) Projects(ctx context.Context, featured bool) []Item {
	return r.list(ctx, TypeProjects, featured)
}

// FAQs resolves the FAQ collection.
func (r *Resolver) FAQs(ctx context.Context) []Item {
	return r.list(ctx, TypeFAQs, false)
}

// ByType resolves any list category by name.
func (r *Resolver) ByType(ctx context.Context, contentType string, featured bool) []Item {
	return r.list(ctx, contentType, featured)
}

// FeaturedContent aggregates the featured homepage strips.
type FeaturedContent struct {
	News     []Item `json:"news"`
	Events   []Item `json:"events"`
	Projects []Item `json:"projects"`
}

// Featured fetches the three featured collections concurrently. A failed
// category degrades to its fallback without aborting the others.
func (r *Resolver) Featured(ctx context.Context) FeaturedContent {
	var out FeaturedContent
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		out.News = r.list(ctx, TypeNews, true)
	}()
	go func() {
		defer wg.Done()
		out.Events = r.list(ctx, TypeEvents, true)
	}()
	go func() {
		defer wg.Done()
		out.Projects = r.list(ctx, TypeProjects, true)
	}()
	wg.Wait()
	return out
}

func (r *Resolver) single(ctx context.Context, contentType string) Item {
	item, err := r.store.GetByID(ctx, contentType)
	if err != nil {
		r.logger.Warn("content fetch failed, serving fallback", "type", contentType, "error", err)
		r.metrics.ObserveFetch(contentType, "fallback")
		r.metrics.ObserveFallback(contentType)
		return r.fallback.Single(contentType)
	}
	r.metrics.ObserveFetch(contentType, "ok")
	return *item
}

func (r *Resolver) list(ctx context.Context, contentType string, featured bool) []Item {
	items, err := r.store.ListByType(ctx, contentType)
	if err != nil {
		r.logger.Warn("content fetch failed, serving fallback", "type", contentType, "error", err)
		r.metrics.ObserveFetch(contentType, "fallback")
		r.metrics.ObserveFallback(contentType)
		items = r.fallback.List(contentType)
	} else {
		r.metrics.ObserveFetch(contentType, "ok")
	}
	if featured {
		items = filterFeatured(items)
	}
	if items == nil {
		items = []Item{}
	}
	return items
}

func filterFeatured(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if item.Featured() {
			out = append(out, item)
		}
	}
	return out
}
