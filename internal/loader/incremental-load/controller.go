// internal/loader/incremental-load/controller.go
package incrementalload

import (
	"context"
	"strings"
	"sync"

	apperrors "pricelens/internal/common/errors"
	"pricelens/internal/common/logger"
	"pricelens/internal/common/metrics"
	"pricelens/internal/models"

	"golang.org/x/sync/errgroup"
)

const (
	UnitName = "incremental-load"
)

// provenance tags every request with the state that issued it. gen changes
// on every fresh page-1 fetch, so an old request never matches even when
// the user returns to the same query.
type provenance struct {
	query       string
	category    string
	subcategory string
	gen         uint64
}

// Controller drives debounced search, pagination and prefetch for one
// session. All state is guarded by mu; network calls run in goroutines
// and re-enter through the apply methods, which discard any response whose
// provenance is no longer current.
type Controller[T Item] struct {
	config    *Config
	source    Source[T]
	transform Transform[T]
	logger    logger.Logger
	registry  *Registry
	debouncer *Debouncer

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	typed       string
	current     provenance
	filter      models.FilterState
	state       State
	debouncing  bool
	items       []T
	visible     []T
	seen        map[string]struct{}
	page        int
	hasMore     bool
	loadingMore bool
	hasSearched bool
	err         *apperrors.StandardError
	prefetched  map[int]Page[T]
	prefetching map[int]chan struct{}
	closed      bool
}

func NewController[T Item](config *Config, source Source[T], transform Transform[T], log logger.Logger) *Controller[T] {
	if config == nil {
		config = LoadConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller[T]{
		config:    config,
		source:    source,
		transform: transform,
		logger:    logger.ForComponent(log, UnitName),
		registry:  NewRegistry(),
		debouncer: NewDebouncer(config.Debounce),
		ctx:       ctx,
		cancel:    cancel,
		filter:    models.DefaultFilterState(),
		state:     StateIdle,
	}
	c.resetLocked()
	return c
}

// OnQueryChange handles one keystroke. Queries that fail the length gate
// clear the results without fetching; others restart the debounce timer.
func (c *Controller[T]) OnQueryChange(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	q := strings.TrimSpace(text)
	c.typed = q

	if !c.config.QueryAllowed(q) {
		c.debouncer.Cancel()
		c.debouncing = false

		if !c.config.RequireQuery {
			// Listing mode falls back to the plain category listing.
			if c.current.query != "" {
				c.current.query = ""
				c.startFetchLocked()
			}
			return
		}

		if n := c.registry.AbortAll("query_cleared"); n > 0 {
			c.logger.Debug("aborted requests on query clear", map[string]interface{}{"aborted": n})
		}
		c.current.query = ""
		c.current.gen++
		c.resetLocked()
		c.state = StateIdle
		return
	}

	c.debouncing = true
	c.debouncer.Schedule(func() { c.fire(q) })
}

// fire runs when the debounce window closes.
func (c *Controller[T]) fire(q string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.typed != q {
		return
	}
	c.debouncing = false

	if q == c.current.query && (c.state == StateFetching || c.state == StateSuccess) {
		return
	}
	c.current.query = q
	c.startFetchLocked()
}

// OnFilterChange applies a partial filter update. Only a subcategory change
// needs a new fetch; everything else is recomputed from loaded items.
func (c *Controller[T]) OnFilterChange(patch models.FilterPatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}

	next := c.filter.With(patch)
	if err := next.Validate(); err != nil {
		return apperrors.NewInvalidFilterError(err.Error())
	}
	refetch := c.filter.SubcategoryChanged(patch)
	c.filter = next

	if !refetch {
		c.recomputeLocked()
		return nil
	}

	c.current.subcategory = ""
	if next.Subcategory != nil {
		c.current.subcategory = strings.TrimSpace(*next.Subcategory)
	}
	if c.config.RequireQuery && c.current.query == "" {
		c.recomputeLocked()
		return nil
	}
	c.startFetchLocked()
	return nil
}

// OnCategoryChange aborts everything in flight for the old category and
// loads page 1 of the new one.
func (c *Controller[T]) OnCategoryChange(slug string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	slug = strings.TrimSpace(slug)
	if slug == c.current.category && c.state != StateIdle {
		return
	}

	if n := c.registry.AbortAll("category_change"); n > 0 {
		c.logger.Debug("aborted requests on category change", map[string]interface{}{
			"from":    c.current.category,
			"to":      slug,
			"aborted": n,
		})
	}
	c.debouncer.Cancel()
	c.debouncing = false
	c.current.category = slug

	if c.config.QueryAllowed(c.typed) {
		c.current.query = c.typed
	}
	if c.config.RequireQuery && c.current.query == "" {
		c.current.gen++
		c.resetLocked()
		c.state = StateIdle
		return
	}
	c.startFetchLocked()
}

// Refresh reloads page 1 of the current query and category.
func (c *Controller[T]) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.config.RequireQuery && c.current.query == "" {
		return
	}
	c.startFetchLocked()
}

// OnLoadMoreRequested requests the next page. A prefetched page is applied
// synchronously; otherwise one network fetch is issued. It reports whether
// anything was applied or started.
func (c *Controller[T]) OnLoadMoreRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state != StateSuccess || !c.hasMore || c.loadingMore {
		return false
	}

	n := c.page + 1
	if cached, ok := c.prefetched[n]; ok {
		delete(c.prefetched, n)
		metrics.PrefetchCache.WithLabelValues("hit").Inc()
		c.appendLocked(cached, n)
		c.logger.Debug("applied prefetched page", map[string]interface{}{"page": n})
		return true
	}

	metrics.PrefetchCache.WithLabelValues("miss").Inc()
	c.loadingMore = true
	go c.loadMore(c.current, n, c.prefetching[n])
	return true
}

// OnItemRendered triggers load-more when the rendered index is within the
// configured distance of the end of the visible list.
func (c *Controller[T]) OnItemRendered(index int) bool {
	c.mu.Lock()
	trigger := index >= 0 && index >= len(c.visible)-c.config.LoadMoreThreshold
	c.mu.Unlock()

	if !trigger {
		return false
	}
	return c.OnLoadMoreRequested()
}

// View returns a snapshot of what the presentation layer should show.
func (c *Controller[T]) View() View[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := c.state
	if c.debouncing {
		state = StateDebouncing
	}
	visible := make([]T, 0, len(c.visible))
	visible = append(visible, c.visible...)
	return View[T]{
		Query:         c.current.query,
		Category:      c.current.category,
		Filter:        c.filter.With(models.FilterPatch{}),
		State:         state,
		Items:         visible,
		Loaded:        len(c.items),
		Page:          c.page,
		HasMore:       c.hasMore,
		IsLoading:     c.state == StateFetching,
		IsLoadingMore: c.loadingMore,
		HasSearched:   c.hasSearched,
		Error:         c.err,
	}
}

// InFlight returns the number of outstanding requests.
func (c *Controller[T]) InFlight() int {
	return c.registry.Len()
}

// Close aborts every outstanding request and stops the controller.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.debouncer.Cancel()
	c.registry.AbortAll("teardown")
	c.cancel()
}

// ==========================
// Fetching
// ==========================

func (c *Controller[T]) request(p provenance, page int) PageRequest {
	return PageRequest{
		Query:        p.query,
		CategorySlug: p.category,
		Subcategory:  p.subcategory,
		Page:         page,
		PageSize:     c.config.PageSize,
	}
}

func (c *Controller[T]) startFetchLocked() {
	if n := c.registry.AbortAll("superseded"); n > 0 {
		c.logger.Debug("aborted superseded requests", map[string]interface{}{"aborted": n})
	}
	c.current.gen++
	c.resetLocked()
	c.state = StateFetching

	prov := c.current
	ctx, release := c.registry.Register(c.ctx, ClassFirstPage, c.config.FirstPageTimeout)
	metrics.LoaderFetches.WithLabelValues(ClassFirstPage).Inc()

	go func() {
		page, err := c.source.FetchPage(ctx, c.request(prov, 1))
		release()
		c.applyFirst(prov, page, err)
	}()
}

func (c *Controller[T]) applyFirst(prov provenance, page Page[T], err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || prov != c.current {
		c.discardLocked(prov, 1)
		return
	}

	if err != nil {
		std := apperrors.Classify(err)
		if std.Code == apperrors.ErrCodeRequestAborted {
			c.state = StateAborted
			c.logger.Debug("first page aborted", map[string]interface{}{"query": prov.query})
			return
		}

		c.state = StateFailure
		c.hasSearched = true
		if apperrors.IsUserVisible(std.Code, true) {
			c.err = std
		}
		c.logger.Error("search failed", map[string]interface{}{
			"query":    prov.query,
			"category": prov.category,
			"code":     string(std.Code),
			"error":    std.Error(),
		})
		return
	}

	c.appendLocked(page, 1)
	c.state = StateSuccess
	c.hasSearched = true
	c.logger.Debug("first page applied", map[string]interface{}{
		"query":    prov.query,
		"category": prov.category,
		"items":    len(c.items),
		"hasMore":  c.hasMore,
	})

	if c.hasMore {
		c.startPrefetchLocked(prov)
	}
}

func (c *Controller[T]) loadMore(prov provenance, n int, wait chan struct{}) {
	if wait != nil {
		select {
		case <-wait:
		case <-c.ctx.Done():
		}
	}

	c.mu.Lock()
	if c.closed || prov != c.current {
		c.discardLocked(prov, n)
		c.mu.Unlock()
		return
	}
	if cached, ok := c.prefetched[n]; ok && n == c.page+1 {
		delete(c.prefetched, n)
		metrics.PrefetchCache.WithLabelValues("hit").Inc()
		c.appendLocked(cached, n)
		c.loadingMore = false
		c.mu.Unlock()
		return
	}
	ctx, release := c.registry.Register(c.ctx, ClassPage, c.config.PageTimeout)
	c.mu.Unlock()

	metrics.LoaderFetches.WithLabelValues(ClassPage).Inc()
	page, err := c.source.FetchPage(ctx, c.request(prov, n))
	release()
	c.applyMore(prov, n, page, err)
}

func (c *Controller[T]) applyMore(prov provenance, n int, page Page[T], err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || prov != c.current {
		c.discardLocked(prov, n)
		return
	}
	c.loadingMore = false

	if n != c.page+1 {
		c.discardLocked(prov, n)
		return
	}

	if err != nil {
		std := apperrors.Classify(err)
		if std.Code != apperrors.ErrCodeRequestAborted {
			c.hasMore = false
			c.logger.Warn("load more failed", map[string]interface{}{
				"query": prov.query,
				"page":  n,
				"code":  string(std.Code),
			})
		}
		return
	}
	c.appendLocked(page, n)
}

// startPrefetchLocked speculatively fetches the next pages into the
// prefetch cache. Completion never touches the visible list.
func (c *Controller[T]) startPrefetchLocked(prov provenance) {
	if c.config.PrefetchPages <= 0 {
		return
	}
	limit := c.config.PrefetchConcurrency
	if limit < 1 {
		limit = 1
	}

	first, last := c.page+1, c.page+c.config.PrefetchPages
	waits := make(map[int]chan struct{}, last-first+1)
	for n := first; n <= last; n++ {
		ch := make(chan struct{})
		c.prefetching[n] = ch
		waits[n] = ch
	}

	go func() {
		var g errgroup.Group
		g.SetLimit(limit)
		for n := first; n <= last; n++ {
			ch := waits[n]
			g.Go(func() error {
				defer c.finishPrefetch(n, ch)
				c.prefetchPage(prov, n)
				return nil
			})
		}
		_ = g.Wait()
	}()
}

func (c *Controller[T]) prefetchPage(prov provenance, n int) {
	c.mu.Lock()
	if c.closed || prov != c.current || n <= c.page {
		c.mu.Unlock()
		return
	}
	ctx, release := c.registry.Register(c.ctx, ClassPrefetch, c.config.PrefetchTimeout)
	c.mu.Unlock()

	metrics.LoaderFetches.WithLabelValues(ClassPrefetch).Inc()
	page, err := c.source.FetchPage(ctx, c.request(prov, n))
	release()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || prov != c.current {
		c.discardLocked(prov, n)
		return
	}
	if err != nil {
		if !apperrors.IsAbort(err) {
			c.logger.Debug("prefetch failed", map[string]interface{}{
				"page":  n,
				"code":  string(apperrors.CodeOf(err)),
				"query": prov.query,
			})
		}
		return
	}
	if n > c.page {
		c.prefetched[n] = page
	}
}

func (c *Controller[T]) finishPrefetch(n int, ch chan struct{}) {
	c.mu.Lock()
	if c.prefetching[n] == ch {
		delete(c.prefetching, n)
	}
	c.mu.Unlock()
	close(ch)
}

// ==========================
// State helpers
// ==========================

func (c *Controller[T]) discardLocked(prov provenance, page int) {
	metrics.StaleResponsesDiscarded.Inc()
	c.logger.Debug("discarding stale response", map[string]interface{}{
		"query":        prov.query,
		"currentQuery": c.current.query,
		"page":         page,
	})
}

func (c *Controller[T]) resetLocked() {
	c.items = nil
	c.visible = nil
	c.seen = make(map[string]struct{})
	c.page = 0
	c.hasMore = false
	c.loadingMore = false
	c.hasSearched = false
	c.err = nil
	c.prefetched = make(map[int]Page[T])
	c.prefetching = make(map[int]chan struct{})
}

// appendLocked applies page n. Items already seen on an earlier page are
// dropped; the first occurrence wins.
func (c *Controller[T]) appendLocked(page Page[T], n int) {
	for _, item := range page.Items {
		key := item.Key()
		if _, dup := c.seen[key]; dup {
			continue
		}
		c.seen[key] = struct{}{}
		c.items = append(c.items, item)
	}
	c.page = n
	c.hasMore = page.More(c.config.PageSize)
	c.recomputeLocked()
}

func (c *Controller[T]) recomputeLocked() {
	if c.transform == nil {
		c.visible = append([]T(nil), c.items...)
		return
	}
	c.visible = c.transform(c.items, c.filter)
}
