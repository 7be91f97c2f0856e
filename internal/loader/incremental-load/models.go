// internal/loader/incremental-load/models.go
package incrementalload

import (
	"context"

	apperrors "pricelens/internal/common/errors"
	"pricelens/internal/models"
)

// Item is anything the controller can page through. Key identifies the item
// for cross-page deduplication.
type Item interface {
	Key() string
}

// PageRequest carries the provenance of one page fetch.
type PageRequest struct {
	Query        string
	CategorySlug string
	Subcategory  string
	Page         int
	PageSize     int
}

// Page is one canonical page. Received is the number of records the backend
// returned before normalization dropped any; it drives hasMore inference.
type Page[T Item] struct {
	Items    []T
	HasMore  *bool
	Received int
}

// More derives hasMore: the explicit backend flag wins, otherwise a full
// page means there may be another one.
func (p Page[T]) More(pageSize int) bool {
	if p.HasMore != nil {
		return *p.HasMore
	}
	n := p.Received
	if n < len(p.Items) {
		n = len(p.Items)
	}
	return pageSize > 0 && n >= pageSize
}

// Source fetches pages. Implementations must honor ctx cancellation.
type Source[T Item] interface {
	FetchPage(ctx context.Context, req PageRequest) (Page[T], error)
}

// SourceFunc adapts a function to Source.
type SourceFunc[T Item] func(ctx context.Context, req PageRequest) (Page[T], error)

func (f SourceFunc[T]) FetchPage(ctx context.Context, req PageRequest) (Page[T], error) {
	return f(ctx, req)
}

// Transform derives the visible list from the accumulated items. It must
// not modify its input.
type Transform[T Item] func(items []T, filter models.FilterState) []T

type State string

const (
	StateIdle       State = "idle"
	StateDebouncing State = "debouncing"
	StateFetching   State = "fetching"
	StateSuccess    State = "success"
	StateFailure    State = "failure"
	StateAborted    State = "aborted"
)

// Request classes, each with its own timeout budget.
const (
	ClassFirstPage = "first_page"
	ClassPage      = "page"
	ClassPrefetch  = "prefetch"
)

// View is the snapshot handed to the presentation layer.
type View[T Item] struct {
	Query         string                   `json:"query"`
	Category      string                   `json:"category"`
	Filter        models.FilterState       `json:"filter"`
	State         State                    `json:"state"`
	Items         []T                      `json:"items"`
	Loaded        int                      `json:"loaded"`
	Page          int                      `json:"page"`
	HasMore       bool                     `json:"hasMore"`
	IsLoading     bool                     `json:"isLoading"`
	IsLoadingMore bool                     `json:"isLoadingMore"`
	HasSearched   bool                     `json:"hasSearched"`
	Error         *apperrors.StandardError `json:"error,omitempty"`
}
