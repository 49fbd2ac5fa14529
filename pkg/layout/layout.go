// Package layout reports whether the client viewport is below a size
// breakpoint. It has no knowledge of the form.
package layout

import (
	"context"
	"sync"
)

// TabletBreakpoint is the width at or below which the form uses the tablet layout
const TabletBreakpoint = 1280

// Dimension selects which viewport side a query compares
type Dimension string

const (
	Width  Dimension = "width"
	Height Dimension = "height"
)

// Viewport is the client's inner window size in CSS pixels
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// BelowBreakpoint reports whether the chosen side of v is at or below
// threshold. Unknown dimensions never match.
func BelowBreakpoint(threshold int, dim Dimension, v Viewport) bool {
	switch dim {
	case Width:
		return v.Width <= threshold
	case Height:
		return v.Height <= threshold
	default:
		return false
	}
}

// MediaQuery tracks the latest viewport and re-evaluates on every update
type MediaQuery struct {
	threshold int
	dim       Dimension

	mu       sync.RWMutex
	viewport Viewport
	known    bool
}

// NewMediaQuery creates a query for threshold on dim
func NewMediaQuery(threshold int, dim Dimension) *MediaQuery {
	return &MediaQuery{threshold: threshold, dim: dim}
}

// TabletQuery is the query the form layout uses
func TabletQuery() *MediaQuery {
	return NewMediaQuery(TabletBreakpoint, Width)
}

// Update records a new viewport and returns the re-evaluated result
func (q *MediaQuery) Update(v Viewport) bool {
	q.mu.Lock()
	q.viewport = v
	q.known = true
	q.mu.Unlock()
	return BelowBreakpoint(q.threshold, q.dim, v)
}

// Matches reports the result for the last viewport. Before any update it is
// false.
func (q *MediaQuery) Matches() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.known {
		return false
	}
	return BelowBreakpoint(q.threshold, q.dim, q.viewport)
}

// Viewport returns the last viewport seen and whether one was seen at all
func (q *MediaQuery) Viewport() (Viewport, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.viewport, q.known
}

// Watch evaluates every viewport received on updates and emits the result.
// Every update produces a value. The returned channel closes when ctx is done
// or updates is closed.
func (q *MediaQuery) Watch(ctx context.Context, updates <-chan Viewport) <-chan bool {
	out := make(chan bool)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-updates:
				if !ok {
					return
				}
				match := q.Update(v)
				select {
				case out <- match:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
