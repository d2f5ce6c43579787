// Package router resolves client navigations against a fixed route table,
// running the access guard before every navigation and following its
// redirects.
package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DefaultMaxRedirects bounds the redirects followed per navigation.
const DefaultMaxRedirects = 5

// ErrTooManyRedirects is returned when a navigation keeps redirecting.
var ErrTooManyRedirects = errors.New("too many redirects")

// Resolution is the outcome of a navigation.
type Resolution struct {
	Route     Route
	Location  string   // final full path
	Redirects []string // intermediate redirect targets, in order
	Found     bool     // false when no route matched Location
}

// Router owns the current location.
type Router struct {
	table        *Table
	guard        *Guard
	maxRedirects int

	mu      sync.Mutex
	current string
}

// New creates a router starting at no location.
func New(table *Table, guard *Guard) *Router {
	return &Router{table: table, guard: guard, maxRedirects: DefaultMaxRedirects}
}

// Table returns the route table.
func (r *Router) Table() *Table { return r.table }

// Current returns the last resolved full path, empty before the first navigation.
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Navigate guards and resolves to. Each redirect is guarded again. On error
// the current location is unchanged.
func (r *Router) Navigate(ctx context.Context, to string) (Resolution, error) {
	from := r.Current()
	loc := NormalizeLocation(to)

	var redirects []string
	for {
		d, err := r.guard.Check(ctx, loc, from)
		if err != nil {
			return Resolution{}, err
		}
		if d.Allowed() {
			break
		}
		if len(redirects) >= r.maxRedirects {
			return Resolution{}, fmt.Errorf("navigate to %s: %w", to, ErrTooManyRedirects)
		}
		loc = NormalizeLocation(d.Redirect)
		redirects = append(redirects, loc)
	}

	route, found := r.table.Match(loc)

	r.mu.Lock()
	r.current = loc
	r.mu.Unlock()

	return Resolution{Route: route, Location: loc, Redirects: redirects, Found: found}, nil
}
