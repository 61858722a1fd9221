// Package pager implements the windowed cursor used to browse the ledger.
//
// The ledger is read newest first, so Offset counts rows skipped from the
// newest end. Stepping "older" moves deeper into history, stepping "newer"
// moves back towards the present. A Pager belongs to a single browsing
// session and is not safe for concurrent use.
package pager

import "context"

// DefaultLimit is the page size used when none is configured.
const DefaultLimit = 50

// Kind tells the caller whether a transition requires a new fetch.
type Kind int

const (
	// Stable means the rows already loaded are the view.
	Stable Kind = iota
	// NeedsRefetch means the caller must load Transition.Offset.
	NeedsRefetch
)

// String names the kind for logs.
func (k Kind) String() string {
	if k == NeedsRefetch {
		return "needs_refetch"
	}
	return "stable"
}

// Transition is the outcome of a cursor move. Offset is the offset to
// fetch from when Kind is NeedsRefetch.
type Transition struct {
	Kind   Kind
	Offset int
}

// Refetch reports whether the caller must load Offset again.
func (t Transition) Refetch() bool {
	return t.Kind == NeedsRefetch
}

// Pager holds the (offset, limit) window and the size of the last page.
type Pager struct {
	offset   int
	limit    int
	lastRows int
}

// New returns a pager at offset zero. A non-positive limit selects
// DefaultLimit.
func New(limit int) *Pager {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Pager{limit: limit, lastRows: -1}
}

// Restore rebuilds a pager from state carried outside the process, such
// as a query string. lastRows is the size of the page currently shown, or
// a negative value when nothing was fetched yet. A page never holds more
// than limit rows, so larger values are clamped to the limit.
func Restore(offset, limit, lastRows int) *Pager {
	p := New(limit)
	if offset > 0 {
		p.offset = offset
	}
	p.lastRows = lastRows
	if p.lastRows > p.limit {
		p.lastRows = p.limit
	}
	return p
}

// Offset is the number of newest rows skipped.
func (p *Pager) Offset() int { return p.offset }

// Limit is the page size.
func (p *Pager) Limit() int { return p.limit }

// LastRows is the size of the last loaded page, negative before any load.
func (p *Pager) LastRows() int { return p.lastRows }

// Older steps back in time. It only moves when the last page was full,
// since a short page means there is nothing further back.
func (p *Pager) Older() Transition {
	if p.lastRows != p.limit {
		return Transition{Kind: Stable, Offset: p.offset}
	}
	p.offset += p.limit
	return Transition{Kind: NeedsRefetch, Offset: p.offset}
}

// Newer steps forward in time, clamping at the newest page. It always
// asks for a refetch.
func (p *Pager) Newer() Transition {
	p.offset -= p.limit
	if p.offset < 0 {
		p.offset = 0
	}
	return Transition{Kind: NeedsRefetch, Offset: p.offset}
}

// Loaded records the size of a page just fetched at Offset. An empty page
// past the newest window means the cursor went too far, and it is treated
// as one Newer step. An empty page at offset zero is an empty ledger and
// is stable.
func (p *Pager) Loaded(rows int) Transition {
	p.lastRows = rows
	if rows == 0 && p.offset > 0 {
		return p.Newer()
	}
	return Transition{Kind: Stable, Offset: p.offset}
}

// FetchFunc loads one page of at most limit rows starting at offset.
type FetchFunc[T any] func(ctx context.Context, offset, limit int) ([]T, error)

// Load fetches the page at the pager's offset and follows self-correcting
// transitions until the view is stable. Every correction strictly lowers
// the offset, so the loop ends.
func Load[T any](ctx context.Context, p *Pager, fetch FetchFunc[T]) ([]T, error) {
	for {
		rows, err := fetch(ctx, p.offset, p.limit)
		if err != nil {
			return nil, err
		}
		if !p.Loaded(len(rows)).Refetch() {
			return rows, nil
		}
	}
}
