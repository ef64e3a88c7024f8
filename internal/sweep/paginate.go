package sweep

import (
	"context"
	"log/slog"
)

// PageFunc fetches one page of a listing. It returns the page's items and
// the server's continuation cursor, which is empty once the listing is
// exhausted.
type PageFunc[T any] func(ctx context.Context, cursor string, limit int) (items []T, next string, err error)

// Pager drains a paginated listing endpoint into one ordered slice.
type Pager[T any] struct {
	Fetch PageFunc[T]
	Limit int
	// StopOnShortPage also ends pagination when a page comes back shorter
	// than Limit, saving the final empty round trip.
	StopOnShortPage bool
	// KeepPartial stops at the first page error and returns everything
	// gathered so far instead of failing the listing.
	KeepPartial bool
	Logger      *slog.Logger
}

const defaultPageLimit = 50

// All follows continuation cursors until the server stops returning one.
// Items come back in server order. The first page error propagates
// immediately unless KeepPartial is set.
func (p *Pager[T]) All(ctx context.Context) ([]T, error) {
	var (
		out    = make([]T, 0)
		cursor string
	)
	limit := p.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	for {
		items, next, err := p.Fetch(ctx, cursor, limit)
		if err != nil {
			if p.KeepPartial {
				p.logger().Warn("pagination failed, keeping partial listing",
					"error", err, "fetched", len(out))
				return out, nil
			}
			return nil, err
		}
		out = append(out, items...)
		if len(next) == 0 {
			return out, nil
		}
		if p.StopOnShortPage && len(items) < limit {
			return out, nil
		}
		cursor = next
	}
}

func (p *Pager[T]) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
