package aggregate

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/loopcredit/dailybrief/internal/event"
	"github.com/loopcredit/dailybrief/internal/identity"
	"github.com/loopcredit/dailybrief/internal/taxonomy"
)

// Run reduces a closed batch serially and returns the finished report.
func Run(events []*event.Event, table *taxonomy.Table, opts Options, date string) *Report {
	agg := New(table, opts)
	for _, evt := range events {
		agg.Observe(evt)
	}
	return agg.Finalize(date)
}

// indexedEvent carries an event's original input position through the
// partitioned pass. Screen ordering depends on it when timestamps tie or
// are missing; dropping it would make the merge order-incorrect.
type indexedEvent struct {
	evt *event.Event
	seq int64
}

// RunPartitioned reduces a batch across parts partitions and merges the
// partial states. Events are routed by canonical user key, so a user's
// state is never split across workers; the merged report is identical to
// the serial one. parts <= 1 falls back to Run.
func RunPartitioned(ctx context.Context, events []*event.Event, parts int, table *taxonomy.Table, opts Options, date string) (*Report, error) {
	if parts <= 1 {
		return Run(events, table, opts, date), nil
	}

	partitioned := make([][]indexedEvent, parts)
	for i, evt := range events {
		p := identity.Partition(identity.Resolve(evt.UserID, evt.DeviceID), parts)
		partitioned[p] = append(partitioned[p], indexedEvent{evt: evt, seq: int64(i)})
	}

	aggs := make([]*Aggregator, parts)
	g, ctx := errgroup.WithContext(ctx)
	for p := 0; p < parts; p++ {
		agg := New(table, opts)
		aggs[p] = agg
		batch := partitioned[p]
		g.Go(func() error {
			for _, ie := range batch {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				agg.observeAt(ie.evt, ie.seq)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := aggs[0]
	for _, agg := range aggs[1:] {
		merged.Merge(agg)
	}
	return merged.Finalize(date), nil
}
