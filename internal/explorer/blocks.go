package explorer

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// MaxBlockRange is the most slots one Blocks call may cover.
const MaxBlockRange = 100

// LatestSlot returns the newest slot the node knows.
func (e *Explorer) LatestSlot(ctx context.Context) (uint64, error) {
	return e.gateway.Slot(ctx)
}

// Blocks fetches every slot in [start, end] on at most e.workers goroutines.
// Row i answers slot start+i. A skipped slot is a NotFound row, not a
// failure of the whole range.
func (e *Explorer) Blocks(ctx context.Context, start, end uint64) ([]BlockRow, error) {
	if end < start {
		return nil, fmt.Errorf("%w: end slot %d is before start slot %d", ErrInvalidInput, end, start)
	}
	if end-start >= MaxBlockRange {
		return nil, fmt.Errorf("%w: range of %d slots exceeds the limit of %d", ErrInvalidInput, end-start+1, MaxBlockRange)
	}

	rows := make([]BlockRow, end-start+1)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range rows {
		i := i
		rows[i].Slot = start + uint64(i)
		g.Go(func() error {
			rows[i].Block, rows[i].Err = e.gateway.FetchBlock(gctx, rows[i].Slot)
			return nil
		})
	}
	_ = g.Wait()
	return rows, nil
}
