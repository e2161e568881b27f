package balloon

import (
	"context"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// ReleaseReport describes the outcome of Deflate
type ReleaseReport struct {
	// Freed is the number of pages returned to the source
	Freed int
	// Blocks is the number of blocks returned to the source
	Blocks int
	// Failed is the number of blocks the source refused to take back
	Failed int
}

// Deflate releases every block the balloon holds, in the order they were acquired, each with the
// order it was acquired at. It may be called once, after Inflate or instead of it. A block the
// source fails to free is dropped from the balloon and reported through the returned error; the
// remaining blocks are still released.
func (b *Balloon) Deflate() (ReleaseReport, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.state != StateHolding && b.state != StateUninitialized {
		return ReleaseReport{}, errors.Wrapf(ErrInvalidState, "cannot deflate a balloon that is %s", b.state)
	}
	b.state = StateReleasing

	report, err := b.releaseAll()

	b.state = StateReleased

	b.logger.Info("cleaning up balloon", slog.Int("pagesFreed", report.Freed), slog.Int("blocksFreed", report.Blocks))
	if err != nil {
		b.logger.LogAttrs(context.Background(), slog.LevelError, "some blocks could not be freed",
			slog.Int("failedBlocks", report.Failed),
			slog.Any("error", err))
	}

	return report, err
}

func (b *Balloon) releaseAll() (ReleaseReport, error) {
	var report ReleaseReport
	var err error

	for _, block := range b.ledger.Drain() {
		freeErr := b.source.Free(block.Handle, block.Order)
		if freeErr != nil {
			report.Failed++
			err = errors.CombineErrors(err, errors.Wrapf(freeErr, "failed to free order %d block on node %d", block.Order, block.Node))
			continue
		}

		b.budget.RemoveBlock(block.Node, block.Pages())
		report.Freed += block.Pages()
		report.Blocks++
	}

	return report, err
}
