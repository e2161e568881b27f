package balloon

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/balloon/ledger"
	"github.com/vkngwrapper/balloon/memutils"
	"github.com/vkngwrapper/balloon/pages"
	"golang.org/x/exp/slog"
)

// NodeReport describes what a single node contributed to the balloon
type NodeReport struct {
	Node   int
	Target int
	// InitialOrder is the order the node's search started at: the largest order whose block
	// does not exceed Target
	InitialOrder int
	// Acquired is the number of pages acquired from the node. It may exceed Target by less
	// than 2^InitialOrder pages.
	Acquired int
	Blocks   int
	// Unmet is the part of Target the node could not supply
	Unmet int
	// Overshoot is the number of pages acquired beyond Target
	Overshoot int
	// Fallbacks counts failed block requests, each of which was retried one order lower
	Fallbacks int
}

// Err returns an error marked with ErrAllocationExhausted if the node fell short of its target
func (r NodeReport) Err() error {
	if r.Unmet == 0 {
		return nil
	}
	return errors.Wrapf(ErrAllocationExhausted, "node %d is short %d of %d pages", r.Node, r.Unmet, r.Target)
}

// acquireForNode takes target pages from node, greedily. The order is fixed before the loop,
// as the largest block that fits the target, and only ever decreases on failure; it is not
// recomputed as the remainder shrinks, so the last block may overshoot the target.
func (b *Balloon) acquireForNode(node, target int) NodeReport {
	report := NodeReport{Node: node, Target: target}

	b.logger.Info("allocating pages on node", slog.Int("node", node), slog.Int("pages", target))

	if target == 0 {
		return report
	}

	order := memutils.FitOrder(target, b.maxOrder)
	report.InitialOrder = order

	remaining := target
	for remaining > 0 {
		handle, err := b.allocateBlock(node, order)
		if err != nil {
			report.Fallbacks++
			if order == 0 {
				b.logger.Info("cannot allocate pages", slog.Int("node", node), slog.Int("order", order))
				break
			}
			order--
			continue
		}

		b.ledger.Append(ledger.Block[pages.Handle]{
			Node:   node,
			Order:  order,
			Handle: handle,
		})
		report.Blocks++
		report.Acquired += memutils.OrderPages(order)
		remaining -= memutils.OrderPages(order)
	}

	if remaining > 0 {
		report.Unmet = remaining
	} else {
		report.Overshoot = -remaining
	}

	level := slog.LevelInfo
	if report.Unmet > 0 {
		level = slog.LevelWarn
	}
	b.logger.LogAttrs(context.Background(), level, "node allocation finished",
		slog.Int("node", node),
		slog.Int("acquired", report.Acquired),
		slog.Int("blocks", report.Blocks),
		slog.Int("remaining", remaining))

	return report
}

func (b *Balloon) allocateBlock(node, order int) (pages.Handle, error) {
	size := memutils.OrderPages(order)

	err := b.budget.TryAddBlock(node, size)
	if err != nil {
		b.logger.Debug("node page limit reached", slog.Int("node", node), slog.Int("order", order))
		return pages.NoHandle, errors.Mark(err, pages.ErrUnavailable)
	}

	handle, err := b.source.Allocate(node, order)
	if err != nil {
		b.budget.RemoveBlock(node, size)

		if errors.Is(err, pages.ErrUnavailable) {
			b.logger.Debug("block unavailable", slog.Int("node", node), slog.Int("order", order), slog.Any("error", err))
		} else {
			b.logger.LogAttrs(context.Background(), slog.LevelWarn, "page source failed, falling back to a smaller block",
				slog.Int("node", node),
				slog.Int("order", order),
				slog.Any("error", err))
		}
		return pages.NoHandle, err
	}

	return handle, nil
}
