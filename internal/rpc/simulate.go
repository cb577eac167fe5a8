package rpc

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/usopp-send/rpc-race/internal/race"
)

// SimulationAttempt is one endpoint's validation-only verdict for the
// transaction that would be dispatched there.
type SimulationAttempt struct {
	Endpoint string
	Amount   uint64
	Result   SimResult
	Took     time.Duration
	Err      error
}

// SimulateAll runs each conflicting transaction through its own
// endpoint's simulate route, concurrently. Nothing is submitted; the
// conflict set stays spendable afterwards. Results follow input order.
func SimulateAll(ctx context.Context, txs []race.ConflictingTx) []SimulationAttempt {
	attempts := make([]SimulationAttempt, len(txs))

	g, gctx := errgroup.WithContext(ctx)
	for i, tx := range txs {
		i, tx := i, tx
		g.Go(func() error {
			c := NewClient(tx.Endpoint)
			start := time.Now()
			res, err := c.Simulate(gctx, tx.Tx)
			attempts[i] = SimulationAttempt{
				Endpoint: tx.Endpoint,
				Amount:   tx.Amount,
				Result:   res,
				Took:     time.Since(start),
				Err:      err,
			}
			return nil
		})
	}
	// Workers never return errors; verdicts live in attempts.
	_ = g.Wait()

	return attempts
}
