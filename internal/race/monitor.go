package race

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/usopp-send/rpc-race/internal/chain"
)

// winnerClaim is the single-assignment winner slot. Exactly one
// watcher's CompareAndSwap succeeds; ties inside one poll tick are
// broken by claim order, never by wall-clock comparison.
type winnerClaim struct {
	idx         int
	confirmedAt time.Time
}

// watched pairs a live session with its successful dispatch.
type watched struct {
	sess session
	rec  DispatchRecord
}

// confirmationRace owns the winner cell and the watcher pool for one
// run. Watchers start the moment their dispatch record lands, so a
// slow or stuck submission on one endpoint never delays the watch on
// another.
type confirmationRace struct {
	pollInterval time.Duration

	winner atomic.Pointer[winnerClaim]
	g      errgroup.Group

	mu       sync.Mutex
	outcomes map[int]Outcome
}

func newConfirmationRace(pollInterval time.Duration) *confirmationRace {
	return &confirmationRace{
		pollInterval: pollInterval,
		outcomes:     make(map[int]Outcome),
	}
}

// watch follows one dispatched signature until it reaches a terminal
// state or ctx's deadline fires. The outcome is collected by wait.
func (cr *confirmationRace) watch(ctx context.Context, w watched) {
	cr.g.Go(func() error {
		out := watchOne(ctx, &cr.winner, w, cr.pollInterval)
		cr.mu.Lock()
		cr.outcomes[w.sess.idx] = out
		cr.mu.Unlock()
		return nil
	})
}

// wait blocks until every started watcher is terminal and returns one
// outcome per watched endpoint, keyed by input index.
func (cr *confirmationRace) wait() map[int]Outcome {
	_ = cr.g.Wait()
	return cr.outcomes
}

// watchOne polls a single signature. Transient status errors keep the
// loop going; only the deadline or a terminal state ends it.
func watchOne(ctx context.Context, winner *atomic.Pointer[winnerClaim], w watched, pollInterval time.Duration) Outcome {
	base := Outcome{Endpoint: w.rec.Endpoint, Signature: w.rec.Signature}

	for {
		st, err := w.sess.conn.Status(ctx, w.rec.Signature)
		if err == nil && st.Terminal() {
			return classify(winner, w, st)
		}

		select {
		case <-ctx.Done():
			out := base
			out.Status = StatusTimedOut
			return out
		case <-time.After(pollInterval):
		}
	}
}

func classify(winner *atomic.Pointer[winnerClaim], w watched, st chain.TxStatus) Outcome {
	out := Outcome{
		Endpoint:  w.rec.Endpoint,
		Signature: w.rec.Signature,
		Slot:      st.Slot,
	}
	switch st.State {
	case chain.StateConfirmed:
		now := time.Now()
		out.ConfirmDuration = now.Sub(w.rec.SendStart)
		if winner.CompareAndSwap(nil, &winnerClaim{idx: w.sess.idx, confirmedAt: now}) {
			out.Status = StatusWinnerConfirmed
		} else {
			// A conflicting transaction also landed (e.g. partial
			// partition) but the winner slot was already taken.
			out.Status = StatusLoserConfirmed
		}
	case chain.StateRejected:
		out.Status = StatusRejected
		out.Code = st.Code
	}
	return out
}
