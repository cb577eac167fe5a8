package race

import (
	"context"
	"time"
)

// dispatchResult carries what one worker produced: always a record of
// the attempt, plus a terminal outcome when submission itself failed.
type dispatchResult struct {
	idx    int
	rec    DispatchRecord
	failed *Outcome
}

// runWorker parks on the barrier, then submits. The send clock starts
// strictly after the worker observes its release. Workers never see
// each other's timestamps.
func runWorker(ctx context.Context, s session, tx ConflictingTx, bar *Barrier, armed func()) dispatchResult {
	armed()
	if err := bar.Wait(ctx); err != nil {
		return dispatchResult{
			idx: s.idx,
			rec: DispatchRecord{Endpoint: s.endpoint, Signature: tx.Tx.Sig},
			failed: &Outcome{
				Endpoint:  s.endpoint,
				Signature: tx.Tx.Sig,
				Status:    StatusSubmissionFailed,
				Cause:     "release aborted: " + err.Error(),
			},
		}
	}

	start := time.Now()
	sig, err := s.conn.Submit(ctx, tx.Tx)
	end := time.Now()

	if sig == "" {
		sig = tx.Tx.Sig // signature is known before the node echoes it
	}
	rec := DispatchRecord{
		Endpoint:  s.endpoint,
		Signature: sig,
		SendStart: start,
		SendEnd:   end,
	}
	if err != nil {
		// Transport or node refusal before the payload was accepted:
		// this endpoint does not enter the confirmation race.
		return dispatchResult{
			idx: s.idx,
			rec: rec,
			failed: &Outcome{
				Endpoint:  s.endpoint,
				Signature: sig,
				Status:    StatusSubmissionFailed,
				Cause:     err.Error(),
			},
		}
	}
	return dispatchResult{idx: s.idx, rec: rec}
}
