package race

import (
	"errors"
	"fmt"
)

// ErrIncompleteRace means the engine closed with an endpoint holding
// no terminal outcome. It signals an internal invariant violation, not
// a slow endpoint (those are TimedOut).
var ErrIncompleteRace = errors.New("race closed with unresolved endpoints")

// aggregate joins per-endpoint records and outcomes in input order.
// The report contract is explicit: entries follow the endpoint list
// the caller supplied, with the winner flagged — never a speed sort.
func aggregate(runID string, txs []ConflictingTx, records map[int]DispatchRecord, outcomes map[int]Outcome) (Result, error) {
	res := Result{RunID: runID, WinnerIdx: -1}
	res.Entries = make([]Entry, 0, len(txs))

	for i, tx := range txs {
		out, ok := outcomes[i]
		if !ok || out.Status == "" {
			return Result{}, fmt.Errorf("%w: endpoint %s", ErrIncompleteRace, tx.Endpoint)
		}
		entry := Entry{
			Endpoint: tx.Endpoint,
			Amount:   tx.Amount,
			Dispatch: records[i],
			Outcome:  out,
		}
		if out.Status == StatusWinnerConfirmed {
			if res.WinnerIdx >= 0 {
				return Result{}, fmt.Errorf("%w: second winner at endpoint %s", ErrIncompleteRace, tx.Endpoint)
			}
			res.WinnerIdx = i
		}
		res.Entries = append(res.Entries, entry)
	}
	return res, nil
}
