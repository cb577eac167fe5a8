// Package race implements the synchronized dispatch and confirmation
// race: build a conflicting transaction per endpoint, release every
// dispatch at the same instant, and race the confirmations to a single
// winner while classifying every other terminal outcome.
package race

import (
	"context"
	"time"

	"github.com/usopp-send/rpc-race/internal/chain"
)

// Status is the terminal classification of one endpoint's transaction.
type Status string

const (
	StatusWinnerConfirmed  Status = "winner_confirmed"
	StatusLoserConfirmed   Status = "loser_confirmed"
	StatusRejected         Status = "rejected_on_chain"
	StatusSubmissionFailed Status = "submission_failed"
	StatusTimedOut         Status = "timed_out"
)

// CauseSetupTimeout marks endpoints whose session never became ready
// before the prepare deadline. They are excluded from the release.
const CauseSetupTimeout = "setup timeout"

// ConflictingTx is one signed transfer bound to one endpoint. All
// transactions of a set spend overlapping funds, so at most one can
// ever be accepted on-chain.
type ConflictingTx struct {
	Endpoint string
	Amount   uint64
	Tx       chain.SignedTx
}

// DispatchRecord is produced exactly once per released worker,
// immediately after its submit call returns.
type DispatchRecord struct {
	Endpoint  string
	Signature chain.Signature
	SendStart time.Time
	SendEnd   time.Time
}

func (r DispatchRecord) SentDuration() time.Duration { return r.SendEnd.Sub(r.SendStart) }

// Outcome is one endpoint's terminal result.
type Outcome struct {
	Endpoint  string
	Signature chain.Signature
	Status    Status

	Code  string // node error code, set for StatusRejected
	Cause string // transport/setup cause, set for StatusSubmissionFailed

	ConfirmDuration time.Duration // send-start to confirmation, when confirmed
	Slot            int64
}

// Entry joins an endpoint's dispatch record with its outcome.
type Entry struct {
	Endpoint string
	Amount   uint64
	Dispatch DispatchRecord
	Outcome  Outcome
}

// Result is the full race report, ordered by endpoint input order —
// never by speed. WinnerIdx is -1 when no endpoint won.
type Result struct {
	RunID     string
	Entries   []Entry
	WinnerIdx int
}

func (r Result) Winner() (Entry, bool) {
	if r.WinnerIdx < 0 || r.WinnerIdx >= len(r.Entries) {
		return Entry{}, false
	}
	return r.Entries[r.WinnerIdx], true
}

// Conn is the per-session submission and confirmation-watch
// capability. internal/rpc provides the HTTP implementation.
type Conn interface {
	Submit(ctx context.Context, tx chain.SignedTx) (chain.Signature, error)
	Status(ctx context.Context, sig chain.Signature) (chain.TxStatus, error)
	Close() error
}

// DialFunc performs the endpoint-specific warm-up and yields a live
// session. Called once per endpoint during the prepare phase.
type DialFunc func(ctx context.Context, endpoint string) (Conn, error)

// Signer signs a transaction body for the race's sender account.
type Signer interface {
	Sign(body chain.TxBody) (chain.SignedTx, error)
}

// SignerFunc adapts a closure to Signer.
type SignerFunc func(body chain.TxBody) (chain.SignedTx, error)

func (f SignerFunc) Sign(body chain.TxBody) (chain.SignedTx, error) { return f(body) }
