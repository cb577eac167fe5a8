package chain

// ConfirmationState is the node-reported lifecycle of a submitted tx.
type ConfirmationState string

const (
	StatePending   ConfirmationState = "pending"
	StateConfirmed ConfirmationState = "confirmed"
	StateRejected  ConfirmationState = "rejected"
)

// Rejection codes reported by a node when execution fails.
const (
	CodeInsufficientFunds = "InsufficientFunds"
	CodeBlockhashExpired  = "BlockhashExpired"
	CodeInvalidSignature  = "InvalidSignature"
	CodeInvalidAmount     = "InvalidAmount"
	CodeUnknownAccount    = "UnknownAccount"
)

// TxStatus is one status observation for a signature.
type TxStatus struct {
	Known bool              `json:"known"`
	State ConfirmationState `json:"state,omitempty"`
	Code  string            `json:"code,omitempty"` // set when State == StateRejected
	Slot  int64             `json:"slot,omitempty"`
}

// Terminal reports whether the observation ends the watch for this
// signature. An unknown or pending tx keeps the watcher polling.
func (s TxStatus) Terminal() bool {
	return s.Known && (s.State == StateConfirmed || s.State == StateRejected)
}
