package mocknode

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/usopp-send/rpc-race/internal/chain"
)

// CodedError is a validation failure the node reports to clients with
// a rejection code.
type CodedError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *CodedError) Error() string { return e.Code + ": " + e.Message }

func coded(code, format string, args ...any) *CodedError {
	return &CodedError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// LedgerConfig tunes confirmation latency and blockhash lifetime.
type LedgerConfig struct {
	ConfirmDelay    time.Duration // base submit-to-confirm latency
	ConfirmJitter   time.Duration // uniform extra latency in [0, jitter)
	BlockhashWindow int64         // slots a blockhash stays usable
}

func (c LedgerConfig) withDefaults() LedgerConfig {
	if c.ConfirmDelay <= 0 {
		c.ConfirmDelay = 400 * time.Millisecond
	}
	if c.BlockhashWindow <= 0 {
		c.BlockhashWindow = 150
	}
	return c
}

type pendingTx struct {
	tx        chain.SignedTx
	seq       uint64 // submit order, breaks ConfirmAt ties
	hashSlot  int64  // slot of the blockhash the tx references
	confirmAt time.Time
}

// Ledger is the node's state machine. Balances and terminal tx records
// live in the Store; in-flight transactions stay in memory until the
// confirmer tick settles them. Settlement re-checks the sender balance,
// so of several transactions spending the same funds only the first to
// settle confirms and the rest reject with InsufficientFunds.
type Ledger struct {
	store Store
	rf    *RandFactory
	cfg   LedgerConfig

	mu      sync.Mutex
	slot    int64
	recent  map[string]int64 // blockhash -> slot it was produced at
	pending map[string]*pendingTx
	nextSeq uint64
}

func NewLedger(store Store, rf *RandFactory, cfg LedgerConfig) *Ledger {
	l := &Ledger{
		store:   store,
		rf:      rf,
		cfg:     cfg.withDefaults(),
		recent:  make(map[string]int64),
		pending: make(map[string]*pendingTx),
	}
	l.rotateBlockhash()
	return l
}

func (l *Ledger) hashForSlot(slot int64) string {
	return fmt.Sprintf("bh-%d-%016x", slot, deriveSeed(slot, "blockhash"))
}

// rotateBlockhash publishes the hash for the current slot and prunes
// the expired tail. Callers hold l.mu.
func (l *Ledger) rotateBlockhash() {
	l.recent[l.hashForSlot(l.slot)] = l.slot
	for h, s := range l.recent {
		if l.slot-s > l.cfg.BlockhashWindow {
			delete(l.recent, h)
		}
	}
}

func (l *Ledger) LatestBlockhash() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hashForSlot(l.slot)
}

func (l *Ledger) Slot() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.slot
}

// Fund credits an account directly, bypassing fees. Used at node start
// and by tests.
func (l *Ledger) Fund(pubkey string, amount uint64) error {
	bal, _, err := l.balance(pubkey)
	if err != nil {
		return err
	}
	return l.store.Put(KeyAccount(pubkey), []byte(strconv.FormatUint(bal+amount, 10)))
}

func (l *Ledger) balance(pubkey string) (uint64, bool, error) {
	raw, ok, err := l.store.Get(KeyAccount(pubkey))
	if err != nil || !ok {
		return 0, false, err
	}
	n, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt balance for %s: %w", pubkey, err)
	}
	return n, true, nil
}

// Balance returns the committed balance. Pending debits are not
// reflected until settlement.
func (l *Ledger) Balance(pubkey string) (uint64, bool, error) {
	return l.balance(pubkey)
}

// validate runs every submit-time check and returns the slot the tx's
// blockhash was produced at. Callers hold l.mu.
func (l *Ledger) validate(tx chain.SignedTx) (int64, *CodedError) {
	if err := tx.Verify(); err != nil {
		return 0, coded(chain.CodeInvalidSignature, "signature does not verify: %v", err)
	}
	if tx.Body.Amount == 0 {
		return 0, coded(chain.CodeInvalidAmount, "transfer amount is zero")
	}
	hashSlot, ok := l.recent[tx.Body.RecentBlockhash]
	if !ok {
		return 0, coded(chain.CodeBlockhashExpired, "blockhash %s not in recent window", tx.Body.RecentBlockhash)
	}
	bal, exists, err := l.balance(tx.Body.From)
	if err != nil {
		return 0, coded(chain.CodeUnknownAccount, "account lookup failed: %v", err)
	}
	if !exists {
		return 0, coded(chain.CodeUnknownAccount, "unknown sender %s", tx.Body.From)
	}
	if bal < tx.Body.Amount+tx.Body.Fee {
		return 0, coded(chain.CodeInsufficientFunds,
			"balance %d below amount %d + fee %d", bal, tx.Body.Amount, tx.Body.Fee)
	}
	return hashSlot, nil
}

// Submit validates the transaction and queues it for settlement after
// the node's confirmation latency. Resubmitting a signature already
// known is a no-op returning the same signature.
func (l *Ledger) Submit(tx chain.SignedTx) (chain.Signature, *CodedError) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sig := tx.Sig.String()
	if _, ok := l.pending[sig]; ok {
		return tx.Sig, nil
	}
	if _, ok, err := l.store.Get(KeyTx(sig)); err == nil && ok {
		return tx.Sig, nil
	}

	hashSlot, cerr := l.validate(tx)
	if cerr != nil {
		return "", cerr
	}

	delay := l.cfg.ConfirmDelay
	if l.cfg.ConfirmJitter > 0 {
		delay += time.Duration(l.rf.R(StreamConfirmJitter).Int63n(int64(l.cfg.ConfirmJitter)))
	}
	l.pending[sig] = &pendingTx{
		tx:        tx,
		seq:       l.nextSeq,
		hashSlot:  hashSlot,
		confirmAt: time.Now().Add(delay),
	}
	l.nextSeq++
	return tx.Sig, nil
}

// Simulate runs submit-time validation against committed state without
// queuing anything.
func (l *Ledger) Simulate(tx chain.SignedTx) (code, message string, logs []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	logs = append(logs,
		fmt.Sprintf("transfer %s -> %s amount=%d fee=%d", tx.Body.From, tx.Body.To, tx.Body.Amount, tx.Body.Fee))
	if _, cerr := l.validate(tx); cerr != nil {
		logs = append(logs, "validation failed: "+cerr.Code)
		return cerr.Code, cerr.Message, logs
	}
	logs = append(logs, "validation passed")
	return "", "", logs
}

type txRecord struct {
	State chain.ConfirmationState `json:"state"`
	Code  string                  `json:"code,omitempty"`
	Slot  int64                   `json:"slot"`
}

// Status reports the lifecycle of a signature: pending while queued,
// then the stored terminal record, or Known=false for a signature the
// node never saw.
func (l *Ledger) Status(sig chain.Signature) (chain.TxStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.pending[sig.String()]; ok {
		return chain.TxStatus{Known: true, State: chain.StatePending}, nil
	}
	raw, ok, err := l.store.Get(KeyTx(sig.String()))
	if err != nil {
		return chain.TxStatus{}, err
	}
	if !ok {
		return chain.TxStatus{Known: false}, nil
	}
	var rec txRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return chain.TxStatus{}, fmt.Errorf("corrupt tx record %s: %w", sig, err)
	}
	return chain.TxStatus{Known: true, State: rec.State, Code: rec.Code, Slot: rec.Slot}, nil
}

// Tick advances one slot, rotates the blockhash, and settles every
// pending transaction whose latency has elapsed, in arrival order of
// their deadlines. Settlement re-checks balances, which is where the
// losers of a conflicting spend get their InsufficientFunds.
func (l *Ledger) Tick(now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.slot++
	l.rotateBlockhash()

	due := make([]*pendingTx, 0, len(l.pending))
	for _, p := range l.pending {
		if !p.confirmAt.After(now) || l.slot-p.hashSlot > l.cfg.BlockhashWindow {
			due = append(due, p)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].confirmAt.Equal(due[j].confirmAt) {
			return due[i].seq < due[j].seq
		}
		return due[i].confirmAt.Before(due[j].confirmAt)
	})

	for _, p := range due {
		if err := l.settle(p, now); err != nil {
			return err
		}
		delete(l.pending, p.tx.Sig.String())
	}
	return nil
}

// settle commits or rejects one due transaction. Callers hold l.mu.
func (l *Ledger) settle(p *pendingTx, now time.Time) error {
	sig := p.tx.Sig.String()

	if l.slot-p.hashSlot > l.cfg.BlockhashWindow && p.confirmAt.After(now) {
		return l.writeRecord(sig, txRecord{State: chain.StateRejected, Code: chain.CodeBlockhashExpired, Slot: l.slot})
	}

	bal, ok, err := l.balance(p.tx.Body.From)
	if err != nil {
		return err
	}
	need := p.tx.Body.Amount + p.tx.Body.Fee
	if !ok || bal < need {
		log.Printf("[ledger] reject sig=%s code=%s balance=%d need=%d", sig, chain.CodeInsufficientFunds, bal, need)
		return l.writeRecord(sig, txRecord{State: chain.StateRejected, Code: chain.CodeInsufficientFunds, Slot: l.slot})
	}

	toBal, _, err := l.balance(p.tx.Body.To)
	if err != nil {
		return err
	}

	rec, err := json.Marshal(txRecord{State: chain.StateConfirmed, Slot: l.slot})
	if err != nil {
		return err
	}
	err = l.store.WriteBatch([]KV{
		{Key: KeyAccount(p.tx.Body.From), Value: []byte(strconv.FormatUint(bal-need, 10))},
		{Key: KeyAccount(p.tx.Body.To), Value: []byte(strconv.FormatUint(toBal+p.tx.Body.Amount, 10))},
		{Key: KeyTx(sig), Value: rec},
	})
	if err != nil {
		return err
	}
	log.Printf("[ledger] confirm sig=%s slot=%d from=%s amount=%d", sig, l.slot, p.tx.Body.From, p.tx.Body.Amount)
	return nil
}

func (l *Ledger) writeRecord(sig string, rec txRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return l.store.Put(KeyTx(sig), raw)
}

// Run drives the settlement clock until ctx ends.
func (l *Ledger) Run(ctx context.Context, tick time.Duration) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := l.Tick(now); err != nil {
				return err
			}
		}
	}
}
