package race

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNoReadyEndpoints = errors.New("no endpoints became ready to race")

type Config struct {
	Dial DialFunc

	// RunID labels this race in logs and events. Generated when empty.
	RunID string

	PrepareTimeout time.Duration // prepare-phase deadline
	RaceTimeout    time.Duration // confirmation-race deadline, from release
	PollInterval   time.Duration // confirmation watch cadence

	// OnEvent, when set, receives live progress events (prepared,
	// released, dispatched, finished). Rendering and transport are the
	// subscriber's business.
	OnEvent func(typ string, v any)
}

type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	if cfg.PrepareTimeout <= 0 {
		cfg.PrepareTimeout = 10 * time.Second
	}
	if cfg.RaceTimeout <= 0 {
		cfg.RaceTimeout = 30 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Engine{cfg: cfg}
}

func (e *Engine) emit(typ string, v any) {
	if e.cfg.OnEvent != nil {
		e.cfg.OnEvent(typ, v)
	}
}

// Run executes one full race over the conflict set: prepare sessions,
// release every ready worker at one instant, race the confirmations,
// and aggregate per-endpoint results in input order.
func (e *Engine) Run(ctx context.Context, txs []ConflictingTx) (Result, error) {
	if len(txs) < 2 {
		return Result{}, ErrTooFewEndpoints
	}
	runID := e.cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	endpoints := make([]string, len(txs))
	for i, tx := range txs {
		endpoints[i] = tx.Endpoint
	}

	// Phase 1: warm every session concurrently; stragglers are
	// excluded, not waited for.
	ready, outcomes := prepareSessions(ctx, e.cfg.Dial, endpoints, e.cfg.PrepareTimeout)
	defer func() {
		for _, s := range ready {
			_ = s.conn.Close()
		}
	}()
	log.Printf("[race] run=%s prepared: ready=%d failed=%d", runID, len(ready), len(outcomes))
	e.emit("prepared", struct {
		Ready  int `json:"ready"`
		Failed int `json:"failed"`
	}{len(ready), len(outcomes)})

	if len(ready) == 0 {
		return Result{}, ErrNoReadyEndpoints
	}

	// The race deadline is armed at release and bounds submission and
	// confirmation together: a Submit that never returns cannot hold
	// the run open past it.
	raceCtx, cancelRace := context.WithTimeout(ctx, e.cfg.RaceTimeout)
	defer cancelRace()

	// Phase 2: arm one worker per ready session, then fire the single
	// release broadcast once all of them are parked at the barrier.
	bar := NewBarrier()
	var armed sync.WaitGroup
	armed.Add(len(ready))
	resCh := make(chan dispatchResult, len(ready))

	sessByIdx := make(map[int]session, len(ready))
	for _, s := range ready {
		sessByIdx[s.idx] = s
		go func(s session) {
			resCh <- runWorker(raceCtx, s, txs[s.idx], bar, armed.Done)
		}(s)
	}
	armed.Wait()
	releasedAt := time.Now()
	bar.Release()
	log.Printf("[race] run=%s released %d workers", runID, len(ready))
	e.emit("released", struct {
		Workers    int   `json:"workers"`
		ReleasedAt int64 `json:"released_at_unix_ms"`
	}{len(ready), releasedAt.UnixMilli()})

	// Phase 3: collect dispatch records as they stream in; submission
	// failures are terminal, and each successful dispatch starts its
	// confirmation watcher immediately. The loop itself is bounded by
	// the race deadline, so one stuck Submit cannot stall the rest.
	records := make(map[int]DispatchRecord, len(ready))
	cr := newConfirmationRace(e.cfg.PollInterval)
	collected := make(map[int]bool, len(ready))
	submitted := 0
collect:
	for len(collected) < len(ready) {
		select {
		case r := <-resCh:
			collected[r.idx] = true
			records[r.idx] = r.rec
			if r.failed != nil {
				outcomes[r.idx] = *r.failed
				log.Printf("[race] run=%s submit failed: endpoint=%s cause=%s", runID, r.rec.Endpoint, r.failed.Cause)
				continue
			}
			log.Printf("[race] run=%s submitted: endpoint=%s sig=%s sent=%s",
				runID, r.rec.Endpoint, r.rec.Signature, r.rec.SentDuration())
			submitted++
			cr.watch(raceCtx, watched{sess: sessByIdx[r.idx], rec: r.rec})
		case <-raceCtx.Done():
			break collect
		}
	}
	for _, s := range ready {
		if collected[s.idx] {
			continue
		}
		// Submit was still in flight when the deadline fired; the
		// worker is abandoned with a terminal outcome.
		outcomes[s.idx] = Outcome{
			Endpoint:  s.endpoint,
			Signature: txs[s.idx].Tx.Sig,
			Status:    StatusTimedOut,
		}
		log.Printf("[race] run=%s submit still pending at the deadline: endpoint=%s", runID, s.endpoint)
	}
	e.emit("dispatched", struct {
		Submitted int `json:"submitted"`
		Failed    int `json:"failed"`
	}{submitted, len(ready) - submitted})

	// Phase 4: wait out the confirmation race.
	for idx, out := range cr.wait() {
		outcomes[idx] = out
	}

	res, err := aggregate(runID, txs, records, outcomes)
	if err != nil {
		return Result{}, err
	}
	winnerEndpoint := ""
	if w, ok := res.Winner(); ok {
		winnerEndpoint = w.Endpoint
		log.Printf("[race] run=%s winner: endpoint=%s sig=%s confirm=%s",
			runID, w.Endpoint, w.Outcome.Signature, w.Outcome.ConfirmDuration)
	} else {
		log.Printf("[race] run=%s finished with no winner", runID)
	}
	e.emit("finished", struct {
		Winner string `json:"winner,omitempty"`
	}{winnerEndpoint})
	return res, nil
}
