package race

import (
	"context"
	"errors"
	"time"
)

// session is one endpoint's live connection, ready to race.
type session struct {
	idx      int // position in the input endpoint order
	endpoint string
	conn     Conn
}

type dialResult struct {
	idx  int
	conn Conn
	err  error
}

// prepareSessions dials every endpoint concurrently and waits until
// all are ready or the prepare deadline passes. Endpoints that fail or
// never answer are returned as SubmissionFailed outcomes; the rest
// race. Setup latency is endpoint-dependent and spent entirely here,
// before the barrier, so it cannot bias the measurement.
func prepareSessions(ctx context.Context, dial DialFunc, endpoints []string, timeout time.Duration) ([]session, map[int]Outcome) {
	prepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resCh := make(chan dialResult, len(endpoints))
	for i, ep := range endpoints {
		go func(i int, ep string) {
			conn, err := dial(prepCtx, ep)
			if err == nil && prepCtx.Err() != nil {
				// Warm-up finished after the deadline; this endpoint is
				// already excluded, release its session.
				_ = conn.Close()
				conn, err = nil, prepCtx.Err()
			}
			resCh <- dialResult{idx: i, conn: conn, err: err}
		}(i, ep)
	}

	got := make(map[int]dialResult, len(endpoints))
collect:
	for len(got) < len(endpoints) {
		select {
		case r := <-resCh:
			got[r.idx] = r
		case <-prepCtx.Done():
			break collect
		}
	}

	ready := make([]session, 0, len(endpoints))
	failed := make(map[int]Outcome)
	for i, ep := range endpoints {
		r, ok := got[i]
		switch {
		case !ok:
			failed[i] = Outcome{
				Endpoint: ep,
				Status:   StatusSubmissionFailed,
				Cause:    CauseSetupTimeout,
			}
		case r.err != nil:
			cause := r.err.Error()
			if errors.Is(r.err, context.DeadlineExceeded) {
				cause = CauseSetupTimeout
			}
			failed[i] = Outcome{
				Endpoint: ep,
				Status:   StatusSubmissionFailed,
				Cause:    cause,
			}
		default:
			ready = append(ready, session{idx: i, endpoint: ep, conn: r.conn})
		}
	}
	return ready, failed
}
