package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usopp-send/rpc-race/internal/race"
)

func sampleResult() race.Result {
	t0 := time.Now()
	return race.Result{
		RunID: "run-7",
		Entries: []race.Entry{
			{
				Endpoint: "http://a",
				Amount:   900_000,
				Dispatch: race.DispatchRecord{
					Endpoint:  "http://a",
					Signature: "sigA",
					SendStart: t0,
					SendEnd:   t0.Add(12 * time.Millisecond),
				},
				Outcome: race.Outcome{
					Endpoint:  "http://a",
					Signature: "sigA",
					Status:    race.StatusLoserConfirmed,
					Slot:      41,
				},
			},
			{
				Endpoint: "http://b",
				Amount:   890_000,
				Dispatch: race.DispatchRecord{
					Endpoint:  "http://b",
					Signature: "sigB",
					SendStart: t0,
					SendEnd:   t0.Add(8 * time.Millisecond),
				},
				Outcome: race.Outcome{
					Endpoint:        "http://b",
					Signature:       "sigB",
					Status:          race.StatusWinnerConfirmed,
					ConfirmDuration: 250 * time.Millisecond,
					Slot:            40,
				},
			},
			{
				Endpoint: "http://c",
				Amount:   880_000,
				Outcome: race.Outcome{
					Endpoint: "http://c",
					Status:   race.StatusSubmissionFailed,
					Cause:    "connection refused",
				},
			},
		},
		WinnerIdx: 1,
	}
}

func TestViewKeepsInputOrderAndFlagsWinner(t *testing.T) {
	v := View(sampleResult())

	require.Len(t, v.Entries, 3)
	assert.Equal(t, "run-7", v.RunID)
	assert.Equal(t, "http://b", v.Winner)

	assert.Equal(t, "http://a", v.Entries[0].Endpoint)
	assert.Equal(t, "http://b", v.Entries[1].Endpoint)
	assert.Equal(t, "http://c", v.Entries[2].Endpoint)

	assert.False(t, v.Entries[0].Winner)
	assert.True(t, v.Entries[1].Winner)
	assert.False(t, v.Entries[2].Winner)

	assert.Equal(t, string(race.StatusWinnerConfirmed), v.Entries[1].Status)
	assert.Equal(t, int64(250), v.Entries[1].ConfirmMS)
	assert.Equal(t, "connection refused", v.Entries[2].Cause)
	assert.NotZero(t, v.TS)
}

func TestViewNoWinner(t *testing.T) {
	res := sampleResult()
	res.WinnerIdx = -1
	res.Entries[1].Outcome.Status = race.StatusTimedOut

	v := View(res)
	assert.Empty(t, v.Winner)
	for _, e := range v.Entries {
		assert.False(t, e.Winner)
	}
}

func TestLogReporters(t *testing.T) {
	require.NoError(t, LogReporter{}.Report(context.Background(), sampleResult()))
	require.NoError(t, JSONReporter{}.Report(context.Background(), sampleResult()))
}
