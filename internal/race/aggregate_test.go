package race

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateJoinsInInputOrder(t *testing.T) {
	txs := fakeTxs("A", "B")
	records := map[int]DispatchRecord{
		0: {Endpoint: "A", Signature: "sig-A", SendStart: time.Now()},
		1: {Endpoint: "B", Signature: "sig-B", SendStart: time.Now()},
	}
	outcomes := map[int]Outcome{
		0: {Endpoint: "A", Status: StatusLoserConfirmed},
		1: {Endpoint: "B", Status: StatusWinnerConfirmed},
	}

	res, err := aggregate("run-1", txs, records, outcomes)
	require.NoError(t, err)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, 1, res.WinnerIdx)
	assert.Equal(t, "A", res.Entries[0].Endpoint)
	assert.Equal(t, "B", res.Entries[1].Endpoint)

	w, ok := res.Winner()
	require.True(t, ok)
	assert.Equal(t, "B", w.Endpoint)
}

func TestAggregateMissingOutcomeIsIncomplete(t *testing.T) {
	txs := fakeTxs("A", "B")
	outcomes := map[int]Outcome{
		0: {Endpoint: "A", Status: StatusTimedOut},
		// B has no terminal outcome: engine aborted before closure
	}

	_, err := aggregate("run-1", txs, map[int]DispatchRecord{}, outcomes)
	assert.ErrorIs(t, err, ErrIncompleteRace)
}

func TestAggregateSecondWinnerIsInvariantViolation(t *testing.T) {
	txs := fakeTxs("A", "B")
	outcomes := map[int]Outcome{
		0: {Endpoint: "A", Status: StatusWinnerConfirmed},
		1: {Endpoint: "B", Status: StatusWinnerConfirmed},
	}

	_, err := aggregate("run-1", txs, map[int]DispatchRecord{}, outcomes)
	assert.ErrorIs(t, err, ErrIncompleteRace)
}

func TestWinnerOnEmptyResult(t *testing.T) {
	_, ok := Result{WinnerIdx: -1}.Winner()
	assert.False(t, ok)
}
