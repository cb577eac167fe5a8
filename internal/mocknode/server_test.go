package mocknode

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usopp-send/rpc-race/internal/chain"
	"github.com/usopp-send/rpc-race/internal/rpc"
)

func startNode(t *testing.T) (*Ledger, *rpc.Client) {
	t.Helper()
	l := newTestLedger(t, LedgerConfig{ConfirmDelay: 10 * time.Millisecond})
	srv := httptest.NewServer(NewServer(l).Handler())
	t.Cleanup(srv.Close)
	return l, rpc.NewClient(srv.URL)
}

func TestServerHealthAndBlockhash(t *testing.T) {
	_, c := startNode(t)
	ctx := context.Background()

	require.NoError(t, c.Health(ctx))

	bh, err := c.LatestBlockhash(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, bh)
}

func TestServerAccountLookup(t *testing.T) {
	l, c := startNode(t)
	ctx := context.Background()
	acct := newTestAccount(t, 1)
	require.NoError(t, l.Fund(acct.pub, 123_456))

	bal, err := c.Balance(ctx, acct.pub)
	require.NoError(t, err)
	assert.Equal(t, uint64(123_456), bal)

	unfunded := newTestAccount(t, 9)
	_, err = c.Balance(ctx, unfunded.pub)
	require.Error(t, err)
	apiErr, ok := rpc.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, chain.CodeUnknownAccount, apiErr.Code)
}

func TestServerSubmitLifecycle(t *testing.T) {
	l, c := startNode(t)
	ctx := context.Background()
	sender := newTestAccount(t, 1)
	recipient := newTestAccount(t, 2)
	require.NoError(t, l.Fund(sender.pub, 1_000_000))
	require.NoError(t, l.Fund(recipient.pub, 0))

	bh, err := c.LatestBlockhash(ctx)
	require.NoError(t, err)

	tx := sender.transfer(t, recipient, 700_000, bh)
	sig, err := c.Submit(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, tx.Sig, sig)

	st, err := c.Status(ctx, sig)
	require.NoError(t, err)
	assert.True(t, st.Known)
	assert.Equal(t, chain.StatePending, st.State)

	require.NoError(t, l.Tick(time.Now().Add(time.Second)))

	st, err = c.Status(ctx, sig)
	require.NoError(t, err)
	assert.Equal(t, chain.StateConfirmed, st.State)

	bal, err := c.Balance(ctx, recipient.pub)
	require.NoError(t, err)
	assert.Equal(t, uint64(700_000), bal)
}

func TestServerSubmitRejection(t *testing.T) {
	l, c := startNode(t)
	ctx := context.Background()
	sender := newTestAccount(t, 1)
	recipient := newTestAccount(t, 2)
	require.NoError(t, l.Fund(sender.pub, 1_000))

	bh, err := c.LatestBlockhash(ctx)
	require.NoError(t, err)

	tx := sender.transfer(t, recipient, 700_000, bh)
	_, err = c.Submit(ctx, tx)
	require.Error(t, err)
	apiErr, ok := rpc.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, chain.CodeInsufficientFunds, apiErr.Code)
}

func TestServerSimulate(t *testing.T) {
	l, c := startNode(t)
	ctx := context.Background()
	sender := newTestAccount(t, 1)
	recipient := newTestAccount(t, 2)
	require.NoError(t, l.Fund(sender.pub, 1_000_000))

	bh, err := c.LatestBlockhash(ctx)
	require.NoError(t, err)

	res, err := c.Simulate(ctx, sender.transfer(t, recipient, 700_000, bh))
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.NotEmpty(t, res.Logs)

	res, err = c.Simulate(ctx, sender.transfer(t, recipient, 5_000_000, bh))
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, chain.CodeInsufficientFunds, res.Code)

	// Simulation leaves the sender untouched.
	bal, err := c.Balance(ctx, sender.pub)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), bal)
}

func TestServerUnknownSignature(t *testing.T) {
	_, c := startNode(t)

	st, err := c.Status(context.Background(), "no-such-signature")
	require.NoError(t, err)
	assert.False(t, st.Known)
}
