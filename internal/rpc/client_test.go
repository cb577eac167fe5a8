package rpc

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usopp-send/rpc-race/internal/chain"
	"github.com/usopp-send/rpc-race/internal/race"
)

func signedTransfer(t *testing.T, amount uint64) chain.SignedTx {
	t.Helper()
	priv := ed25519.NewKeyFromSeed(make([]byte, ed25519.SeedSize))
	tx, err := chain.Sign(priv, chain.TxBody{
		From:            chain.EncodePubkey(priv.Public().(ed25519.PublicKey)),
		To:              "recipient",
		Amount:          amount,
		Fee:             5000,
		RecentBlockhash: "hash-1",
	})
	require.NoError(t, err)
	return tx
}

func testNode(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var submits atomic.Int64

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
	r.Get("/account/{pubkey}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "pubkey") == "ghost" {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(APIError{Code: chain.CodeUnknownAccount, Message: "no such account"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"pubkey": chi.URLParam(r, "pubkey"), "balance": 1_000_000})
	})
	r.Get("/blockhash/latest", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"blockhash": "hash-1"})
	})
	r.Post("/tx", func(w http.ResponseWriter, r *http.Request) {
		var tx chain.SignedTx
		require.NoError(t, json.NewDecoder(r.Body).Decode(&tx))
		if tx.Body.Amount == 0 {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(APIError{Code: chain.CodeInvalidAmount, Message: "zero amount"})
			return
		}
		submits.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"signature": tx.Sig.String()})
	})
	r.Get("/tx/{sig}/status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chain.TxStatus{
			Known: true,
			State: chain.StateConfirmed,
			Slot:  7,
		})
	})
	r.Post("/tx/simulate", func(w http.ResponseWriter, r *http.Request) {
		var tx chain.SignedTx
		require.NoError(t, json.NewDecoder(r.Body).Decode(&tx))
		if tx.Body.Amount > 1_000_000 {
			json.NewEncoder(w).Encode(SimResult{OK: false, Code: chain.CodeInsufficientFunds})
			return
		}
		json.NewEncoder(w).Encode(SimResult{OK: true})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, &submits
}

func TestDialNodeWarmsSession(t *testing.T) {
	srv, _ := testNode(t)

	c, err := DialNode(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, srv.URL, c.Endpoint())
	assert.NoError(t, c.Close())
}

func TestDialNodeGivesUpOnDeadEndpoint(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, err := DialNode(ctx, "http://127.0.0.1:1")
	assert.Error(t, err)
}

func TestBalance(t *testing.T) {
	srv, _ := testNode(t)
	c := NewClient(srv.URL)

	bal, err := c.Balance(context.Background(), "someone")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), bal)
}

func TestBalanceUnknownAccount(t *testing.T) {
	srv, _ := testNode(t)
	c := NewClient(srv.URL)

	_, err := c.Balance(context.Background(), "ghost")
	require.Error(t, err)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, chain.CodeUnknownAccount, apiErr.Code)
}

func TestLatestBlockhash(t *testing.T) {
	srv, _ := testNode(t)
	c := NewClient(srv.URL)

	bh, err := c.LatestBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hash-1", bh)
}

func TestSubmitAndStatus(t *testing.T) {
	srv, submits := testNode(t)
	c := NewClient(srv.URL)
	tx := signedTransfer(t, 900_000)

	sig, err := c.Submit(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, tx.Sig, sig)
	assert.Equal(t, int64(1), submits.Load())

	st, err := c.Status(context.Background(), sig)
	require.NoError(t, err)
	assert.True(t, st.Known)
	assert.Equal(t, chain.StateConfirmed, st.State)
	assert.Equal(t, int64(7), st.Slot)
}

func TestSubmitNodeRejection(t *testing.T) {
	srv, submits := testNode(t)
	c := NewClient(srv.URL)
	tx := signedTransfer(t, 0)

	_, err := c.Submit(context.Background(), tx)
	require.Error(t, err)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, chain.CodeInvalidAmount, apiErr.Code)
	assert.Equal(t, int64(0), submits.Load())
}

func TestSimulateAllKeepsOrderAndSubmitsNothing(t *testing.T) {
	srv, submits := testNode(t)

	txs := []race.ConflictingTx{
		{Endpoint: srv.URL, Amount: 900_000, Tx: signedTransfer(t, 900_000)},
		{Endpoint: srv.URL, Amount: 2_000_000, Tx: signedTransfer(t, 2_000_000)},
		{Endpoint: "http://127.0.0.1:1", Amount: 880_000, Tx: signedTransfer(t, 880_000)},
	}

	attempts := SimulateAll(context.Background(), txs)
	require.Len(t, attempts, 3)

	assert.Equal(t, srv.URL, attempts[0].Endpoint)
	require.NoError(t, attempts[0].Err)
	assert.True(t, attempts[0].Result.OK)

	require.NoError(t, attempts[1].Err)
	assert.False(t, attempts[1].Result.OK)
	assert.Equal(t, chain.CodeInsufficientFunds, attempts[1].Result.Code)

	assert.Error(t, attempts[2].Err)

	assert.Equal(t, int64(0), submits.Load())
}
