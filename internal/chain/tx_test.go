package chain

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBody(t *testing.T, pub ed25519.PublicKey) TxBody {
	t.Helper()
	return TxBody{
		From:            EncodePubkey(pub),
		To:              "11111111111111111111111111111111",
		Amount:          4200,
		Fee:             5000,
		RecentBlockhash: "0xdeadbeef",
	}
}

func TestSignVerify(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	tx, err := Sign(priv, testBody(t, pub))
	require.NoError(t, err)
	assert.NotEmpty(t, tx.Sig)
	assert.NoError(t, tx.Verify())
}

func TestSignDeterministic(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	a, err := Sign(priv, testBody(t, pub))
	require.NoError(t, err)
	b, err := Sign(priv, testBody(t, pub))
	require.NoError(t, err)
	assert.Equal(t, a.Sig, b.Sig)
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	tx, err := Sign(priv, testBody(t, pub))
	require.NoError(t, err)

	tx.Body.Amount++
	assert.ErrorIs(t, tx.Verify(), ErrBadSignature)
}

func TestVerifyRejectsWrongSender(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	otherPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	tx, err := Sign(priv, testBody(t, pub))
	require.NoError(t, err)

	tx.Body.From = EncodePubkey(otherPub)
	assert.ErrorIs(t, tx.Verify(), ErrBadSignature)
}

func TestSignatureBytesValidation(t *testing.T) {
	_, err := Signature("").Bytes()
	assert.ErrorIs(t, err, ErrEmptySig)

	_, err = Signature("not!!base58").Bytes()
	assert.Error(t, err)

	_, err = Signature("abc").Bytes() // valid base58, wrong length
	assert.Error(t, err)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, TxStatus{}.Terminal())
	assert.False(t, TxStatus{Known: true, State: StatePending}.Terminal())
	assert.True(t, TxStatus{Known: true, State: StateConfirmed}.Terminal())
	assert.True(t, TxStatus{Known: true, State: StateRejected, Code: CodeInsufficientFunds}.Terminal())
}
