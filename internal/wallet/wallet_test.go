package wallet

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usopp-send/rpc-race/internal/keys"
)

type fakeReader struct {
	balances map[string]uint64
}

func (f *fakeReader) Balance(_ context.Context, pubkey string) (uint64, error) {
	return f.balances[pubkey], nil
}

func writeKeypair(t *testing.T, name string) (string, keys.Keypair) {
	t.Helper()
	kp, err := keys.Generate()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, keys.Save(path, kp))
	return path, kp
}

func TestRicherAccountBecomesSender(t *testing.T) {
	path1, kp1 := writeKeypair(t, "id1.json")
	path2, kp2 := writeKeypair(t, "id2.json")

	reader := &fakeReader{balances: map[string]uint64{
		kp1.Pubkey(): 100,
		kp2.Pubkey(): 5000,
	}}

	sender, recipient, err := DetermineRoles(context.Background(), reader, path1, path2)
	require.NoError(t, err)
	assert.Equal(t, kp2.Pubkey(), sender.Pubkey())
	assert.Equal(t, uint64(5000), sender.Balance)
	assert.Equal(t, kp1.Pubkey(), recipient.Pubkey())
}

func TestTieGoesToFirstAccount(t *testing.T) {
	path1, kp1 := writeKeypair(t, "id1.json")
	path2, kp2 := writeKeypair(t, "id2.json")

	reader := &fakeReader{balances: map[string]uint64{
		kp1.Pubkey(): 777,
		kp2.Pubkey(): 777,
	}}

	sender, recipient, err := DetermineRoles(context.Background(), reader, path1, path2)
	require.NoError(t, err)
	assert.Equal(t, kp1.Pubkey(), sender.Pubkey())
	assert.Equal(t, kp2.Pubkey(), recipient.Pubkey())
}

func TestMissingKeypairFails(t *testing.T) {
	path1, _ := writeKeypair(t, "id1.json")
	_, _, err := DetermineRoles(context.Background(), &fakeReader{}, path1, "does-not-exist.json")
	assert.Error(t, err)
}
