// Package keys loads and stores ed25519 keypair files. The on-disk
// format is a JSON array of the 64 private-key bytes (seed || pubkey),
// the same layout wallet tooling writes.
package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/usopp-send/rpc-race/internal/chain"
)

type Keypair struct {
	Priv ed25519.PrivateKey
	Pub  ed25519.PublicKey
}

// Pubkey returns the base58 form used everywhere on the wire.
func (k Keypair) Pubkey() string { return chain.EncodePubkey(k.Pub) }

func Generate() (Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Keypair{}, err
	}
	return Keypair{Priv: priv, Pub: pub}, nil
}

func Load(path string) (Keypair, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Keypair{}, fmt.Errorf("read keypair file %s: %w", path, err)
	}
	var nums []int
	if err := json.Unmarshal(raw, &nums); err != nil {
		return Keypair{}, fmt.Errorf("parse keypair file %s: %w", path, err)
	}
	if len(nums) != ed25519.PrivateKeySize {
		return Keypair{}, fmt.Errorf("keypair file %s: %d bytes, want %d", path, len(nums), ed25519.PrivateKeySize)
	}
	bs := make([]byte, len(nums))
	for i, n := range nums {
		if n < 0 || n > 255 {
			return Keypair{}, fmt.Errorf("keypair file %s: byte %d out of range", path, i)
		}
		bs[i] = byte(n)
	}
	priv := ed25519.PrivateKey(bs)
	return Keypair{Priv: priv, Pub: priv.Public().(ed25519.PublicKey)}, nil
}

// Save writes atomically (tmp + rename) so a crash never leaves a
// truncated key file behind.
func Save(path string, k Keypair) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	nums := make([]int, len(k.Priv))
	for i, b := range k.Priv {
		nums[i] = int(b)
	}
	raw, err := json.Marshal(nums)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
