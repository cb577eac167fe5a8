package chain

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

var (
	ErrBadSignature = errors.New("signature verification failed")
	ErrBadPubkey    = errors.New("invalid pubkey")
	ErrEmptySig     = errors.New("empty signature string")
)

// TxBody is the unsigned content of a transfer. Field set is fixed and
// encoding is canonical, so identical inputs produce identical bytes.
type TxBody struct {
	From            string `json:"from"` // base58 ed25519 pubkey
	To              string `json:"to"`
	Amount          uint64 `json:"amount"`
	Fee             uint64 `json:"fee"`
	RecentBlockhash string `json:"recent_blockhash"`
}

func (b TxBody) Encode() ([]byte, error) { return json.Marshal(b) }

func DecodeBody(raw []byte) (TxBody, error) {
	var b TxBody
	err := json.Unmarshal(raw, &b)
	return b, err
}

// Signature is the base58 form of a 64-byte ed25519 signature. It
// doubles as the transaction id on the wire.
type Signature string

func (s Signature) String() string { return string(s) }

func (s Signature) Bytes() ([]byte, error) {
	if s == "" {
		return nil, ErrEmptySig
	}
	raw, err := base58.Decode(string(s))
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}
	if len(raw) != ed25519.SignatureSize {
		return nil, fmt.Errorf("signature length %d, want %d", len(raw), ed25519.SignatureSize)
	}
	return raw, nil
}

type SignedTx struct {
	Body TxBody    `json:"body"`
	Sig  Signature `json:"sig"`
}

// Sign encodes the body and signs it with the sender key. ed25519 is
// deterministic, so re-signing the same body yields the same signature.
func Sign(priv ed25519.PrivateKey, body TxBody) (SignedTx, error) {
	raw, err := body.Encode()
	if err != nil {
		return SignedTx{}, err
	}
	sig := ed25519.Sign(priv, raw)
	return SignedTx{
		Body: body,
		Sig:  Signature(base58.Encode(sig)),
	}, nil
}

// Verify checks the signature against the pubkey carried in Body.From.
func (t SignedTx) Verify() error {
	pub, err := DecodePubkey(t.Body.From)
	if err != nil {
		return err
	}
	raw, err := t.Body.Encode()
	if err != nil {
		return err
	}
	sigRaw, err := t.Sig.Bytes()
	if err != nil {
		return err
	}
	if !ed25519.Verify(pub, raw, sigRaw) {
		return ErrBadSignature
	}
	return nil
}

func DecodePubkey(s string) (ed25519.PublicKey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPubkey, err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: length %d", ErrBadPubkey, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}

func EncodePubkey(pub ed25519.PublicKey) string { return base58.Encode(pub) }
