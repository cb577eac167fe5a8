package race

import (
	"errors"
	"fmt"

	"github.com/usopp-send/rpc-race/internal/chain"
)

// FeeReserve is the balance kept back per transaction for fees, in
// base units.
const FeeReserve = 5000

var (
	ErrInsufficientBalance = errors.New("sender balance too low to build a conflict set")
	ErrTooFewEndpoints     = errors.New("conflict set needs at least 2 endpoints")
)

// BuildConflictSet produces one signed transfer per endpoint. Transfer
// i moves (0.90 - 0.01*i) of the spendable balance, so every pair of
// transactions overspends the account: accepting any one invalidates
// all others. Amounts are derived deterministically, and ed25519
// signing is deterministic too, so identical inputs rebuild an
// identical set.
func BuildConflictSet(sender, recipient, blockhash string, balance uint64, endpoints []string, signer Signer) ([]ConflictingTx, error) {
	if len(endpoints) < 2 {
		return nil, ErrTooFewEndpoints
	}
	if balance <= FeeReserve {
		return nil, fmt.Errorf("%w: balance=%d reserve=%d", ErrInsufficientBalance, balance, FeeReserve)
	}
	spendable := balance - FeeReserve

	set := make([]ConflictingTx, 0, len(endpoints))
	for i, ep := range endpoints {
		pct := 0.90 - 0.01*float64(i)
		if pct <= 0 {
			// Every raced endpoint must hold a transaction; a schedule
			// that cannot cover all endpoints is a build failure, not a
			// silently smaller race.
			return nil, fmt.Errorf("%w: schedule exhausted at endpoint %d (%s)", ErrInsufficientBalance, i, ep)
		}
		amount := uint64(float64(spendable) * pct)
		if amount == 0 {
			return nil, fmt.Errorf("%w: amount for endpoint %d (%s) is 0", ErrInsufficientBalance, i, ep)
		}

		signed, err := signer.Sign(chainBody(sender, recipient, blockhash, amount))
		if err != nil {
			return nil, fmt.Errorf("sign transfer for %s: %w", ep, err)
		}
		set = append(set, ConflictingTx{
			Endpoint: ep,
			Amount:   amount,
			Tx:       signed,
		})
	}
	return set, nil
}

func chainBody(sender, recipient, blockhash string, amount uint64) chain.TxBody {
	return chain.TxBody{
		From:            sender,
		To:              recipient,
		Amount:          amount,
		Fee:             FeeReserve,
		RecentBlockhash: blockhash,
	}
}
