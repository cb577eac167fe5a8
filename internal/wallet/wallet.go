// Package wallet assigns the sender and recipient roles between the
// two configured keypairs: whichever account holds the larger balance
// funds the race.
package wallet

import (
	"context"
	"log"

	"github.com/usopp-send/rpc-race/internal/keys"
)

// BalanceReader is the account-state capability the role split needs;
// internal/rpc satisfies it.
type BalanceReader interface {
	Balance(ctx context.Context, pubkey string) (uint64, error)
}

type Account struct {
	Keypair keys.Keypair
	Balance uint64
}

func (a Account) Pubkey() string { return a.Keypair.Pubkey() }

// DetermineRoles loads both keypair files, reads their balances and
// returns (sender, recipient). Ties go to the first account, matching
// the configured order.
func DetermineRoles(ctx context.Context, reader BalanceReader, path1, path2 string) (Account, Account, error) {
	kp1, err := keys.Load(path1)
	if err != nil {
		return Account{}, Account{}, err
	}
	kp2, err := keys.Load(path2)
	if err != nil {
		return Account{}, Account{}, err
	}

	bal1, err := reader.Balance(ctx, kp1.Pubkey())
	if err != nil {
		return Account{}, Account{}, err
	}
	bal2, err := reader.Balance(ctx, kp2.Pubkey())
	if err != nil {
		return Account{}, Account{}, err
	}

	acct1 := Account{Keypair: kp1, Balance: bal1}
	acct2 := Account{Keypair: kp2, Balance: bal2}
	if bal1 >= bal2 {
		log.Printf("[wallet] sender=%s balance=%d recipient=%s balance=%d", acct1.Pubkey(), bal1, acct2.Pubkey(), bal2)
		return acct1, acct2, nil
	}
	log.Printf("[wallet] sender=%s balance=%d recipient=%s balance=%d", acct2.Pubkey(), bal2, acct1.Pubkey(), bal1)
	return acct2, acct1, nil
}
