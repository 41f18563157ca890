package processors

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/vault-admin/actions"
	"github.com/smartcontractkit/vault-admin/chain/evm/contracts"
	"github.com/smartcontractkit/vault-admin/chain/evm/viewreader"
)

// AuthorityUpdate points target at authority when it does not already.
func AuthorityUpdate(ctx context.Context, r viewreader.Reader, target, authority common.Address, sender actions.SenderType) ([]actions.Action, error) {
	current, err := viewreader.CallOne[common.Address](ctx, r, contracts.AuthABI, target, "authority")
	if err != nil {
		return nil, err
	}
	if current == authority {
		return nil, nil
	}

	return single(actions.NewSetAuthority(target, authority, sender))
}

// BeforeTransferHookUpdate sets the before transfer hook of the vault.
func BeforeTransferHookUpdate(ctx context.Context, r viewreader.Reader, vault, hook common.Address, sender actions.SenderType) ([]actions.Action, error) {
	current, err := viewreader.CallOne[common.Address](ctx, r, contracts.BoringVaultABI, vault, "hook")
	if err != nil {
		return nil, err
	}
	if current == hook {
		return nil, nil
	}

	return single(actions.NewSetBeforeTransferHook(vault, hook, sender))
}

// OwnershipUpdate transfers ownership of every target not owned by owner.
func OwnershipUpdate(ctx context.Context, r viewreader.Reader, targets []common.Address, owner common.Address, sender actions.SenderType) ([]actions.Action, error) {
	var out []actions.Action
	for _, target := range targets {
		current, err := viewreader.CallOne[common.Address](ctx, r, contracts.AuthABI, target, "owner")
		if err != nil {
			return nil, err
		}
		if current == owner {
			continue
		}

		a, err := actions.NewTransferOwnership(target, owner, sender)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}

	return out, nil
}
