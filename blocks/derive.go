package blocks

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/vault-admin/blocks/cache"
	"github.com/smartcontractkit/vault-admin/chain/evm/contracts"
	"github.com/smartcontractkit/vault-admin/chain/evm/viewreader"
)

// derivations maps a cache key to the rule deriving it. Dependencies form a DAG rooted at
// boring_vault.
var derivations = map[string]DeriveFunc{
	KeyRolesAuthority: deriveRolesAuthority,
	KeyTeller:         deriveTeller,
	KeyMultisig:       deriveOwnerProbed(contracts.SafeABI, "nonce"),
	KeyTimelock:       deriveOwnerProbed(contracts.TimelockABI, "getMinDelay"),
	KeyAccountant:     deriveAccountant,
}

// hasCode reports whether addr is a deployed contract. Every rule reads through it first:
// an undeployed address answers calls with empty data.
func hasCode(ctx context.Context, r viewreader.Reader, addr common.Address) (bool, error) {
	size, err := r.CodeLength(ctx, addr)
	if err != nil {
		return false, err
	}

	return size > 0, nil
}

// deployedAt returns the address stored under key when it holds code.
func deployedAt(ctx context.Context, c *cache.Cache, r viewreader.Reader, key string) (common.Address, bool, error) {
	addr, ok := c.GetAddress(key)
	if !ok || addr == (common.Address{}) {
		return common.Address{}, false, nil
	}
	deployed, err := hasCode(ctx, r, addr)
	if err != nil {
		return common.Address{}, false, err
	}

	return addr, deployed, nil
}

func deriveRolesAuthority(ctx context.Context, c *cache.Cache, r viewreader.Reader) (cache.Value, bool, error) {
	vault, ok, err := deployedAt(ctx, c, r, KeyBoringVault)
	if err != nil || !ok {
		return nil, false, err
	}

	authority, err := viewreader.CallOne[common.Address](ctx, r, contracts.BoringVaultABI, vault, "authority")
	if err != nil {
		return nil, false, err
	}
	if authority == (common.Address{}) {
		return nil, false, nil
	}

	return cache.Address(authority), true, nil
}

func deriveTeller(ctx context.Context, c *cache.Cache, r viewreader.Reader) (cache.Value, bool, error) {
	vault, ok, err := deployedAt(ctx, c, r, KeyBoringVault)
	if err != nil || !ok {
		return nil, false, err
	}

	hook, err := viewreader.CallOne[common.Address](ctx, r, contracts.BoringVaultABI, vault, "hook")
	if err != nil {
		return nil, false, err
	}
	if hook == (common.Address{}) {
		return nil, false, nil
	}

	return cache.Address(hook), true, nil
}

// deriveOwnerProbed derives the owner of the roles authority when calling probe on it
// succeeds, which tells a Safe from a timelock. Only a revert or empty return data rules
// the owner out; a call that never got an answer fails the derivation.
func deriveOwnerProbed(a *abi.ABI, probe string) DeriveFunc {
	return func(ctx context.Context, c *cache.Cache, r viewreader.Reader) (cache.Value, bool, error) {
		authority, ok, err := deployedAt(ctx, c, r, KeyRolesAuthority)
		if err != nil || !ok {
			return nil, false, err
		}

		owner, err := viewreader.CallOne[common.Address](ctx, r, contracts.RolesAuthorityABI, authority, "owner")
		if err != nil {
			return nil, false, err
		}
		if owner == (common.Address{}) {
			return nil, false, nil
		}
		deployed, err := hasCode(ctx, r, owner)
		if err != nil || !deployed {
			return nil, false, err
		}

		if _, err := viewreader.Call(ctx, r, a, owner, probe); err != nil {
			if viewreader.IsReverted(err) || errors.Is(err, contracts.ErrShortReturnData) {
				return nil, false, nil
			}

			return nil, false, fmt.Errorf("probe %s on %s: %w", probe, owner, err)
		}

		return cache.Address(owner), true, nil
	}
}

func deriveAccountant(ctx context.Context, c *cache.Cache, r viewreader.Reader) (cache.Value, bool, error) {
	teller, ok, err := deployedAt(ctx, c, r, KeyTeller)
	if err != nil || !ok {
		return nil, false, err
	}

	accountant, err := viewreader.CallOne[common.Address](ctx, r, contracts.TellerABI, teller, "accountant")
	if err != nil {
		return nil, false, err
	}
	if accountant == (common.Address{}) {
		return nil, false, nil
	}

	return cache.Address(accountant), true, nil
}
