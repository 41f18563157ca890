package blocks

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/vault-admin/actions"
	"github.com/smartcontractkit/vault-admin/blocks/cache"
	"github.com/smartcontractkit/vault-admin/chain/evm/contracts"
	"github.com/smartcontractkit/vault-admin/chain/evm/viewreader"
	"github.com/smartcontractkit/vault-admin/processors"
)

var (
	_ Block = (*BoringVault)(nil)
	_ Block = (*Ownership)(nil)
)

// BoringVault sets the authority and the before transfer hook of the vault.
type BoringVault struct {
	base

	BoringVault *contracts.AddressOrContractName `json:"boring_vault,omitempty"`

	Authority          *contracts.AddressOrContractName `json:"authority,omitempty"`
	BeforeTransferHook *contracts.AddressOrContractName `json:"before_transfer_hook,omitempty"`
}

func (b *BoringVault) init(label string) {
	b.base = base{
		label: label,
		fields: []Field{
			required(addressField(KeyBoringVault, &b.BoringVault)),
		},
	}
}

func (b *BoringVault) Assemble(ctx context.Context, c *cache.Cache, r viewreader.Reader) ([]actions.Action, error) {
	vault, err := mustAddress(c, KeyBoringVault, b.Name())
	if err != nil {
		return nil, err
	}
	sender, err := AdminSender(c)
	if err != nil {
		return nil, err
	}

	var out []actions.Action
	if b.Authority != nil {
		authority, err := desiredAddress(c, *b.Authority, b.Name())
		if err != nil {
			return nil, err
		}
		a, err := processors.AuthorityUpdate(ctx, r, vault, authority, sender)
		if err != nil {
			return nil, err
		}
		out = append(out, a...)
	}
	if b.BeforeTransferHook != nil {
		hook, err := desiredAddress(c, *b.BeforeTransferHook, b.Name())
		if err != nil {
			return nil, err
		}
		a, err := processors.BeforeTransferHookUpdate(ctx, r, vault, hook, sender)
		if err != nil {
			return nil, err
		}
		out = append(out, a...)
	}

	return out, nil
}

// Ownership hands the listed contracts over to owner.
type Ownership struct {
	base

	Deployer *contracts.AddressOrContractName `json:"deployer,omitempty"`

	Contracts []contracts.AddressOrContractName `json:"contracts"`
	Owner     *contracts.AddressOrContractName  `json:"owner,omitempty"`
}

func (o *Ownership) init(label string) {
	o.base = base{
		label: label,
		fields: []Field{
			addressField(KeyDeployer, &o.Deployer),
		},
	}
}

func (o *Ownership) Assemble(ctx context.Context, c *cache.Cache, r viewreader.Reader) ([]actions.Action, error) {
	if o.Owner == nil {
		return nil, fmt.Errorf("%w: %s has no owner", ErrInvalidBlock, o.Name())
	}
	owner, err := desiredAddress(c, *o.Owner, o.Name())
	if err != nil {
		return nil, err
	}
	targets := make([]common.Address, len(o.Contracts))
	for i, ct := range o.Contracts {
		if targets[i], err = desiredAddress(c, ct, o.Name()); err != nil {
			return nil, err
		}
	}
	sender, err := AdminSender(c)
	if err != nil {
		return nil, err
	}

	return processors.OwnershipUpdate(ctx, r, targets, owner, sender)
}
