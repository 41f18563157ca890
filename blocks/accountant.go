package blocks

import (
	"context"

	"github.com/smartcontractkit/vault-admin/actions"
	"github.com/smartcontractkit/vault-admin/blocks/cache"
	"github.com/smartcontractkit/vault-admin/chain/evm/contracts"
	"github.com/smartcontractkit/vault-admin/chain/evm/viewreader"
	"github.com/smartcontractkit/vault-admin/processors"
)

var _ Block = (*Accountant)(nil)

// Accountant sets the platform fee and the payout address of the accountant.
type Accountant struct {
	base

	BoringVault *contracts.AddressOrContractName `json:"boring_vault,omitempty"`
	Teller      *contracts.AddressOrContractName `json:"teller,omitempty"`
	Accountant  *contracts.AddressOrContractName `json:"accountant,omitempty"`

	PlatformFee   *uint16                          `json:"platform_fee,omitempty"`
	PayoutAddress *contracts.AddressOrContractName `json:"payout_address,omitempty"`
}

func (a *Accountant) init(label string) {
	a.base = base{
		label: label,
		fields: []Field{
			addressField(KeyBoringVault, &a.BoringVault),
			addressField(KeyTeller, &a.Teller),
			required(addressField(KeyAccountant, &a.Accountant)),
		},
	}
}

func (a *Accountant) Assemble(ctx context.Context, c *cache.Cache, r viewreader.Reader) ([]actions.Action, error) {
	accountant, err := mustAddress(c, KeyAccountant, a.Name())
	if err != nil {
		return nil, err
	}
	sender, err := AdminSender(c)
	if err != nil {
		return nil, err
	}

	var out []actions.Action
	if a.PlatformFee != nil {
		acts, err := processors.PlatformFeeUpdate(ctx, r, accountant, *a.PlatformFee, sender)
		if err != nil {
			return nil, err
		}
		out = append(out, acts...)
	}
	if a.PayoutAddress != nil {
		payout, err := desiredAddress(c, *a.PayoutAddress, a.Name())
		if err != nil {
			return nil, err
		}
		acts, err := processors.PayoutAddressUpdate(ctx, r, accountant, payout, sender)
		if err != nil {
			return nil, err
		}
		out = append(out, acts...)
	}

	return out, nil
}
