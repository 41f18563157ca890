package blocks

import (
	"context"

	"github.com/smartcontractkit/vault-admin/actions"
	"github.com/smartcontractkit/vault-admin/blocks/cache"
	"github.com/smartcontractkit/vault-admin/chain/evm/contracts"
	"github.com/smartcontractkit/vault-admin/chain/evm/viewreader"
	"github.com/smartcontractkit/vault-admin/processors"
)

var (
	_ Block = (*Teller)(nil)
	_ Block = (*Assets)(nil)
)

// Teller sets the share lock period and the pause state of the teller.
type Teller struct {
	base

	BoringVault *contracts.AddressOrContractName `json:"boring_vault,omitempty"`
	Teller      *contracts.AddressOrContractName `json:"teller,omitempty"`

	ShareLockPeriod *uint64 `json:"share_lock_period,omitempty"`
	Paused          *bool   `json:"paused,omitempty"`
}

func (t *Teller) init(label string) {
	t.base = base{
		label: label,
		fields: []Field{
			addressField(KeyBoringVault, &t.BoringVault),
			required(addressField(KeyTeller, &t.Teller)),
		},
	}
}

func (t *Teller) Assemble(ctx context.Context, c *cache.Cache, r viewreader.Reader) ([]actions.Action, error) {
	teller, err := mustAddress(c, KeyTeller, t.Name())
	if err != nil {
		return nil, err
	}
	sender, err := AdminSender(c)
	if err != nil {
		return nil, err
	}

	var out []actions.Action
	if t.ShareLockPeriod != nil {
		a, err := processors.ShareLockUpdate(ctx, r, teller, *t.ShareLockPeriod, sender)
		if err != nil {
			return nil, err
		}
		out = append(out, a...)
	}
	if t.Paused != nil {
		a, err := processors.PauseUpdate(ctx, r, teller, *t.Paused, sender)
		if err != nil {
			return nil, err
		}
		out = append(out, a...)
	}

	return out, nil
}

// AssetConfig is the desired teller configuration of one asset.
type AssetConfig struct {
	Asset          contracts.AddressOrContractName `json:"asset"`
	AllowDeposits  bool                            `json:"allow_deposits"`
	AllowWithdraws bool                            `json:"allow_withdraws"`
	SharePremium   uint16                          `json:"share_premium"`
}

// Assets configures which assets the teller accepts.
type Assets struct {
	base

	BoringVault *contracts.AddressOrContractName `json:"boring_vault,omitempty"`
	Teller      *contracts.AddressOrContractName `json:"teller,omitempty"`

	Assets []AssetConfig `json:"assets"`
}

func (a *Assets) init(label string) {
	a.base = base{
		label: label,
		fields: []Field{
			addressField(KeyBoringVault, &a.BoringVault),
			required(addressField(KeyTeller, &a.Teller)),
		},
	}
}

func (a *Assets) Assemble(ctx context.Context, c *cache.Cache, r viewreader.Reader) ([]actions.Action, error) {
	teller, err := mustAddress(c, KeyTeller, a.Name())
	if err != nil {
		return nil, err
	}
	sender, err := AdminSender(c)
	if err != nil {
		return nil, err
	}

	assets := make([]processors.Asset, len(a.Assets))
	for i, cfg := range a.Assets {
		addr, err := desiredAddress(c, cfg.Asset, a.Name())
		if err != nil {
			return nil, err
		}
		assets[i] = processors.Asset{
			Asset:          addr,
			AllowDeposits:  cfg.AllowDeposits,
			AllowWithdraws: cfg.AllowWithdraws,
			SharePremium:   cfg.SharePremium,
		}
	}

	return processors.AssetsUpdate(ctx, r, teller, assets, sender)
}
