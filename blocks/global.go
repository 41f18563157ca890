package blocks

import (
	"context"

	"github.com/smartcontractkit/vault-admin/actions"
	"github.com/smartcontractkit/vault-admin/blocks/cache"
	"github.com/smartcontractkit/vault-admin/chain/evm/contracts"
	"github.com/smartcontractkit/vault-admin/chain/evm/viewreader"
)

var _ Block = (*Global)(nil)

// Global provides the addresses of a vault deployment. It assembles no actions, other
// blocks read its facts from the cache.
type Global struct {
	base

	NetworkID      *uint32                          `json:"network_id,omitempty"`
	Deployer       *contracts.AddressOrContractName `json:"deployer,omitempty"`
	BoringVault    *contracts.AddressOrContractName `json:"boring_vault,omitempty"`
	RolesAuthority *contracts.AddressOrContractName `json:"roles_authority,omitempty"`
	Teller         *contracts.AddressOrContractName `json:"teller,omitempty"`
	Accountant     *contracts.AddressOrContractName `json:"accountant,omitempty"`
	Manager        *contracts.AddressOrContractName `json:"manager,omitempty"`
	Multisig       *contracts.AddressOrContractName `json:"multisig,omitempty"`
	Timelock       *contracts.AddressOrContractName `json:"timelock,omitempty"`
	TimelockAdmin  *contracts.AddressOrContractName `json:"timelock_admin,omitempty"`
	Executor       *contracts.AddressOrContractName `json:"executor,omitempty"`
	Multisend      *contracts.AddressOrContractName `json:"multisend,omitempty"`
}

func (g *Global) init(label string) {
	g.base = base{
		label: label,
		fields: []Field{
			u32Field(KeyNetworkID, &g.NetworkID),
			addressField(KeyDeployer, &g.Deployer),
			addressField(KeyBoringVault, &g.BoringVault),
			addressField(KeyRolesAuthority, &g.RolesAuthority),
			addressField(KeyTeller, &g.Teller),
			addressField(KeyAccountant, &g.Accountant),
			addressField(KeyManager, &g.Manager),
			addressField(KeyMultisig, &g.Multisig),
			addressField(KeyTimelock, &g.Timelock),
			addressField(KeyTimelockAdmin, &g.TimelockAdmin),
			addressField(KeyExecutor, &g.Executor),
			addressField(KeyMultisend, &g.Multisend),
		},
	}
}

func (g *Global) Assemble(context.Context, *cache.Cache, viewreader.Reader) ([]actions.Action, error) {
	return nil, nil
}
