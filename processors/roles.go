// Package processors diff on-chain state read at the pinned block against a desired state
// and return the leaf actions that close the gap. Processors never write to the chain and
// return no actions when the chain already matches.
package processors

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/vault-admin/actions"
	"github.com/smartcontractkit/vault-admin/chain/evm/contracts"
	"github.com/smartcontractkit/vault-admin/chain/evm/viewreader"
)

// Strategist is the desired role membership and manage root of one strategist.
type Strategist struct {
	Address common.Address
	Enabled bool
	// ManageRoot is left unchanged when nil.
	ManageRoot *common.Hash
}

// StrategistRolesInput describes the strategists of a vault.
type StrategistRolesInput struct {
	RolesAuthority common.Address
	Manager        common.Address
	Role           uint8
	Strategists    []Strategist
	Sender         actions.SenderType
}

// StrategistRolesUpdate grants or revokes the strategist role and keeps manage roots in
// sync. Revoking a strategist also clears its manage root.
func StrategistRolesUpdate(ctx context.Context, r viewreader.Reader, in StrategistRolesInput) ([]actions.Action, error) {
	var out []actions.Action
	for _, s := range in.Strategists {
		has, err := viewreader.CallOne[bool](ctx, r, contracts.RolesAuthorityABI, in.RolesAuthority, "doesUserHaveRole", s.Address, in.Role)
		if err != nil {
			return nil, err
		}

		if s.Enabled != has {
			a, err := actions.NewSetUserRole(in.RolesAuthority, s.Address, in.Role, s.Enabled, in.Sender)
			if err != nil {
				return nil, err
			}
			out = append(out, a)
		}

		root := s.ManageRoot
		if !s.Enabled {
			root = &common.Hash{}
		}
		if root == nil {
			continue
		}
		rootActions, err := UpdateManageRoot(ctx, r, in.Manager, s.Address, *root, in.Sender)
		if err != nil {
			return nil, err
		}
		out = append(out, rootActions...)
	}

	return out, nil
}

// UpdateManageRoot sets the manage root of strategist when it differs from root.
func UpdateManageRoot(ctx context.Context, r viewreader.Reader, manager, strategist common.Address, root common.Hash, sender actions.SenderType) ([]actions.Action, error) {
	current, err := viewreader.CallOne[[32]byte](ctx, r, contracts.ManagerABI, manager, "manageRoot", strategist)
	if err != nil {
		return nil, err
	}
	if common.Hash(current) == root {
		return nil, nil
	}

	a, err := actions.NewSetManageRoot(manager, strategist, root, sender)
	if err != nil {
		return nil, err
	}

	return []actions.Action{a}, nil
}

// RoleCapability is whether role may call the function with Selector on Target.
type RoleCapability struct {
	Role     uint8
	Target   common.Address
	Selector [4]byte
	Enabled  bool
}

// RoleCapabilitiesUpdate sets every role capability that differs on the roles authority.
func RoleCapabilitiesUpdate(ctx context.Context, r viewreader.Reader, rolesAuthority common.Address, caps []RoleCapability, sender actions.SenderType) ([]actions.Action, error) {
	var out []actions.Action
	for _, c := range caps {
		has, err := viewreader.CallOne[bool](ctx, r, contracts.RolesAuthorityABI, rolesAuthority, "doesRoleHaveCapability", c.Role, c.Target, c.Selector)
		if err != nil {
			return nil, err
		}
		if has == c.Enabled {
			continue
		}

		a, err := actions.NewSetRoleCapability(rolesAuthority, c.Role, c.Target, c.Selector, c.Enabled, sender)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}

	return out, nil
}

// PublicCapability is whether anyone may call the function with Selector on Target.
type PublicCapability struct {
	Target   common.Address
	Selector [4]byte
	Enabled  bool
}

// PublicCapabilitiesUpdate sets every public capability that differs on the roles authority.
func PublicCapabilitiesUpdate(ctx context.Context, r viewreader.Reader, rolesAuthority common.Address, caps []PublicCapability, sender actions.SenderType) ([]actions.Action, error) {
	var out []actions.Action
	for _, c := range caps {
		public, err := viewreader.CallOne[bool](ctx, r, contracts.RolesAuthorityABI, rolesAuthority, "isCapabilityPublic", c.Target, c.Selector)
		if err != nil {
			return nil, err
		}
		if public == c.Enabled {
			continue
		}

		a, err := actions.NewSetPublicCapability(rolesAuthority, c.Target, c.Selector, c.Enabled, sender)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}

	return out, nil
}
