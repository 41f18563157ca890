package blocks

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/smartcontractkit/vault-admin/actions"
	"github.com/smartcontractkit/vault-admin/blocks/cache"
	"github.com/smartcontractkit/vault-admin/chain/evm/contracts"
	"github.com/smartcontractkit/vault-admin/chain/evm/viewreader"
	"github.com/smartcontractkit/vault-admin/processors"
)

var (
	_ Block = (*StrategistRoles)(nil)
	_ Block = (*RoleCapabilities)(nil)
	_ Block = (*PublicCapabilities)(nil)
)

// StrategistConfig is the desired state of one strategist.
type StrategistConfig struct {
	Address    contracts.AddressOrContractName `json:"address"`
	Enabled    bool                            `json:"enabled"`
	ManageRoot *common.Hash                    `json:"manage_root,omitempty"`
}

// StrategistRoles grants the strategist role and sets manage roots. Revoked strategists
// also lose their manage root.
type StrategistRoles struct {
	base

	BoringVault    *contracts.AddressOrContractName `json:"boring_vault,omitempty"`
	RolesAuthority *contracts.AddressOrContractName `json:"roles_authority,omitempty"`
	Manager        *contracts.AddressOrContractName `json:"manager,omitempty"`

	Role        *uint8             `json:"role,omitempty"`
	Strategists []StrategistConfig `json:"strategists"`
}

func (s *StrategistRoles) init(label string) {
	s.base = base{
		label: label,
		fields: []Field{
			addressField(KeyBoringVault, &s.BoringVault),
			required(addressField(KeyRolesAuthority, &s.RolesAuthority)),
			required(addressField(KeyManager, &s.Manager)),
		},
	}
}

func (s *StrategistRoles) Assemble(ctx context.Context, c *cache.Cache, r viewreader.Reader) ([]actions.Action, error) {
	if s.Role == nil {
		return nil, fmt.Errorf("%w: %s has no role", ErrInvalidBlock, s.Name())
	}
	authority, err := mustAddress(c, KeyRolesAuthority, s.Name())
	if err != nil {
		return nil, err
	}
	manager, err := mustAddress(c, KeyManager, s.Name())
	if err != nil {
		return nil, err
	}
	sender, err := AdminSender(c)
	if err != nil {
		return nil, err
	}

	strategists := make([]processors.Strategist, len(s.Strategists))
	for i, cfg := range s.Strategists {
		addr, err := desiredAddress(c, cfg.Address, s.Name())
		if err != nil {
			return nil, err
		}
		strategists[i] = processors.Strategist{Address: addr, Enabled: cfg.Enabled, ManageRoot: cfg.ManageRoot}
	}

	return processors.StrategistRolesUpdate(ctx, r, processors.StrategistRolesInput{
		RolesAuthority: authority,
		Manager:        manager,
		Role:           *s.Role,
		Strategists:    strategists,
		Sender:         sender,
	})
}

// CapabilityConfig is the desired state of one capability. Signature is either a canonical
// function signature or a 0x prefixed 4 byte selector.
type CapabilityConfig struct {
	Role      uint8                           `json:"role,omitempty"`
	Target    contracts.AddressOrContractName `json:"target"`
	Signature string                          `json:"signature"`
	Enabled   bool                            `json:"enabled"`
}

func (cfg CapabilityConfig) selector() ([4]byte, error) {
	if !strings.HasPrefix(cfg.Signature, "0x") {
		if !strings.Contains(cfg.Signature, "(") {
			return [4]byte{}, fmt.Errorf("%w: malformed signature %q", ErrInvalidBlock, cfg.Signature)
		}

		return contracts.Selector(cfg.Signature), nil
	}

	b, err := hexutil.Decode(cfg.Signature)
	if err != nil || len(b) != 4 {
		return [4]byte{}, fmt.Errorf("%w: malformed selector %q", ErrInvalidBlock, cfg.Signature)
	}

	return [4]byte(b), nil
}

// RoleCapabilities grants or revokes role capabilities on the roles authority.
type RoleCapabilities struct {
	base

	BoringVault    *contracts.AddressOrContractName `json:"boring_vault,omitempty"`
	RolesAuthority *contracts.AddressOrContractName `json:"roles_authority,omitempty"`

	Capabilities []CapabilityConfig `json:"capabilities"`
}

func (rc *RoleCapabilities) init(label string) {
	rc.base = base{
		label: label,
		fields: []Field{
			addressField(KeyBoringVault, &rc.BoringVault),
			required(addressField(KeyRolesAuthority, &rc.RolesAuthority)),
		},
	}
}

func (rc *RoleCapabilities) Assemble(ctx context.Context, c *cache.Cache, r viewreader.Reader) ([]actions.Action, error) {
	authority, err := mustAddress(c, KeyRolesAuthority, rc.Name())
	if err != nil {
		return nil, err
	}
	sender, err := AdminSender(c)
	if err != nil {
		return nil, err
	}

	caps := make([]processors.RoleCapability, len(rc.Capabilities))
	for i, cfg := range rc.Capabilities {
		target, err := desiredAddress(c, cfg.Target, rc.Name())
		if err != nil {
			return nil, err
		}
		sel, err := cfg.selector()
		if err != nil {
			return nil, err
		}
		caps[i] = processors.RoleCapability{Role: cfg.Role, Target: target, Selector: sel, Enabled: cfg.Enabled}
	}

	return processors.RoleCapabilitiesUpdate(ctx, r, authority, caps, sender)
}

// PublicCapabilities opens or closes functions to everyone on the roles authority.
type PublicCapabilities struct {
	base

	BoringVault    *contracts.AddressOrContractName `json:"boring_vault,omitempty"`
	RolesAuthority *contracts.AddressOrContractName `json:"roles_authority,omitempty"`

	Capabilities []CapabilityConfig `json:"capabilities"`
}

func (pc *PublicCapabilities) init(label string) {
	pc.base = base{
		label: label,
		fields: []Field{
			addressField(KeyBoringVault, &pc.BoringVault),
			required(addressField(KeyRolesAuthority, &pc.RolesAuthority)),
		},
	}
}

func (pc *PublicCapabilities) Assemble(ctx context.Context, c *cache.Cache, r viewreader.Reader) ([]actions.Action, error) {
	authority, err := mustAddress(c, KeyRolesAuthority, pc.Name())
	if err != nil {
		return nil, err
	}
	sender, err := AdminSender(c)
	if err != nil {
		return nil, err
	}

	caps := make([]processors.PublicCapability, len(pc.Capabilities))
	for i, cfg := range pc.Capabilities {
		if cfg.Role != 0 {
			return nil, fmt.Errorf("%w: %s: public capabilities take no role", ErrInvalidBlock, pc.Name())
		}
		target, err := desiredAddress(c, cfg.Target, pc.Name())
		if err != nil {
			return nil, err
		}
		sel, err := cfg.selector()
		if err != nil {
			return nil, err
		}
		caps[i] = processors.PublicCapability{Target: target, Selector: sel, Enabled: cfg.Enabled}
	}

	return processors.PublicCapabilitiesUpdate(ctx, r, authority, caps, sender)
}
