// Package blocks holds the declarative building blocks describing the desired state of a
// vault. Blocks publish the facts they know into a shared cache, derive missing facts from
// the chain and assemble the leaf actions needed to reach their desired state.
package blocks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/vault-admin/actions"
	"github.com/smartcontractkit/vault-admin/blocks/cache"
	"github.com/smartcontractkit/vault-admin/chain/evm/contracts"
	"github.com/smartcontractkit/vault-admin/chain/evm/viewreader"
)

var (
	ErrUnknownBlock           = errors.New("unknown block")
	ErrInvalidBlock           = errors.New("invalid block")
	ErrMissingCacheValue      = errors.New("missing cache value")
	ErrDerivationNotSupported = errors.New("derivation not supported")
)

// Cache keys shared between blocks.
const (
	KeyNetworkID      = "network_id"
	KeyDeployer       = "deployer"
	KeyBoringVault    = "boring_vault"
	KeyRolesAuthority = "roles_authority"
	KeyTeller         = "teller"
	KeyAccountant     = "accountant"
	KeyManager        = "manager"
	KeyMultisig       = "multisig"
	KeyTimelock       = "timelock"
	KeyTimelockAdmin  = "timelock_admin"
	KeyExecutor       = "executor"
	KeyMultisend      = "multisend"
	KeyBundler        = "bundler"
)

// MissingValuesError lists the required keys no block declared and no rule could derive.
type MissingValuesError struct {
	Block string
	Keys  []string
}

func (e *MissingValuesError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrMissingCacheValue, e.Block, e.Keys)
}

func (e *MissingValuesError) Is(target error) bool {
	return target == ErrMissingCacheValue
}

// Block is one facet of the desired state of a vault.
type Block interface {
	// Name identifies the block in cache origins and errors.
	Name() string
	// ResolveState publishes the declared fields into c and derives missing derivable ones.
	ResolveState(ctx context.Context, c *cache.Cache, r viewreader.Reader) error
	// ReportMissingValues lists the fields set neither in the block nor in c.
	ReportMissingValues(c *cache.Cache) []MissingValue
	// DeriveValue runs the derivation rule of key and reports whether a value was written.
	DeriveValue(ctx context.Context, key string, c *cache.Cache, r viewreader.Reader) (bool, error)
	// Assemble diffs the chain against the desired state and returns the leaf actions
	// closing the gap.
	Assemble(ctx context.Context, c *cache.Cache, r viewreader.Reader) ([]actions.Action, error)
}

// base implements the cache protocol of a block from its field table.
type base struct {
	label  string
	fields []Field
}

func (b *base) Name() string { return b.label }

func (b *base) ResolveState(ctx context.Context, c *cache.Cache, r viewreader.Reader) error {
	return resolveValues(ctx, b.label, b.fields, c, r)
}

func (b *base) ReportMissingValues(c *cache.Cache) []MissingValue {
	return reportMissing(b.fields, c)
}

func (b *base) DeriveValue(ctx context.Context, key string, c *cache.Cache, r viewreader.Reader) (bool, error) {
	return deriveValue(ctx, b.label, b.fields, key, c, r)
}

// Fields returns the field table of the block.
func (b *base) Fields() []Field { return b.fields }

type loadable interface {
	Block
	init(label string)
}

var registry = map[string]func() loadable{
	"Global":             func() loadable { return new(Global) },
	"BoringVault":        func() loadable { return new(BoringVault) },
	"Teller":             func() loadable { return new(Teller) },
	"Assets":             func() loadable { return new(Assets) },
	"Accountant":         func() loadable { return new(Accountant) },
	"StrategistRoles":    func() loadable { return new(StrategistRoles) },
	"RoleCapabilities":   func() loadable { return new(RoleCapabilities) },
	"PublicCapabilities": func() loadable { return new(PublicCapabilities) },
	"Ownership":          func() loadable { return new(Ownership) },
}

// Kinds returns the names of the known block kinds.
func Kinds() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	slices.Sort(out)

	return out
}

// Load parses a JSON array of single key objects whose key selects the block kind.
func Load(data []byte) ([]Block, error) {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBlock, err)
	}

	out := make([]Block, 0, len(raw))
	for i, entry := range raw {
		if len(entry) != 1 {
			return nil, fmt.Errorf("%w: entry %d must have exactly one key, got %d", ErrInvalidBlock, i, len(entry))
		}
		for kind, body := range entry {
			newBlock, ok := registry[kind]
			if !ok {
				return nil, fmt.Errorf("%w: %q at entry %d", ErrUnknownBlock, kind, i)
			}

			b := newBlock()
			dec := json.NewDecoder(bytes.NewReader(body))
			dec.DisallowUnknownFields()
			if err := dec.Decode(b); err != nil {
				return nil, fmt.Errorf("%w: %s at entry %d: %w", ErrInvalidBlock, kind, i, err)
			}
			b.init(fmt.Sprintf("%s[%d]", kind, i))
			out = append(out, b)
		}
	}

	return out, nil
}

// AdminSender returns who administers the vault contracts: the timelock if one is known,
// otherwise the multisig, otherwise the executor itself.
func AdminSender(c *cache.Cache) (actions.SenderType, error) {
	if addr, ok := c.GetAddress(KeyTimelock); ok {
		return actions.Timelock(addr), nil
	}
	if addr, ok := c.GetAddress(KeyMultisig); ok {
		return actions.Multisig(addr), nil
	}
	if addr, ok := c.GetAddress(KeyExecutor); ok {
		return actions.EOA(addr), nil
	}

	return actions.SenderType{}, fmt.Errorf("%w: no %s, %s or %s", ErrMissingCacheValue, KeyTimelock, KeyMultisig, KeyExecutor)
}

func mustAddress(c *cache.Cache, key, block string) (common.Address, error) {
	addr, ok := c.GetAddress(key)
	if !ok {
		return common.Address{}, &MissingValuesError{Block: block, Keys: []string{key}}
	}

	return addr, nil
}

func desiredAddress(c *cache.Cache, a contracts.AddressOrContractName, block string) (common.Address, error) {
	addr, ok := resolveAddress(c, a)
	if !ok {
		return common.Address{}, &MissingValuesError{Block: block, Keys: []string{KeyDeployer}}
	}

	return addr, nil
}
