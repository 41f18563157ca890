package blocks

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/vault-admin/blocks/cache"
	"github.com/smartcontractkit/vault-admin/chain/evm/contracts"
	"github.com/smartcontractkit/vault-admin/chain/evm/viewreader"
)

// DeriveFunc computes a fact from other cached facts and on-chain state. ok is false when
// a precondition is missing, in which case the key stays unset.
type DeriveFunc func(ctx context.Context, c *cache.Cache, r viewreader.Reader) (v cache.Value, ok bool, err error)

// Field describes one cache backed field of a block.
type Field struct {
	Key      string
	Required bool
	Derive   DeriveFunc

	// declared reports whether the block names a value for the field, resolvable or not.
	declared func() bool
	// get returns the value declared in the block, if it resolves.
	get func(c *cache.Cache) (cache.Value, bool)
	// set fills the block field from a cached value.
	set func(v cache.Value) bool
}

// MissingValue is a field set neither in the block nor in the cache, or declared by a name
// that cannot resolve yet.
type MissingValue struct {
	Key       string
	CanDerive bool
	Required  bool
}

func addressField(key string, p **contracts.AddressOrContractName) Field {
	return Field{
		Key:      key,
		Derive:   derivations[key],
		declared: func() bool { return *p != nil },
		get: func(c *cache.Cache) (cache.Value, bool) {
			if *p == nil {
				return nil, false
			}
			addr, ok := resolveAddress(c, **p)
			if !ok {
				return nil, false
			}

			return cache.Address(addr), true
		},
		set: func(v cache.Value) bool {
			addr, ok := v.(cache.Address)
			if !ok {
				return false
			}
			resolved := contracts.NewAddress(common.Address(addr))
			*p = &resolved

			return true
		},
	}
}

func u32Field(key string, p **uint32) Field {
	return Field{
		Key:      key,
		Derive:   derivations[key],
		declared: func() bool { return *p != nil },
		get: func(*cache.Cache) (cache.Value, bool) {
			if *p == nil {
				return nil, false
			}

			return cache.U32(**p), true
		},
		set: func(v cache.Value) bool {
			u, ok := v.(cache.U32)
			if !ok {
				return false
			}
			n := uint32(u)
			*p = &n

			return true
		},
	}
}

func required(f Field) Field {
	f.Required = true
	return f
}

// resolveAddress resolves a literal address, or a contract name against the cached deployer.
func resolveAddress(c *cache.Cache, a contracts.AddressOrContractName) (common.Address, bool) {
	if !a.IsName() {
		addr, _ := a.Address()
		return addr, true
	}
	deployer, ok := c.GetAddress(KeyDeployer)
	if !ok {
		return common.Address{}, false
	}

	return a.Resolve(deployer), true
}

// resolveValues writes every declared field to the cache, fills undeclared fields from the
// cache and derives the rest where a rule exists. A declared name that does not resolve yet
// is left alone until its deployer is known. Fields are visited in table order so a
// derivation sees the facts written by the fields before it.
func resolveValues(ctx context.Context, origin string, fields []Field, c *cache.Cache, r viewreader.Reader) error {
	for _, f := range fields {
		if v, ok := f.get(c); ok {
			if err := c.Set(f.Key, v, origin); err != nil {
				return err
			}
			continue
		}
		if f.declared() {
			continue
		}
		if v, ok := c.Get(f.Key); ok {
			if !f.set(v) {
				return fmt.Errorf("%w: cached %s has unexpected type %T", ErrInvalidBlock, f.Key, v)
			}
			continue
		}
		if f.Derive == nil {
			continue
		}
		if _, err := deriveField(ctx, origin, f, c, r); err != nil {
			return err
		}
	}

	return nil
}

func reportMissing(fields []Field, c *cache.Cache) []MissingValue {
	var out []MissingValue
	for _, f := range fields {
		if _, ok := f.get(c); ok {
			continue
		}
		if f.declared() {
			out = append(out, MissingValue{Key: f.Key, Required: true})
			continue
		}
		if c.HasKey(f.Key) {
			continue
		}
		out = append(out, MissingValue{Key: f.Key, CanDerive: f.Derive != nil, Required: f.Required})
	}

	return out
}

func deriveValue(ctx context.Context, origin string, fields []Field, key string, c *cache.Cache, r viewreader.Reader) (bool, error) {
	for _, f := range fields {
		if f.Key != key {
			continue
		}
		if f.Derive == nil {
			return false, fmt.Errorf("%w: %s in %s", ErrDerivationNotSupported, key, origin)
		}

		return deriveField(ctx, origin, f, c, r)
	}

	return false, fmt.Errorf("%w: %s has no field %s", ErrDerivationNotSupported, origin, key)
}

func deriveField(ctx context.Context, origin string, f Field, c *cache.Cache, r viewreader.Reader) (bool, error) {
	v, ok, err := f.Derive(ctx, c, r)
	if err != nil {
		return false, fmt.Errorf("derive %s: %w", f.Key, err)
	}
	if !ok {
		return false, nil
	}
	if err := c.Set(f.Key, v, origin+" (derived)"); err != nil {
		return false, err
	}
	f.set(v)

	return true, nil
}
