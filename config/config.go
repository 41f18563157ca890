// Package config loads the TOML file describing networks, contracts and products, and
// the environment credentials of the simulation client.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/smartcontractkit/vault-admin/chain/evm/contracts"
)

// DefaultSection is the section used when a network has none of its own.
const DefaultSection = "default"

// envPrefix marks a value read from the named environment variable.
const envPrefix = "env:"

var ErrConfig = errors.New("config error")

// ProductConfig holds the contracts and strategists of a product on one network.
type ProductConfig struct {
	Deployer    string   `toml:"deployer,omitempty"`
	BoringVault string   `toml:"boring_vault,omitempty"`
	Manager     string   `toml:"manager,omitempty"`
	Multisig    string   `toml:"multisig,omitempty"`
	Strategists []string `toml:"strategists,omitempty"`
}

// merge returns p with every field set in over replaced.
func (p ProductConfig) merge(over ProductConfig) ProductConfig {
	if over.Deployer != "" {
		p.Deployer = over.Deployer
	}
	if over.BoringVault != "" {
		p.BoringVault = over.BoringVault
	}
	if over.Manager != "" {
		p.Manager = over.Manager
	}
	if over.Multisig != "" {
		p.Multisig = over.Multisig
	}
	if over.Strategists != nil {
		p.Strategists = slices.Clone(over.Strategists)
	}

	return p
}

// Config is the TOML file configuration. Network sections are keyed by chain id.
type Config struct {
	RPCEndpoints     map[string]string                   `toml:"rpc_endpoints"`
	BlockExplorers   map[string]string                   `toml:"block_explorers"`
	MultiSendAddress map[string]string                   `toml:"multi_send_address"`
	Products         map[string]map[string]ProductConfig `toml:"product"`
}

// Load reads the TOML config at path. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", ErrConfig, path, err)
	}

	return Parse(b)
}

// Parse decodes a TOML config.
func Parse(b []byte) (*Config, error) {
	cfg := &Config{}
	dec := toml.NewDecoder(bytes.NewReader(b)).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%w: %s", ErrConfig, strict.String())
		}

		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	return cfg, nil
}

func networkKey(network uint32) string {
	return strconv.FormatUint(uint64(network), 10)
}

// RPCURL returns the RPC endpoint of network, resolving env:NAME values from the
// environment.
func (c *Config) RPCURL(network uint32) (string, error) {
	raw, ok := c.RPCEndpoints[networkKey(network)]
	if !ok {
		return "", fmt.Errorf("%w: no rpc endpoint for network %d", ErrConfig, network)
	}

	return resolveValue(raw)
}

// BlockExplorer returns the block explorer URL of network, if any.
func (c *Config) BlockExplorer(network uint32) (string, bool) {
	u, ok := c.BlockExplorers[networkKey(network)]
	return u, ok
}

// MultiSend returns the MultiSend contract of network, falling back to the default one.
func (c *Config) MultiSend(network uint32) (common.Address, error) {
	raw, ok := c.MultiSendAddress[networkKey(network)]
	if !ok {
		raw, ok = c.MultiSendAddress[DefaultSection]
	}
	if !ok {
		return common.Address{}, fmt.Errorf("%w: no multi send address for network %d", ErrConfig, network)
	}

	addr, err := contracts.ParseAddress(raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: multi_send_address.%d: %w", ErrConfig, network, err)
	}

	return addr, nil
}

// Product returns the config of product on network, merged over its default section.
func (c *Config) Product(name string, network uint32) (ProductConfig, error) {
	sections, ok := c.Products[name]
	if !ok {
		return ProductConfig{}, fmt.Errorf("%w: unknown product %q", ErrConfig, name)
	}

	def, hasDefault := sections[DefaultSection]
	own, hasOwn := sections[networkKey(network)]
	if !hasDefault && !hasOwn {
		return ProductConfig{}, fmt.Errorf("%w: product %q has no section for network %d", ErrConfig, name, network)
	}

	return def.merge(own), nil
}

// StrategistAddresses parses the strategists of the product.
func (p ProductConfig) StrategistAddresses() ([]common.Address, error) {
	out := make([]common.Address, len(p.Strategists))
	for i, s := range p.Strategists {
		addr, err := contracts.ParseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("%w: strategists[%d]: %w", ErrConfig, i, err)
		}
		out[i] = addr
	}

	return out, nil
}

// resolveValue returns raw, or the value of the environment variable it names.
func resolveValue(raw string) (string, error) {
	name, ok := strings.CutPrefix(raw, envPrefix)
	if !ok {
		return raw, nil
	}

	v := viper.New()
	if err := v.BindEnv(name); err != nil {
		return "", fmt.Errorf("%w: %w", ErrConfig, err)
	}
	value := v.GetString(name)
	if value == "" {
		return "", fmt.Errorf("%w: environment variable %s is not set", ErrConfig, name)
	}

	return value, nil
}
