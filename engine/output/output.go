// Package output persists folded transactions as simulation configs, one JSON file per
// transaction.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"math/big"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/smartcontractkit/vault-admin/actions"
)

var ErrInvalidConfig = errors.New("invalid simulation config")

// SimulationConfig describes one Safe transaction to simulate or submit.
type SimulationConfig struct {
	NetworkID uint32         `json:"network_id"`
	Multisig  common.Address `json:"multisig"`
	To        common.Address `json:"to"`
	// Value is a decimal string.
	Value     string        `json:"value"`
	Data      hexutil.Bytes `json:"data"`
	Operation uint8         `json:"operation"`
	Nonce     uint32        `json:"nonce"`
}

// BigValue parses Value.
func (c SimulationConfig) BigValue() (*big.Int, error) {
	if c.Value == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(c.Value, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%w: value %q", ErrInvalidConfig, c.Value)
	}

	return v, nil
}

// Validate checks the fields a simulation needs.
func (c SimulationConfig) Validate() error {
	if c.Multisig == (common.Address{}) {
		return fmt.Errorf("%w: missing multisig", ErrInvalidConfig)
	}
	if c.Operation > actions.OperationDelegateCall {
		return fmt.Errorf("%w: operation %d", ErrInvalidConfig, c.Operation)
	}
	_, err := c.BigValue()

	return err
}

// FromAction converts a folded Safe transaction into a simulation config. For any other
// action the config describes the call itself, with no multisig.
func FromAction(networkID uint32, a actions.Action) (SimulationConfig, error) {
	cfg := SimulationConfig{NetworkID: networkID}

	env, ok := a.(*actions.MultisigTx)
	if !ok {
		cfg.To = a.Target()
		cfg.Value = a.Value().String()
		cfg.Data = a.Data()
		cfg.Operation = a.Operation()

		return cfg, nil
	}

	inner := env.Inner()[0]
	if !env.Nonce().IsUint64() || env.Nonce().Uint64() > math.MaxUint32 {
		return SimulationConfig{}, fmt.Errorf("%w: nonce %s out of range", ErrInvalidConfig, env.Nonce())
	}
	cfg.Multisig = env.Multisig()
	cfg.To = inner.Target()
	cfg.Value = inner.Value().String()
	cfg.Data = inner.Data()
	cfg.Operation = inner.Operation()
	cfg.Nonce = uint32(env.Nonce().Uint64())

	return cfg, nil
}

// FileName returns the name of the i-th transaction file.
func FileName(i int) string {
	return fmt.Sprintf("tx_%d.json", i)
}

// WriteAll writes configs to dir as tx_<i>.json and returns the written paths.
func WriteAll(dir string, configs []SimulationConfig) ([]string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create output dir %s: %w", dir, err)
	}

	paths := make([]string, len(configs))
	for i, cfg := range configs {
		paths[i] = filepath.Join(dir, FileName(i))
		if err := WriteFile(paths[i], cfg); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", paths[i], err)
		}
	}

	return paths, nil
}

// Load reads a simulation config written by WriteAll.
func Load(path string) (SimulationConfig, error) {
	cfg, err := LoadFromFS[SimulationConfig](os.DirFS(filepath.Dir(path)).(fs.ReadFileFS), filepath.Base(path))
	if err != nil {
		return SimulationConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return SimulationConfig{}, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// WriteFile marshals data into pretty JSON and writes it at path.
func WriteFile(path string, data any) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, b, 0o600)
}

// LoadFromFS loads a JSON file from fsys and unmarshals it into T.
func LoadFromFS[T any](fsys fs.ReadFileFS, path string) (T, error) {
	var v T

	f, err := fsys.ReadFile(path)
	if err != nil {
		return v, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err = json.Unmarshal(f, &v); err != nil {
		return v, fmt.Errorf("failed to unmarshal JSON at path %s: %w", path, err)
	}

	return v, nil
}
