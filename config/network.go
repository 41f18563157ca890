package config

import (
	"fmt"
	"strconv"

	chainsel "github.com/smartcontractkit/chain-selectors"
)

// NetworkName returns the chain-selectors name of an EVM chain id.
func NetworkName(network uint32) (string, error) {
	details, err := chainsel.GetChainDetailsByChainIDAndFamily(strconv.FormatUint(uint64(network), 10), chainsel.FamilyEVM)
	if err != nil {
		return "", fmt.Errorf("%w: unknown EVM network %d: %w", ErrConfig, network, err)
	}

	return details.ChainName, nil
}

// NetworkLabel is NetworkName for logs, falling back to the bare chain id.
func NetworkLabel(network uint32) string {
	name, err := NetworkName(network)
	if err != nil {
		return strconv.FormatUint(uint64(network), 10)
	}

	return name
}
