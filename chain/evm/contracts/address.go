package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrInvalidAddress = errors.New("invalid address")

// DeriveContractAddress returns the deterministic address the deployer contract assigns to a
// contract deployed under name: keccak256("deployer" ‖ deployer ‖ name)[:20].
func DeriveContractAddress(name string, deployer common.Address) common.Address {
	h := crypto.Keccak256([]byte("deployer"), deployer.Bytes(), []byte(name))

	return common.BytesToAddress(h[:common.AddressLength])
}

// ParseAddress parses a 0x prefixed 20 byte hex address.
func ParseAddress(s string) (common.Address, error) {
	if !strings.HasPrefix(s, "0x") || !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}

	return common.HexToAddress(s), nil
}

// AddressOrContractName holds either a literal address or the name of a contract deployed
// through the deployer contract.
type AddressOrContractName struct {
	address *common.Address
	name    string
}

// NewAddress wraps a literal address.
func NewAddress(addr common.Address) AddressOrContractName {
	return AddressOrContractName{address: &addr}
}

// NewContractName wraps a contract name.
func NewContractName(name string) AddressOrContractName {
	return AddressOrContractName{name: name}
}

// ParseAddressOrContractName accepts a 0x prefixed address or a name. A string starting with
// 0x that is not a valid address is rejected rather than treated as a name.
func ParseAddressOrContractName(s string) (AddressOrContractName, error) {
	if strings.HasPrefix(s, "0x") {
		addr, err := ParseAddress(s)
		if err != nil {
			return AddressOrContractName{}, err
		}

		return NewAddress(addr), nil
	}
	if s == "" {
		return AddressOrContractName{}, fmt.Errorf("%w: empty contract name", ErrInvalidAddress)
	}

	return NewContractName(s), nil
}

// IsName reports whether the value is a contract name that needs a deployer to resolve.
func (a AddressOrContractName) IsName() bool {
	return a.address == nil
}

// Resolve returns the literal address, or derives it from deployer for a contract name.
func (a AddressOrContractName) Resolve(deployer common.Address) common.Address {
	if a.address != nil {
		return *a.address
	}

	return DeriveContractAddress(a.name, deployer)
}

// Address returns the literal address, if any.
func (a AddressOrContractName) Address() (common.Address, bool) {
	if a.address == nil {
		return common.Address{}, false
	}

	return *a.address, true
}

func (a AddressOrContractName) String() string {
	if a.address != nil {
		return a.address.Hex()
	}

	return a.name
}

func (a AddressOrContractName) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *AddressOrContractName) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseAddressOrContractName(s)
	if err != nil {
		return err
	}
	*a = parsed

	return nil
}
