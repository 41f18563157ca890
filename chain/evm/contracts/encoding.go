package contracts

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrShortReturnData = errors.New("return data too short")

// Selector returns the first four bytes of the keccak-256 hash of a canonical function
// signature, e.g. "transfer(address,uint256)".
func Selector(sig string) [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(sig))[:4])

	return sel
}

// Pack ABI encodes a call to method, selector included.
func Pack(a *abi.ABI, method string, args ...any) ([]byte, error) {
	data, err := a.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	return data, nil
}

// MustPack is Pack for arguments known to be well formed. It panics on failure.
func MustPack(a *abi.ABI, method string, args ...any) []byte {
	data, err := Pack(a, method, args...)
	if err != nil {
		panic(err)
	}

	return data
}

// Unpack decodes the return data of method into its output values.
func Unpack(a *abi.ABI, method string, data []byte) ([]any, error) {
	m, ok := a.Methods[method]
	if !ok {
		return nil, fmt.Errorf("method %s not found in abi", method)
	}
	if len(m.Outputs) > 0 && len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", method, ErrShortReturnData)
	}

	out, err := a.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}

	return out, nil
}

// UnpackOne decodes return data of a single output method and asserts its Go type.
func UnpackOne[T any](a *abi.ABI, method string, data []byte) (T, error) {
	var zero T

	out, err := Unpack(a, method, data)
	if err != nil {
		return zero, err
	}
	if len(out) != 1 {
		return zero, fmt.Errorf("%s: expected 1 output, got %d", method, len(out))
	}

	v, ok := out[0].(T)
	if !ok {
		return zero, fmt.Errorf("%s: unexpected output type %T", method, out[0])
	}

	return v, nil
}

// PackOutputs ABI encodes return values for method. Used to answer view calls in tests and
// simulations.
func PackOutputs(a *abi.ABI, method string, values ...any) ([]byte, error) {
	m, ok := a.Methods[method]
	if !ok {
		return nil, fmt.Errorf("method %s not found in abi", method)
	}

	return m.Outputs.Pack(values...)
}

// MethodBySelector finds the method of a whose id matches the first four bytes of calldata.
func MethodBySelector(a *abi.ABI, calldata []byte) (*abi.Method, []any, error) {
	if len(calldata) < 4 {
		return nil, nil, fmt.Errorf("calldata: %w", ErrShortReturnData)
	}

	m, err := a.MethodById(calldata[:4])
	if err != nil {
		return nil, nil, err
	}

	args, err := m.Inputs.Unpack(calldata[4:])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to unpack %s arguments: %w", m.Name, err)
	}

	return m, args, nil
}
