package viewreader

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/vault-admin/chain/evm/contracts"
)

// Call packs method with args, reads it through r and unpacks the return values.
func Call(ctx context.Context, r Reader, a *abi.ABI, target common.Address, method string, args ...any) ([]any, error) {
	calldata, err := contracts.Pack(a, method, args...)
	if err != nil {
		return nil, err
	}

	ret, err := r.Request(ctx, target, calldata)
	if err != nil {
		return nil, fmt.Errorf("%s on %s: %w", method, target, err)
	}

	return contracts.Unpack(a, method, ret)
}

// CallOne is Call for methods with a single return value of type T.
func CallOne[T any](ctx context.Context, r Reader, a *abi.ABI, target common.Address, method string, args ...any) (T, error) {
	var zero T

	calldata, err := contracts.Pack(a, method, args...)
	if err != nil {
		return zero, err
	}

	ret, err := r.Request(ctx, target, calldata)
	if err != nil {
		return zero, fmt.Errorf("%s on %s: %w", method, target, err)
	}

	return contracts.UnpackOne[T](a, method, ret)
}
