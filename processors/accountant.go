package processors

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/vault-admin/actions"
	"github.com/smartcontractkit/vault-admin/chain/evm/contracts"
	"github.com/smartcontractkit/vault-admin/chain/evm/viewreader"
)

// indexes into the accountantState return values
const (
	statePayoutAddress = 0
	statePlatformFee   = 10
)

func accountantState(ctx context.Context, r viewreader.Reader, accountant common.Address) ([]any, error) {
	ret, err := viewreader.Call(ctx, r, contracts.AccountantABI, accountant, "accountantState")
	if err != nil {
		return nil, err
	}
	if len(ret) <= statePlatformFee {
		return nil, fmt.Errorf("accountantState on %s: %w", accountant, contracts.ErrShortReturnData)
	}

	return ret, nil
}

// PlatformFeeUpdate sets the platform fee of the accountant when it differs from fee.
func PlatformFeeUpdate(ctx context.Context, r viewreader.Reader, accountant common.Address, fee uint16, sender actions.SenderType) ([]actions.Action, error) {
	state, err := accountantState(ctx, r, accountant)
	if err != nil {
		return nil, err
	}
	if current, _ := state[statePlatformFee].(uint16); current == fee {
		return nil, nil
	}

	return single(actions.NewUpdatePlatformFee(accountant, fee, sender))
}

// PayoutAddressUpdate sets the payout address of the accountant when it differs from payout.
func PayoutAddressUpdate(ctx context.Context, r viewreader.Reader, accountant, payout common.Address, sender actions.SenderType) ([]actions.Action, error) {
	state, err := accountantState(ctx, r, accountant)
	if err != nil {
		return nil, err
	}
	if current, _ := state[statePayoutAddress].(common.Address); current == payout {
		return nil, nil
	}

	return single(actions.NewUpdatePayoutAddress(accountant, payout, sender))
}
