package processors

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/vault-admin/actions"
	"github.com/smartcontractkit/vault-admin/chain/evm/contracts"
	"github.com/smartcontractkit/vault-admin/chain/evm/viewreader"
)

// Asset is the desired teller configuration of one deposit asset.
type Asset struct {
	Asset          common.Address
	AllowDeposits  bool
	AllowWithdraws bool
	SharePremium   uint16
}

// AssetsUpdate updates the asset data of every asset whose teller configuration differs.
func AssetsUpdate(ctx context.Context, r viewreader.Reader, teller common.Address, assets []Asset, sender actions.SenderType) ([]actions.Action, error) {
	var out []actions.Action
	for _, want := range assets {
		ret, err := viewreader.Call(ctx, r, contracts.TellerABI, teller, "assetData", want.Asset)
		if err != nil {
			return nil, err
		}
		if len(ret) != 3 {
			return nil, fmt.Errorf("assetData on %s: %w", teller, contracts.ErrShortReturnData)
		}
		deposits, _ := ret[0].(bool)
		withdraws, _ := ret[1].(bool)
		premium, _ := ret[2].(uint16)
		if deposits == want.AllowDeposits && withdraws == want.AllowWithdraws && premium == want.SharePremium {
			continue
		}

		a, err := actions.NewUpdateAssetData(teller, want.Asset, want.AllowDeposits, want.AllowWithdraws, want.SharePremium, sender)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}

	return out, nil
}

// ShareLockUpdate sets the share lock period of the teller when it differs from period.
func ShareLockUpdate(ctx context.Context, r viewreader.Reader, teller common.Address, period uint64, sender actions.SenderType) ([]actions.Action, error) {
	current, err := viewreader.CallOne[uint64](ctx, r, contracts.TellerABI, teller, "shareLockPeriod")
	if err != nil {
		return nil, err
	}
	if current == period {
		return nil, nil
	}

	return single(actions.NewSetShareLockPeriod(teller, period, sender))
}

// PauseUpdate pauses or unpauses the teller.
func PauseUpdate(ctx context.Context, r viewreader.Reader, teller common.Address, paused bool, sender actions.SenderType) ([]actions.Action, error) {
	current, err := viewreader.CallOne[bool](ctx, r, contracts.TellerABI, teller, "isPaused")
	if err != nil {
		return nil, err
	}
	switch {
	case current == paused:
		return nil, nil
	case paused:
		return single(actions.NewPause(teller, sender))
	default:
		return single(actions.NewUnpause(teller, sender))
	}
}

func single(a *actions.Call, err error) ([]actions.Action, error) {
	if err != nil {
		return nil, err
	}

	return []actions.Action{a}, nil
}
