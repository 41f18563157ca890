package processors

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/vault-admin/actions"
	"github.com/smartcontractkit/vault-admin/chain/evm/contracts"
	"github.com/smartcontractkit/vault-admin/chain/evm/viewreader"
	"github.com/smartcontractkit/vault-admin/internal/testutils/fakechain"
	"github.com/smartcontractkit/vault-admin/pkg/logger"
)

var (
	rolesAuthority = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	manager        = common.HexToAddress("0x0000000000000000000000000000000000000a22")
	teller         = common.HexToAddress("0x0000000000000000000000000000000000000a33")
	accountant     = common.HexToAddress("0x0000000000000000000000000000000000000a44")
	vault          = common.HexToAddress("0x0000000000000000000000000000000000000a55")

	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	carol = common.HexToAddress("0x00000000000000000000000000000000000000c0")

	sender = actions.Multisig(common.HexToAddress("0x00000000000000000000000000000000000005af"))
)

func newReader(t *testing.T, chain *fakechain.Chain) viewreader.Reader {
	t.Helper()

	r, err := viewreader.New(t.Context(), logger.Test(t), chain, viewreader.WithRetryDelay(time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(r.Close)

	return r
}

func methods(t *testing.T, a []actions.Action) []string {
	t.Helper()

	out := make([]string, len(a))
	for i, act := range a {
		c, ok := act.(*actions.Call)
		require.True(t, ok)
		out[i] = c.Method()
	}

	return out
}

func Test_StrategistRolesUpdate(t *testing.T) {
	t.Parallel()

	chain := fakechain.New(10)
	members := map[common.Address]bool{alice: true, bob: true}
	roots := map[common.Address]common.Hash{
		alice: common.HexToHash("0x01"),
		bob:   common.HexToHash("0x02"),
	}
	chain.Deploy(rolesAuthority, contracts.RolesAuthorityABI).On("doesUserHaveRole", func(args []any) ([]any, error) {
		return []any{members[args[0].(common.Address)]}, nil
	})
	chain.Deploy(manager, contracts.ManagerABI).On("manageRoot", func(args []any) ([]any, error) {
		return []any{[32]byte(roots[args[0].(common.Address)])}, nil
	})
	r := newReader(t, chain)

	newRoot := common.HexToHash("0xff")
	sameRoot := common.HexToHash("0x01")
	got, err := StrategistRolesUpdate(t.Context(), r, StrategistRolesInput{
		RolesAuthority: rolesAuthority,
		Manager:        manager,
		Role:           7,
		Sender:         sender,
		Strategists: []Strategist{
			{Address: alice, Enabled: true, ManageRoot: &sameRoot},
			{Address: bob, Enabled: false},
			{Address: carol, Enabled: true, ManageRoot: &newRoot},
		},
	})
	require.NoError(t, err)

	// bob is revoked and his root cleared, carol is granted with a new root
	assert.Equal(t, []string{"setUserRole", "setManageRoot", "setUserRole", "setManageRoot"}, methods(t, got))

	_, args, err := contracts.MethodBySelector(contracts.RolesAuthorityABI, got[0].Data())
	require.NoError(t, err)
	assert.Equal(t, []any{bob, uint8(7), false}, args)

	_, args, err = contracts.MethodBySelector(contracts.ManagerABI, got[1].Data())
	require.NoError(t, err)
	assert.Equal(t, []any{bob, [32]byte{}}, args)

	_, args, err = contracts.MethodBySelector(contracts.ManagerABI, got[3].Data())
	require.NoError(t, err)
	assert.Equal(t, []any{carol, [32]byte(newRoot)}, args)

	for _, a := range got {
		assert.Equal(t, sender, a.Sender())
	}
}

func Test_AssetsUpdate(t *testing.T) {
	t.Parallel()

	usdc := common.HexToAddress("0x00000000000000000000000000000000000000e1")
	weth := common.HexToAddress("0x00000000000000000000000000000000000000e2")

	chain := fakechain.New(10)
	chain.Deploy(teller, contracts.TellerABI).On("assetData", func(args []any) ([]any, error) {
		if args[0].(common.Address) == usdc {
			return []any{true, true, uint16(0)}, nil
		}
		return []any{false, false, uint16(0)}, nil
	})
	r := newReader(t, chain)

	got, err := AssetsUpdate(t.Context(), r, teller, []Asset{
		{Asset: usdc, AllowDeposits: true, AllowWithdraws: true},
		{Asset: weth, AllowDeposits: true, AllowWithdraws: false, SharePremium: 5},
	}, sender)
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, args, err := contracts.MethodBySelector(contracts.TellerABI, got[0].Data())
	require.NoError(t, err)
	assert.Equal(t, []any{weth, true, false, uint16(5)}, args)
}

func Test_TellerUpdates(t *testing.T) {
	t.Parallel()

	chain := fakechain.New(10)
	chain.Deploy(teller, contracts.TellerABI).
		Returns("shareLockPeriod", uint64(3600)).
		Returns("isPaused", false)
	r := newReader(t, chain)

	tests := []struct {
		name string
		run  func() ([]actions.Action, error)
		want []string
	}{
		{
			name: "share lock unchanged",
			run:  func() ([]actions.Action, error) { return ShareLockUpdate(t.Context(), r, teller, 3600, sender) },
		},
		{
			name: "share lock changed",
			run:  func() ([]actions.Action, error) { return ShareLockUpdate(t.Context(), r, teller, 60, sender) },
			want: []string{"setShareLockPeriod"},
		},
		{
			name: "already unpaused",
			run:  func() ([]actions.Action, error) { return PauseUpdate(t.Context(), r, teller, false, sender) },
		},
		{
			name: "pause",
			run:  func() ([]actions.Action, error) { return PauseUpdate(t.Context(), r, teller, true, sender) },
			want: []string{"pause"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.run()
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, methods(t, got))
		})
	}
}

func Test_AccountantUpdates(t *testing.T) {
	t.Parallel()

	payout := common.HexToAddress("0x00000000000000000000000000000000000000d1")
	zero := big.NewInt(0)

	chain := fakechain.New(10)
	chain.Deploy(accountant, contracts.AccountantABI).
		Returns("accountantState", payout, zero, zero, zero, zero, uint16(0), uint16(0), uint64(0), false, zero, uint16(20), uint16(0))
	r := newReader(t, chain)

	got, err := PlatformFeeUpdate(t.Context(), r, accountant, 20, sender)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = PlatformFeeUpdate(t.Context(), r, accountant, 50, sender)
	require.NoError(t, err)
	assert.Equal(t, []string{"updatePlatformFee"}, methods(t, got))

	got, err = PayoutAddressUpdate(t.Context(), r, accountant, payout, sender)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = PayoutAddressUpdate(t.Context(), r, accountant, alice, sender)
	require.NoError(t, err)
	assert.Equal(t, []string{"updatePayoutAddress"}, methods(t, got))
}

func Test_CapabilitiesUpdate(t *testing.T) {
	t.Parallel()

	sel := contracts.Selector("deposit(address,uint256,uint256)")
	chain := fakechain.New(10)
	chain.Deploy(rolesAuthority, contracts.RolesAuthorityABI).
		Returns("doesRoleHaveCapability", true).
		Returns("isCapabilityPublic", false)
	r := newReader(t, chain)

	got, err := RoleCapabilitiesUpdate(t.Context(), r, rolesAuthority, []RoleCapability{
		{Role: 1, Target: teller, Selector: sel, Enabled: true},
		{Role: 2, Target: teller, Selector: sel, Enabled: false},
	}, sender)
	require.NoError(t, err)
	require.Equal(t, []string{"setRoleCapability"}, methods(t, got))

	_, args, err := contracts.MethodBySelector(contracts.RolesAuthorityABI, got[0].Data())
	require.NoError(t, err)
	assert.Equal(t, []any{uint8(2), teller, sel, false}, args)

	got, err = PublicCapabilitiesUpdate(t.Context(), r, rolesAuthority, []PublicCapability{
		{Target: teller, Selector: sel, Enabled: true},
	}, sender)
	require.NoError(t, err)
	assert.Equal(t, []string{"setPublicCapability"}, methods(t, got))
}

func Test_VaultUpdates(t *testing.T) {
	t.Parallel()

	chain := fakechain.New(10)
	chain.Deploy(vault, contracts.BoringVaultABI, contracts.AuthABI).
		Returns("authority", rolesAuthority).
		Returns("hook", teller).
		Returns("owner", alice)
	chain.Deploy(teller, contracts.AuthABI).Returns("owner", bob)
	r := newReader(t, chain)

	got, err := AuthorityUpdate(t.Context(), r, vault, rolesAuthority, sender)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = AuthorityUpdate(t.Context(), r, vault, manager, sender)
	require.NoError(t, err)
	assert.Equal(t, []string{"setAuthority"}, methods(t, got))

	got, err = BeforeTransferHookUpdate(t.Context(), r, vault, carol, sender)
	require.NoError(t, err)
	assert.Equal(t, []string{"setBeforeTransferHook"}, methods(t, got))

	got, err = OwnershipUpdate(t.Context(), r, []common.Address{vault, teller}, alice, sender)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, teller, got[0].Target())
}

func Test_Processor_RemoteError(t *testing.T) {
	t.Parallel()

	chain := fakechain.New(10)
	chain.Deploy(teller, contracts.TellerABI).Reverts("isPaused")
	r := newReader(t, chain)

	_, err := PauseUpdate(t.Context(), r, teller, true, sender)
	require.ErrorIs(t, err, fakechain.ErrExecutionReverted)
	assert.ErrorContains(t, err, "isPaused")
}
