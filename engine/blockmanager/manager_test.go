package blockmanager

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/smartcontractkit/vault-admin/actions"
	"github.com/smartcontractkit/vault-admin/blocks"
	"github.com/smartcontractkit/vault-admin/blocks/cache"
	"github.com/smartcontractkit/vault-admin/chain/evm/contracts"
	"github.com/smartcontractkit/vault-admin/chain/evm/viewreader"
	"github.com/smartcontractkit/vault-admin/internal/testutils/fakechain"
	"github.com/smartcontractkit/vault-admin/pkg/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	vaultAddr     = common.HexToAddress("0xf0bb20865277aBd641a307eCe5Ee04E79073416C")
	authorityAddr = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	tellerAddr    = common.HexToAddress("0x0000000000000000000000000000000000000a33")
	safeAddr      = common.HexToAddress("0x00000000000000000000000000000000000005af")
	timelockAddr  = common.HexToAddress("0x0000000000000000000000000000000000007140")
	multisendAddr = common.HexToAddress("0x38869bf66a61cF6bDB996A6aE40D5853Fd43B526")
	executorAddr  = common.HexToAddress("0x00000000000000000000000000000000000000ee")
	cosignerAddr  = common.HexToAddress("0x00000000000000000000000000000000000000f1")
)

func newReader(t *testing.T, chain *fakechain.Chain) viewreader.Reader {
	t.Helper()

	r, err := viewreader.New(t.Context(), logger.Test(t), chain, viewreader.WithRetryDelay(time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(r.Close)

	return r
}

// newVaultChain deploys a vault administered by a one of one Safe owned by the executor.
func newVaultChain() *fakechain.Chain {
	chain := fakechain.New(100)
	chain.Deploy(vaultAddr, contracts.BoringVaultABI).
		Returns("authority", authorityAddr).
		Returns("hook", tellerAddr)
	chain.Deploy(authorityAddr, contracts.RolesAuthorityABI).
		Returns("owner", safeAddr)
	chain.Deploy(tellerAddr, contracts.TellerABI).
		Returns("accountant", common.Address{}).
		Returns("shareLockPeriod", uint64(0)).
		Returns("isPaused", false)
	chain.DeploySafe(safeAddr, []common.Address{executorAddr}, 1, 3)

	return chain
}

func Test_Manager_Run(t *testing.T) {
	t.Parallel()

	r := newReader(t, newVaultChain())
	m := New(logger.Test(t), r, executorAddr, WithMultisend(multisendAddr), WithNetworkID(1))

	got, err := m.Run(t.Context(), []byte(`[
		{"Global":{"boring_vault":"0xf0bb20865277aBd641a307eCe5Ee04E79073416C"}},
		{"Teller":{"share_lock_period":3600,"paused":true}}
	]`))
	require.NoError(t, err)
	require.Len(t, got, 1)

	env, ok := got[0].(*actions.MultisigTx)
	require.True(t, ok)
	assert.Equal(t, actions.EOA(executorAddr), env.Sender())
	assert.Equal(t, actions.MultisigExecTransaction, env.Mode())
	assert.Equal(t, int64(3), env.Nonce().Int64())

	ms, ok := env.Inner()[0].(*actions.Multisend)
	require.True(t, ok)
	assert.Equal(t, multisendAddr, ms.Target())
	assert.Len(t, ms.Inner(), 2)

	id, ok := m.Cache().GetU32(blocks.KeyNetworkID)
	require.True(t, ok)
	assert.Equal(t, uint32(1), id)
}

func Test_Manager_Run_NothingToDo(t *testing.T) {
	t.Parallel()

	r := newReader(t, newVaultChain())
	m := New(logger.Test(t), r, executorAddr)

	got, err := m.Run(t.Context(), []byte(`[
		{"Global":{"boring_vault":"0xf0bb20865277aBd641a307eCe5Ee04E79073416C"}},
		{"Teller":{"share_lock_period":0}}
	]`))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func Test_Manager_Propagate_Conflict(t *testing.T) {
	t.Parallel()

	r := newReader(t, newVaultChain())
	m := New(logger.Test(t), r, executorAddr)
	require.NoError(t, m.Load([]byte(`[
		{"Global":{"boring_vault":"0xf0bb20865277aBd641a307eCe5Ee04E79073416C"}},
		{"Global":{"boring_vault":"0x0000000000000000000000000000000000000bad"}}
	]`)))

	err := m.Propagate(t.Context())
	require.ErrorIs(t, err, cache.ErrCacheConflict)
	assert.ErrorContains(t, err, "Global[0]")
	assert.ErrorContains(t, err, "Global[1]")
}

func Test_Manager_Propagate_SeedConflict(t *testing.T) {
	t.Parallel()

	r := newReader(t, fakechain.New(1))
	m := New(logger.Test(t), r, executorAddr, WithNetworkID(1))
	require.NoError(t, m.Load([]byte(`[{"Global":{"network_id":2}}]`)))

	err := m.Propagate(t.Context())
	require.ErrorIs(t, err, cache.ErrCacheConflict)
	assert.ErrorContains(t, err, "manager")
}

func Test_Manager_Propagate_Missing(t *testing.T) {
	t.Parallel()

	r := newReader(t, fakechain.New(1))
	m := New(logger.Test(t), r, executorAddr)
	require.NoError(t, m.Load([]byte(`[{"Teller":{"paused":true}},{"StrategistRoles":{"role":1,"strategists":[]}}]`)))

	err := m.Propagate(t.Context())
	require.ErrorIs(t, err, blocks.ErrMissingCacheValue)
	assert.ErrorContains(t, err, "Teller[0]")
	assert.ErrorContains(t, err, "StrategistRoles[1]")
	assert.ErrorContains(t, err, blocks.KeyManager)
}

func Test_Manager_Propagate_LateDeployer(t *testing.T) {
	t.Parallel()

	// the manager name only resolves once the Global block published the deployer
	deployer := common.HexToAddress("0x5F2F11ad8656439d5C14d9B351f8b09cDaC2A02d")
	r := newReader(t, fakechain.New(1))
	m := New(logger.Test(t), r, executorAddr)
	require.NoError(t, m.Load([]byte(`[
		{"StrategistRoles":{"roles_authority":"0x0000000000000000000000000000000000000a11","manager":"Manager","role":1,"strategists":[]}},
		{"Global":{"deployer":"0x5F2F11ad8656439d5C14d9B351f8b09cDaC2A02d"}}
	]`)))

	require.NoError(t, m.Propagate(t.Context()))

	got, ok := m.Cache().GetAddress(blocks.KeyManager)
	require.True(t, ok)
	assert.Equal(t, contracts.DeriveContractAddress("Manager", deployer), got)
}

func timelockLeaves(t *testing.T) []actions.Action {
	t.Helper()

	out := make([]actions.Action, 3)
	for i := range out {
		a, err := actions.NewUpdatePlatformFee(vaultAddr, uint16(i+1), actions.Timelock(timelockAddr))
		require.NoError(t, err)
		out[i] = a
	}

	return out
}

func Test_Manager_Fold_Timelock(t *testing.T) {
	t.Parallel()

	chain := fakechain.New(100)
	chain.DeployTimelock(timelockAddr, 3600)
	chain.DeploySafe(safeAddr, []common.Address{executorAddr, cosignerAddr}, 2, 0)
	r := newReader(t, chain)

	m := New(logger.Test(t), r, executorAddr)
	require.NoError(t, m.Cache().Set(blocks.KeyTimelockAdmin, cache.Address(safeAddr), "test"))

	eoa := actions.NewCall(executorAddr, nil, actions.EOA(executorAddr), "ping", nil)
	acts := append(timelockLeaves(t), eoa)
	actions.Sort(acts)

	got, err := m.Fold(t.Context(), acts)
	require.NoError(t, err)
	require.Len(t, got, 2)

	env, ok := got[0].(*actions.MultisigTx)
	require.True(t, ok)
	assert.Equal(t, actions.EOA(executorAddr), env.Sender())
	assert.Equal(t, actions.MultisigApproveHash, env.Mode())

	ms, ok := env.Inner()[0].(*actions.Multisend)
	require.True(t, ok)
	assert.Equal(t, actions.Signer(safeAddr), ms.Sender())

	tl, ok := ms.Inner()[0].(*actions.TimelockBatch)
	require.True(t, ok)
	assert.Equal(t, actions.TimelockPropose, tl.Mode())
	assert.Equal(t, actions.Multisig(safeAddr), tl.Sender())
	assert.Len(t, tl.Inner(), 3)
	// a single inner action goes straight to the timelock
	assert.Equal(t, timelockAddr, ms.Target())

	assert.Same(t, eoa, got[1])
	for _, a := range got {
		assert.Equal(t, actions.EOA(executorAddr), a.Sender())
	}
}

func Test_Manager_Fold_IterationBound(t *testing.T) {
	t.Parallel()

	chain := fakechain.New(100)
	chain.DeployTimelock(timelockAddr, 3600)
	chain.DeploySafe(safeAddr, []common.Address{executorAddr, cosignerAddr}, 2, 0)
	r := newReader(t, chain)

	tests := []struct {
		name       string
		iterations int
		wantErr    string
	}{
		{name: "timelock needs every level", iterations: MaxFoldIterations},
		{name: "one level short", iterations: MaxFoldIterations - 1, wantErr: "did not collapse within 2 iterations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := New(logger.Test(t), r, executorAddr)
			m.foldIterations = tt.iterations
			require.NoError(t, m.Cache().Set(blocks.KeyTimelockAdmin, cache.Address(safeAddr), "test"))

			got, err := m.Fold(t.Context(), timelockLeaves(t))
			if tt.wantErr != "" {
				require.ErrorIs(t, err, ErrFoldFailure)
				require.ErrorContains(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, actions.EOA(executorAddr), got[0].Sender())
		})
	}
}

func Test_Manager_Fold_ConsecutiveNonces(t *testing.T) {
	t.Parallel()

	chain := fakechain.New(100)
	chain.DeploySafe(safeAddr, []common.Address{executorAddr, cosignerAddr}, 2, 4)
	other := common.HexToAddress("0x00000000000000000000000000000000000005b0")
	r := newReader(t, chain)

	m := New(logger.Test(t), r, executorAddr, WithMultisigNonce(other, big.NewInt(1)))

	a := actions.NewCall(vaultAddr, []byte{1}, actions.Signer(safeAddr), "a", nil)
	b := actions.NewCall(vaultAddr, []byte{2}, actions.Signer(safeAddr), "b", nil)

	got, err := m.Fold(t.Context(), []actions.Action{a, b})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(4), got[0].(*actions.MultisigTx).Nonce().Int64())
	assert.Equal(t, int64(5), got[1].(*actions.MultisigTx).Nonce().Int64())
}

func Test_Manager_Fold_Errors(t *testing.T) {
	t.Parallel()

	chain := fakechain.New(100)
	chain.DeployTimelock(timelockAddr, 3600)
	r := newReader(t, chain)

	tests := []struct {
		name    string
		acts    func(t *testing.T) []actions.Action
		wantErr error
	}{
		{
			name: "foreign eoa",
			acts: func(*testing.T) []actions.Action {
				return []actions.Action{actions.NewCall(vaultAddr, nil, actions.EOA(cosignerAddr), "x", nil)}
			},
			wantErr: ErrFoldFailure,
		},
		{
			name: "multisig chunk without multisend",
			acts: func(*testing.T) []actions.Action {
				return []actions.Action{
					actions.NewCall(vaultAddr, []byte{1}, actions.Multisig(safeAddr), "a", nil),
					actions.NewCall(vaultAddr, []byte{2}, actions.Multisig(safeAddr), "b", nil),
				}
			},
			wantErr: actions.ErrMissingMultisend,
		},
		{
			name:    "timelock without admin",
			acts:    timelockLeaves,
			wantErr: blocks.ErrMissingCacheValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := New(logger.Test(t), r, executorAddr)
			_, err := m.Fold(t.Context(), tt.acts(t))
			require.ErrorIs(t, err, ErrFoldFailure)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func Test_Manager_Bundle(t *testing.T) {
	t.Parallel()

	bundler := common.HexToAddress("0x00000000000000000000000000000000000b0d1e")
	r := newReader(t, fakechain.New(1))
	m := New(logger.Test(t), r, executorAddr, WithBundler(bundler))
	require.NoError(t, m.Propagate(t.Context()))

	a := actions.NewCall(vaultAddr, []byte{1}, actions.EOA(executorAddr), "a", nil)
	b := actions.NewCall(tellerAddr, []byte{2}, actions.EOA(executorAddr), "b", nil)

	got, err := m.bundle([]actions.Action{a, b})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, bundler, got[0].Target())

	single, err := m.bundle([]actions.Action{a})
	require.NoError(t, err)
	assert.Same(t, a, single[0])
}

func Test_Manager_Plan(t *testing.T) {
	t.Parallel()

	chain := fakechain.New(100)
	chain.DeploySafe(safeAddr, []common.Address{executorAddr}, 1, 7)
	r := newReader(t, chain)

	m := New(logger.Test(t), r, executorAddr,
		WithMultisend(multisendAddr),
		WithMultisigNonce(safeAddr, big.NewInt(9)),
	)

	manager := common.HexToAddress("0x0000000000000000000000000000000000000a44")
	root := common.HexToHash("0x01")
	a, err := actions.NewSetManageRoot(manager, common.HexToAddress("0xa1"), root, actions.Multisig(safeAddr))
	require.NoError(t, err)
	b, err := actions.NewSetManageRoot(manager, common.HexToAddress("0xb2"), root, actions.Multisig(safeAddr))
	require.NoError(t, err)

	got, err := m.Plan(t.Context(), []actions.Action{a, b})
	require.NoError(t, err)
	require.Len(t, got, 1)

	env, ok := got[0].(*actions.MultisigTx)
	require.True(t, ok)
	assert.Equal(t, int64(9), env.Nonce().Int64())
	assert.Len(t, env.Inner()[0].(*actions.Multisend).Inner(), 2)

	empty, err := New(logger.Test(t), r, executorAddr).Plan(t.Context(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
