package actions

import (
	"bytes"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/vault-admin/chain/evm/contracts"
	"github.com/smartcontractkit/vault-admin/chain/evm/viewreader"
	"github.com/smartcontractkit/vault-admin/internal/testutils/fakechain"
	"github.com/smartcontractkit/vault-admin/pkg/logger"
)

var (
	safeAddr      = common.HexToAddress("0x00000000000000000000000000000000000005af")
	timelockAddr  = common.HexToAddress("0x0000000000000000000000000000000000007140")
	multisendAddr = common.HexToAddress("0x38869bf66a61cF6bDB996A6aE40D5853Fd43B526")
	vaultAddr     = common.HexToAddress("0xf0bb20865277aBd641a307eCe5Ee04E79073416C")

	ownerA = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	ownerB = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	ownerC = common.HexToAddress("0x00000000000000000000000000000000000000c3")
)

func newReader(t *testing.T, chain *fakechain.Chain) *viewreader.Manager {
	t.Helper()

	r, err := viewreader.New(t.Context(), logger.Test(t), chain, viewreader.WithRetryDelay(time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(r.Close)

	return r
}

func signerCall(t *testing.T) *Call {
	t.Helper()

	c, err := NewSetBeforeTransferHook(vaultAddr, ownerB, Signer(safeAddr))
	require.NoError(t, err)

	return c
}

func Test_NewMultisend(t *testing.T) {
	t.Parallel()

	a, err := NewPause(vaultAddr, Multisig(safeAddr))
	require.NoError(t, err)
	b := NewCall(ownerA, []byte{0xbe, 0xef}, Multisig(safeAddr), "custom", nil, WithValue(big.NewInt(3)))
	other := NewCall(ownerA, nil, Multisig(ownerC), "other", nil)

	t.Run("single action is a direct call", func(t *testing.T) {
		t.Parallel()

		m, err := NewMultisend(safeAddr, nil, []Action{a})
		require.NoError(t, err)
		assert.Equal(t, a.Target(), m.Target())
		assert.Equal(t, a.Data(), m.Data())
		assert.Equal(t, OperationCall, m.Operation())
		assert.Equal(t, Signer(safeAddr), m.Sender())
		assert.Equal(t, DefaultMetaPriority, m.Priority())
	})

	t.Run("several actions are packed", func(t *testing.T) {
		t.Parallel()

		m, err := NewMultisend(safeAddr, &multisendAddr, []Action{a, b})
		require.NoError(t, err)
		assert.Equal(t, multisendAddr, m.Target())
		assert.Equal(t, OperationDelegateCall, m.Operation())
		assert.Equal(t, int64(0), m.Value().Int64())

		method, args, err := contracts.MethodBySelector(contracts.MultiSendABI, m.Data())
		require.NoError(t, err)
		assert.Equal(t, "multiSend", method.Name)

		txs, err := contracts.UnpackMultiSend(args[0].([]byte))
		require.NoError(t, err)
		require.Len(t, txs, 2)
		assert.Equal(t, vaultAddr, txs[0].To)
		assert.Equal(t, a.Data(), txs[0].Data)
		assert.Equal(t, ownerA, txs[1].To)
		assert.Equal(t, int64(3), txs[1].Value.Int64())
		assert.Equal(t, []byte{0xbe, 0xef}, txs[1].Data)
		assert.Len(t, m.Inner(), 2)
	})

	t.Run("missing multisend address", func(t *testing.T) {
		t.Parallel()

		_, err := NewMultisend(safeAddr, nil, []Action{a, b})
		require.ErrorIs(t, err, ErrMissingMultisend)
	})

	t.Run("mixed senders", func(t *testing.T) {
		t.Parallel()

		_, err := NewMultisend(safeAddr, &multisendAddr, []Action{a, other})
		require.ErrorIs(t, err, ErrMixedSenders)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		_, err := NewMultisend(safeAddr, &multisendAddr, nil)
		require.ErrorIs(t, err, ErrEmptyInner)
	})
}

func Test_NewMultisig_ApproveHash(t *testing.T) {
	t.Parallel()

	chain := fakechain.New(100)
	chain.DeploySafe(safeAddr, []common.Address{ownerA, ownerB, ownerC}, 2, 5)
	r := newReader(t, chain)

	inner := signerCall(t)
	m, err := NewMultisig(t.Context(), r, safeAddr, ownerA, inner, nil)
	require.NoError(t, err)

	assert.Equal(t, MultisigApproveHash, m.Mode())
	assert.Equal(t, EOA(ownerA), m.Sender())
	assert.Equal(t, safeAddr, m.Target())
	assert.Equal(t, int64(5), m.Nonce().Int64())

	method, args, err := contracts.MethodBySelector(contracts.SafeABI, m.Data())
	require.NoError(t, err)
	assert.Equal(t, "approveHash", method.Name)
	assert.Equal(t, [32]byte(m.SafeTxHash()), args[0])
	assert.NotEqual(t, common.Hash{}, m.SafeTxHash())
}

func Test_NewMultisig_ExecTransaction(t *testing.T) {
	t.Parallel()

	chain := fakechain.New(100)
	safe := chain.DeploySafe(safeAddr, []common.Address{ownerA, ownerB, ownerC}, 2, 5)
	inner := signerCall(t)
	hash := safe.TransactionHash(inner.Target(), inner.Value(), inner.Data(), inner.Operation(), big.NewInt(5))
	safe.Approve(ownerC, hash)
	r := newReader(t, chain)

	m, err := NewMultisig(t.Context(), r, safeAddr, ownerA, inner, nil)
	require.NoError(t, err)
	require.Equal(t, MultisigExecTransaction, m.Mode())
	assert.Equal(t, hash, m.SafeTxHash())

	method, args, err := contracts.MethodBySelector(contracts.SafeABI, m.Data())
	require.NoError(t, err)
	assert.Equal(t, "execTransaction", method.Name)
	assert.Equal(t, inner.Target(), args[0])
	assert.Equal(t, inner.Data(), args[2])
	assert.Equal(t, inner.Operation(), args[3])

	want := make([]byte, 0, 130)
	for _, owner := range []common.Address{ownerA, ownerC} {
		want = append(want, common.LeftPadBytes(owner.Bytes(), 32)...)
		want = append(want, make([]byte, 32)...)
		want = append(want, 0x01)
	}
	assert.Equal(t, want, args[9])
}

func Test_NewMultisig_ThresholdMetWithoutSigner(t *testing.T) {
	t.Parallel()

	chain := fakechain.New(100)
	safe := chain.DeploySafe(safeAddr, []common.Address{ownerC, ownerB, ownerA}, 2, 0)
	inner := signerCall(t)
	hash := safe.TransactionHash(inner.Target(), inner.Value(), inner.Data(), inner.Operation(), big.NewInt(9))
	safe.Approve(ownerB, hash)
	safe.Approve(ownerC, hash)
	r := newReader(t, chain)

	executor := common.HexToAddress("0x00000000000000000000000000000000000000ee")
	m, err := NewMultisig(t.Context(), r, safeAddr, executor, inner, big.NewInt(9))
	require.NoError(t, err)
	assert.Equal(t, MultisigExecTransaction, m.Mode())

	_, args, err := contracts.MethodBySelector(contracts.SafeABI, m.Data())
	require.NoError(t, err)
	sigs := args[9].([]byte)
	require.Len(t, sigs, 130)
	assert.Equal(t, ownerB.Bytes(), sigs[12:32])
	assert.Equal(t, ownerC.Bytes(), sigs[65+12:65+32])
}

func Test_NewMultisig_Errors(t *testing.T) {
	t.Parallel()

	chain := fakechain.New(100)
	safe := chain.DeploySafe(safeAddr, []common.Address{ownerA, ownerB, ownerC}, 3, 1)
	inner := signerCall(t)
	hash := safe.TransactionHash(inner.Target(), inner.Value(), inner.Data(), inner.Operation(), big.NewInt(1))
	safe.Approve(ownerA, hash)
	r := newReader(t, chain)

	_, err := NewMultisig(t.Context(), r, safeAddr, ownerA, inner, nil)
	require.ErrorIs(t, err, ErrAlreadyApproved)

	stranger := common.HexToAddress("0x00000000000000000000000000000000000000dd")
	_, err = NewMultisig(t.Context(), r, safeAddr, stranger, inner, nil)
	require.ErrorIs(t, err, ErrSignerNotOwner)

	wrongSender := NewCall(vaultAddr, nil, Multisig(safeAddr), "x", nil)
	_, err = NewMultisig(t.Context(), r, safeAddr, ownerA, wrongSender, nil)
	require.ErrorIs(t, err, ErrMixedSenders)

	_, err = NewMultisig(t.Context(), r, safeAddr, ownerA, nil, nil)
	require.ErrorIs(t, err, ErrEmptyInner)
}

func timelockCalls(t *testing.T, n int) []Action {
	t.Helper()

	out := make([]Action, n)
	for i := range n {
		c, err := NewUpdatePlatformFee(vaultAddr, uint16(i+1), Timelock(timelockAddr))
		require.NoError(t, err)
		out[i] = c
	}

	return out
}

func Test_NewTimelock(t *testing.T) {
	t.Parallel()

	inner := timelockCalls(t, 3)
	targets := []common.Address{vaultAddr, vaultAddr, vaultAddr}
	values := []*big.Int{big.NewInt(0), big.NewInt(0), big.NewInt(0)}
	payloads := [][]byte{inner[0].Data(), inner[1].Data(), inner[2].Data()}

	tests := []struct {
		name      string
		setup     func(tl *fakechain.Timelock)
		delay     *big.Int
		admin     SenderType
		wantMode  TimelockMode
		wantDelay int64
		wantErr   error
	}{
		{name: "propose with min delay", admin: Multisig(safeAddr), wantMode: TimelockPropose, wantDelay: 3600},
		{name: "propose with longer delay", delay: big.NewInt(7200), admin: EOA(ownerA), wantMode: TimelockPropose, wantDelay: 7200},
		{name: "delay below minimum", delay: big.NewInt(60), admin: Multisig(safeAddr), wantErr: ErrDelayBelowMinimum},
		{
			name:     "ready operation executes",
			setup:    func(tl *fakechain.Timelock) { tl.SetReady(tl.OperationID(targets, values, payloads)) },
			admin:    Multisig(safeAddr),
			wantMode: TimelockExecute, wantDelay: 3600,
		},
		{
			name:    "pending operation fails",
			setup:   func(tl *fakechain.Timelock) { tl.SetPending(tl.OperationID(targets, values, payloads)) },
			admin:   Multisig(safeAddr),
			wantErr: ErrOperationPending,
		},
		{name: "signer admin", admin: Signer(safeAddr), wantErr: ErrInvalidTimelockAdmin},
		{name: "timelock admin", admin: Timelock(safeAddr), wantErr: ErrInvalidTimelockAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			chain := fakechain.New(100)
			tl := chain.DeployTimelock(timelockAddr, 3600)
			if tt.setup != nil {
				tt.setup(tl)
			}
			r := newReader(t, chain)

			batch, err := NewTimelock(t.Context(), r, inner, tt.delay, tt.admin)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, tt.wantMode, batch.Mode())
			assert.Equal(t, tt.admin, batch.Sender())
			assert.Equal(t, timelockAddr, batch.Target())
			assert.Equal(t, tt.wantDelay, batch.Delay().Int64())
			assert.Equal(t, tl.OperationID(targets, values, payloads), batch.OperationID())

			method, args, err := contracts.MethodBySelector(contracts.TimelockABI, batch.Data())
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode.String(), method.Name)
			assert.Equal(t, targets, args[0])
			assert.Equal(t, payloads, args[2])
			if tt.wantMode == TimelockPropose {
				assert.Equal(t, tt.wantDelay, args[5].(*big.Int).Int64())
			} else {
				assert.Len(t, args, 5)
			}
		})
	}
}

func Test_NewTimelock_InvalidInner(t *testing.T) {
	t.Parallel()

	r := newReader(t, fakechain.New(1))

	_, err := NewTimelock(t.Context(), r, nil, nil, Multisig(safeAddr))
	require.ErrorIs(t, err, ErrEmptyInner)

	mixed := append(timelockCalls(t, 1), NewCall(vaultAddr, nil, Timelock(ownerA), "x", nil))
	_, err = NewTimelock(t.Context(), r, mixed, nil, Multisig(safeAddr))
	require.ErrorIs(t, err, ErrMixedSenders)

	notTimelock := []Action{NewCall(vaultAddr, nil, Multisig(safeAddr), "x", nil)}
	_, err = NewTimelock(t.Context(), r, notTimelock, nil, Multisig(safeAddr))
	require.ErrorIs(t, err, ErrMixedSenders)
}

func Test_NewBundler(t *testing.T) {
	t.Parallel()

	bundler := common.HexToAddress("0x00000000000000000000000000000000000b0d1e")
	a := NewCall(vaultAddr, []byte{1}, EOA(ownerA), "a", nil, WithValue(big.NewInt(2)))
	b := NewCall(safeAddr, []byte{2}, EOA(ownerA), "b", nil)

	bun, err := NewBundler(bundler, []Action{a, b})
	require.NoError(t, err)
	assert.Equal(t, bundler, bun.Target())
	assert.Equal(t, EOA(ownerA), bun.Sender())
	assert.Equal(t, DefaultMetaPriority, bun.Priority())
	assert.Equal(t, OperationDelegateCall, bun.Operation())
	assert.Equal(t, int64(2), bun.Value().Int64())
	assert.True(t, bytes.HasPrefix(bun.Data(), contracts.BundlerABI.Methods["bundleTxs"].ID))

	_, err = NewBundler(bundler, []Action{a, NewCall(vaultAddr, nil, EOA(ownerB), "c", nil)})
	require.ErrorIs(t, err, ErrMixedSenders)

	_, err = NewBundler(bundler, []Action{NewCall(vaultAddr, nil, Multisig(safeAddr), "c", nil)})
	require.ErrorIs(t, err, ErrMixedSenders)
}
