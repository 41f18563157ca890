package output

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/vault-admin/actions"
	"github.com/smartcontractkit/vault-admin/chain/evm/viewreader"
	"github.com/smartcontractkit/vault-admin/internal/testutils/fakechain"
	"github.com/smartcontractkit/vault-admin/pkg/logger"
)

var (
	safeAddr     = common.HexToAddress("0x00000000000000000000000000000000000005af")
	vaultAddr    = common.HexToAddress("0xf0bb20865277aBd641a307eCe5Ee04E79073416C")
	executorAddr = common.HexToAddress("0x00000000000000000000000000000000000000ee")
)

func Test_FromAction_Multisig(t *testing.T) {
	t.Parallel()

	chain := fakechain.New(1)
	chain.DeploySafe(safeAddr, []common.Address{executorAddr}, 1, 12)
	r, err := viewreader.New(t.Context(), logger.Test(t), chain, viewreader.WithRetryDelay(time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(r.Close)

	inner := actions.NewCall(vaultAddr, []byte{0xde, 0xad}, actions.Signer(safeAddr), "x", nil, actions.WithValue(big.NewInt(42)))
	env, err := actions.NewMultisig(t.Context(), r, safeAddr, executorAddr, inner, nil)
	require.NoError(t, err)

	got, err := FromAction(1, env)
	require.NoError(t, err)
	assert.Equal(t, SimulationConfig{
		NetworkID: 1,
		Multisig:  safeAddr,
		To:        vaultAddr,
		Value:     "42",
		Data:      []byte{0xde, 0xad},
		Operation: actions.OperationCall,
		Nonce:     12,
	}, got)
	require.NoError(t, got.Validate())
}

func Test_FromAction_Direct(t *testing.T) {
	t.Parallel()

	a := actions.NewCall(vaultAddr, []byte{1}, actions.EOA(executorAddr), "x", nil)
	got, err := FromAction(10, a)
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, got.Multisig)
	assert.Equal(t, vaultAddr, got.To)
	assert.Equal(t, "0", got.Value)
	assert.ErrorIs(t, got.Validate(), ErrInvalidConfig)
}

func Test_WriteAll_Load(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "output")
	configs := []SimulationConfig{
		{NetworkID: 1, Multisig: safeAddr, To: vaultAddr, Value: "0", Data: []byte{1, 2}, Nonce: 3},
		{NetworkID: 1, Multisig: safeAddr, To: vaultAddr, Value: "1000000000000000000000", Operation: 1, Nonce: 4},
	}

	paths, err := WriteAll(dir, configs)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "tx_0.json"), filepath.Join(dir, "tx_1.json")}, paths)

	b, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"network_id": 1,
		"multisig": "0x00000000000000000000000000000000000005af",
		"to": "0xf0bb20865277abd641a307ece5ee04e79073416c",
		"value": "0",
		"data": "0x0102",
		"operation": 0,
		"nonce": 3
	}`, string(b))

	for i, p := range paths {
		got, err := Load(p)
		require.NoError(t, err)
		assert.Equal(t, configs[i].Nonce, got.Nonce)
		assert.Equal(t, configs[i].Value, got.Value)
	}

	v, err := configs[1].BigValue()
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000000", v.String())
}

func Test_Load_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"multisig":"0x00000000000000000000000000000000000005af","value":"-1"}`), 0o600))

	_, err := Load(bad)
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Load(filepath.Join(dir, "missing.json"))
	require.ErrorContains(t, err, "failed to read")
}

func Test_LoadFromFS(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"ok.json":  {Data: []byte(`{"nonce":7}`)},
		"bad.json": {Data: []byte(`{`)},
	}

	got, err := LoadFromFS[SimulationConfig](fsys, "ok.json")
	require.NoError(t, err)
	assert.Equal(t, uint32(7), got.Nonce)

	_, err = LoadFromFS[SimulationConfig](fsys, "bad.json")
	require.ErrorContains(t, err, "failed to unmarshal JSON at path bad.json")
}
