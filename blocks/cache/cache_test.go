package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	vaultA = common.HexToAddress("0xf0bb20865277aBd641a307eCe5Ee04E79073416C")
	vaultB = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func Test_Cache_Set(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		first      Value
		second     Value
		wantErr    bool
		wantOrigin string
	}{
		{name: "equal value is accepted", first: Address(vaultA), second: Address(vaultA), wantOrigin: "global-0"},
		{name: "different address conflicts", first: Address(vaultA), second: Address(vaultB), wantErr: true},
		{name: "different type conflicts", first: U32(1), second: U8(1), wantErr: true},
		{name: "bool equal", first: Bool(true), second: Bool(true), wantOrigin: "global-0"},
		{name: "string differs", first: String("a"), second: String("b"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := New()
			require.NoError(t, c.Set("k", tt.first, "global-0"))

			err := c.Set("k", tt.second, "global-1")
			if tt.wantErr {
				require.ErrorIs(t, err, ErrCacheConflict)

				var conflict *ConflictError
				require.ErrorAs(t, err, &conflict)
				assert.Equal(t, "k", conflict.Key)
				assert.Equal(t, tt.first, conflict.Existing)
				assert.Equal(t, "global-0", conflict.ExistingOrigin)
				assert.Equal(t, tt.second, conflict.Incoming)
				assert.Equal(t, "global-1", conflict.IncomingOrigin)
			} else {
				require.NoError(t, err)
				origin, ok := c.Origin("k")
				require.True(t, ok)
				assert.Equal(t, tt.wantOrigin, origin)
			}

			// the first value is never replaced
			got, ok := c.Get("k")
			require.True(t, ok)
			assert.Equal(t, tt.first, got)
		})
	}
}

func Test_ConflictError_Message(t *testing.T) {
	t.Parallel()

	c := New()
	require.NoError(t, c.Set("boring_vault", Address(vaultA), "Global[0]"))
	err := c.Set("boring_vault", Address(vaultB), "Global[1]")

	require.ErrorContains(t, err, vaultA.Hex())
	require.ErrorContains(t, err, vaultB.Hex())
	require.ErrorContains(t, err, "Global[0]")
	require.ErrorContains(t, err, "Global[1]")
}

func Test_Cache_TypedAccessors(t *testing.T) {
	t.Parallel()

	c := New()
	require.NoError(t, c.Set("boring_vault", Address(vaultA), "test"))
	require.NoError(t, c.Set("network_id", U32(1), "test"))

	addr, ok := c.GetAddress("boring_vault")
	require.True(t, ok)
	assert.Equal(t, vaultA, addr)

	_, ok = c.GetAddress("network_id")
	assert.False(t, ok)

	_, ok = c.GetAddress("missing")
	assert.False(t, ok)

	id, ok := c.GetU32("network_id")
	require.True(t, ok)
	assert.Equal(t, uint32(1), id)

	assert.True(t, c.HasKey("network_id"))
	assert.Equal(t, []string{"boring_vault", "network_id"}, c.Keys())

	c.Clear()
	assert.Empty(t, c.Keys())
}

func Test_Cache_RejectsNil(t *testing.T) {
	t.Parallel()

	require.Error(t, New().Set("k", nil, "test"))
}

func Test_Cache_ConcurrentWriters(t *testing.T) {
	t.Parallel()

	c := New()
	var wg sync.WaitGroup
	errs := make(chan error, 64)

	for i := range 32 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs <- c.Set("shared", Address(vaultA), fmt.Sprintf("writer-%d", i))
		}()
		go func() {
			defer wg.Done()
			_ = c.HasKey("shared")
			errs <- c.Set(fmt.Sprintf("own-%d", i), U32(uint32(i)), "writer")
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	got, ok := c.GetAddress("shared")
	require.True(t, ok)
	assert.Equal(t, vaultA, got)
	assert.Len(t, c.Keys(), 33)
}
