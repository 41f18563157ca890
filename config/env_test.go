package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:paralleltest // t.Setenv does not allow parallel tests
func Test_LoadEnv(t *testing.T) {
	t.Setenv("TENDERLY_ACCESS_KEY", "secret")
	t.Setenv("TENDERLY_ACCOUNT_SLUG", "acct")
	t.Setenv("TENDERLY_PROJECT_SLUG", "proj")

	got, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, TenderlyConfig{
		AccessKey:   "secret",
		AccountSlug: "acct",
		ProjectSlug: "proj",
	}, got.Tenderly)
}

//nolint:paralleltest // t.Setenv does not allow parallel tests
func Test_LoadEnv_Unset(t *testing.T) {
	t.Setenv("TENDERLY_ACCESS_KEY", "")
	t.Setenv("TENDERLY_ACCOUNT_SLUG", "")
	t.Setenv("TENDERLY_PROJECT_SLUG", "")

	got, err := LoadEnv()
	require.NoError(t, err)
	assert.Empty(t, got.Tenderly.AccessKey)
}
