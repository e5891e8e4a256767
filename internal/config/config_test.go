package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	owner := types.NewAccount()
	path := writeFile(t, "farm.yaml", `
roles:
  owner: `+owner.String()+`
token:
  symbol: CAKE
  cap: "1000000"
farm:
  reward_per_block: "2.5"
  pools:
    - stake: token
      weight: 1000
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "CAKE", cfg.Token.Symbol)
	assert.Equal(t, uint8(DefaultDecimals), cfg.Token.Decimals)
	assert.Equal(t, uint64(500), cfg.Token.TransferTaxRate)
	assert.Equal(t, DefaultStorePath, cfg.Store.Path)
	assert.Equal(t, DefaultOpenTimeout, cfg.Store.OpenTimeout)
	assert.Equal(t, "info", cfg.Log.Level)

	d, err := cfg.Deployment()
	require.NoError(t, err)
	assert.Equal(t, owner, d.Owner)
	assert.Equal(t, owner, d.DevAddress)
	assert.Equal(t, owner, d.FeeAddress)
	assert.Equal(t, "2500000000000000000", types.FormatAmount(d.RewardPerBlock))
	assert.Equal(t, "1000000000000000000000000", types.FormatAmount(d.Token.Cap))
	require.Len(t, d.Pools, 1)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	owner := types.NewAccount()
	path := writeFile(t, "farm.yaml", `
roles:
  owner: `+owner.String()+`
token:
  symbol: CAKE
farm:
  reward_per_block: "1"
`)
	t.Setenv("TOKENFARM_FARM_REWARD_PER_BLOCK", "40")
	t.Setenv("TOKENFARM_STORE_PATH", "/tmp/other.db")
	t.Setenv("TOKENFARM_JOURNAL_FLUSH_INTERVAL", "250ms")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "40", cfg.Farm.RewardPerBlock)
	assert.Equal(t, "/tmp/other.db", cfg.Store.Path)
	assert.Equal(t, 250*time.Millisecond, cfg.Journal.FlushInterval)
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := Default(types.NewAccount())
	cfg.Roles.Operator = "not-base58!"
	cfg.Token.TransferTaxRate = 5000
	cfg.Farm.ReferralCommissionRate = 2000
	cfg.Farm.Pools = append(cfg.Farm.Pools, PoolConfig{Stake: "nft", Weight: 1})
	cfg.Dex.InitialBase = "0"

	err := cfg.Validate()
	require.Error(t, err)
	errs := multierr.Errors(err)
	assert.Len(t, errs, 5)
	assert.ErrorIs(t, err, types.ErrInvalidParameter)
}

func TestValidate_CapCoversGenesisMints(t *testing.T) {
	cfg := Default(types.NewAccount())
	cfg.Token.Cap = "1000"
	cfg.Token.GenesisBurn = "500"
	cfg.Dex.InitialTokens = "400"
	cfg.Token.Allocations = []Allocation{{Amount: "200", Lock: true}}

	err := cfg.Validate()
	assert.ErrorIs(t, err, types.ErrSupplyCapExceeded)
}

func TestValidate_RequiresOwner(t *testing.T) {
	cfg := Default(types.ZeroAddress)
	cfg.Roles.Owner = ""
	cfg.Farm.DevAddress = ""
	cfg.Farm.FeeAddress = ""
	err := cfg.Validate()
	assert.ErrorContains(t, err, "roles.owner is required")
}

func TestSave_RoundTrip(t *testing.T) {
	owner := types.NewAccount()
	cfg := Default(owner)
	cfg.Token.Allocations = []Allocation{{Address: types.NewAccount().String(), Amount: "10"}}
	cfg.Journal.Path = "events.csv"
	path := filepath.Join(t.TempDir(), "farm.yaml")
	require.NoError(t, Save(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Roles, loaded.Roles)
	assert.Equal(t, cfg.Token, loaded.Token)
	assert.Equal(t, cfg.Farm, loaded.Farm)
	assert.Equal(t, cfg.Dex, loaded.Dex)
	assert.Equal(t, cfg.Store, loaded.Store)
	assert.Equal(t, cfg.Journal, loaded.Journal)
}
