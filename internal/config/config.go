// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rovshanmuradov/tokenfarm/internal/logger"
	"github.com/rovshanmuradov/tokenfarm/internal/token"
	"github.com/rovshanmuradov/tokenfarm/internal/types"
)

// Config is the deployment description of a farm: who owns it, the reward
// token, the pools, the market and where state and logs go.
//
// Token amounts are decimal strings in whole tokens ("1000", "0.5") and are
// scaled by token.decimals.
type Config struct {
	GenesisBlock uint64        `mapstructure:"genesis_block"`
	Roles        RolesConfig   `mapstructure:"roles"`
	Token        TokenConfig   `mapstructure:"token"`
	Farm         FarmConfig    `mapstructure:"farm"`
	Dex          DexConfig     `mapstructure:"dex"`
	Store        StoreConfig   `mapstructure:"store"`
	Journal      JournalConfig `mapstructure:"journal"`
	Metrics      MetricsConfig `mapstructure:"metrics"`
	Log          logger.Config `mapstructure:"log"`
}

// RolesConfig names the deployer and the optional day-to-day operator of
// the pool registry.
type RolesConfig struct {
	Owner    string `mapstructure:"owner"`
	Operator string `mapstructure:"operator"`
}

// TokenConfig describes the reward token and its transfer policy.
type TokenConfig struct {
	Name                  string       `mapstructure:"name"`
	Symbol                string       `mapstructure:"symbol"`
	Decimals              uint8        `mapstructure:"decimals"`
	Cap                   string       `mapstructure:"cap"`
	GenesisBurn           string       `mapstructure:"genesis_burn"`
	TransferTaxRate       uint64       `mapstructure:"transfer_tax_rate"`
	BurnRate              uint64       `mapstructure:"burn_rate"`
	MaxTransferAmountRate uint64       `mapstructure:"max_transfer_amount_rate"`
	SwapAndLiquifyEnabled bool         `mapstructure:"swap_and_liquify_enabled"`
	MinAmountToLiquify    string       `mapstructure:"min_amount_to_liquify"`
	Allocations           []Allocation `mapstructure:"allocations"`
}

// Allocation is a mint made before the registry takes over the token.
type Allocation struct {
	Address string `mapstructure:"address"`
	Amount  string `mapstructure:"amount"`
	// Lock sends the allocation to the locker instead of Address.
	Lock bool `mapstructure:"lock"`
}

// Pool stake keywords. Anything else is rejected.
const (
	StakeToken = "token"
	StakeLP    = "lp"
)

// FarmConfig describes the pool registry.
type FarmConfig struct {
	RewardPerBlock         string       `mapstructure:"reward_per_block"`
	StartBlock             uint64       `mapstructure:"start_block"`
	DevAddress             string       `mapstructure:"dev_address"`
	FeeAddress             string       `mapstructure:"fee_address"`
	ReferralCommissionRate uint64       `mapstructure:"referral_commission_rate"`
	Pools                  []PoolConfig `mapstructure:"pools"`
}

// PoolConfig is one pool added at bootstrap.
type PoolConfig struct {
	Stake          string `mapstructure:"stake"`
	Weight         uint64 `mapstructure:"weight"`
	DepositFeeRate uint64 `mapstructure:"deposit_fee_rate"`
}

// DexConfig seeds the token/base market used for liquify and trading.
type DexConfig struct {
	FeeBps        uint64 `mapstructure:"fee_bps"`
	InitialTokens string `mapstructure:"initial_tokens"`
	InitialBase   string `mapstructure:"initial_base"`
	// LockLiquidity sends the bootstrap LP shares to the locker.
	LockLiquidity bool `mapstructure:"lock_liquidity"`
}

// StoreConfig locates the snapshot database.
type StoreConfig struct {
	Path        string        `mapstructure:"path"`
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
	Retries     int           `mapstructure:"retries"`
}

// JournalConfig enables the CSV event journal.
type JournalConfig struct {
	Path          string        `mapstructure:"path"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// MetricsConfig enables the Prometheus endpoint of long-running commands.
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

const (
	DefaultDecimals       = 18
	DefaultRewardPerBlock = "10"
	DefaultDexFeeBps      = 25
	DefaultStorePath      = "tokenfarm.db"
	DefaultOpenTimeout    = time.Second
	DefaultStoreRetries   = 3
	DefaultFlushInterval  = 5 * time.Second

	envPrefix = "TOKENFARM"
)

// LoadConfig reads path, applies defaults and TOKENFARM_* environment
// overrides (TOKENFARM_FARM_REWARD_PER_BLOCK overrides farm.reward_per_block)
// and validates the result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return &cfg, cfg.Validate()
}

// Default returns the built-in configuration for owner, as written by
// `farmctl init`.
func Default(owner types.Address) *Config {
	tok := token.DefaultConfig()
	log := logger.DefaultConfig()
	return &Config{
		GenesisBlock: 1,
		Roles:        RolesConfig{Owner: owner.String()},
		Token: TokenConfig{
			Name:                  tok.Name,
			Symbol:                tok.Symbol,
			Decimals:              tok.Decimals,
			Cap:                   types.FormatUnits(tok.Cap, tok.Decimals),
			GenesisBurn:           types.FormatUnits(tok.GenesisBurn, tok.Decimals),
			TransferTaxRate:       tok.Policy.TransferTaxRate,
			BurnRate:              tok.Policy.BurnRate,
			MaxTransferAmountRate: tok.Policy.MaxTransferAmountRate,
			SwapAndLiquifyEnabled: tok.Policy.SwapAndLiquifyEnabled,
			MinAmountToLiquify:    types.FormatUnits(tok.Policy.MinAmountToLiquify, tok.Decimals),
		},
		Farm: FarmConfig{
			RewardPerBlock:         DefaultRewardPerBlock,
			StartBlock:             1,
			DevAddress:             owner.String(),
			FeeAddress:             owner.String(),
			ReferralCommissionRate: 100,
			Pools: []PoolConfig{
				{Stake: StakeToken, Weight: 1000},
				{Stake: StakeLP, Weight: 3000},
			},
		},
		Dex: DexConfig{
			FeeBps:        DefaultDexFeeBps,
			InitialTokens: "1000000",
			InitialBase:   "1000",
		},
		Store: StoreConfig{
			Path:        DefaultStorePath,
			OpenTimeout: DefaultOpenTimeout,
			Retries:     DefaultStoreRetries,
		},
		Journal: JournalConfig{FlushInterval: DefaultFlushInterval},
		Log:     *log,
	}
}

// Save writes cfg to path; the format follows the file extension.
func Save(cfg *Config, path string) error {
	v := viper.New()
	for key, value := range cfg.settings() {
		v.Set(key, value)
	}
	return v.WriteConfigAs(path)
}

func setDefaults(v *viper.Viper) {
	log := logger.DefaultConfig()
	tok := token.DefaultConfig()
	defaults := map[string]interface{}{
		"genesis_block":                  1,
		"roles.owner":                    "",
		"roles.operator":                 "",
		"token.name":                     tok.Name,
		"token.symbol":                   tok.Symbol,
		"token.decimals":                 DefaultDecimals,
		"token.cap":                      types.FormatUnits(tok.Cap, tok.Decimals),
		"token.genesis_burn":             "0",
		"token.transfer_tax_rate":        tok.Policy.TransferTaxRate,
		"token.burn_rate":                tok.Policy.BurnRate,
		"token.max_transfer_amount_rate": tok.Policy.MaxTransferAmountRate,
		"token.swap_and_liquify_enabled": false,
		"token.min_amount_to_liquify":    types.FormatUnits(tok.Policy.MinAmountToLiquify, tok.Decimals),
		"farm.reward_per_block":          DefaultRewardPerBlock,
		"farm.start_block":               1,
		"farm.dev_address":               "",
		"farm.fee_address":               "",
		"farm.referral_commission_rate":  100,
		"dex.fee_bps":                    DefaultDexFeeBps,
		"dex.initial_tokens":             "0",
		"dex.initial_base":               "0",
		"dex.lock_liquidity":             false,
		"store.path":                     DefaultStorePath,
		"store.open_timeout":             DefaultOpenTimeout,
		"store.retries":                  DefaultStoreRetries,
		"journal.path":                   "",
		"journal.flush_interval":         DefaultFlushInterval,
		"metrics.listen":                 "",
		"log.file":                       log.File,
		"log.level":                      log.Level,
		"log.max_size":                   log.MaxSize,
		"log.max_age":                    log.MaxAge,
		"log.max_backups":                log.MaxBackups,
		"log.compress":                   log.Compress,
		"log.development":                false,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

func (c *Config) settings() map[string]interface{} {
	allocs := make([]map[string]interface{}, 0, len(c.Token.Allocations))
	for _, a := range c.Token.Allocations {
		allocs = append(allocs, map[string]interface{}{"address": a.Address, "amount": a.Amount, "lock": a.Lock})
	}
	pools := make([]map[string]interface{}, 0, len(c.Farm.Pools))
	for _, p := range c.Farm.Pools {
		pools = append(pools, map[string]interface{}{"stake": p.Stake, "weight": p.Weight, "deposit_fee_rate": p.DepositFeeRate})
	}
	return map[string]interface{}{
		"genesis_block":                  c.GenesisBlock,
		"roles.owner":                    c.Roles.Owner,
		"roles.operator":                 c.Roles.Operator,
		"token.name":                     c.Token.Name,
		"token.symbol":                   c.Token.Symbol,
		"token.decimals":                 c.Token.Decimals,
		"token.cap":                      c.Token.Cap,
		"token.genesis_burn":             c.Token.GenesisBurn,
		"token.transfer_tax_rate":        c.Token.TransferTaxRate,
		"token.burn_rate":                c.Token.BurnRate,
		"token.max_transfer_amount_rate": c.Token.MaxTransferAmountRate,
		"token.swap_and_liquify_enabled": c.Token.SwapAndLiquifyEnabled,
		"token.min_amount_to_liquify":    c.Token.MinAmountToLiquify,
		"token.allocations":              allocs,
		"farm.reward_per_block":          c.Farm.RewardPerBlock,
		"farm.start_block":               c.Farm.StartBlock,
		"farm.dev_address":               c.Farm.DevAddress,
		"farm.fee_address":               c.Farm.FeeAddress,
		"farm.referral_commission_rate":  c.Farm.ReferralCommissionRate,
		"farm.pools":                     pools,
		"dex.fee_bps":                    c.Dex.FeeBps,
		"dex.initial_tokens":             c.Dex.InitialTokens,
		"dex.initial_base":               c.Dex.InitialBase,
		"dex.lock_liquidity":             c.Dex.LockLiquidity,
		"store.path":                     c.Store.Path,
		"store.open_timeout":             c.Store.OpenTimeout.String(),
		"store.retries":                  c.Store.Retries,
		"journal.path":                   c.Journal.Path,
		"journal.flush_interval":         c.Journal.FlushInterval.String(),
		"metrics.listen":                 c.Metrics.Listen,
		"log.file":                       c.Log.File,
		"log.level":                      c.Log.Level,
		"log.max_size":                   c.Log.MaxSize,
		"log.max_age":                    c.Log.MaxAge,
		"log.max_backups":                c.Log.MaxBackups,
		"log.compress":                   c.Log.Compress,
		"log.development":                c.Log.Development,
	}
}
