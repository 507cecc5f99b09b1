package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/volumebot/internal/adapters/chain"
	"github.com/bnema/volumebot/internal/adapters/oracle/coingecko"
	"github.com/bnema/volumebot/internal/application"
	"github.com/bnema/volumebot/internal/domain"
	"github.com/bnema/volumebot/internal/logging"
	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	configName    = "config"
	configType    = "toml"
	configDirName = ".vbot"
	envPrefix     = "VBOT"

	DefaultRPCURL  = "https://api.mainnet-beta.solana.com"
	storeFileName  = "sessions.enc"
	secretsDirName = "secrets"
)

const (
	keyDataDir       = "data_dir"
	keyTelegramToken = "telegram_token"
	keyAdminUsername = "admin_username"
	keyRPCURL        = "rpc_url"
	keyFeeWallet     = "fee_wallet"
	keyDBKey         = "db_key"
	keyStorePath     = "store.path"
	keySecretsDir    = "secrets.dir"
	keyPassStoreDir  = "secrets.pass_dir"
	keyPollInterval  = "scheduler.poll_interval"
	keyRefresh       = "scheduler.refresh_interval"
	keyMinDepositSOL = "scheduler.min_deposit_sol"
	keyStopRatio     = "scheduler.stop_ratio"
	keyReserveRatio  = "distribution.reserve_ratio"
	keyFeeEnabled    = "distribution.fee_enabled"
	keyFeeRatio      = "distribution.fee_ratio"
	keyPacing        = "cycle.pacing"
	keySizing        = "cycle.sizing"
	keySpendFraction = "cycle.spend_fraction"
	keySellFraction  = "cycle.sell_fraction"
	keySwapURL       = "swap.url"
	keySwapSlippage  = "swap.slippage_pct"
	keySwapPriority  = "swap.priority_fee_sol"
	keySwapTimeout   = "swap.timeout"
	keyOracleURL     = "oracle.url"
	keyOracleAPIKey  = "oracle.api_key"
	keyOracleTimeout = "oracle.timeout"
	keyLogLevel      = "log.level"
	keyLogFile       = "log.file"
	keyLogMaxSizeMB  = "log.max_size_mb"
	keyLogMaxBackups = "log.max_backups"
	keyLogMaxAgeDays = "log.max_age_days"
	keyLogCompress   = "log.compress"
)

type Config struct {
	DataDir       string
	TelegramToken string
	AdminUsername string
	RPCURL        string
	FeeWallet     solana.PublicKey

	// DBKey is either the literal store key or a pass://, file:// or env://
	// reference to it.
	DBKey        string
	StorePath    string
	SecretsDir   string
	PassStoreDir string

	Scheduler application.SchedulerConfig
	Swap      chain.SwapConfig
	Oracle    coingecko.Config
	Log       logging.Config
}

// LoadDotEnv loads ./.env into the process environment. A missing file is
// not an error.
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load reads $HOME/.vbot/config.toml when present and overlays VBOT_*
// environment variables. The bare names TELEGRAM_TOKEN, ADMIN_USERNAME,
// RPC_URL, DB_KEY and FEE_WALLET are honoured too.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}
	defaultDataDir := filepath.Join(homeDir, configDirName)

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(defaultDataDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, defaultDataDir)
	if err := bindLegacyEnv(v); err != nil {
		return Config{}, err
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	return decode(v)
}

func setDefaults(v *viper.Viper, dataDir string) {
	sched := application.DefaultSchedulerConfig()
	cycle := domain.DefaultCyclePolicy()

	v.SetDefault(keyDataDir, dataDir)
	v.SetDefault(keyRPCURL, DefaultRPCURL)
	v.SetDefault(keyPollInterval, sched.PollInterval)
	v.SetDefault(keyRefresh, sched.RefreshInterval)
	v.SetDefault(keyMinDepositSOL, domain.SOL(sched.MinDeposit).String())
	v.SetDefault(keyStopRatio, sched.StopRatio.String())
	v.SetDefault(keyReserveRatio, domain.DefaultReserveRatio.String())
	v.SetDefault(keyFeeEnabled, true)
	v.SetDefault(keyFeeRatio, domain.DefaultFeeRatio.String())
	v.SetDefault(keyPacing, string(cycle.Pacing))
	v.SetDefault(keySizing, string(cycle.Sizing))
	v.SetDefault(keySpendFraction, cycle.SpendFraction.String())
	v.SetDefault(keySellFraction, cycle.SellFraction.String())
	v.SetDefault(keySwapURL, chain.DefaultSwapURL)
	v.SetDefault(keySwapSlippage, chain.DefaultSlippagePct)
	v.SetDefault(keySwapPriority, chain.DefaultPriorityFeeSOL)
	v.SetDefault(keySwapTimeout, 30*time.Second)
	v.SetDefault(keyOracleURL, coingecko.DefaultBaseURL)
	v.SetDefault(keyOracleTimeout, 15*time.Second)
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogMaxSizeMB, 50)
	v.SetDefault(keyLogMaxBackups, 5)
	v.SetDefault(keyLogMaxAgeDays, 14)
}

func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string]string{
		keyTelegramToken: "TELEGRAM_TOKEN",
		keyAdminUsername: "ADMIN_USERNAME",
		keyRPCURL:        "RPC_URL",
		keyDBKey:         "DB_KEY",
		keyFeeWallet:     "FEE_WALLET",
	}
	for key, legacy := range bindings {
		prefixed := envPrefix + "_" + strings.ToUpper(key)
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return fmt.Errorf("bind env %s: %w", legacy, err)
		}
	}
	return nil
}

func decode(v *viper.Viper) (Config, error) {
	dataDir, err := absPath(v.GetString(keyDataDir))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DataDir:       dataDir,
		TelegramToken: strings.TrimSpace(v.GetString(keyTelegramToken)),
		AdminUsername: strings.TrimPrefix(strings.TrimSpace(v.GetString(keyAdminUsername)), "@"),
		RPCURL:        strings.TrimSpace(v.GetString(keyRPCURL)),
		DBKey:         strings.TrimSpace(v.GetString(keyDBKey)),
		StorePath:     v.GetString(keyStorePath),
		SecretsDir:    v.GetString(keySecretsDir),
		PassStoreDir:  v.GetString(keyPassStoreDir),
		Swap: chain.SwapConfig{
			BaseURL:        v.GetString(keySwapURL),
			SlippagePct:    v.GetFloat64(keySwapSlippage),
			PriorityFeeSOL: v.GetFloat64(keySwapPriority),
			Timeout:        v.GetDuration(keySwapTimeout),
		},
		Oracle: coingecko.Config{
			BaseURL: v.GetString(keyOracleURL),
			APIKey:  v.GetString(keyOracleAPIKey),
			Timeout: v.GetDuration(keyOracleTimeout),
		},
		Log: logging.Config{
			Level:      v.GetString(keyLogLevel),
			File:       v.GetString(keyLogFile),
			MaxSizeMB:  v.GetInt(keyLogMaxSizeMB),
			MaxBackups: v.GetInt(keyLogMaxBackups),
			MaxAgeDays: v.GetInt(keyLogMaxAgeDays),
			Compress:   v.GetBool(keyLogCompress),
		},
	}

	if cfg.StorePath == "" {
		cfg.StorePath = filepath.Join(dataDir, storeFileName)
	}
	if cfg.StorePath, err = absPath(cfg.StorePath); err != nil {
		return Config{}, err
	}
	if cfg.SecretsDir == "" {
		cfg.SecretsDir = filepath.Join(dataDir, secretsDirName)
	}

	if raw := strings.TrimSpace(v.GetString(keyFeeWallet)); raw != "" {
		wallet, err := solana.PublicKeyFromBase58(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%w: fee wallet %q: %v", domain.ErrInvalidConfig, raw, err)
		}
		cfg.FeeWallet = wallet
	}

	sched, err := schedulerConfig(v)
	if err != nil {
		return Config{}, err
	}
	cfg.Scheduler = sched

	return cfg, nil
}

func schedulerConfig(v *viper.Viper) (application.SchedulerConfig, error) {
	minDeposit, err := decimalValue(v, keyMinDepositSOL)
	if err != nil {
		return application.SchedulerConfig{}, err
	}
	if minDeposit.IsNegative() {
		return application.SchedulerConfig{}, fmt.Errorf("%w: %s must not be negative", domain.ErrInvalidConfig, keyMinDepositSOL)
	}

	stopRatio, err := decimalValue(v, keyStopRatio)
	if err != nil {
		return application.SchedulerConfig{}, err
	}
	reserve, err := decimalValue(v, keyReserveRatio)
	if err != nil {
		return application.SchedulerConfig{}, err
	}
	feeRatio, err := decimalValue(v, keyFeeRatio)
	if err != nil {
		return application.SchedulerConfig{}, err
	}
	spend, err := decimalValue(v, keySpendFraction)
	if err != nil {
		return application.SchedulerConfig{}, err
	}
	sell, err := decimalValue(v, keySellFraction)
	if err != nil {
		return application.SchedulerConfig{}, err
	}
	pacing, err := domain.ParsePacingMode(v.GetString(keyPacing))
	if err != nil {
		return application.SchedulerConfig{}, err
	}
	sizing, err := domain.ParseBuySizing(v.GetString(keySizing))
	if err != nil {
		return application.SchedulerConfig{}, err
	}

	cfg := application.SchedulerConfig{
		PollInterval:    v.GetDuration(keyPollInterval),
		RefreshInterval: v.GetDuration(keyRefresh),
		MinDeposit:      minDeposit.Mul(decimal.NewFromInt(domain.LamportsPerSOL)).Floor().BigInt().Uint64(),
		StopRatio:       stopRatio,
		Distribution: domain.DistributionPolicy{
			ReserveRatio: reserve,
			Fee:          domain.FeePolicy{Enabled: v.GetBool(keyFeeEnabled), Ratio: feeRatio},
		},
		Cycle: domain.CyclePolicy{
			Pacing:        pacing,
			Sizing:        sizing,
			SpendFraction: spend,
			SellFraction:  sell,
		},
	}
	if err := cfg.Validate(); err != nil {
		return application.SchedulerConfig{}, err
	}
	return cfg, nil
}

// Validate checks what serve needs beyond the defaults.
func (c Config) Validate() error {
	var errs []error
	if c.TelegramToken == "" {
		errs = append(errs, fmt.Errorf("%w: telegram token is required", domain.ErrInvalidConfig))
	}
	if c.DBKey == "" {
		errs = append(errs, fmt.Errorf("%w: store key is required", domain.ErrInvalidConfig))
	}
	if c.RPCURL == "" {
		errs = append(errs, fmt.Errorf("%w: rpc url is required", domain.ErrInvalidConfig))
	}
	if c.FeeWallet.IsZero() {
		errs = append(errs, fmt.Errorf("%w: fee wallet is required", domain.ErrInvalidConfig))
	}
	return errors.Join(errs...)
}

func decimalValue(v *viper.Viper, key string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(v.GetString(key))
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s: %q is not a number", domain.ErrInvalidConfig, key, raw)
	}
	return value, nil
}

func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", path, err)
	}
	return filepath.Clean(abs), nil
}
