package sealed

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Sessions []sessionSchema `toml:"sessions"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported sessions schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type sessionSchema struct {
	ID             int64             `toml:"id"`
	Main           string            `toml:"main"`
	Secondaries    []string          `toml:"secondaries"`
	Retired        []string          `toml:"retired,omitempty"`
	TokenMint      string            `toml:"token_mint,omitempty"`
	BuyRate        int               `toml:"buy_rate"`
	Config         configSchema      `toml:"config"`
	Awaiting       string            `toml:"awaiting"`
	WithdrawTarget string            `toml:"withdraw_target,omitempty"`
	Stats          *statsSchema      `toml:"stats,omitempty"`
	PriceCache     *priceCacheSchema `toml:"price_cache,omitempty"`
	CreatedAt      string            `toml:"created_at"`

	DepositWatcherActive bool `toml:"deposit_watcher_active"`
	RunnerActive         bool `toml:"runner_active"`
}

type configSchema struct {
	MaxWallets int   `toml:"max_wallets"`
	BuyCycles  int   `toml:"buy_cycles"`
	DelayMs    int64 `toml:"delay_ms"`
}

type statsSchema struct {
	InitialBalance uint64  `toml:"initial_balance"`
	FinalBalance   *uint64 `toml:"final_balance,omitempty"`
	ActionCount    int     `toml:"action_count"`
	StartTime      string  `toml:"start_time"`
	FinishedAt     string  `toml:"finished_at,omitempty"`
}

type priceCacheSchema struct {
	Mint      string          `toml:"mint"`
	Timestamp string          `toml:"timestamp"`
	Info      tokenInfoSchema `toml:"info"`
}

type tokenInfoSchema struct {
	Name              string  `toml:"name"`
	Symbol            string  `toml:"symbol"`
	PriceUSD          float64 `toml:"price_usd"`
	MarketCapUSD      float64 `toml:"market_cap_usd"`
	Volume24hUSD      float64 `toml:"volume_24h_usd"`
	CirculatingSupply float64 `toml:"circulating_supply"`
	TotalSupply       float64 `toml:"total_supply"`
	Change1h          float64 `toml:"change_1h"`
	Change24h         float64 `toml:"change_24h"`
	Change7d          float64 `toml:"change_7d"`
	Rank              int     `toml:"rank"`
	OnChainOnly       bool    `toml:"on_chain_only,omitempty"`
}
