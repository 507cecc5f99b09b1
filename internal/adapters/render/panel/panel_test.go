package panel

import (
	"testing"
	"time"

	"github.com/bnema/volumebot/internal/domain"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
)

var (
	testMint   = solana.MustPublicKeyFromBase58("DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263")
	testWallet = solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
)

func TestRenderFreshSession(t *testing.T) {
	t.Parallel()

	got := NewRenderer().Render(domain.Summary{Config: domain.DefaultSessionConfig()})

	want := "📊 *Volume Bot Panel*\n\n" +
		"⚙️ Settings\n" +
		"• Max wallets: 5\n" +
		"• Cycles:      3\n" +
		"• Delay:       2000 ms\n" +
		"• Rate:        (unset) buys/min\n\n" +
		"💳 Mint: `unset`\n\n" +
		"🔑 Secondaries (0/5):\n*(none)*\n\n" +
		"💹 Profit: n/a\n\n" +
		"🏦 Withdraw→ (none)\n"
	assert.Equal(t, want, got)
}

func TestRenderListedTokenAndWallets(t *testing.T) {
	t.Parallel()

	final := uint64(400_000_000)
	summary := domain.Summary{
		Config:  domain.DefaultSessionConfig(),
		BuyRate: 20,
		Mint:    &testMint,
		Token: &domain.TokenInfo{
			Name: "Bonk", Symbol: "BONK", Rank: 61, PriceUSD: 0.0000231,
			MarketCapUSD: 1_500_000_000, Volume24hUSD: 88_000_000,
			CirculatingSupply: 69_000_000, TotalSupply: 88_000_000,
			Change1h: 0.4, Change24h: -2.25, Change7d: 11.5,
		},
		TokenAvailable: true,
		Secondaries: []domain.WalletBalance{
			{Address: testWallet, Base: 1_234_500_000, Asset: domain.TokenAmount{Raw: 2_500_000, Decimals: 5}, Known: true},
			{Address: testMint},
		},
		Stats:          &domain.Stats{InitialBalance: 613_800_000, FinalBalance: &final, StartTime: time.Unix(0, 0)},
		WithdrawTarget: &testWallet,
		RunnerActive:   true,
	}

	got := NewRenderer().Render(summary)

	assert.Contains(t, got, "• Rate:        20 buys/min")
	assert.Contains(t, got, "💳 Mint: `"+testMint.String()+"`\n*Bonk (BONK)*\nRank:#61 Price:$0.000023\n")
	assert.Contains(t, got, "MCap:$1,500,000,000 Vol24h:$88,000,000\nCirc:69,000,000 Total:88,000,000\n")
	assert.Contains(t, got, "Δ1h:0.40% Δ24h:-2.25% Δ7d:11.50%")
	assert.Contains(t, got, "🔑 Secondaries (2/5):\n`"+testWallet.String()+"`\nSOL:1.2345 | TOK:25.0000\n\n`"+testMint.String()+"`\nSOL:? | TOK:?")
	assert.Contains(t, got, "💹 Profit: 0.2138 SOL")
	assert.Contains(t, got, "🏦 Withdraw→ "+testWallet.String())
	assert.Contains(t, got, "🟢 Volume running")
}

func TestRenderTokenPlaceholders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		summary domain.Summary
		want    string
	}{
		{
			name:    "unavailable",
			summary: domain.Summary{Config: domain.DefaultSessionConfig(), Mint: &testMint},
			want:    "`\n*(no token data)*\n\n",
		},
		{
			name: "on-chain only",
			summary: domain.Summary{
				Config:         domain.DefaultSessionConfig(),
				Mint:           &testMint,
				Token:          &domain.TokenInfo{Name: "mint", Symbol: "DEZXAZ", TotalSupply: 1_000_000, CirculatingSupply: 1_000_000, OnChainOnly: true},
				TokenAvailable: true,
				WatcherActive:  true,
			},
			want: "*mint (DEZXAZ)*\nRank:#– Price:$–\nMCap:$– Vol24h:$–\nCirc:1,000,000 Total:1,000,000\nΔ1h:–% Δ24h:–% Δ7d:–%",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Contains(t, NewRenderer().Render(tt.summary), tt.want)
		})
	}
}

func TestRenderNegativeProfit(t *testing.T) {
	t.Parallel()

	final := uint64(700_000_000)
	got := NewRenderer().Render(domain.Summary{
		Config: domain.DefaultSessionConfig(),
		Stats:  &domain.Stats{InitialBalance: 600_000_000, FinalBalance: &final},
	})

	assert.Contains(t, got, "💹 Profit: -0.1000 SOL")
}
