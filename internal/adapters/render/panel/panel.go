// Package panel renders the session summary as Telegram Markdown.
package panel

import (
	"fmt"
	"strings"

	"github.com/bnema/volumebot/internal/domain"
	"github.com/bnema/volumebot/internal/ports"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const placeholder = "–"

type Renderer struct {
	printer *message.Printer
}

var _ ports.SummaryRenderer = (*Renderer)(nil)

func NewRenderer() *Renderer {
	return &Renderer{printer: message.NewPrinter(language.English)}
}

func (r *Renderer) Render(s domain.Summary) string {
	var b strings.Builder

	b.WriteString("📊 *Volume Bot Panel*\n\n")

	b.WriteString("⚙️ Settings\n")
	fmt.Fprintf(&b, "• Max wallets: %d\n", s.Config.MaxWallets)
	fmt.Fprintf(&b, "• Cycles:      %d\n", s.Config.BuyCycles)
	fmt.Fprintf(&b, "• Delay:       %d ms\n", s.Config.DelayMs)
	fmt.Fprintf(&b, "• Rate:        %s buys/min\n\n", rateText(s.BuyRate))

	mint := "unset"
	if s.Mint != nil {
		mint = s.Mint.String()
	}
	fmt.Fprintf(&b, "💳 Mint: `%s`", mint)
	if s.Mint != nil {
		b.WriteString(r.tokenBlock(s))
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "🔑 Secondaries (%d/%d):\n", len(s.Secondaries), s.Config.MaxWallets)
	if len(s.Secondaries) == 0 {
		b.WriteString("*(none)*")
	}
	for i, w := range s.Secondaries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "`%s`\n%s", w.Address, walletLine(w))
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "💹 Profit: %s\n\n", profitText(s.Stats))

	target := "(none)"
	if s.WithdrawTarget != nil {
		target = s.WithdrawTarget.String()
	}
	fmt.Fprintf(&b, "🏦 Withdraw→ %s\n", target)

	switch {
	case s.RunnerActive:
		b.WriteString("\n🟢 Volume running")
	case s.WatcherActive:
		b.WriteString("\n⏳ Waiting for deposit")
	}

	return b.String()
}

func (r *Renderer) tokenBlock(s domain.Summary) string {
	if !s.TokenAvailable || s.Token == nil {
		return "\n*(no token data)*"
	}

	t := s.Token
	if t.OnChainOnly {
		supply := r.printer.Sprintf("%.0f", t.TotalSupply)
		return fmt.Sprintf("\n*%s (%s)*\nRank:#%s Price:$%s\nMCap:$%s Vol24h:$%s\nCirc:%s Total:%s\nΔ1h:%s%% Δ24h:%s%% Δ7d:%s%%",
			t.Name, t.Symbol, placeholder, placeholder, placeholder, placeholder,
			supply, supply, placeholder, placeholder, placeholder)
	}

	return fmt.Sprintf("\n*%s (%s)*\nRank:#%d Price:$%.6f\nMCap:$%s Vol24h:$%s\nCirc:%s Total:%s\nΔ1h:%.2f%% Δ24h:%.2f%% Δ7d:%.2f%%",
		t.Name, t.Symbol, t.Rank, t.PriceUSD,
		r.printer.Sprintf("%.0f", t.MarketCapUSD), r.printer.Sprintf("%.0f", t.Volume24hUSD),
		r.printer.Sprintf("%.0f", t.CirculatingSupply), r.supplyText(t.TotalSupply),
		t.Change1h, t.Change24h, t.Change7d)
}

func (r *Renderer) supplyText(v float64) string {
	if v <= 0 {
		return placeholder
	}
	return r.printer.Sprintf("%.0f", v)
}

func rateText(rate int) string {
	if rate <= 0 {
		return "(unset)"
	}
	return fmt.Sprintf("%d", rate)
}

func walletLine(w domain.WalletBalance) string {
	if !w.Known {
		return "SOL:? | TOK:?"
	}
	return fmt.Sprintf("SOL:%s | TOK:%s", domain.SOL(w.Base).StringFixed(4), w.Asset.Decimal().StringFixed(4))
}

func profitText(stats *domain.Stats) string {
	if stats == nil {
		return "n/a"
	}
	spent, ok := stats.Spent()
	if !ok {
		return "n/a"
	}
	return domain.SignedSOL(spent).StringFixed(4) + " SOL"
}
