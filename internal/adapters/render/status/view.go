package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/volumebot/internal/application"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	Now time.Time
	// ShowWallets lists every secondary address under its session.
	ShowWallets bool
}

func renderView(sessions []application.SessionOverview, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Volume Bot Sessions"),
		s.header.Render(fmt.Sprintf("sessions: %d  %s", len(sessions), jobCounts(sessions))),
	}

	if len(sessions) == 0 {
		lines = append(lines, s.empty.Render("No sessions stored."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, session := range sessions {
		lines = append(lines, s.section.Render(renderSession(session, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderSession(session application.SessionOverview, opts RenderOptions, s styles) string {
	title := lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.session.Render(fmt.Sprintf("Session %d", session.ID)),
		" ",
		jobLabel(session, s),
	)

	parts := []string{
		title,
		field(s, "main", session.Main),
		field(s, "mint", valueOr(session.Mint, "unset")),
		field(s, "rate", rateLabel(session.BuyRate)),
		field(s, "config", fmt.Sprintf("cycles=%d delay=%dms", session.Config.BuyCycles, session.Config.DelayMs)),
		walletLine(session, s),
	}
	if opts.ShowWallets {
		for _, address := range session.Secondaries {
			parts = append(parts, s.detail.Render("  • "+address))
		}
	}
	if session.Retired > 0 {
		parts = append(parts, field(s, "retired", fmt.Sprintf("%d wallets", session.Retired)))
	}
	if session.WithdrawTarget != "" {
		parts = append(parts, field(s, "withdraw", session.WithdrawTarget))
	}
	if session.Awaiting != "none" {
		parts = append(parts, field(s, "awaiting", session.Awaiting))
	}
	parts = append(parts, statsLine(session.Stats, opts.Now, s))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func field(s styles, key, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, s.key.Render(key+":"), " ", s.detail.Render(value))
}

func jobLabel(session application.SessionOverview, s styles) string {
	switch {
	case session.RunnerActive:
		return s.running.Render("[running]")
	case session.WatcherActive:
		return s.waiting.Render("[waiting for deposit]")
	default:
		return s.idle.Render("[idle]")
	}
}

func jobCounts(sessions []application.SessionOverview) string {
	var running, waiting int
	for _, session := range sessions {
		switch {
		case session.RunnerActive:
			running++
		case session.WatcherActive:
			waiting++
		}
	}
	return fmt.Sprintf("running: %d  waiting: %d", running, waiting)
}

func walletLine(session application.SessionOverview, s styles) string {
	used := len(session.Secondaries)
	max := session.Config.MaxWallets
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.key.Render("wallets:"),
		" ",
		renderProgressBar(used, max, 20, s),
		" ",
		s.detail.Render(fmt.Sprintf("%d/%d", used, max)),
	)
}

func statsLine(stats *application.StatsOverview, now time.Time, s styles) string {
	if stats == nil {
		return field(s, "last run", "n/a")
	}

	parts := []string{fmt.Sprintf("%d trades", stats.Actions), "budget " + stats.InitialSOL + " SOL"}
	if stats.SpentSOL != "" {
		parts = append(parts, "spent "+stats.SpentSOL+" SOL")
	}
	if !stats.StartedAt.IsZero() {
		parts = append(parts, formatStarted(stats.StartedAt, now))
	}

	line := field(s, "last run", strings.Join(parts, ", "))
	if stats.FinalSOL == "" {
		line += " " + s.warning.Render("[unfinished]")
	}
	return line
}

func renderProgressBar(used, max, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := 0
	if max > 0 {
		filled = int(math.Round(float64(width) * float64(used) / float64(max)))
	}
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func formatStarted(started, now time.Time) string {
	if now.IsZero() || started.After(now) {
		return "started " + started.Format(time.RFC3339)
	}

	elapsed := now.Sub(started)
	switch {
	case elapsed < time.Hour:
		minutes := int(elapsed.Minutes())
		return fmt.Sprintf("started %d %s ago", minutes, plural(minutes, "minute"))
	case elapsed < 24*time.Hour:
		hours := int(elapsed.Hours())
		return fmt.Sprintf("started %d %s ago", hours, plural(hours, "hour"))
	default:
		days := int(elapsed.Hours() / 24)
		return fmt.Sprintf("started %d %s ago (%s)", days, plural(days, "day"), started.Format("02 Jan 15:04"))
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}

func rateLabel(rate int) string {
	if rate <= 0 {
		return "unset"
	}
	return fmt.Sprintf("%d buys/min", rate)
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
