package application

import (
	"sort"
	"time"

	"github.com/bnema/volumebot/internal/domain"
)

// SessionOverview is the secret-free view of a stored session.
type SessionOverview struct {
	ID             domain.SessionID     `json:"id"`
	Main           string               `json:"main"`
	Secondaries    []string             `json:"secondaries"`
	Retired        int                  `json:"retired"`
	Mint           string               `json:"mint,omitempty"`
	BuyRate        int                  `json:"buy_rate"`
	Config         domain.SessionConfig `json:"config"`
	Awaiting       string               `json:"awaiting"`
	WithdrawTarget string               `json:"withdraw_target,omitempty"`
	WatcherActive  bool                 `json:"watcher_active"`
	RunnerActive   bool                 `json:"runner_active"`
	Stats          *StatsOverview       `json:"stats,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

type StatsOverview struct {
	InitialSOL string    `json:"initial_sol"`
	FinalSOL   string    `json:"final_sol,omitempty"`
	SpentSOL   string    `json:"spent_sol,omitempty"`
	Actions    int       `json:"actions"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

func Overview(session domain.Session) SessionOverview {
	out := SessionOverview{
		ID:            session.ID,
		Main:          session.Main.Address(),
		Secondaries:   make([]string, len(session.Secondaries)),
		Retired:       len(session.Retired),
		BuyRate:       session.BuyRate,
		Config:        session.Config,
		Awaiting:      session.Awaiting.String(),
		WatcherActive: session.DepositWatcherActive,
		RunnerActive:  session.RunnerActive,
		CreatedAt:     session.CreatedAt,
	}
	for i, wallet := range session.Secondaries {
		out.Secondaries[i] = wallet.Address()
	}
	if session.TokenMint != nil {
		out.Mint = session.TokenMint.String()
	}
	if session.WithdrawTarget != nil {
		out.WithdrawTarget = session.WithdrawTarget.String()
	}
	if stats := session.Stats; stats != nil {
		out.Stats = &StatsOverview{
			InitialSOL: domain.SOL(stats.InitialBalance).String(),
			Actions:    stats.ActionCount,
			StartedAt:  stats.StartTime,
			FinishedAt: stats.FinishedAt,
		}
		if stats.FinalBalance != nil {
			out.Stats.FinalSOL = domain.SOL(*stats.FinalBalance).String()
		}
		if spent, ok := stats.Spent(); ok {
			out.Stats.SpentSOL = domain.SignedSOL(spent).String()
		}
	}

	return out
}

// Overviews returns one overview per session, ordered by id.
func Overviews(sessions map[domain.SessionID]domain.Session) []SessionOverview {
	out := make([]SessionOverview, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, Overview(session))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
