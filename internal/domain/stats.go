package domain

import "time"

// Stats accumulates the outcome of the most recent run.
type Stats struct {
	InitialBalance uint64
	FinalBalance   *uint64
	ActionCount    int
	StartTime      time.Time
	FinishedAt     time.Time
}

func NewStats(initial uint64, start time.Time) *Stats {
	return &Stats{InitialBalance: initial, StartTime: start}
}

func (s *Stats) RecordAction() {
	s.ActionCount++
}

func (s *Stats) Finish(final uint64, at time.Time) {
	s.FinalBalance = &final
	s.FinishedAt = at
}

func (s Stats) Finished() bool {
	return s.FinalBalance != nil
}

func (s Stats) Elapsed(now time.Time) time.Duration {
	end := now
	if !s.FinishedAt.IsZero() {
		end = s.FinishedAt
	}
	if end.Before(s.StartTime) {
		return 0
	}
	return end.Sub(s.StartTime)
}

// Spent is the base-unit difference between the distributed budget and
// the final main balance. It is negative when the run ended above budget.
func (s Stats) Spent() (int64, bool) {
	if s.FinalBalance == nil {
		return 0, false
	}
	return int64(s.InitialBalance) - int64(*s.FinalBalance), true
}
