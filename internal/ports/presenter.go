package ports

import (
	"context"

	"github.com/bnema/volumebot/internal/domain"
)

type Presenter interface {
	PushSummary(ctx context.Context, id domain.SessionID, text string) error
	Prompt(ctx context.Context, id domain.SessionID, text string, choices []domain.Choice) error
}

type SummaryRenderer interface {
	Render(summary domain.Summary) string
}
