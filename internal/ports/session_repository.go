package ports

import (
	"context"

	"github.com/bnema/volumebot/internal/domain"
)

type SessionRepository interface {
	Load(ctx context.Context) (map[domain.SessionID]domain.Session, error)
	Save(ctx context.Context, sessions map[domain.SessionID]domain.Session) error
}
