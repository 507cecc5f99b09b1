package ports

import "context"

// SecretStore reads and writes named secrets such as the session store key.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
}
