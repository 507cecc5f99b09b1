package sealed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bnema/volumebot/internal/domain"
	"github.com/bnema/volumebot/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	storeFileMode   = 0o600
	storeDirMode    = 0o700
	tempFilePattern = ".sessions-*.enc.tmp"
)

// Repository persists the whole session mapping as one sealed blob.
type Repository struct {
	path   string
	cipher *Cipher
	mu     *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.SessionRepository = (*Repository)(nil)

func NewRepository(path string, key []byte) (*Repository, error) {
	if path == "" {
		return nil, errors.New("session store path is empty")
	}
	path, err := normalizeStorePath(path)
	if err != nil {
		return nil, err
	}

	c, err := NewCipher(key)
	if err != nil {
		return nil, err
	}

	return &Repository{path: path, cipher: c, mu: lockForPath(path)}, nil
}

func (r *Repository) Path() string {
	return r.path
}

func (r *Repository) Load(ctx context.Context) (map[domain.SessionID]domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	sessions := make(map[domain.SessionID]domain.Session, len(file.Sessions))
	for _, entry := range file.Sessions {
		session, err := fromSchema(entry)
		if err != nil {
			return nil, fmt.Errorf("decode session %d: %w", entry.ID, err)
		}
		if _, dup := sessions[session.ID]; dup {
			return nil, fmt.Errorf("decode session %d: duplicate id", entry.ID)
		}
		sessions[session.ID] = session
	}

	return sessions, nil
}

func (r *Repository) Save(ctx context.Context, sessions map[domain.SessionID]domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ids := make([]domain.SessionID, 0, len(sessions))
	for id := range sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	file := fileSchema{Version: currentSchemaVersion, Sessions: make([]sessionSchema, 0, len(ids))}
	for _, id := range ids {
		file.Sessions = append(file.Sessions, toSchema(sessions[id]))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *Repository) readSchema() (fileSchema, error) {
	blob, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{Version: currentSchemaVersion}, nil
		}
		return fileSchema{}, fmt.Errorf("read session store: %w", err)
	}

	plaintext, err := r.cipher.Open(string(blob))
	if err != nil {
		return fileSchema{}, fmt.Errorf("open session store %s: %w", r.path, err)
	}

	var file fileSchema
	if err := toml.Unmarshal(plaintext, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode session store: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.path), storeDirMode); err != nil {
		return fmt.Errorf("create session store directory: %w", err)
	}

	plaintext, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode session store: %w", err)
	}
	blob, err := r.cipher.Seal(plaintext)
	if err != nil {
		return fmt.Errorf("seal session store: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp session store: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.WriteString(blob); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp session store: %w", err)
	}

	if err := tempFile.Chmod(storeFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp session store: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp session store: %w", err)
	}

	if err := os.Rename(tempName, r.path); err != nil {
		return fmt.Errorf("replace session store: %w", err)
	}

	cleanup = false

	if err := os.Chmod(r.path, storeFileMode); err != nil {
		return fmt.Errorf("chmod session store: %w", err)
	}

	return nil
}

func normalizeStorePath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve session store path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}
