// Package ref resolves secret references such as pass://vbot/db_key.
package ref

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	filestore "github.com/bnema/volumebot/internal/adapters/secrets/file"
	"github.com/bnema/volumebot/internal/ports"
)

const (
	SchemePass = "pass://"
	SchemeFile = "file://"
	SchemeEnv  = "env://"
)

var (
	ErrNotReference   = errors.New("value is not a secret reference")
	ErrUnwritableRef  = errors.New("secret reference is read-only")
	errNilPassStore   = errors.New("pass secret store is nil")
	errNilFileStore   = errors.New("file secret store is nil")
	errEmptyRefTarget = errors.New("secret reference has an empty target")
)

// Resolver routes a reference to the store its scheme names. Values
// without a known scheme are returned as literals.
type Resolver struct {
	pass      ports.SecretStore
	files     ports.SecretStore
	lookupEnv func(string) (string, bool)
}

func NewResolver(pass ports.SecretStore, files ports.SecretStore) (*Resolver, error) {
	if pass == nil {
		return nil, errNilPassStore
	}
	if files == nil {
		return nil, errNilFileStore
	}

	return &Resolver{pass: pass, files: files, lookupEnv: os.LookupEnv}, nil
}

func IsReference(value string) bool {
	_, _, ok := split(value)
	return ok
}

func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	scheme, target, ok := split(value)
	if !ok {
		return strings.TrimSpace(value), nil
	}
	if target == "" {
		return "", fmt.Errorf("%w: %q", errEmptyRefTarget, value)
	}

	var (
		out string
		err error
	)
	switch scheme {
	case SchemePass:
		out, err = r.pass.Get(ctx, target)
	case SchemeFile:
		store, key := r.fileStore(target)
		out, err = store.Get(ctx, key)
	case SchemeEnv:
		v, found := r.lookupEnv(target)
		if !found {
			err = fmt.Errorf("environment variable %s is not set", target)
		}
		out = v
	}
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", value, err)
	}

	return strings.TrimSpace(out), nil
}

// Store writes value behind a pass:// or file:// reference.
func (r *Resolver) Store(ctx context.Context, ref string, value string) error {
	scheme, target, ok := split(ref)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotReference, ref)
	}
	if target == "" {
		return fmt.Errorf("%w: %q", errEmptyRefTarget, ref)
	}

	switch scheme {
	case SchemePass:
		return r.pass.Put(ctx, target, value)
	case SchemeFile:
		store, key := r.fileStore(target)
		return store.Put(ctx, key, value)
	default:
		return fmt.Errorf("%w: %q", ErrUnwritableRef, ref)
	}
}

func (r *Resolver) fileStore(target string) (ports.SecretStore, string) {
	if filepath.IsAbs(target) {
		return filestore.NewStore(filepath.Dir(target)), filepath.Base(target)
	}
	return r.files, target
}

func split(value string) (scheme string, target string, ok bool) {
	trimmed := strings.TrimSpace(value)
	for _, s := range []string{SchemePass, SchemeFile, SchemeEnv} {
		if strings.HasPrefix(trimmed, s) {
			return s, strings.TrimPrefix(trimmed, s), true
		}
	}
	return "", "", false
}
