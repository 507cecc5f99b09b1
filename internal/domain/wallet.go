package domain

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

const secretKeyLength = 64

// BaseMint is the wrapped SOL mint every swap is priced against.
var BaseMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

type Wallet struct {
	Key solana.PrivateKey
}

func WalletFromSecret(secret []byte) (Wallet, error) {
	if len(secret) != secretKeyLength {
		return Wallet{}, fmt.Errorf("%w: secret key must be %d bytes, got %d", ErrInvalidWallet, secretKeyLength, len(secret))
	}

	key := make(solana.PrivateKey, secretKeyLength)
	copy(key, secret)

	return Wallet{Key: key}, nil
}

func (w Wallet) IsZero() bool {
	return len(w.Key) != secretKeyLength
}

func (w Wallet) PublicKey() solana.PublicKey {
	if w.IsZero() {
		return solana.PublicKey{}
	}
	return w.Key.PublicKey()
}

func (w Wallet) Address() string {
	return w.PublicKey().String()
}

func (w Wallet) Secret() []byte {
	out := make([]byte, len(w.Key))
	copy(out, w.Key)
	return out
}

func (w Wallet) clone() Wallet {
	if w.Key == nil {
		return Wallet{}
	}
	return Wallet{Key: w.Secret()}
}

// ParseAddress parses a base58 account address and rejects the zero key.
func ParseAddress(raw string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}
	if key.IsZero() {
		return solana.PublicKey{}, fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}

	return key, nil
}
