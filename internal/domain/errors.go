package domain

import "errors"

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrTokenNotFound       = errors.New("token not found")
	ErrUnexpectedInput     = errors.New("input not expected in current state")
	ErrWalletLimit         = errors.New("secondary wallet limit reached")
	ErrInvalidConfig       = errors.New("invalid session config")
	ErrInvalidWallet       = errors.New("invalid wallet")
	ErrInvalidAddress      = errors.New("invalid address")
	ErrInvalidRate         = errors.New("invalid buy rate")
	ErrMintNotSet          = errors.New("token mint not set")
	ErrRateNotSet          = errors.New("buy rate not set")
	ErrWithdrawTargetUnset = errors.New("withdraw address not set")
	ErrNoSecondaryWallets  = errors.New("no secondary wallets")
	ErrJobActive           = errors.New("a background job is active")
	ErrSessionBusy         = errors.New("session is being reset")
)
