package chain

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bnema/volumebot/internal/domain"
	"github.com/bnema/volumebot/internal/ports"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/sirupsen/logrus"
)

const (
	DefaultConfirmInterval = 500 * time.Millisecond
	DefaultConfirmAttempts = 60
)

type Config struct {
	RPCURL          string
	Swap            SwapConfig
	ConfirmInterval time.Duration
	ConfirmAttempts int
}

// Client talks to a Solana JSON-RPC node and the swap API.
type Client struct {
	rpc             *rpc.Client
	swaps           *SwapAPI
	commitment      rpc.CommitmentType
	confirmInterval time.Duration
	confirmAttempts int
	logger          logrus.FieldLogger
}

var _ ports.ChainClient = (*Client)(nil)

func NewClient(cfg Config, logger logrus.FieldLogger) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, errors.New("rpc url is empty")
	}
	if cfg.ConfirmInterval <= 0 {
		cfg.ConfirmInterval = DefaultConfirmInterval
	}
	if cfg.ConfirmAttempts <= 0 {
		cfg.ConfirmAttempts = DefaultConfirmAttempts
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	swaps, err := NewSwapAPI(cfg.Swap)
	if err != nil {
		return nil, err
	}

	return &Client{
		rpc:             rpc.New(cfg.RPCURL),
		swaps:           swaps,
		commitment:      rpc.CommitmentConfirmed,
		confirmInterval: cfg.ConfirmInterval,
		confirmAttempts: cfg.ConfirmAttempts,
		logger:          logger,
	}, nil
}

func (c *Client) Balance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	out, err := c.rpc.GetBalance(ctx, owner, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("get balance %s: %w", owner, err)
	}
	return out.Value, nil
}

// AssetBalance sums every token account the owner holds for mint. An owner
// without a token account holds zero.
func (c *Client) AssetBalance(ctx context.Context, owner, mint solana.PublicKey) (domain.TokenAmount, error) {
	accounts, err := c.rpc.GetTokenAccountsByOwner(
		ctx,
		owner,
		&rpc.GetTokenAccountsConfig{Mint: &mint},
		&rpc.GetTokenAccountsOpts{Commitment: c.commitment},
	)
	if err != nil {
		return domain.TokenAmount{}, fmt.Errorf("get token accounts %s: %w", owner, err)
	}

	var total domain.TokenAmount
	for _, account := range accounts.Value {
		balance, err := c.rpc.GetTokenAccountBalance(ctx, account.Pubkey, c.commitment)
		if err != nil {
			return domain.TokenAmount{}, fmt.Errorf("get token account balance %s: %w", account.Pubkey, err)
		}
		amount, err := parseUiAmount(balance.Value)
		if err != nil {
			return domain.TokenAmount{}, fmt.Errorf("token account %s: %w", account.Pubkey, err)
		}
		total.Raw += amount.Raw
		total.Decimals = amount.Decimals
	}

	return total, nil
}

// TokenSupply returns the raw supply of mint.
func (c *Client) TokenSupply(ctx context.Context, mint solana.PublicKey) (domain.TokenAmount, error) {
	out, err := c.rpc.GetTokenSupply(ctx, mint, c.commitment)
	if err != nil {
		return domain.TokenAmount{}, fmt.Errorf("get token supply %s: %w", mint, err)
	}
	return parseUiAmount(out.Value)
}

func (c *Client) Transfer(ctx context.Context, from domain.Wallet, to solana.PublicKey, amount uint64) (solana.Signature, error) {
	if from.IsZero() {
		return solana.Signature{}, fmt.Errorf("transfer: %w", domain.ErrInvalidWallet)
	}

	blockhash, err := c.latestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, err
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(amount, from.PublicKey(), to).Build(),
		},
		blockhash,
		solana.TransactionPayer(from.PublicKey()),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("build transfer: %w", err)
	}

	sig, err := c.signAndSend(ctx, tx, from)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("transfer %d lamports to %s: %w", amount, to, err)
	}

	c.logger.WithFields(logrus.Fields{
		"from":      from.Address(),
		"to":        to.String(),
		"lamports":  amount,
		"signature": sig.String(),
	}).Debug("transfer confirmed")

	return sig, nil
}

func (c *Client) Swap(ctx context.Context, req ports.SwapRequest) (solana.Signature, error) {
	if req.Signer.IsZero() {
		return solana.Signature{}, fmt.Errorf("swap: %w", domain.ErrInvalidWallet)
	}

	tx, err := c.swaps.Transaction(ctx, req.InputMint, req.OutputMint, req.Amount, req.Signer.PublicKey())
	if err != nil {
		return solana.Signature{}, err
	}

	blockhash, err := c.latestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, err
	}
	tx.Message.RecentBlockhash = blockhash
	tx.Signatures = nil

	sig, err := c.signAndSend(ctx, tx, req.Signer)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("swap %s -> %s: %w", req.InputMint, req.OutputMint, err)
	}

	c.logger.WithFields(logrus.Fields{
		"wallet":    req.Signer.Address(),
		"in":        req.InputMint.String(),
		"out":       req.OutputMint.String(),
		"amount":    req.Amount,
		"signature": sig.String(),
	}).Debug("swap confirmed")

	return sig, nil
}

func (c *Client) latestBlockhash(ctx context.Context) (solana.Hash, error) {
	out, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	if out.Value == nil {
		return solana.Hash{}, errors.New("get latest blockhash: empty result")
	}
	return out.Value.Blockhash, nil
}

func (c *Client) signAndSend(ctx context.Context, tx *solana.Transaction, signer domain.Wallet) (solana.Signature, error) {
	key := signer.Key
	if _, err := tx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
		if pub.Equals(key.PublicKey()) {
			return &key
		}
		return nil
	}); err != nil {
		return solana.Signature{}, fmt.Errorf("sign: %w", err)
	}

	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("send: %w", err)
	}

	if err := c.confirm(ctx, sig); err != nil {
		return sig, err
	}
	return sig, nil
}

func (c *Client) confirm(ctx context.Context, sig solana.Signature) error {
	for attempt := 0; attempt < c.confirmAttempts; attempt++ {
		statuses, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
		if err == nil && len(statuses.Value) > 0 && statuses.Value[0] != nil {
			status := statuses.Value[0]
			if status.Err != nil {
				return fmt.Errorf("transaction %s failed: %v", sig, status.Err)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.confirmInterval):
		}
	}

	return fmt.Errorf("transaction %s not confirmed after %d polls", sig, c.confirmAttempts)
}

func parseUiAmount(v *rpc.UiTokenAmount) (domain.TokenAmount, error) {
	if v == nil {
		return domain.TokenAmount{}, errors.New("empty token amount")
	}
	raw, err := strconv.ParseUint(v.Amount, 10, 64)
	if err != nil {
		return domain.TokenAmount{}, fmt.Errorf("parse token amount %q: %w", v.Amount, err)
	}
	return domain.TokenAmount{Raw: raw, Decimals: v.Decimals}, nil
}
