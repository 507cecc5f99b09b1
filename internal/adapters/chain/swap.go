package chain

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultSwapURL        = "https://swap-v2.solanatracker.io"
	DefaultSlippagePct    = 2
	DefaultPriorityFeeSOL = 0.000005
)

type SwapConfig struct {
	BaseURL        string
	SlippagePct    float64
	PriorityFeeSOL float64
	Timeout        time.Duration
}

// SwapAPI asks the SolanaTracker swap endpoint for an unsigned swap
// transaction.
type SwapAPI struct {
	http        *resty.Client
	slippage    float64
	priorityFee float64
}

type swapResponse struct {
	Txn   string `json:"txn"`
	Type  string `json:"type"`
	Error string `json:"error"`
}

func NewSwapAPI(cfg SwapConfig) (*SwapAPI, error) {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultSwapURL
	}
	if cfg.SlippagePct < 0 || cfg.SlippagePct > 100 {
		return nil, fmt.Errorf("swap slippage must be in [0, 100], got %v", cfg.SlippagePct)
	}
	if cfg.SlippagePct == 0 {
		cfg.SlippagePct = DefaultSlippagePct
	}
	if cfg.PriorityFeeSOL < 0 {
		return nil, fmt.Errorf("swap priority fee must not be negative, got %v", cfg.PriorityFeeSOL)
	}
	if cfg.PriorityFeeSOL == 0 {
		cfg.PriorityFeeSOL = DefaultPriorityFeeSOL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(base).
		SetTimeout(cfg.Timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Accept", "application/json")

	return &SwapAPI{http: client, slippage: cfg.SlippagePct, priorityFee: cfg.PriorityFeeSOL}, nil
}

// Transaction fetches and decodes the swap of amount raw units of in into out
// paid by payer.
func (a *SwapAPI) Transaction(ctx context.Context, in, out solana.PublicKey, amount uint64, payer solana.PublicKey) (*solana.Transaction, error) {
	var body swapResponse
	resp, err := a.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"from":        in.String(),
			"to":          out.String(),
			"fromAmount":  strconv.FormatUint(amount, 10),
			"slippage":    strconv.FormatFloat(a.slippage, 'f', -1, 64),
			"payer":       payer.String(),
			"priorityFee": strconv.FormatFloat(a.priorityFee, 'f', -1, 64),
			"forceLegacy": "false",
		}).
		SetResult(&body).
		SetError(&body).
		Get("/swap")
	if err != nil {
		return nil, fmt.Errorf("request swap: %w", err)
	}
	if resp.IsError() {
		if body.Error != "" {
			return nil, fmt.Errorf("request swap: %s: %s", resp.Status(), body.Error)
		}
		return nil, fmt.Errorf("request swap: %s", resp.Status())
	}
	if body.Txn == "" {
		return nil, errors.New("request swap: response has no transaction")
	}

	raw, err := base64.StdEncoding.DecodeString(body.Txn)
	if err != nil {
		return nil, fmt.Errorf("decode swap transaction: %w", err)
	}
	tx, err := solana.TransactionFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("parse swap transaction: %w", err)
	}

	return tx, nil
}
