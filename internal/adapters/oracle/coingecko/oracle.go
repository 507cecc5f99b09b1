package coingecko

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/volumebot/internal/domain"
	"github.com/bnema/volumebot/internal/ports"
	"github.com/gagliardetto/solana-go"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const (
	DefaultBaseURL = "https://api.coingecko.com/api/v3"
	apiKeyHeader   = "x-cg-demo-api-key"
)

// SupplyReader reads a mint's on-chain supply. It backs tokens CoinGecko
// does not list.
type SupplyReader interface {
	TokenSupply(ctx context.Context, mint solana.PublicKey) (domain.TokenAmount, error)
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Oracle struct {
	http   *resty.Client
	supply SupplyReader
}

var _ ports.PriceOracle = (*Oracle)(nil)

func NewOracle(cfg Config, supply SupplyReader) *Oracle {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	client := resty.New().
		SetBaseURL(base).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader(apiKeyHeader, cfg.APIKey)
	}

	return &Oracle{http: client, supply: supply}
}

type usdValue struct {
	USD float64 `json:"usd"`
}

type contractResponse struct {
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	MarketCapRank int    `json:"market_cap_rank"`
	MarketData    struct {
		CurrentPrice      usdValue `json:"current_price"`
		MarketCap         usdValue `json:"market_cap"`
		TotalVolume       usdValue `json:"total_volume"`
		CirculatingSupply float64  `json:"circulating_supply"`
		TotalSupply       float64  `json:"total_supply"`
		Change1h          usdValue `json:"price_change_percentage_1h_in_currency"`
		Change24h         usdValue `json:"price_change_percentage_24h_in_currency"`
		Change7d          float64  `json:"price_change_percentage_7d"`
	} `json:"market_data"`
}

func (o *Oracle) FetchMetadata(ctx context.Context, mint solana.PublicKey) (domain.TokenInfo, error) {
	var body contractResponse
	resp, err := o.http.R().
		SetContext(ctx).
		SetPathParam("mint", mint.String()).
		SetResult(&body).
		Get("/coins/solana/contract/{mint}")
	if err != nil {
		return domain.TokenInfo{}, fmt.Errorf("fetch token metadata: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return o.onChainInfo(ctx, mint)
	case resp.IsError():
		return domain.TokenInfo{}, fmt.Errorf("fetch token metadata: coingecko %s", resp.Status())
	}

	md := body.MarketData
	return domain.TokenInfo{
		Name:              body.Name,
		Symbol:            strings.ToUpper(body.Symbol),
		PriceUSD:          md.CurrentPrice.USD,
		MarketCapUSD:      md.MarketCap.USD,
		Volume24hUSD:      md.TotalVolume.USD,
		CirculatingSupply: md.CirculatingSupply,
		TotalSupply:       md.TotalSupply,
		Change1h:          md.Change1h.USD,
		Change24h:         md.Change24h.USD,
		Change7d:          md.Change7d,
		Rank:              body.MarketCapRank,
	}, nil
}

// onChainInfo accepts an unlisted mint that has a positive supply.
func (o *Oracle) onChainInfo(ctx context.Context, mint solana.PublicKey) (domain.TokenInfo, error) {
	if o.supply == nil {
		return domain.TokenInfo{}, domain.ErrTokenNotFound
	}

	supply, err := o.supply.TokenSupply(ctx, mint)
	if err != nil {
		return domain.TokenInfo{}, errors.Join(domain.ErrTokenNotFound, err)
	}
	if supply.Raw == 0 {
		return domain.TokenInfo{}, domain.ErrTokenNotFound
	}

	address := mint.String()
	units := decimal.NewFromUint64(supply.Raw).Shift(-int32(supply.Decimals)).InexactFloat64()

	return domain.TokenInfo{
		Name:              address,
		Symbol:            strings.ToUpper(address[:6]),
		CirculatingSupply: units,
		TotalSupply:       units,
		OnChainOnly:       true,
	}, nil
}
