package chain

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bnema/volumebot/internal/domain"
	"github.com/bnema/volumebot/internal/ports"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientBalance(t *testing.T) {
	t.Parallel()

	node, server := newFakeNode(t)
	node.balance = 1_250_000_000
	client := newTestClient(t, server.URL, "")

	got, err := client.Balance(context.Background(), newWallet(t).PublicKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(1_250_000_000), got)
}

func TestClientAssetBalanceSumsTokenAccounts(t *testing.T) {
	t.Parallel()

	node, server := newFakeNode(t)
	node.tokenAccounts = map[string]string{
		newWallet(t).Address(): "1500",
		newWallet(t).Address(): "500",
	}
	client := newTestClient(t, server.URL, "")

	got, err := client.AssetBalance(context.Background(), newWallet(t).PublicKey(), newWallet(t).PublicKey())
	require.NoError(t, err)
	assert.Equal(t, domain.TokenAmount{Raw: 2000, Decimals: 6}, got)
}

func TestClientAssetBalanceWithoutAccountIsZero(t *testing.T) {
	t.Parallel()

	_, server := newFakeNode(t)
	client := newTestClient(t, server.URL, "")

	got, err := client.AssetBalance(context.Background(), newWallet(t).PublicKey(), newWallet(t).PublicKey())
	require.NoError(t, err)
	assert.Zero(t, got.Raw)
}

func TestClientTokenSupply(t *testing.T) {
	t.Parallel()

	node, server := newFakeNode(t)
	node.supply = "999000000"
	client := newTestClient(t, server.URL, "")

	got, err := client.TokenSupply(context.Background(), newWallet(t).PublicKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(999_000_000), got.Raw)
}

func TestClientTransferSignsSystemTransfer(t *testing.T) {
	t.Parallel()

	node, server := newFakeNode(t)
	node.statuses = []string{"processed", "confirmed"}
	client := newTestClient(t, server.URL, "")
	from := newWallet(t)
	to := newWallet(t).PublicKey()

	sig, err := client.Transfer(context.Background(), from, to, 42_000)
	require.NoError(t, err)

	sent := node.sentTransactions()
	require.Len(t, sent, 1)
	tx := sent[0]
	assert.Equal(t, sig, tx.Signatures[0])
	assert.Equal(t, node.blockhash, tx.Message.RecentBlockhash)
	require.NoError(t, tx.VerifySignatures())

	require.Len(t, tx.Message.Instructions, 1)
	data := tx.Message.Instructions[0].Data
	require.Len(t, data, 12)
	assert.Equal(t, uint32(system.Instruction_Transfer), binary.LittleEndian.Uint32(data[:4]))
	assert.Equal(t, uint64(42_000), binary.LittleEndian.Uint64(data[4:]))
	assert.Equal(t, from.PublicKey(), tx.Message.AccountKeys[0])
	assert.Contains(t, tx.Message.AccountKeys, to)
	assert.Equal(t, 2, node.polls)
}

func TestClientTransferReportsFailedTransaction(t *testing.T) {
	t.Parallel()

	node, server := newFakeNode(t)
	node.statusErr = map[string]any{"InstructionError": []any{0, "InsufficientFunds"}}
	client := newTestClient(t, server.URL, "")

	_, err := client.Transfer(context.Background(), newWallet(t), newWallet(t).PublicKey(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed")
}

func TestClientTransferGivesUpWhenNeverConfirmed(t *testing.T) {
	t.Parallel()

	node, server := newFakeNode(t)
	node.statuses = []string{"processed"}
	client := newTestClient(t, server.URL, "")

	_, err := client.Transfer(context.Background(), newWallet(t), newWallet(t).PublicKey(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not confirmed after 3 polls")
}

func TestClientTransferRejectsEmptyWallet(t *testing.T) {
	t.Parallel()

	_, server := newFakeNode(t)
	client := newTestClient(t, server.URL, "")

	_, err := client.Transfer(context.Background(), domain.Wallet{}, newWallet(t).PublicKey(), 1)
	require.ErrorIs(t, err, domain.ErrInvalidWallet)
}

func TestClientSwapSignsApiTransactionWithFreshBlockhash(t *testing.T) {
	t.Parallel()

	node, rpcServer := newFakeNode(t)
	signer := newWallet(t)
	mint := newWallet(t).PublicKey()
	staleHash := solana.Hash(newWallet(t).PublicKey())

	swapServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/swap", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, domain.BaseMint.String(), q.Get("from"))
		assert.Equal(t, mint.String(), q.Get("to"))
		assert.Equal(t, "200000", q.Get("fromAmount"))
		assert.Equal(t, "2", q.Get("slippage"))
		assert.Equal(t, "0.000005", q.Get("priorityFee"))
		assert.Equal(t, signer.Address(), q.Get("payer"))

		tx, err := solana.NewTransaction(
			[]solana.Instruction{system.NewTransferInstruction(1, signer.PublicKey(), mint).Build()},
			staleHash,
			solana.TransactionPayer(signer.PublicKey()),
		)
		require.NoError(t, err)
		raw, err := tx.MarshalBinary()
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"txn":"` + base64.StdEncoding.EncodeToString(raw) + `","type":"legacy"}`))
	}))
	t.Cleanup(swapServer.Close)

	client := newTestClient(t, rpcServer.URL, swapServer.URL)
	sig, err := client.Swap(context.Background(), ports.SwapRequest{
		InputMint:  domain.BaseMint,
		OutputMint: mint,
		Amount:     200_000,
		Signer:     signer,
	})
	require.NoError(t, err)

	sent := node.sentTransactions()
	require.Len(t, sent, 1)
	assert.Equal(t, sig, sent[0].Signatures[0])
	assert.Equal(t, node.blockhash, sent[0].Message.RecentBlockhash)
	require.NoError(t, sent[0].VerifySignatures())
}

func TestClientSwapSurfacesApiError(t *testing.T) {
	t.Parallel()

	node, rpcServer := newFakeNode(t)
	swapServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"no route found"}`))
	}))
	t.Cleanup(swapServer.Close)

	client := newTestClient(t, rpcServer.URL, swapServer.URL)
	_, err := client.Swap(context.Background(), ports.SwapRequest{
		InputMint:  domain.BaseMint,
		OutputMint: newWallet(t).PublicKey(),
		Amount:     1,
		Signer:     newWallet(t),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no route found")
	assert.Empty(t, node.sentTransactions())
}

func TestNewSwapAPIValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := NewSwapAPI(SwapConfig{SlippagePct: 120})
	require.Error(t, err)

	_, err = NewSwapAPI(SwapConfig{PriorityFeeSOL: -1})
	require.Error(t, err)

	api, err := NewSwapAPI(SwapConfig{})
	require.NoError(t, err)
	assert.Equal(t, float64(DefaultSlippagePct), api.slippage)
}
