package chain

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bnema/volumebot/internal/domain"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// fakeNode answers the handful of JSON-RPC methods the client uses.
type fakeNode struct {
	mu sync.Mutex
	t  *testing.T

	balance       uint64
	tokenAccounts map[string]string
	supply        string
	blockhash     solana.Hash
	statuses      []string
	statusErr     any

	calls []string
	sent  []*solana.Transaction
	polls int
}

func newFakeNode(t *testing.T) (*fakeNode, *httptest.Server) {
	t.Helper()

	node := &fakeNode{
		t:         t,
		blockhash: solana.Hash(newWallet(t).PublicKey()),
		statuses:  []string{"confirmed"},
	}
	server := httptest.NewServer(http.HandlerFunc(node.serve))
	t.Cleanup(server.Close)
	return node, server
}

func (n *fakeNode) serve(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.calls = append(n.calls, req.Method)
	result := n.result(req)
	n.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"id":      req.ID,
		"result":  result,
	})
}

func (n *fakeNode) result(req rpcRequest) any {
	ctx := map[string]any{"slot": 1}
	switch req.Method {
	case "getBalance":
		return map[string]any{"context": ctx, "value": n.balance}
	case "getTokenAccountsByOwner":
		accounts := make([]any, 0, len(n.tokenAccounts))
		for pubkey := range n.tokenAccounts {
			accounts = append(accounts, map[string]any{
				"pubkey": pubkey,
				"account": map[string]any{
					"data":       []string{"", "base64"},
					"executable": false,
					"lamports":   2039280,
					"owner":      solana.TokenProgramID.String(),
					"rentEpoch":  0,
				},
			})
		}
		return map[string]any{"context": ctx, "value": accounts}
	case "getTokenAccountBalance":
		var pubkey string
		require.NoError(n.t, json.Unmarshal(req.Params[0], &pubkey))
		return map[string]any{"context": ctx, "value": uiAmount(n.tokenAccounts[pubkey])}
	case "getTokenSupply":
		return map[string]any{"context": ctx, "value": uiAmount(n.supply)}
	case "getLatestBlockhash":
		return map[string]any{"context": ctx, "value": map[string]any{
			"blockhash":            n.blockhash.String(),
			"lastValidBlockHeight": 100,
		}}
	case "sendTransaction":
		var encoded string
		require.NoError(n.t, json.Unmarshal(req.Params[0], &encoded))
		raw, err := base64.StdEncoding.DecodeString(encoded)
		require.NoError(n.t, err)
		tx, err := solana.TransactionFromBytes(raw)
		require.NoError(n.t, err)
		n.sent = append(n.sent, tx)
		return tx.Signatures[0].String()
	case "getSignatureStatuses":
		idx := n.polls
		if idx >= len(n.statuses) {
			idx = len(n.statuses) - 1
		}
		n.polls++
		return map[string]any{"context": ctx, "value": []any{map[string]any{
			"slot":               1,
			"confirmations":      nil,
			"err":                n.statusErr,
			"confirmationStatus": n.statuses[idx],
		}}}
	default:
		n.t.Errorf("unexpected rpc method %q", req.Method)
		return nil
	}
}

func (n *fakeNode) sentTransactions() []*solana.Transaction {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*solana.Transaction(nil), n.sent...)
}

func uiAmount(amount string) map[string]any {
	return map[string]any{"amount": amount, "decimals": 6, "uiAmountString": amount}
}

func newWallet(t *testing.T) domain.Wallet {
	t.Helper()

	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return domain.Wallet{Key: key}
}

func newTestClient(t *testing.T, rpcURL, swapURL string) *Client {
	t.Helper()

	logger, _ := test.NewNullLogger()
	client, err := NewClient(Config{
		RPCURL:          rpcURL,
		Swap:            SwapConfig{BaseURL: swapURL, Timeout: time.Second},
		ConfirmInterval: time.Millisecond,
		ConfirmAttempts: 3,
	}, logger)
	require.NoError(t, err)
	return client
}
