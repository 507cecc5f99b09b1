package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bnema/volumebot/internal/domain"
	"github.com/bnema/volumebot/internal/ports"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

var errFakeNetwork = errors.New("fake network failure")

type transferCall struct {
	From   solana.PublicKey
	To     solana.PublicKey
	Amount uint64
}

// fakeChain keeps base balances in memory. Buys debit the signer, sells
// credit half the sold amount so trading wallets drain over a few cycles.
type fakeChain struct {
	mu sync.Mutex

	balances     map[solana.PublicKey]uint64
	assets       map[solana.PublicKey]uint64
	scripts      map[solana.PublicKey][]uint64
	balanceReads map[solana.PublicKey]int
	failTransfer map[solana.PublicKey]error
	balanceErr   map[solana.PublicKey]error
	gates        map[solana.PublicKey]*balanceGate

	transfers []transferCall
	swaps     []ports.SwapRequest

	failSwapAt int
	onSwap     func(n int)
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		balances:     map[solana.PublicKey]uint64{},
		assets:       map[solana.PublicKey]uint64{},
		scripts:      map[solana.PublicKey][]uint64{},
		balanceReads: map[solana.PublicKey]int{},
		failTransfer: map[solana.PublicKey]error{},
		balanceErr:   map[solana.PublicKey]error{},
		gates:        map[solana.PublicKey]*balanceGate{},
	}
}

type balanceGate struct {
	reached chan struct{}
	open    chan struct{}
	once    sync.Once
}

// hold blocks Balance reads of owner until open is called. reached is
// closed on the first blocked read.
func (c *fakeChain) hold(owner solana.PublicKey) (reached <-chan struct{}, open func()) {
	gate := &balanceGate{reached: make(chan struct{}), open: make(chan struct{})}
	c.mu.Lock()
	c.gates[owner] = gate
	c.mu.Unlock()

	var closeOnce sync.Once
	return gate.reached, func() { closeOnce.Do(func() { close(gate.open) }) }
}

func (c *fakeChain) setBalance(owner solana.PublicKey, amount uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[owner] = amount
}

// script makes Balance return the values in order; the last one sticks.
func (c *fakeChain) script(owner solana.PublicKey, values ...uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts[owner] = values
}

func (c *fakeChain) Balance(_ context.Context, owner solana.PublicKey) (uint64, error) {
	c.mu.Lock()
	gate := c.gates[owner]
	c.mu.Unlock()
	if gate != nil {
		gate.once.Do(func() { close(gate.reached) })
		<-gate.open
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.balanceReads[owner]++
	if err := c.balanceErr[owner]; err != nil {
		return 0, err
	}
	if script := c.scripts[owner]; len(script) > 0 {
		value := script[0]
		if len(script) > 1 {
			c.scripts[owner] = script[1:]
		}
		return value, nil
	}
	return c.balances[owner], nil
}

func (c *fakeChain) AssetBalance(_ context.Context, owner, _ solana.PublicKey) (domain.TokenAmount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.TokenAmount{Raw: c.assets[owner], Decimals: 6}, nil
}

func (c *fakeChain) Transfer(_ context.Context, from domain.Wallet, to solana.PublicKey, amount uint64) (solana.Signature, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	owner := from.PublicKey()
	if err := c.failTransfer[owner]; err != nil {
		return solana.Signature{}, err
	}
	if c.balances[owner] >= amount {
		c.balances[owner] -= amount
	} else {
		c.balances[owner] = 0
	}
	c.balances[to] += amount
	c.transfers = append(c.transfers, transferCall{From: owner, To: to, Amount: amount})
	return solana.Signature{}, nil
}

func (c *fakeChain) Swap(_ context.Context, req ports.SwapRequest) (solana.Signature, error) {
	c.mu.Lock()
	n := len(c.swaps) + 1
	if c.failSwapAt == n {
		c.mu.Unlock()
		return solana.Signature{}, errFakeNetwork
	}
	c.swaps = append(c.swaps, req)
	owner := req.Signer.PublicKey()
	if req.InputMint.Equals(domain.BaseMint) {
		if c.balances[owner] >= req.Amount {
			c.balances[owner] -= req.Amount
		} else {
			c.balances[owner] = 0
		}
	} else {
		c.balances[owner] += req.Amount / 2
		if c.assets[owner] >= req.Amount {
			c.assets[owner] -= req.Amount
		} else {
			c.assets[owner] = 0
		}
	}
	onSwap := c.onSwap
	c.mu.Unlock()

	if onSwap != nil {
		onSwap(n)
	}
	return solana.Signature{}, nil
}

func (c *fakeChain) swapCalls() []ports.SwapRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ports.SwapRequest(nil), c.swaps...)
}

func (c *fakeChain) transferCalls() []transferCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]transferCall(nil), c.transfers...)
}

func (c *fakeChain) reads(owner solana.PublicKey) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balanceReads[owner]
}

type inMemorySessionRepo struct {
	mu       sync.Mutex
	sessions map[domain.SessionID]domain.Session
	saves    int
	saving   bool
	overlap  bool
	saveErr  error
}

func newInMemorySessionRepo() *inMemorySessionRepo {
	return &inMemorySessionRepo{sessions: map[domain.SessionID]domain.Session{}}
}

func (r *inMemorySessionRepo) Load(_ context.Context) (map[domain.SessionID]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[domain.SessionID]domain.Session, len(r.sessions))
	for id, session := range r.sessions {
		out[id] = session.Clone()
	}
	return out, nil
}

func (r *inMemorySessionRepo) Save(_ context.Context, sessions map[domain.SessionID]domain.Session) error {
	r.mu.Lock()
	if r.saving {
		r.overlap = true
	}
	r.saving = true
	r.mu.Unlock()

	time.Sleep(time.Millisecond)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.saving = false
	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	r.sessions = sessions
	return nil
}

func (r *inMemorySessionRepo) failSaves(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveErr = err
}

func (r *inMemorySessionRepo) stored(id domain.SessionID) (domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	return session, ok
}

type recordingPresenter struct {
	mu        sync.Mutex
	prompts   []string
	choices   [][]domain.Choice
	summaries []string
}

func (p *recordingPresenter) PushSummary(_ context.Context, _ domain.SessionID, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summaries = append(p.summaries, text)
	return nil
}

func (p *recordingPresenter) Prompt(_ context.Context, _ domain.SessionID, text string, choices []domain.Choice) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, text)
	p.choices = append(p.choices, choices)
	return nil
}

func (p *recordingPresenter) count(text string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, prompt := range p.prompts {
		if prompt == text {
			n++
		}
	}
	return n
}

func (p *recordingPresenter) last() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.prompts) == 0 {
		return ""
	}
	return p.prompts[len(p.prompts)-1]
}

func (p *recordingPresenter) summaryCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.summaries)
}

func (p *recordingPresenter) lastSummary() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.summaries) == 0 {
		return ""
	}
	return p.summaries[len(p.summaries)-1]
}

func (p *recordingPresenter) hasPrefix(prefix string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, prompt := range p.prompts {
		if strings.HasPrefix(prompt, prefix) {
			return true
		}
	}
	return false
}

type staticPanels struct{}

func (staticPanels) Render(context.Context, domain.SessionID) (string, error) {
	return "panel", nil
}

type plainRenderer struct{}

func (plainRenderer) Render(summary domain.Summary) string {
	return "panel:" + summary.Awaiting.String()
}

type fixedClock struct {
	now time.Time
}

func (f fixedClock) Now() time.Time {
	return f.now
}

// fixedSource returns the given values in order, then repeats the last.
type fixedSource struct {
	mu     sync.Mutex
	values []int
}

func (s *fixedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.values[0]
	if len(s.values) > 1 {
		s.values = s.values[1:]
	}
	return v % n
}

func newTestLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

func newWallet(t *testing.T) domain.Wallet {
	t.Helper()

	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	wallet, err := domain.WalletFromSecret(key)
	require.NoError(t, err)
	return wallet
}

var testPlatform = solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
