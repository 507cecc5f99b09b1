package application

import (
	"context"
	"testing"
	"time"

	"github.com/bnema/volumebot/internal/domain"
	"github.com/bnema/volumebot/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSummaryServiceCachesTokenInfo(t *testing.T) {
	t.Parallel()

	repo := newInMemorySessionRepo()
	registry := NewRegistry(repo)
	chain := newFakeChain()
	oracle := mocks.NewMockPriceOracle(t)
	clock := mocks.NewMockClock(t)

	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	clock.EXPECT().Now().Return(now).Times(2)
	clock.EXPECT().Now().Return(now.Add(domain.PriceCacheTTL)).Once()
	oracle.EXPECT().FetchMetadata(mock.Anything, testMint).Return(domain.TokenInfo{Symbol: "BONK"}, nil).Twice()

	session := domain.NewSession(1, newWallet(t), now)
	mint := testMint
	session.TokenMint = &mint
	require.NoError(t, registry.Replace(context.Background(), session))

	svc := NewSummaryService(registry, chain, oracle, plainRenderer{}, clock, newTestLogger())

	first, err := svc.TokenInfo(context.Background(), 1)
	require.NoError(t, err)
	second, err := svc.TokenInfo(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stored, ok := repo.stored(1)
	require.True(t, ok)
	require.NotNil(t, stored.PriceCache)
	assert.Equal(t, now, stored.PriceCache.Timestamp)

	// expired
	_, err = svc.TokenInfo(context.Background(), 1)
	require.NoError(t, err)
}

func TestSummaryServiceBuildUsesPlaceholders(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(newInMemorySessionRepo())
	chain := newFakeChain()
	oracle := mocks.NewMockPriceOracle(t)
	oracle.EXPECT().FetchMetadata(mock.Anything, testMint).Return(domain.TokenInfo{}, errFakeNetwork)

	session := domain.NewSession(1, newWallet(t), time.Now())
	mint := testMint
	session.TokenMint = &mint
	healthy, broken := newWallet(t), newWallet(t)
	require.NoError(t, session.AddSecondary(healthy))
	require.NoError(t, session.AddSecondary(broken))
	require.NoError(t, registry.Replace(context.Background(), session))

	chain.setBalance(healthy.PublicKey(), 42)
	chain.assets[healthy.PublicKey()] = 7
	chain.balanceErr[broken.PublicKey()] = errFakeNetwork

	svc := NewSummaryService(registry, chain, oracle, plainRenderer{}, fixedClock{now: time.Now()}, newTestLogger())
	summary, err := svc.Build(context.Background(), 1)
	require.NoError(t, err)

	assert.False(t, summary.TokenAvailable)
	assert.Nil(t, summary.Token)
	require.Len(t, summary.Secondaries, 2)
	assert.True(t, summary.Secondaries[0].Known)
	assert.Equal(t, uint64(42), summary.Secondaries[0].Base)
	assert.Equal(t, uint64(7), summary.Secondaries[0].Asset.Raw)
	assert.False(t, summary.Secondaries[1].Known)
	assert.True(t, summary.Main.Known)

	text, err := svc.Render(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "panel:mint", text)
}
