package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mauv0809/etf-flows/internal/catalog"
	"github.com/mauv0809/etf-flows/internal/db"
)

type countingFetcher struct{ n atomic.Int32 }

func (f *countingFetcher) FetchMarkup(context.Context, string) (string, error) {
	f.n.Add(1)
	return twoDayTable, nil
}

func TestSchedule(t *testing.T) {
	f := &countingFetcher{}
	p := New(f, db.NewMemoryStore(), nil, nil, Config{})

	eth := testSource()
	eth.ID = "eth"
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Schedule(ctx, 10*time.Millisecond, []*catalog.Source{testSource(), eth}) }()

	require.Eventually(t, func() bool { return f.n.Load() >= 4 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	rep, ok := p.Last("eth")
	require.True(t, ok)
	assert.Equal(t, TriggerSchedule, rep.Trigger)
	assert.Equal(t, OutcomeDone, rep.Outcome)
}
