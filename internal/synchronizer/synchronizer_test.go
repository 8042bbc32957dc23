package synchronizer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mauv0809/etf-flows/internal/db"
	"github.com/mauv0809/etf-flows/internal/models"
)

func record() models.DayRecord {
	return models.DayRecord{
		Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Values: map[string]decimal.Decimal{
			"TICKER_A": decimal.Zero,
			"TICKER_B": decimal.NewFromInt(20),
		},
		Total: decimal.NewFromInt(20),
		Rank:  1,
		Raw:   map[string]string{"Date": "Jan 02 2024", "TICKER_A": "-", "TICKER_B": "20", "Total": "20"},
	}
}

func TestNaturalKey(t *testing.T) {
	assert.Equal(t, "tue-02-jan-2024", NaturalKey(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "mon-01-jan-2024", NaturalKey(time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)))

	paris, err := time.LoadLocation("Europe/Paris")
	if err == nil {
		d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, NaturalKey(d), NaturalKey(d.In(paris)), "stable across zones")
	}
}

func TestCloseOfBusiness(t *testing.T) {
	got := CloseOfBusiness(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 3, 9, 17, 0, 0, 0, time.UTC), got)
}

func TestToStoredFlow(t *testing.T) {
	flow, err := ToStoredFlow("btc", record())
	require.NoError(t, err)

	assert.Equal(t, "btc", flow.ETF)
	assert.Equal(t, "tue-02-jan-2024", flow.Key)
	assert.Equal(t, "Tue 02 Jan 2024", flow.Day)
	assert.Equal(t, 1, flow.Rank)
	assert.True(t, decimal.NewFromInt(20).Equal(flow.Flows["TICKER_B"]))

	var snapshot models.DayRecord
	require.NoError(t, json.Unmarshal(flow.Raw, &snapshot))
	assert.Equal(t, "-", snapshot.Raw["TICKER_A"])
	assert.True(t, decimal.NewFromInt(20).Equal(snapshot.Total))
}

func TestSynchronizer_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	s := New(store, "btc")

	first, err := s.Upsert(ctx, record())
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, first.Action)
	assert.Equal(t, "tue-02-jan-2024", first.Key)

	before, err := store.FindFlow(ctx, "btc", first.Key)
	require.NoError(t, err)

	second, err := s.Upsert(ctx, record())
	require.NoError(t, err)
	assert.Equal(t, ActionUpdated, second.Action)
	assert.Equal(t, first.Key, second.Key)
	assert.Equal(t, 1, store.Len("btc"))

	after, err := store.FindFlow(ctx, "btc", first.Key)
	require.NoError(t, err)
	assert.True(t, before.Total.Equal(after.Total))
	assert.Equal(t, len(before.Flows), len(after.Flows))
	for k, v := range before.Flows {
		assert.True(t, v.Equal(after.Flows[k]), k)
	}
}

func TestSynchronizer_UpsertPropagatesStoreFailure(t *testing.T) {
	store := db.NewMemoryStore()
	boom := errors.New("connection refused")
	store.FailOn = map[string]error{"tue-02-jan-2024": boom}

	_, err := New(store, "btc").Upsert(context.Background(), record())

	var persistErr *PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, "tue-02-jan-2024", persistErr.Key)
	assert.ErrorIs(t, err, boom)
}
