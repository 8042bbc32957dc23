package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mauv0809/etf-flows/internal/models"
)

func sampleFlow(key string, cob time.Time, total int64) models.StoredFlow {
	return models.StoredFlow{
		ETF:             "btc",
		Key:             key,
		Day:             cob.Format("Mon 02 Jan 2006"),
		CloseOfBusiness: cob,
		Flows:           map[string]decimal.Decimal{"IBIT": decimal.NewFromInt(total)},
		Total:           decimal.NewFromInt(total),
		Rank:            1,
		Raw:             []byte(`{"IBIT":"` + decimal.NewFromInt(total).String() + `"}`),
	}
}

func TestMemoryStore_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	cob := time.Date(2024, 1, 2, 17, 0, 0, 0, time.UTC)

	created, err := s.UpsertFlow(ctx, sampleFlow("tue-02-jan-2024", cob, 20))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.UpsertFlow(ctx, sampleFlow("tue-02-jan-2024", cob, 20))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, s.Len("btc"))

	got, err := s.FindFlow(ctx, "btc", "tue-02-jan-2024")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(20).Equal(got.Total))
	assert.False(t, got.CreatedAt.After(got.UpdatedAt))
}

func TestMemoryStore_ListOrdersByCloseOfBusiness(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for i, d := range []int{5, 1, 3} {
		cob := time.Date(2024, 1, d, 17, 0, 0, 0, time.UTC)
		_, err := s.UpsertFlow(ctx, sampleFlow(cob.Format("02"), cob, int64(i)))
		require.NoError(t, err)
	}

	list, err := s.ListFlows(ctx, "btc")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"01", "03", "05"}, []string{list[0].Key, list[1].Key, list[2].Key})

	empty, err := s.ListFlows(ctx, "eth")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryStore_NotFoundAndFailure(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.FindFlow(ctx, "btc", "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	boom := errors.New("connection reset")
	s.FailOn = map[string]error{"bad": boom}
	_, err = s.UpsertFlow(ctx, sampleFlow("bad", time.Now(), 1))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.Len("btc"))
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	cob := time.Date(2024, 1, 2, 17, 0, 0, 0, time.UTC)
	_, err := s.UpsertFlow(ctx, sampleFlow("k", cob, 1))
	require.NoError(t, err)

	got, _ := s.FindFlow(ctx, "btc", "k")
	got.Flows["IBIT"] = decimal.NewFromInt(999)

	again, _ := s.FindFlow(ctx, "btc", "k")
	assert.True(t, decimal.NewFromInt(1).Equal(again.Flows["IBIT"]))
}
