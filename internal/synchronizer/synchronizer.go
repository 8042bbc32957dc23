// Package synchronizer maps enriched day records onto the durable store
// under a deterministic natural key.
package synchronizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mauv0809/etf-flows/internal/db"
	"github.com/mauv0809/etf-flows/internal/models"
)

// DayLayout is the human-readable day format the natural key derives from.
const DayLayout = "Mon 02 Jan 2006"

// closeOfBusinessHour normalizes every stored day to the same UTC hour.
const closeOfBusinessHour = 17

// Action tells whether an upsert created or updated its entry.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// Result describes one applied upsert.
type Result struct {
	Action Action          `json:"action"`
	Key    string          `json:"key"`
	Day    string          `json:"day"`
	Total  decimal.Decimal `json:"total"`
}

// PersistenceError wraps a store failure for one natural key.
type PersistenceError struct {
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting %s: %v", e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NaturalKey derives the idempotency key of a date, e.g. "tue-02-jan-2024".
func NaturalKey(date time.Time) string {
	return strings.ReplaceAll(strings.ToLower(DisplayDay(date)), " ", "-")
}

// DisplayDay formats a date the way it is stored and shown.
func DisplayDay(date time.Time) string {
	return date.UTC().Format(DayLayout)
}

// CloseOfBusiness returns the canonical timestamp of a calendar date.
func CloseOfBusiness(date time.Time) time.Time {
	y, m, d := date.UTC().Date()
	return time.Date(y, m, d, closeOfBusinessHour, 0, 0, 0, time.UTC)
}

// ToStoredFlow builds the persisted entity of rec, including a JSON snapshot
// of the enriched record.
func ToStoredFlow(etf string, rec models.DayRecord) (models.StoredFlow, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return models.StoredFlow{}, fmt.Errorf("encoding snapshot: %w", err)
	}

	flows := make(map[string]decimal.Decimal, len(rec.Values))
	for t, v := range rec.Values {
		flows[t] = v
	}

	return models.StoredFlow{
		ETF:             etf,
		Key:             NaturalKey(rec.Date),
		Day:             DisplayDay(rec.Date),
		CloseOfBusiness: CloseOfBusiness(rec.Date),
		Flows:           flows,
		Total:           rec.Total,
		Rank:            rec.Rank,
		Raw:             raw,
	}, nil
}

// Synchronizer upserts day records of one ETF family.
type Synchronizer struct {
	store db.Store
	etf   string
}

// New creates a synchronizer bound to store for the etf family.
func New(store db.Store, etf string) *Synchronizer {
	return &Synchronizer{store: store, etf: etf}
}

// Upsert creates or updates the entry of rec. Store failures come back as
// *PersistenceError.
func (s *Synchronizer) Upsert(ctx context.Context, rec models.DayRecord) (Result, error) {
	flow, err := ToStoredFlow(s.etf, rec)
	if err != nil {
		return Result{}, &PersistenceError{Key: NaturalKey(rec.Date), Err: err}
	}

	created, err := s.store.UpsertFlow(ctx, flow)
	if err != nil {
		return Result{}, &PersistenceError{Key: flow.Key, Err: err}
	}

	res := Result{Action: ActionUpdated, Key: flow.Key, Day: flow.Day, Total: flow.Total}
	if created {
		res.Action = ActionCreated
	}
	return res, nil
}
