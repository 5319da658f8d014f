// Package feeder generates randomized subscriber statements and bulk-loads
// them into the store, for demos and load tests.
package feeder

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-billing/internal/money"
	"github.com/noah-isme/backend-billing/internal/msisdn"
	"github.com/noah-isme/backend-billing/internal/obs"
	"github.com/noah-isme/backend-billing/internal/period"
	"github.com/noah-isme/backend-billing/internal/statement"
	"github.com/noah-isme/backend-billing/internal/store"
)

const (
	defaultRowsPerStatement = 13
	defaultBatchSize        = 100
	defaultCurrency         = "EUR"
)

// Feeder writes batches of generated statements. Rand is injected so runs
// can be made deterministic in tests.
type Feeder struct {
	Store            *store.Store
	Logger           zerolog.Logger
	Rand             *rand.Rand
	RowsPerStatement int
	BatchSize        int
	Currency         string
}

// Feed generates count subscriber statements, each with a fixed number of
// random charge rows plus one precomputed group total, and writes them in
// pipeline batches. Returns the ids written.
func (f *Feeder) Feed(ctx context.Context, count int) ([]string, error) {
	rows := f.RowsPerStatement
	if rows <= 0 {
		rows = defaultRowsPerStatement
	}
	batchSize := f.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	run := uuid.NewString()
	log := f.Logger.With().Str("run", run).Int("count", count).Logger()
	log.Info().Msg("feed started")

	ids := make([]string, 0, count)
	batch := make([]*statement.Statement, 0, batchSize)
	for i := 0; i < count; i++ {
		st, err := f.generateStatement(run, i, rows)
		if err != nil {
			return nil, fmt.Errorf("feeder: statement %d: %w", i, err)
		}
		ids = append(ids, st.ID)
		batch = append(batch, st)
		if len(batch) == batchSize {
			if err := f.Store.PutBatch(ctx, batch); err != nil {
				return nil, err
			}
			batch = batch[:0]
		}
	}
	if err := f.Store.PutBatch(ctx, batch); err != nil {
		return nil, err
	}
	if obs.StatementsFedTotal != nil {
		obs.StatementsFedTotal.Add(float64(len(ids)))
	}
	log.Info().Int("written", len(ids)).Msg("feed finished")
	return ids, nil
}

func (f *Feeder) generateStatement(run string, index, rowCount int) (*statement.Statement, error) {
	local := strconv.Itoa(f.Rand.Intn(100000000))
	number, err := msisdn.New(strconv.Itoa(1+f.Rand.Intn(99)), local)
	if err != nil {
		return nil, err
	}
	billSequence := 1 + f.Rand.Intn(1000000)
	p := f.generatePeriod()
	accountID := fmt.Sprintf("%s-%d", run, index)

	st, err := statement.NewSubscriber(accountID, billSequence, number, &p)
	if err != nil {
		return nil, err
	}
	rows := make([]*statement.Row, 0, rowCount)
	for j := 0; j < rowCount; j++ {
		row, err := f.generateRow()
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if err := st.AddRows(rows); err != nil {
		return nil, err
	}
	total, err := f.generateRow()
	if err != nil {
		return nil, err
	}
	st.SetGroupTotals([]*statement.Row{total})
	return st, nil
}

// generatePeriod picks a random interval inside a multi-year billing window.
func (f *Feeder) generatePeriod() period.TimePeriod {
	begin := time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2015, time.December, 31, 0, 58, 0, 0, time.UTC)
	window := end.Sub(begin)

	start := begin.Add(time.Duration(f.Rand.Int63n(int64(window))))
	finish := start.Add(time.Duration(f.Rand.Int63n(int64(window))))
	return period.New(start, finish)
}

func (f *Feeder) generateRow() (*statement.Row, error) {
	currency := f.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	value := decimal.NewFromFloat(f.Rand.Float64() * 100).Truncate(2)
	total, err := money.New(value, currency)
	if err != nil {
		return nil, err
	}
	return &statement.Row{
		GroupName: strconv.Itoa(f.Rand.Intn(10000)),
		Name:      strconv.Itoa(f.Rand.Intn(10000000)),
		Total:     &total,
	}, nil
}
