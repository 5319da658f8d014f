// Package tasks defines the asynq task types and handlers for background
// feeding and statement post-processing.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-billing/internal/feeder"
	"github.com/noah-isme/backend-billing/internal/obs"
	"github.com/noah-isme/backend-billing/internal/statement"
	"github.com/noah-isme/backend-billing/internal/store"
)

func countProcessed(result string) {
	if obs.StatementsProcessedTotal != nil {
		obs.StatementsProcessedTotal.WithLabelValues(result).Inc()
	}
}

const (
	// TypeFeed bulk-generates statements.
	TypeFeed = "statement:feed"
	// TypeProcess finalizes one statement.
	TypeProcess = "statement:process"
)

// FeedPayload is the body of a TypeFeed task.
type FeedPayload struct {
	Count int `json:"count"`
}

// ProcessPayload is the body of a TypeProcess task.
type ProcessPayload struct {
	StatementID string `json:"statementId"`
}

// NewFeedTask returns a task that generates count statements.
func NewFeedTask(count int) (*asynq.Task, error) {
	payload, err := json.Marshal(FeedPayload{Count: count})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeFeed, payload), nil
}

// NewProcessTask returns a task that post-processes the statement.
func NewProcessTask(statementID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ProcessPayload{StatementID: statementID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeProcess, payload), nil
}

// Handler executes feed and process tasks against the store.
type Handler struct {
	Store  *store.Store
	Feeder *feeder.Feeder
	Logger zerolog.Logger
}

// Register attaches the handlers to the mux.
func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeFeed, h.HandleFeed)
	mux.HandleFunc(TypeProcess, h.HandleProcess)
}

// HandleFeed runs a bulk feed.
func (h *Handler) HandleFeed(ctx context.Context, task *asynq.Task) error {
	var payload FeedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("tasks: decode feed payload: %w", err)
	}
	ids, err := h.Feeder.Feed(ctx, payload.Count)
	if err != nil {
		return err
	}
	h.Logger.Info().Int("written", len(ids)).Msg("feed task done")
	return nil
}

// HandleProcess loads the statement, post-processes it and stores it back.
// A statement that was already processed is left as is.
func (h *Handler) HandleProcess(ctx context.Context, task *asynq.Task) error {
	var payload ProcessPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("tasks: decode process payload: %w", err)
	}
	st, err := h.Store.Get(ctx, payload.StatementID)
	if err != nil {
		return err
	}
	start := time.Now()
	if err := st.PostProcess(); err != nil {
		if errors.Is(err, statement.ErrAlreadyProcessed) {
			h.Logger.Warn().Str("id", st.ID).Msg("statement already processed")
			countProcessed("skipped")
			return nil
		}
		countProcessed("error")
		return err
	}
	if err := h.Store.Put(ctx, st); err != nil {
		return err
	}
	countProcessed("ok")
	if obs.ProcessLatency != nil {
		obs.ProcessLatency.Observe(float64(time.Since(start).Milliseconds()))
	}
	h.Logger.Info().Str("id", st.ID).Int("rows", len(st.Rows)).Msg("statement processed")
	return nil
}
