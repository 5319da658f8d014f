// Package server exposes the statement store over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-billing/internal/common"
	"github.com/noah-isme/backend-billing/internal/discount"
	"github.com/noah-isme/backend-billing/internal/money"
	"github.com/noah-isme/backend-billing/internal/msisdn"
	"github.com/noah-isme/backend-billing/internal/obs"
	"github.com/noah-isme/backend-billing/internal/period"
	"github.com/noah-isme/backend-billing/internal/quantity"
	"github.com/noah-isme/backend-billing/internal/statement"
	"github.com/noah-isme/backend-billing/internal/store"
	"github.com/noah-isme/backend-billing/internal/tasks"
)

// Handler serves the statement endpoints. Tasks is optional; without it,
// processing runs inline in the request.
type Handler struct {
	Store    *store.Store
	Tasks    *asynq.Client
	Validate *validator.Validate
	Logger   zerolog.Logger
}

// Routes mounts the statement endpoints on the router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/statements", h.Create)
	r.Get("/statements/{statementId}", h.Get)
	r.Post("/statements/{statementId}/rows", h.AppendRows)
	r.Post("/statements/{statementId}/process", h.Process)
}

type createStatementRequest struct {
	CustomerAccountID string     `json:"customerAccountId" validate:"required"`
	BillSequence      int        `json:"billSequence" validate:"gte=0"`
	Subscriber        string     `json:"subscriber"`
	PeriodStart       *time.Time `json:"periodStart"`
	PeriodEnd         *time.Time `json:"periodEnd"`
}

type amountPayload struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type quantityPayload struct {
	Value string `json:"value"`
	Unit  string `json:"unit"`
}

type rowPayload struct {
	Name               string           `json:"name"`
	FeatureCategory    string           `json:"featureCategory"`
	GroupName          string           `json:"groupName"`
	DiscountCode       string           `json:"discountCode"`
	Duration           *quantityPayload `json:"duration"`
	Quantity           *quantityPayload `json:"quantity"`
	TotalAmount        *amountPayload   `json:"totalAmount"`
	DiscountPercentage string           `json:"discountPercentage"`
	DiscountAmount     *amountPayload   `json:"discountAmount"`
	PeriodStart        *time.Time       `json:"periodStart"`
	PeriodEnd          *time.Time       `json:"periodEnd"`
}

type appendRowsRequest struct {
	Rows []rowPayload `json:"rows" validate:"required,min=1"`
}

// Create builds an empty statement and stores it. A subscriber dial string
// yields a subscriber-level statement, its absence an account-level one.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createStatementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, badRequest("invalid JSON body", nil, err))
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		h.respondError(w, common.NewAppError("VALIDATION", "invalid request", http.StatusBadRequest, err).WithDetails(err.Error()))
		return
	}

	var p *period.TimePeriod
	if req.PeriodStart != nil || req.PeriodEnd != nil {
		tp := period.New(deref(req.PeriodStart), deref(req.PeriodEnd))
		p = &tp
	}

	var st *statement.Statement
	var err error
	if req.Subscriber != "" {
		number, perr := msisdn.Parse(req.Subscriber)
		if perr != nil {
			h.respondError(w, badRequest("invalid subscriber number", perr.Error(), perr))
			return
		}
		st, err = statement.NewSubscriber(req.CustomerAccountID, req.BillSequence, number, p)
	} else {
		st, err = statement.NewAccount(req.CustomerAccountID, req.BillSequence, p)
	}
	if err != nil {
		h.respondError(w, badRequest(err.Error(), nil, err))
		return
	}

	if err := h.Store.Put(r.Context(), st); err != nil {
		h.Logger.Error().Err(err).Str("id", st.ID).Msg("store statement")
		h.respondError(w, storeFailure(err))
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"id": st.ID, "level": st.Level.String()})
}

// Get fetches a statement by id.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	st, ok := h.load(w, r)
	if !ok {
		return
	}
	common.JSON(w, http.StatusOK, st)
}

// AppendRows folds rows into an unprocessed statement.
func (h *Handler) AppendRows(w http.ResponseWriter, r *http.Request) {
	var req appendRowsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, badRequest("invalid JSON body", nil, err))
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		h.respondError(w, common.NewAppError("VALIDATION", "invalid request", http.StatusBadRequest, err).WithDetails(err.Error()))
		return
	}

	st, ok := h.load(w, r)
	if !ok {
		return
	}
	if st.Processed {
		h.respondError(w, conflict("statement already processed", statement.ErrAlreadyProcessed))
		return
	}

	rows := make([]*statement.Row, 0, len(req.Rows))
	for i, payload := range req.Rows {
		row, err := payload.toRow()
		if err != nil {
			h.respondError(w, badRequest("invalid row", map[string]any{"index": i, "reason": err.Error()}, err))
			return
		}
		rows = append(rows, row)
	}
	if err := st.AddRows(rows); err != nil {
		h.respondError(w, badRequest(err.Error(), nil, err))
		return
	}
	if err := h.Store.Put(r.Context(), st); err != nil {
		h.Logger.Error().Err(err).Str("id", st.ID).Msg("store statement")
		h.respondError(w, storeFailure(err))
		return
	}
	if obs.RowsAppendedTotal != nil {
		obs.RowsAppendedTotal.Add(float64(len(rows)))
	}
	common.JSON(w, http.StatusOK, map[string]any{"id": st.ID, "rows": len(st.Rows)})
}

// Process finalizes a statement. With a task client the work is enqueued,
// otherwise it runs inline.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	st, ok := h.load(w, r)
	if !ok {
		return
	}
	if st.Processed {
		h.respondError(w, conflict("statement already processed", statement.ErrAlreadyProcessed))
		return
	}

	if h.Tasks != nil {
		task, err := tasks.NewProcessTask(st.ID)
		if err != nil {
			h.respondError(w, common.NewAppError("INTERNAL", "failed to build task", http.StatusInternalServerError, err))
			return
		}
		if _, err := h.Tasks.EnqueueContext(r.Context(), task); err != nil {
			h.Logger.Error().Err(err).Str("id", st.ID).Msg("enqueue process task")
			h.respondError(w, common.NewAppError("INTERNAL", "failed to enqueue task", http.StatusInternalServerError, err))
			return
		}
		common.JSON(w, http.StatusAccepted, map[string]any{"id": st.ID, "status": "queued"})
		return
	}

	if err := st.PostProcess(); err != nil {
		h.respondError(w, conflict(err.Error(), err))
		return
	}
	if err := h.Store.Put(r.Context(), st); err != nil {
		h.Logger.Error().Err(err).Str("id", st.ID).Msg("store statement")
		h.respondError(w, storeFailure(err))
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"id": st.ID, "rows": len(st.Rows), "groupTotals": len(st.GroupTotals)})
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*statement.Statement, bool) {
	id := chi.URLParam(r, "statementId")
	st, err := h.Store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.respondError(w, common.NewAppError("NOT_FOUND", "statement not found", http.StatusNotFound, err))
		return nil, false
	}
	if err != nil {
		h.Logger.Error().Err(err).Str("id", id).Msg("load statement")
		h.respondError(w, common.NewAppError("INTERNAL", "failed to load statement", http.StatusInternalServerError, err))
		return nil, false
	}
	return st, true
}

// respondError renders an AppError with its own status and code. Anything
// else falls back to a generic 500.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var app *common.AppError
	if errors.As(err, &app) {
		common.JSONError(w, app.HTTPStatus, app.Code, app.Message, app.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}

func badRequest(message string, details any, err error) *common.AppError {
	return common.NewAppError("BAD_REQUEST", message, http.StatusBadRequest, err).WithDetails(details)
}

func conflict(message string, err error) *common.AppError {
	return common.NewAppError("CONFLICT", message, http.StatusConflict, err)
}

func storeFailure(err error) *common.AppError {
	return common.NewAppError("INTERNAL", "failed to store statement", http.StatusInternalServerError, err)
}

func (p rowPayload) toRow() (*statement.Row, error) {
	row := &statement.Row{
		Name:         p.Name,
		Category:     p.FeatureCategory,
		GroupName:    p.GroupName,
		DiscountCode: p.DiscountCode,
	}
	if p.Duration != nil {
		d := quantity.NewText(p.Duration.Value, p.Duration.Unit)
		row.Duration = &d
	}
	if p.Quantity != nil {
		q := quantity.NewText(p.Quantity.Value, p.Quantity.Unit)
		row.Quantity = &q
	}
	if p.TotalAmount != nil {
		total, err := money.Parse(p.TotalAmount.Value, p.TotalAmount.Currency)
		if err != nil {
			return nil, err
		}
		row.Total = &total
	}
	if p.DiscountPercentage != "" || p.DiscountAmount != nil {
		percentage := decimal.NullDecimal{}
		if p.DiscountPercentage != "" {
			value, err := decimal.NewFromString(p.DiscountPercentage)
			if err != nil {
				return nil, err
			}
			percentage = decimal.NewNullDecimal(value)
		}
		var amount *money.Amount
		if p.DiscountAmount != nil {
			parsed, err := money.Parse(p.DiscountAmount.Value, p.DiscountAmount.Currency)
			if err != nil {
				return nil, err
			}
			amount = &parsed
		}
		d, err := discount.New(percentage, amount)
		if err != nil {
			return nil, err
		}
		row.Discount = &d
	}
	if p.PeriodStart != nil || p.PeriodEnd != nil {
		tp := period.New(deref(p.PeriodStart), deref(p.PeriodEnd))
		row.Period = &tp
	}
	return row, nil
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
