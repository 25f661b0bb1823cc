package kardex

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/terra-erp/terra-erp/internal/platform/httpx"
	internalshared "github.com/terra-erp/terra-erp/internal/shared"
)

type Handler struct {
	logger    *slog.Logger
	service   *Service
	idem      *internalshared.IdempotencyStore
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service, idem *internalshared.IdempotencyStore) *Handler {
	return &Handler{logger: logger, service: service, idem: idem, validator: validator.New()}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/products/{productID}", func(r chi.Router) {
		r.Get("/transactions", h.listTransactions)
		r.Get("/balance", h.balance)
		r.Post("/entries", h.recordEntry)
		r.Post("/exits", h.recordExit)
		r.Post("/recompute", h.recompute)
	})
	r.Put("/transactions/{id}", h.updateTransaction)
}

type movementForm struct {
	Date     string          `json:"date" validate:"required"`
	Quantity decimal.Decimal `json:"quantity"`
	CropID   *int64          `json:"crop_id"`
	Note     string          `json:"note"`
}

type updateForm struct {
	EntryDate string           `json:"entry_date"`
	EntryQty  *decimal.Decimal `json:"entry_quantity"`
	ExitDate  string           `json:"exit_date"`
	ExitQty   *decimal.Decimal `json:"exit_quantity"`
	CropID    *int64           `json:"crop_id"`
	Note      *string          `json:"note"`
}

type listTransactionsResponse struct {
	Items []Transaction `json:"items"`
	Total int           `json:"total"`
}

type balanceResponse struct {
	ProductID int64           `json:"product_id"`
	Balance   decimal.Decimal `json:"balance"`
}

type recomputeResponse struct {
	ProductID int64 `json:"product_id"`
	Changed   int   `json:"changed"`
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product id")
		return
	}
	items, err := h.service.ListTransactions(r.Context(), productID)
	if err != nil {
		h.respondErr(w, "list transactions", err)
		return
	}
	if items == nil {
		items = []Transaction{}
	}
	httpx.JSON(w, http.StatusOK, listTransactionsResponse{Items: items, Total: len(items)})
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product id")
		return
	}
	balance, err := h.service.GetBalance(r.Context(), productID)
	if err != nil {
		h.respondErr(w, "get balance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, balanceResponse{ProductID: productID, Balance: balance})
}

func (h *Handler) recordEntry(w http.ResponseWriter, r *http.Request) {
	productID, form, ok := h.decodeMovement(w, r)
	if !ok {
		return
	}
	date, err := time.Parse("2006-01-02", form.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid date")
		return
	}
	key, ok := h.claimIdempotency(w, r)
	if !ok {
		return
	}
	tx, err := h.service.RecordEntry(r.Context(), EntryInput{
		ProductID: productID,
		Date:      date,
		Quantity:  form.Quantity,
		Note:      form.Note,
	})
	if err != nil {
		h.releaseIdempotency(r, key)
		h.respondErr(w, "record entry", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tx)
}

func (h *Handler) recordExit(w http.ResponseWriter, r *http.Request) {
	productID, form, ok := h.decodeMovement(w, r)
	if !ok {
		return
	}
	date, err := time.Parse("2006-01-02", form.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid date")
		return
	}
	key, ok := h.claimIdempotency(w, r)
	if !ok {
		return
	}
	tx, err := h.service.RecordExit(r.Context(), ExitInput{
		ProductID: productID,
		Date:      date,
		Quantity:  form.Quantity,
		CropID:    form.CropID,
		Note:      form.Note,
	})
	if err != nil {
		h.releaseIdempotency(r, key)
		h.respondErr(w, "record exit", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tx)
}

func (h *Handler) updateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid transaction id")
		return
	}
	var form updateForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	input := UpdateInput{
		EntryQty: form.EntryQty,
		ExitQty:  form.ExitQty,
		CropID:   form.CropID,
		Note:     form.Note,
	}
	if form.EntryDate != "" {
		d, err := time.Parse("2006-01-02", form.EntryDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry date")
			return
		}
		input.EntryDate = &d
	}
	if form.ExitDate != "" {
		d, err := time.Parse("2006-01-02", form.ExitDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid exit date")
			return
		}
		input.ExitDate = &d
	}
	tx, err := h.service.UpdateTransaction(r.Context(), id, input)
	if err != nil {
		h.respondErr(w, "update transaction", err)
		return
	}
	httpx.JSON(w, http.StatusOK, tx)
}

func (h *Handler) recompute(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product id")
		return
	}
	changed, err := h.service.Recompute(r.Context(), productID)
	if err != nil {
		h.respondErr(w, "recompute balances", err)
		return
	}
	httpx.JSON(w, http.StatusOK, recomputeResponse{ProductID: productID, Changed: changed})
}

func (h *Handler) decodeMovement(w http.ResponseWriter, r *http.Request) (int64, movementForm, bool) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product id")
		return 0, movementForm{}, false
	}
	var form movementForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return 0, movementForm{}, false
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return 0, movementForm{}, false
	}
	return productID, form, true
}

// claimIdempotency reserves the request's Idempotency-Key when one is sent.
// Requests without the header are processed unconditionally.
func (h *Handler) claimIdempotency(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := r.Header.Get("Idempotency-Key")
	if key == "" || h.idem == nil {
		return "", true
	}
	if err := h.idem.CheckAndInsert(r.Context(), key, "kardex"); err != nil {
		if errors.Is(err, internalshared.ErrIdempotencyConflict) {
			httpx.Problem(w, http.StatusConflict, "Conflict", "request already processed")
			return "", false
		}
		h.logger.Error("idempotency check", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return "", false
	}
	return key, true
}

// releaseIdempotency frees the key after a failed write so the client can
// retry with the same key.
func (h *Handler) releaseIdempotency(r *http.Request, key string) {
	if key == "" || h.idem == nil {
		return
	}
	if err := h.idem.Delete(r.Context(), key); err != nil {
		h.logger.Warn("idempotency rollback", slog.Any("error", err))
	}
}

func (h *Handler) respondErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrIneligibleProduct):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error())
	case errors.Is(err, ErrTransactionNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrEmptyTransaction):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
