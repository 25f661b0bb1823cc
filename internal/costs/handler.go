package costs

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/terra-erp/terra-erp/internal/masterdata/shared"
	"github.com/terra-erp/terra-erp/internal/platform/httpx"
)

type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers crop cycle cost routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/summary", h.summary)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
}

type costForm struct {
	CropID          int64            `json:"crop_id" validate:"required,gt=0"`
	ProductID       int64            `json:"product_id" validate:"required,gt=0"`
	ApplicationDate string           `json:"application_date" validate:"required"`
	Quantity        decimal.Decimal  `json:"quantity"`
	Unit            string           `json:"unit" validate:"required"`
	Method          *string          `json:"application_method"`
	Dosage          *string          `json:"dosage"`
	Weather         *string          `json:"weather_conditions"`
	Observations    *string          `json:"observations"`
	ApplicationCost *decimal.Decimal `json:"application_cost"`
	TotalCost       *decimal.Decimal `json:"total_cost"`
}

func (f costForm) toModel() (CropCycleCost, error) {
	date, err := time.Parse("2006-01-02", f.ApplicationDate)
	if err != nil {
		return CropCycleCost{}, err
	}
	return CropCycleCost{
		CropID:          f.CropID,
		ProductID:       f.ProductID,
		ApplicationDate: date,
		Quantity:        f.Quantity,
		Unit:            shared.Unit(f.Unit),
		Method:          f.Method,
		Dosage:          f.Dosage,
		Weather:         f.Weather,
		Observations:    f.Observations,
		ApplicationCost: f.ApplicationCost,
		TotalCost:       f.TotalCost,
	}, nil
}

type listResponse struct {
	Items []CropCycleCost `json:"items"`
	Total int             `json:"total"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := Filters{}
	filters.Page, _ = strconv.Atoi(q.Get("page"))
	filters.Limit, _ = strconv.Atoi(q.Get("limit"))
	if v := q.Get("crop_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid crop id")
			return
		}
		filters.CropID = &id
	}
	if v := q.Get("product_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product id")
			return
		}
		filters.ProductID = &id
	}
	if v := q.Get("from"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid from date")
			return
		}
		filters.From = &d
	}
	if v := q.Get("to"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid to date")
			return
		}
		filters.To = &d
	}

	items, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondErr(w, "list costs", err)
		return
	}
	if items == nil {
		items = []CropCycleCost{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: items, Total: total})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid cost id")
		return
	}
	cost, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, "get cost", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cost)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	form, ok := h.decode(w, r)
	if !ok {
		return
	}
	model, err := form.toModel()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid application date")
		return
	}
	cost, err := h.service.Create(r.Context(), model, 0)
	if err != nil {
		h.respondErr(w, "create cost", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, cost)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid cost id")
		return
	}
	form, ok := h.decode(w, r)
	if !ok {
		return
	}
	model, err := form.toModel()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid application date")
		return
	}
	cost, err := h.service.Update(r.Context(), id, model, 0)
	if err != nil {
		h.respondErr(w, "update cost", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cost)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	cropID, err := strconv.ParseInt(r.URL.Query().Get("crop_id"), 10, 64)
	if err != nil || cropID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "crop_id query parameter required")
		return
	}
	totals, err := h.service.Summary(r.Context(), cropID)
	if err != nil {
		h.respondErr(w, "cost summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, totals)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (costForm, bool) {
	var form costForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return costForm{}, false
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return costForm{}, false
	}
	return form, true
}

func (h *Handler) respondErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
