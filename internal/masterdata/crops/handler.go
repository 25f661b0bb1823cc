package crops

import (
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

// MountRoutes registers crop catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
}

// CropForm is the create/update payload.
type CropForm struct {
	PlotName             string           `json:"plot_name" validate:"required"`
	CropType             string           `json:"crop_type" validate:"required"`
	Variety              *string          `json:"variety,omitempty"`
	PlantingDate         string           `json:"planting_date" validate:"required"`
	EstimatedHarvestDate *string          `json:"estimated_harvest_date,omitempty"`
	Status               string           `json:"status,omitempty"`
	PlantedArea          decimal.Decimal  `json:"planted_area"`
	ExpectedYield        *decimal.Decimal `json:"expected_yield,omitempty"`
	Observations         *string          `json:"observations,omitempty"`
	IsActive             bool             `json:"is_active"`
}

func (f CropForm) toModel() (Crop, error) {
	planting, err := time.Parse("2006-01-02", f.PlantingDate)
	if err != nil {
		return Crop{}, err
	}
	c := Crop{
		PlotName:      f.PlotName,
		CropType:      f.CropType,
		Variety:       f.Variety,
		PlantingDate:  planting,
		Status:        Status(f.Status),
		PlantedArea:   f.PlantedArea,
		ExpectedYield: f.ExpectedYield,
		Observations:  f.Observations,
		IsActive:      f.IsActive,
	}
	if f.EstimatedHarvestDate != nil && *f.EstimatedHarvestDate != "" {
		d, err := time.Parse("2006-01-02", *f.EstimatedHarvestDate)
		if err != nil {
			return Crop{}, err
		}
		c.EstimatedHarvestDate = &d
	}
	return c, nil
}

type listResponse struct {
	Items []Crop `json:"items"`
	Total int    `json:"total"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = shared.DefaultPage
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = shared.DefaultLimit
	}
	filters := shared.ListFilters{
		Page:    page,
		Limit:   limit,
		Search:  q.Get("search"),
		Status:  q.Get("status"),
		SortBy:  q.Get("sort"),
		SortDir: q.Get("dir"),
	}
	if q.Get("is_active") != "" {
		isActive := q.Get("is_active") == "true"
		filters.IsActive = &isActive
	}

	items, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list crops", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if items == nil {
		items = []Crop{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: items, Total: total})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid crop id")
		return
	}
	crop, err := h.service.Get(r.Context(), id)
	if err != nil {
		if err == shared.ErrNotFound {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("get crop", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, crop)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var form CropForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	model, err := form.toModel()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid date")
		return
	}
	crop, err := h.service.Create(r.Context(), model)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, crop)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid crop id")
		return
	}
	var form CropForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	model, err := form.toModel()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid date")
		return
	}
	if err := h.service.Update(r.Context(), id, model); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
