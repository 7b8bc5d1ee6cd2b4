package locator

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hope-platform/hope-backend/internal/directory"
)

// Maintainer is the write access used by the admin routes.
type Maintainer interface {
	AddClosure(ctx context.Context, c *directory.TemporaryClosure) error
	SoftDeleteLocation(ctx context.Context, id uuid.UUID) error
}

type closureRequest struct {
	StartDate   string  `json:"start_date"`
	EndDate     *string `json:"end_date"`
	Reason      string  `json:"reason"`
	Description string  `json:"description"`
	AlertType   string  `json:"alert_type"`
	IsUrgent    bool    `json:"is_urgent"`
}

func (req closureRequest) closure(locationID uuid.UUID) (*directory.TemporaryClosure, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return nil, badRequest{"reason is required"}
	}
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return nil, badRequest{"start_date must be YYYY-MM-DD"}
	}
	c := &directory.TemporaryClosure{
		LocationID:  locationID,
		StartDate:   start,
		Reason:      strings.TrimSpace(req.Reason),
		Description: strings.TrimSpace(req.Description),
		AlertType:   req.AlertType,
		IsUrgent:    req.IsUrgent,
		IsActive:    true,
	}
	if c.AlertType == "" {
		c.AlertType = "closure"
	}
	if req.EndDate != nil && *req.EndDate != "" {
		end, err := time.Parse(dateLayout, *req.EndDate)
		if err != nil {
			return nil, badRequest{"end_date must be YYYY-MM-DD"}
		}
		if end.Before(start) {
			return nil, badRequest{"end_date must not be before start_date"}
		}
		c.EndDate = &end
	}
	return c, nil
}

// CreateClosure handles POST /admin/locations/{id}/closures
func (h *Handlers) CreateClosure(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Service location not found")
		return
	}

	var req closureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	c, err := req.closure(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.maintain.AddClosure(r.Context(), c); err != nil {
		h.fail(w, r, err)
		return
	}

	h.log.Info("closure added", zap.String("location", id.String()), zap.String("reason", c.Reason))
	writeJSON(w, http.StatusCreated, c)
}

// DeleteLocation handles DELETE /admin/locations/{id}
func (h *Handlers) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Service location not found")
		return
	}
	if err := h.maintain.SoftDeleteLocation(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.Info("location soft-deleted", zap.String("location", id.String()))
	w.WriteHeader(http.StatusNoContent)
}
