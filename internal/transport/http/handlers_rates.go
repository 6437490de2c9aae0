package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"taxgate/internal/governance/models"
	"taxgate/pkg/apperrors"
)

// RateService is the slice of the governance service the rate endpoints
// need. Every mutation takes the acting principal's id; role checks happen
// below, against a fresh read.
type RateService interface {
	List(ctx context.Context) ([]*models.RateParameter, error)
	Propose(ctx context.Context, actorID string, paramID int64, newRate float64) (*models.RateParameter, error)
	Approve(ctx context.Context, actorID string, paramID int64) (*models.RateParameter, error)
	Reject(ctx context.Context, actorID string, paramID int64) (*models.RateParameter, error)
}

type RateHandler struct {
	rates RateService
}

func NewRateHandler(rates RateService) *RateHandler {
	return &RateHandler{rates: rates}
}

func (h *RateHandler) Register(r chi.Router) {
	r.Get("/rates", h.handleList)
	r.Post("/rates/{id}/propose", h.handlePropose)
	r.Post("/rates/{id}/approve", h.handleApprove)
	r.Post("/rates/{id}/reject", h.handleReject)
}

type rateResponse struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Rate        float64  `json:"rate"`
	Status      string   `json:"status"`
	PendingRate *float64 `json:"pending_rate,omitempty"`

	SubmittedBy *string    `json:"submitted_by,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	ApprovedBy  *string    `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	RejectedBy  *string    `json:"rejected_by,omitempty"`
	RejectedAt  *time.Time `json:"rejected_at,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

func toRateResponse(p *models.RateParameter) rateResponse {
	return rateResponse{
		ID:          p.ID,
		Name:        p.Name,
		Rate:        p.Rate,
		Status:      string(p.Status),
		PendingRate: p.PendingRate,
		SubmittedBy: p.SubmittedBy,
		SubmittedAt: p.SubmittedAt,
		ApprovedBy:  p.ApprovedBy,
		ApprovedAt:  p.ApprovedAt,
		RejectedBy:  p.RejectedBy,
		RejectedAt:  p.RejectedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (h *RateHandler) handleList(w http.ResponseWriter, r *http.Request) {
	params, err := h.rates.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]rateResponse, 0, len(params))
	for _, p := range params {
		out = append(out, toRateResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

type proposeRequest struct {
	NewRate float64 `json:"new_rate"`
}

func (h *RateHandler) handlePropose(w http.ResponseWriter, r *http.Request) {
	paramID, err := paramIDFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req proposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.New(apperrors.CodeBadRequest, "invalid request body"))
		return
	}

	param, err := h.rates.Propose(r.Context(), PrincipalFrom(r.Context()).ID, paramID, req.NewRate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRateResponse(param))
}

func (h *RateHandler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.rates.Approve)
}

func (h *RateHandler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.rates.Reject)
}

func (h *RateHandler) decide(w http.ResponseWriter, r *http.Request, op func(context.Context, string, int64) (*models.RateParameter, error)) {
	paramID, err := paramIDFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	param, err := op(r.Context(), PrincipalFrom(r.Context()).ID, paramID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRateResponse(param))
}

func paramIDFrom(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, apperrors.New(apperrors.CodeBadRequest, "invalid rate parameter id")
	}
	return id, nil
}
