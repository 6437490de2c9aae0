package httptransport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	identity "taxgate/internal/identity/models"
	"taxgate/internal/notification/models"
)

// InboxService is the slice of the notification service the inbox endpoints
// need. The inbox is addressed by role; the role always comes from the
// authenticated principal, never the request.
type InboxService interface {
	ListForRole(ctx context.Context, role identity.Role) ([]*models.Notification, error)
	UnreadCount(ctx context.Context, role identity.Role) (int64, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, role identity.Role) error
}

type NotificationHandler struct {
	inbox InboxService
}

func NewNotificationHandler(inbox InboxService) *NotificationHandler {
	return &NotificationHandler{inbox: inbox}
}

func (h *NotificationHandler) Register(r chi.Router) {
	r.Get("/notifications", h.handleList)
	r.Get("/notifications/unread-count", h.handleUnreadCount)
	r.Post("/notifications/{id}/read", h.handleMarkRead)
	r.Post("/notifications/read-all", h.handleMarkAllRead)
}

type notificationResponse struct {
	ID            string     `json:"id"`
	Type          string     `json:"type"`
	Title         string     `json:"title"`
	Message       string     `json:"message"`
	ReferenceID   string     `json:"reference_id,omitempty"`
	ReferenceType string     `json:"reference_type,omitempty"`
	Read          bool       `json:"read"`
	ReadAt        *time.Time `json:"read_at,omitempty"`
	CreatedBy     string     `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (h *NotificationHandler) handleList(w http.ResponseWriter, r *http.Request) {
	role := PrincipalFrom(r.Context()).Role
	items, err := h.inbox.ListForRole(r.Context(), role)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]notificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, notificationResponse{
			ID:            n.ID,
			Type:          string(n.Type),
			Title:         n.Title,
			Message:       n.Message,
			ReferenceID:   n.ReferenceID,
			ReferenceType: n.ReferenceType,
			Read:          n.Read,
			ReadAt:        n.ReadAt,
			CreatedBy:     n.CreatedBy,
			CreatedAt:     n.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *NotificationHandler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	role := PrincipalFrom(r.Context()).Role
	count, err := h.inbox.UnreadCount(r.Context(), role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"unread": count})
}

func (h *NotificationHandler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.inbox.MarkRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	role := PrincipalFrom(r.Context()).Role
	if err := h.inbox.MarkAllRead(r.Context(), role); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
