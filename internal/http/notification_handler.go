package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nurpe/waste-dispatch/internal/model"
	"github.com/nurpe/waste-dispatch/internal/service"
)

type createNotificationRequest struct {
	RecipientID uuid.UUID              `json:"recipient_id" binding:"required"`
	Type        model.NotificationType `json:"type"`
	Title       string                 `json:"title" binding:"required"`
	Message     string                 `json:"message" binding:"required"`
	Priority    model.Priority         `json:"priority"`
	RelatedKind model.EntityKind       `json:"related_entity_type"`
	RelatedID   *uuid.UUID             `json:"related_entity_id"`
	Metadata    map[string]interface{} `json:"metadata"`
}

func (h *Handler) createNotification(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var req createNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	notification, err := h.notifications.Create(c.Request.Context(), principal, service.CreateNotificationInput{
		RecipientID: req.RecipientID,
		Type:        req.Type,
		Title:       req.Title,
		Message:     req.Message,
		Priority:    req.Priority,
		Related:     model.RelatedEntity{Kind: req.RelatedKind, ID: req.RelatedID},
		Metadata:    req.Metadata,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, notification)
}

func (h *Handler) listNotifications(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	page, ok := pageQuery(c)
	if !ok {
		return
	}
	unreadOnly := false
	if raw := c.Query("unread_only"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, "invalid unread_only")
			return
		}
		unreadOnly = parsed
	}

	result, err := h.notifications.List(c.Request.Context(), principal, model.NotificationFilter{
		Type:       optionalQuery[model.NotificationType](c, "type"),
		Status:     optionalQuery[model.NotificationStatus](c, "status"),
		UnreadOnly: unreadOnly,
	}, page)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (h *Handler) unreadCount(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	count, err := h.notifications.UnreadCount(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"count": count})
}

func (h *Handler) markRead(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	notification, err := h.notifications.MarkRead(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, notification)
}

func (h *Handler) markAllRead(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	marked, err := h.notifications.MarkAllRead(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"marked": marked})
}

func (h *Handler) archiveNotification(c *gin.Context) {
	h.changeNotification(c, h.notifications.Archive)
}

func (h *Handler) deleteNotification(c *gin.Context) {
	h.changeNotification(c, h.notifications.Delete)
}

func (h *Handler) changeNotification(c *gin.Context, change func(ctx context.Context, p model.Principal, id uuid.UUID) error) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := change(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id})
}
