package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// NotificationsHandler exposes the caller's inbox.
type NotificationsHandler struct {
	service *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{service: notificationService}
}

// List GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	actor, err := callerIdentity(c)
	if err != nil {
		return err
	}
	unreadOnly := c.Query("unread") == "true"
	notifications, err := h.service.List(c.Context(), actor.UserID, unreadOnly, queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		return err
	}
	items := make([]dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		items = append(items, dto.NewNotificationResponse(&notifications[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Stats GET /notifications/stats.
func (h *NotificationsHandler) Stats(c *fiber.Ctx) error {
	actor, err := callerIdentity(c)
	if err != nil {
		return err
	}
	stats, err := h.service.Stats(c.Context(), actor.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NotificationStatsResponse{Total: stats.Total, Unread: stats.Unread}})
}

// UnreadCount GET /notifications/unread-count.
func (h *NotificationsHandler) UnreadCount(c *fiber.Ctx) error {
	actor, err := callerIdentity(c)
	if err != nil {
		return err
	}
	count, err := h.service.UnreadCount(c.Context(), actor.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"unread": count}})
}

// MarkRead PUT /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	actor, err := callerIdentity(c)
	if err != nil {
		return err
	}
	notification, err := h.service.MarkRead(c.Context(), actor.UserID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewNotificationResponse(notification)})
}

// MarkAllRead PUT /notifications/read-all.
func (h *NotificationsHandler) MarkAllRead(c *fiber.Ctx) error {
	actor, err := callerIdentity(c)
	if err != nil {
		return err
	}
	updated, err := h.service.MarkAllRead(c.Context(), actor.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"updated": updated}})
}

// Delete DELETE /notifications/:id.
func (h *NotificationsHandler) Delete(c *fiber.Ctx) error {
	actor, err := callerIdentity(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Context(), actor.UserID, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
