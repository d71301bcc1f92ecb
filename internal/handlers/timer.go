package handlers

import (
	"strings"
	"time"

	"parishfund/server/internal/apperror"
	"parishfund/server/internal/calltimer"
	"parishfund/server/internal/logger"

	"github.com/gofiber/fiber/v2"
)

// TimerHandler persists call timer snapshots for browser widgets
type TimerHandler struct {
	store   calltimer.Storage
	log     logger.Logger
	refresh time.Duration
}

// NewTimerHandler serves snapshots from store. refresh is advertised to
// widgets as their redraw interval.
func NewTimerHandler(store calltimer.Storage, log logger.Logger, refresh time.Duration) *TimerHandler {
	if refresh <= 0 {
		refresh = calltimer.DefaultRefreshInterval
	}
	return &TimerHandler{store: store, log: log, refresh: refresh}
}

func sessionParam(c *fiber.Ctx) (string, error) {
	id := strings.TrimSpace(c.Params("sessionId"))
	if id == "" {
		return "", apperror.ErrInvalidSessionID
	}
	return id, nil
}

// GetSnapshot returns the stored timer state of a call session
func (h *TimerHandler) GetSnapshot(c *fiber.Ctx) error {
	sessionID, err := sessionParam(c)
	if err != nil {
		return errorResponse(c, err)
	}

	snap, found, err := h.store.Load(c.UserContext(), sessionID)
	if err != nil {
		h.log.WithError(err).WithField("session_id", sessionID).Error("failed to load call timer")
		return errorResponse(c, apperror.Internal("failed to load call timer", err))
	}
	if !found {
		return errorResponse(c, apperror.ErrSnapshotNotFound)
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"data":      snap,
		"refreshMs": h.refresh.Milliseconds(),
	})
}

// PutSnapshot replaces the stored timer state of a call session
func (h *TimerHandler) PutSnapshot(c *fiber.Ctx) error {
	sessionID, err := sessionParam(c)
	if err != nil {
		return errorResponse(c, err)
	}

	var snap calltimer.Snapshot
	if err := c.BodyParser(&snap); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := snap.Validate(); err != nil {
		return errorResponse(c, err)
	}

	if err := h.store.Save(c.UserContext(), sessionID, snap); err != nil {
		h.log.WithError(err).WithField("session_id", sessionID).Error("failed to save call timer")
		return errorResponse(c, apperror.Internal("failed to save call timer", err))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    snap,
	})
}
