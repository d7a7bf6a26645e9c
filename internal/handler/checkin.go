package handler

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"confattend/internal/apperr"
	"confattend/internal/live"
	"confattend/internal/schedule"

	"github.com/gin-gonic/gin"
)

type searchRequest struct {
	Mobile string `json:"mobile" binding:"required"`
	Auto   bool   `json:"auto"`
}

// search looks an attendee up by mobile. With auto set, a single available
// option is recorded automatically after the configured delay.
func (h *Handler) search(c *gin.Context) {
	var req searchRequest
	if !bind(c, &req) {
		return
	}
	l, err := h.att.Search(c.Request.Context(), req.Mobile, req.Auto)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h *Handler) snapshot(c *gin.Context) {
	l, err := h.att.Snapshot(c.Request.Context(), c.Param("id"), queryBool(c, "auto"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

type recordRequest struct {
	Day     int          `json:"day" binding:"required"`
	Session schedule.Key `json:"session" binding:"required"`
}

func (h *Handler) record(c *gin.Context) {
	var req recordRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.att.CheckIn(c.Request.Context(), c.Param("id"), req.Day, req.Session)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) cancelAuto(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cancelled": h.att.CancelAutoMark(c.Param("id"))})
}

// watch streams eligibility snapshots as server-sent events: one on
// connect, then on every poll tick and every live update for the attendee.
func (h *Handler) watch(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	arm := queryBool(c, "auto")

	first, err := h.att.Snapshot(ctx, id, arm)
	if err != nil {
		fail(c, err)
		return
	}
	var events <-chan live.Event
	if h.broker != nil {
		ch, cancel, err := h.broker.Subscribe(ctx, id)
		if err != nil {
			slog.Warn("live subscribe failed, falling back to polling", "attendee_id", id, "error", err)
		} else {
			defer cancel()
			events = ch
		}
	}
	ticker := time.NewTicker(h.poll)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("snapshot", first)
	c.Writer.Flush()

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case _, ok := <-events:
			if !ok {
				events = nil
			}
		case <-ticker.C:
		}
		l, err := h.att.Snapshot(ctx, id, arm)
		switch {
		case apperr.Is(err, apperr.KindNotFound):
			c.SSEvent("deleted", gin.H{"attendee_id": id})
			return false
		case err != nil:
			slog.Warn("watch refresh failed", "attendee_id", id, "error", err)
			return ctx.Err() == nil
		}
		c.SSEvent("snapshot", l)
		return true
	})
}

type certificateRequest struct {
	Mobile string `json:"mobile" binding:"required"`
}

func (h *Handler) certificate(c *gin.Context) {
	var req certificateRequest
	if !bind(c, &req) {
		return
	}
	cert, err := h.att.Certificate(c.Request.Context(), req.Mobile)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cert)
}
