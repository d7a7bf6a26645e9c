package handler

import (
	"net/http"

	"confattend/internal/feedback"

	"github.com/gin-gonic/gin"
)

func (h *Handler) submitGeneral(c *gin.Context) {
	var in feedback.GeneralInput
	if !bind(c, &in) {
		return
	}
	f, err := h.feedback.SubmitGeneral(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

func (h *Handler) submitAttendee(c *gin.Context) {
	var in feedback.AttendeeInput
	if !bind(c, &in) {
		return
	}
	f, err := h.feedback.SubmitAttendee(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

func (h *Handler) listFeedback(c *gin.Context) {
	f := feedback.Filter{
		Flow:      feedback.Flow(c.Query("flow")),
		Status:    feedback.Status(c.Query("status")),
		Sentiment: feedback.Sentiment(c.Query("sentiment")),
		Category:  c.Query("category"),
		Search:    c.Query("search"),
		Rating:    feedback.RatingBand(c.Query("rating")),
		Page:      queryInt(c, "page"),
		PerPage:   queryInt(c, "per_page"),
	}
	page, err := h.feedback.List(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) feedbackStats(c *gin.Context) {
	st, err := h.feedback.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

type replyRequest struct {
	Message string `json:"message" binding:"required"`
}

func (h *Handler) replyFeedback(c *gin.Context) {
	var req replyRequest
	if !bind(c, &req) {
		return
	}
	f, err := h.feedback.Reply(c.Request.Context(), c.Param("id"), req.Message)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

type statusRequest struct {
	Status feedback.Status `json:"status" binding:"required"`
}

func (h *Handler) setFeedbackStatus(c *gin.Context) {
	var req statusRequest
	if !bind(c, &req) {
		return
	}
	f, err := h.feedback.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *Handler) deleteFeedback(c *gin.Context) {
	if err := h.feedback.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
