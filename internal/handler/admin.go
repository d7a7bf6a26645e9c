package handler

import (
	"net/http"

	"confattend/internal/attendance"
	"confattend/internal/auth"
	"confattend/internal/schedule"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listAttendees(c *gin.Context) {
	f := attendance.Filter{
		Search:      c.Query("search"),
		Zone:        c.Query("zone"),
		Attendance:  attendance.AttendanceFilter(c.Query("attendance")),
		Day1Session: schedule.Key(c.Query("day1_session")),
		Day2Session: schedule.Key(c.Query("day2_session")),
		Page:        queryInt(c, "page"),
		PerPage:     queryInt(c, "per_page"),
	}
	page, err := h.att.List(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) registerAttendee(c *gin.Context) {
	var p attendance.Profile
	if !bind(c, &p) {
		return
	}
	a, err := h.att.Register(c.Request.Context(), p)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) getAttendee(c *gin.Context) {
	a, err := h.att.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) updateAttendee(c *gin.Context) {
	var in attendance.UpdateInput
	if !bind(c, &in) {
		return
	}
	a, err := h.att.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) deleteAttendee(c *gin.Context) {
	if err := h.att.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type manualRequest struct {
	Day     int          `json:"day" binding:"required"`
	Session schedule.Key `json:"session" binding:"required"`
	Remarks string       `json:"remarks"`
}

func (h *Handler) markManual(c *gin.Context) {
	var req manualRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.att.MarkManual(c.Request.Context(), c.Param("id"), req.Day, req.Session, req.Remarks)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) stats(c *gin.Context) {
	ctx := c.Request.Context()
	att, err := h.att.Stats(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	fb, err := h.feedback.Stats(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance": att, "feedback": fb})
}

func (h *Handler) listZones(c *gin.Context) {
	set, err := h.zones.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

type zoneRequest struct {
	Label string `json:"label" binding:"required"`
}

func (h *Handler) addZone(c *gin.Context) {
	var req zoneRequest
	if !bind(c, &req) {
		return
	}
	set, err := h.zones.Add(c.Request.Context(), req.Label)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, set)
}

func (h *Handler) removeZone(c *gin.Context) {
	set, err := h.zones.Remove(c.Request.Context(), c.Param("label"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}
	pair, err := h.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	if !bind(c, &req) {
		return
	}
	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (h *Handler) me(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	a, err := h.auth.CurrentUser(c.Request.Context(), claims)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) logout(c *gin.Context) {
	var req logoutRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	claims, _ := auth.ClaimsFrom(c)
	if err := h.auth.SignOut(c.Request.Context(), claims, req.RefreshToken); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
