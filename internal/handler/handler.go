// Package handler exposes the check-in, administration and feedback
// services over HTTP.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"confattend/internal/apperr"
	"confattend/internal/attendance"
	"confattend/internal/auth"
	"confattend/internal/feedback"
	"confattend/internal/live"
	"confattend/internal/schedule"
	"confattend/internal/zones"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	att      *attendance.Service
	feedback *feedback.Service
	zones    zones.Store
	auth     *auth.Service
	broker   live.Broker
	clock    schedule.Clock
	poll     time.Duration
}

func New(att *attendance.Service, fb *feedback.Service, zs zones.Store, authSvc *auth.Service, broker live.Broker, clock schedule.Clock, poll time.Duration) *Handler {
	if poll <= 0 {
		poll = 30 * time.Second
	}
	return &Handler{att: att, feedback: fb, zones: zs, auth: authSvc, broker: broker, clock: clock, poll: poll}
}

// Routes mounts every /v1 endpoint on r.
func (h *Handler) Routes(r gin.IRouter) {
	v1 := r.Group("/v1")

	v1.GET("/schedule", h.sessions)
	v1.GET("/zones", h.listZones)

	checkin := v1.Group("/checkin")
	checkin.POST("/search", h.search)
	checkin.GET("/:id", h.snapshot)
	checkin.POST("/:id/record", h.record)
	checkin.DELETE("/:id/auto", h.cancelAuto)
	checkin.GET("/:id/watch", h.watch)

	v1.POST("/certificates/lookup", h.certificate)
	v1.POST("/feedback", h.submitGeneral)
	v1.POST("/feedback/attendee", h.submitAttendee)

	v1.POST("/auth/login", h.login)
	v1.POST("/auth/refresh", h.refresh)

	admin := v1.Group("", auth.AdminAuth(h.auth))
	admin.GET("/auth/me", h.me)
	admin.POST("/auth/logout", h.logout)

	admin.GET("/attendees", h.listAttendees)
	admin.POST("/attendees", h.registerAttendee)
	admin.GET("/attendees/:id", h.getAttendee)
	admin.PUT("/attendees/:id", h.updateAttendee)
	admin.DELETE("/attendees/:id", h.deleteAttendee)
	admin.POST("/attendees/:id/manual", h.markManual)

	admin.GET("/stats", h.stats)

	admin.GET("/feedback", h.listFeedback)
	admin.GET("/feedback/stats", h.feedbackStats)
	admin.POST("/feedback/:id/reply", h.replyFeedback)
	admin.PUT("/feedback/:id/status", h.setFeedbackStatus)
	admin.DELETE("/feedback/:id", h.deleteFeedback)

	admin.POST("/zones", h.addZone)
	admin.DELETE("/zones/:label", h.removeZone)
}

// fail writes the error response for err's kind.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindUnauthorized:
		status = http.StatusUnauthorized
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindPrecondition:
		status = http.StatusConflict
	case apperr.KindTransient:
		status = http.StatusServiceUnavailable
		c.Header("Retry-After", "5")
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": apperr.Message(err)})
}

// bind decodes a JSON body, reporting binding failures as validation errors.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		fail(c, apperr.Validation("invalid request: %s", err.Error()))
		return false
	}
	return true
}

func queryInt(c *gin.Context, name string) int {
	n, _ := strconv.Atoi(c.Query(name))
	return n
}

func queryBool(c *gin.Context, name string) bool {
	b, _ := strconv.ParseBool(c.Query(name))
	return b
}

type sessionStatus struct {
	schedule.Session
	Window schedule.Window `json:"window"`
}

func (h *Handler) sessions(c *gin.Context) {
	now := h.clock.Now()
	all := h.att.Registry().All()
	out := make([]sessionStatus, 0, len(all))
	for _, s := range all {
		out = append(out, sessionStatus{Session: s, Window: schedule.Evaluate(s, now)})
	}
	c.JSON(http.StatusOK, gin.H{"now": now.In(schedule.IST), "sessions": out})
}
