package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"appointmate/backend/internal/domain"
	"appointmate/backend/internal/professional"
	"appointmate/backend/internal/service/appointments"
)

type schedule interface {
	AppointmentsForDate(ctx context.Context, date time.Time) ([]domain.Appointment, error)
	ListSlots(ctx context.Context, date time.Time) ([]time.Time, error)
	ParseDate(value string) (time.Time, error)
	Now() time.Time
}

type pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	// JWTSecret enables HS256 bearer auth on /admin routes when non-empty.
	JWTSecret string
	Info      func() (professional.Info, error)
}

type handler struct {
	svc  schedule
	db   pinger
	info func() (professional.Info, error)
	log  *slog.Logger
}

// NewRouter serves the read-only practice dashboard: the day's schedule, free slots and the
// practice description, plus liveness and readiness probes.
func NewRouter(svc schedule, db pinger, cfg Config, log *slog.Logger) *gin.Engine {
	if log == nil {
		log = slog.Default()
	}
	h := &handler{
		svc:  svc,
		db:   db,
		info: cfg.Info,
		log:  log.With(slog.String("component", "http.admin")),
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.log))

	r.GET("/healthz", h.healthz)
	r.GET("/readyz", h.readyz)

	g := r.Group("/admin")
	if cfg.JWTSecret != "" {
		g.Use(AuthMiddleware(cfg.JWTSecret))
	}
	g.GET("/schedule", h.getSchedule)
	g.GET("/slots", h.getSlots)
	g.GET("/professional", h.getProfessional)
	return r
}

type appointmentView struct {
	ID              string    `json:"id"`
	ClientName      string    `json:"client_name"`
	ClientEmail     string    `json:"client_email,omitempty"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`
}

func (h *handler) getSchedule(c *gin.Context) {
	date, ok := h.date(c)
	if !ok {
		return
	}
	appts, err := h.svc.AppointmentsForDate(c.Request.Context(), date)
	if err != nil {
		h.fail(c, "schedule listing failed", err)
		return
	}

	loc := h.svc.Now().Location()
	out := make([]appointmentView, 0, len(appts))
	for _, a := range appts {
		out = append(out, appointmentView{
			ID:              a.ID.String(),
			ClientName:      a.ClientName,
			ClientEmail:     a.ClientEmail,
			StartTime:       a.StartTime.In(loc),
			EndTime:         a.EndTime().In(loc),
			DurationMinutes: a.DurationMinutes,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"date":         date.Format(appointments.DateLayout),
		"appointments": out,
	})
}

func (h *handler) getSlots(c *gin.Context) {
	date, ok := h.date(c)
	if !ok {
		return
	}
	slots, err := h.svc.ListSlots(c.Request.Context(), date)
	if err != nil {
		h.fail(c, "slot listing failed", err)
		return
	}
	if slots == nil {
		slots = []time.Time{}
	}
	c.JSON(http.StatusOK, gin.H{
		"date":  date.Format(appointments.DateLayout),
		"slots": slots,
	})
}

func (h *handler) getProfessional(c *gin.Context) {
	if h.info == nil {
		writeError(c, http.StatusNotFound, "not_configured", "professional info is not configured")
		return
	}
	info, err := h.info()
	if errors.Is(err, professional.ErrInfoNotFound) {
		writeError(c, http.StatusNotFound, "not_found", "professional info not found")
		return
	}
	if err != nil {
		h.log.Error("professional info load failed", slog.Any("err", err))
		writeError(c, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"info": info, "summary": info.Summary()})
}

func (h *handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) readyz(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		h.log.Warn("readiness check failed", slog.Any("err", err))
		writeError(c, http.StatusServiceUnavailable, "storage_unavailable", "storage unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// date reads the ?date= query, defaulting to today in the practice zone.
func (h *handler) date(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		raw = h.svc.Now().Format(appointments.DateLayout)
	}
	d, err := h.svc.ParseDate(raw)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_date", err.Error())
		return time.Time{}, false
	}
	return d, true
}

func (h *handler) fail(c *gin.Context, msg string, err error) {
	var vErr *appointments.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(c, http.StatusBadRequest, "invalid_request", vErr.Error())
	case errors.Is(err, appointments.ErrStorageUnavailable):
		h.log.Error(msg, slog.Any("err", err))
		writeError(c, http.StatusServiceUnavailable, "storage_unavailable", "storage unavailable")
	default:
		h.log.Error(msg, slog.Any("err", err))
		writeError(c, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
}
