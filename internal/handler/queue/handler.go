package queue

import (
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	"github.com/jwalitptl/clinic-api/internal/service/queue"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
)

const defaultKeepAlive = 15 * time.Second

type Handler struct {
	svc       *queue.Service
	events    *event.Service
	auth      *middleware.AuthMiddleware
	keepAlive time.Duration
}

func NewHandler(svc *queue.Service, events *event.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{svc: svc, events: events, auth: auth, keepAlive: defaultKeepAlive}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	queues := r.Group("/queues", h.auth.Authenticate())
	{
		queues.GET("/summary", h.auth.RequireStation(queue.StationReception), h.Summary)
		queues.GET("/stream", h.Stream)
		queues.GET("/:station", h.auth.RequireStationParam("station"), h.List)
	}
}

// List serves a station board. Query: date=YYYY-MM-DD, all=true,
// doctor_id (admins only; doctors always see their own queue).
func (h *Handler) List(c *gin.Context) {
	station, ok := queue.ParseStation(c.Param("station"))
	if !ok {
		httputil.RespondWithError(c, apperrors.Validation("unknown station "+c.Param("station"), []string{"station"}))
		return
	}

	filters := queue.Filters{Date: c.Query("date")}
	if all, err := strconv.ParseBool(c.DefaultQuery("all", "false")); err == nil {
		filters.AllDates = all
	}
	if filters.Date != "" {
		if _, err := time.Parse(model.DateLayout, filters.Date); err != nil {
			httputil.RespondWithError(c, apperrors.Validation("date must be YYYY-MM-DD", []string{"date"}))
			return
		}
	}

	if station == queue.StationDoctor {
		id, err := h.doctorFor(c)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		filters.DoctorID = id
	}

	entries, err := h.svc.ListQueue(c.Request.Context(), station, filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, entries)
}

func (h *Handler) doctorFor(c *gin.Context) (uuid.UUID, error) {
	claims, _ := middleware.CurrentUser(c)
	if claims != nil && claims.Role == string(model.RoleDoctor) {
		return claims.UserID, nil
	}
	raw := c.Query("doctor_id")
	if raw == "" {
		return uuid.Nil, apperrors.Validation("doctor_id is required", []string{"doctor_id"})
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.Validation("doctor_id must be a UUID", []string{"doctor_id"})
	}
	return id, nil
}

func (h *Handler) Summary(c *gin.Context) {
	sum, err := h.svc.Summary(c.Request.Context(), c.Query("date"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, sum)
}

// Stream relays visit events as server-sent events until the client leaves.
func (h *Handler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	msgs, err := h.events.Subscribe(ctx)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Unavailable(err))
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case raw, ok := <-msgs:
			if !ok {
				return false
			}
			var msg messaging.Message
			if err := json.Unmarshal(raw, &msg); err != nil || msg.Type == "" {
				c.SSEvent("message", string(raw))
				return true
			}
			c.SSEvent(msg.Type, msg.Payload)
			return true
		case <-ticker.C:
			_, err := io.WriteString(w, ": keep-alive\n\n")
			return err == nil
		}
	})
}
