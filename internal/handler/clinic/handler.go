package clinic

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/clinic"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

const publicMaxAge = time.Minute

type Handler struct {
	svc  clinic.ClinicServicer
	auth *middleware.AuthMiddleware
}

func NewHandler(svc clinic.ClinicServicer, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{svc: svc, auth: auth}
}

// RegisterRoutes exposes the profile and roster publicly for the waiting
// room display; changes and the catalog need a login.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	public := middleware.PublicCache(publicMaxAge)
	r.GET("/clinic", public, h.GetProfile)
	r.GET("/doctors", public, h.ListDoctors)
	r.GET("/schedules/today", public, h.Today)

	r.PUT("/clinic", h.auth.Authenticate(), h.auth.RequireRoles(model.RoleAdmin), h.UpdateProfile)
	r.GET("/medicines", h.auth.Authenticate(), h.ListMedicines)
}

func (h *Handler) GetProfile(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.svc.Profile(c.Request.Context()))
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req model.ClinicInfo
	if err := httputil.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	info, err := h.svc.UpdateProfile(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, info)
}

func (h *Handler) ListDoctors(c *gin.Context) {
	doctors, err := h.svc.Doctors(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doctors)
}

func (h *Handler) Today(c *gin.Context) {
	today, err := h.svc.Today(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, today)
}

func (h *Handler) ListMedicines(c *gin.Context) {
	meds, err := h.svc.Medicines(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, meds)
}
