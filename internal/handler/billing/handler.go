package billing

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/billing"
	"github.com/jwalitptl/clinic-api/internal/service/queue"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type Handler struct {
	svc  *billing.Service
	auth *middleware.AuthMiddleware
}

func NewHandler(svc *billing.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{svc: svc, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	cashier := r.Group("",
		h.auth.Authenticate(),
		h.auth.RequireStation(queue.StationCashier),
	)
	{
		cashier.GET("/visits/:id/bill", h.Quote)
		cashier.POST("/visits/:id/payment", h.ConfirmPayment)
		cashier.GET("/transactions", h.Ledger)
	}
}

func (h *Handler) Quote(c *gin.Context) {
	id, err := httputil.ParamUUID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	bill, err := h.svc.Quote(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, bill)
}

func (h *Handler) ConfirmPayment(c *gin.Context) {
	id, err := httputil.ParamUUID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	var req model.PaymentRequest
	if err := httputil.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	receipt, err := h.svc.ConfirmPayment(c.Request.Context(), id, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, receipt)
}

// Ledger query: status=pending|paid, date=YYYY-MM-DD, q=<name or id>.
func (h *Handler) Ledger(c *gin.Context) {
	filter := model.TransactionFilter{
		Status: model.TransactionStatus(c.Query("status")),
		Date:   c.Query("date"),
		Search: c.Query("q"),
	}
	switch filter.Status {
	case "", model.TransactionStatusPending, model.TransactionStatusPaid:
	default:
		httputil.RespondWithError(c, apperrors.Validation("status must be pending or paid", []string{"status"}))
		return
	}

	txs, err := h.svc.Ledger(c.Request.Context(), filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, txs)
}
