package api

import (
	"net/http"

	"food-delivery/services"

	"github.com/gin-gonic/gin"
)

type paymentStatusRequest struct {
	MerchantOrderID string `json:"merchantOrderId" binding:"required"`
}

func syncBody(res *services.SyncResult) gin.H {
	return gin.H{"state": res.State, "orders": res.Orders}
}

// paymentStatus lets the customer poll a checkout after returning from the payment page.
func (s *Server) paymentStatus(c *gin.Context) {
	var req paymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.svc.SyncPaymentStatusForUser(c.Request.Context(), subject(c), req.MerchantOrderID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, syncBody(res))
}

// webhookRequest is the gateway callback envelope. Only the merchant order
// id is trusted; the state is re-read from the gateway.
type webhookRequest struct {
	Event   string `json:"event"`
	Payload struct {
		MerchantOrderID string `json:"merchantOrderId"`
		State           string `json:"state"`
	} `json:"payload"`
}

func (s *Server) paymentWebhook(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Payload.MerchantOrderID == "" {
		fail(c, http.StatusBadRequest, services.ReasonInvalidRequest, "payload.merchantOrderId is required")
		return
	}
	s.logger.Infow("payment webhook", "event", req.Event, "merchant_order_id", req.Payload.MerchantOrderID, "state", req.Payload.State)
	res, err := s.svc.SyncPaymentStatus(c.Request.Context(), req.Payload.MerchantOrderID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, syncBody(res))
}
