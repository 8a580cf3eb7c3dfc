package api

import (
	"net/http"
	"time"

	"food-delivery/models"
	"food-delivery/services"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) adminLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.svc.AdminLogin(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"token": res.Token, "expiresAt": res.ExpiresAt})
}

func (s *Server) adminGetOrder(c *gin.Context) {
	o, err := s.svc.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"order": o})
}

func (s *Server) redispatch(c *gin.Context) {
	riders, err := s.svc.RedispatchOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	ids := make([]string, 0, len(riders))
	for _, r := range riders {
		ids = append(ids, r.ID)
	}
	respond(c, http.StatusOK, gin.H{"offeredTo": ids})
}

// earningsView reports ledger amounts in major units.
type earningsView struct {
	EntityID   string            `json:"entityId"`
	EntityKind models.EntityKind `json:"entityType"`
	Earnings   float64           `json:"earnings"`
	Payout     float64           `json:"payout"`
	Balance    float64           `json:"balance"`
	LastPayout *time.Time        `json:"lastPayout,omitempty"`
}

func newEarningsView(e *models.Earnings) earningsView {
	return earningsView{
		EntityID:   e.EntityID,
		EntityKind: e.EntityKind,
		Earnings:   services.MinorToMajor(e.Earnings),
		Payout:     services.MinorToMajor(e.Payout),
		Balance:    services.MinorToMajor(e.Balance()),
		LastPayout: e.LastPayout,
	}
}

func (s *Server) getEarnings(c *gin.Context) {
	e, err := s.svc.GetEarnings(c.Request.Context(), c.Param("entityId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"earnings": newEarningsView(e)})
}

type payoutRequest struct {
	Amount float64 `json:"amount"`
}

func (s *Server) recordPayout(c *gin.Context) {
	var req payoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	e, err := s.svc.RecordPayout(c.Request.Context(), c.Param("entityId"), req.Amount)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"earnings": newEarningsView(e)})
}
