// Package api exposes the order, rider, payment and admin operations over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"food-delivery/auth"
	"food-delivery/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Options struct {
	Service         *services.Service
	Tokens          TokenVerifier
	Logger          *zap.SugaredLogger
	RateLimit       string // ulule/limiter format; empty disables limiting
	CORSOrigins     []string
	WebhookUsername string
	WebhookPassword string
}

type Server struct {
	svc         *services.Service
	tokens      TokenVerifier
	logger      *zap.SugaredLogger
	webhookAuth string
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(opts Options) (*gin.Engine, error) {
	s := &Server{
		svc:    opts.Service,
		tokens: opts.Tokens,
		logger: opts.Logger,
	}
	if s.logger == nil {
		s.logger = zap.NewNop().Sugar()
	}
	if opts.WebhookUsername != "" {
		s.webhookAuth = WebhookAuthorization(opts.WebhookUsername, opts.WebhookPassword)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.logger))
	r.Use(corsMiddleware(opts.CORSOrigins))
	if opts.RateLimit != "" {
		limit, err := rateLimit(opts.RateLimit)
		if err != nil {
			return nil, err
		}
		r.Use(limit)
	}

	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	v1.POST("/admin/login", s.adminLogin)
	v1.POST("/payments/webhook", webhookAuth(s.webhookAuth), s.paymentWebhook)

	user := v1.Group("", requireRole(s.tokens, auth.RoleUser))
	{
		user.POST("/orders", s.placeOrder)
		user.GET("/orders/:id", s.getOwnOrder)
		user.POST("/orders/:id/cancel", s.cancelOrder)
		user.GET("/orders/:id/refund-status", s.refundStatus)
		user.POST("/payments/status", s.paymentStatus)
	}

	restaurant := v1.Group("/restaurant", requireRole(s.tokens, auth.RoleRestaurant))
	{
		restaurant.POST("/orders/:id/accept", s.acceptOrder)
		restaurant.POST("/orders/:id/reject", s.rejectOrder)
	}

	rider := v1.Group("/rider", requireRole(s.tokens, auth.RoleRider))
	{
		rider.POST("/orders/:id/accept", s.riderAccept)
		rider.POST("/orders/:id/pickup", s.riderPickup)
		rider.POST("/orders/:id/deliver", s.riderDeliver)
	}

	admin := v1.Group("/admin", requireRole(s.tokens, auth.RoleAdmin))
	{
		admin.GET("/orders/:id", s.adminGetOrder)
		admin.POST("/orders/:id/dispatch", s.redispatch)
		admin.GET("/earnings/:entityId", s.getEarnings)
		admin.POST("/earnings/:entityId/payouts", s.recordPayout)
	}
	return r, nil
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := s.svc.Store().Ping(ctx); err != nil {
		s.logger.Warnw("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "timestamp": time.Now()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now()})
}
