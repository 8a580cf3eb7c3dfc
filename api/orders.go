package api

import (
	"net/http"

	"food-delivery/models"
	"food-delivery/services"

	"github.com/gin-gonic/gin"
)

type placeOrderItem struct {
	DishID string `json:"id" binding:"required"`
	Qty    int    `json:"qty"`
}

type placeOrderGroup struct {
	RestaurantID string           `json:"restaurantId" binding:"required"`
	Items        []placeOrderItem `json:"items" binding:"required,dive"`
}

type addressRequest struct {
	Line    string   `json:"line"`
	PinCode string   `json:"pinCode" binding:"required"`
	Lat     *float64 `json:"lat" binding:"required"`
	Lng     *float64 `json:"lng" binding:"required"`
}

type placeOrderRequest struct {
	Restaurants []placeOrderGroup  `json:"restaurants" binding:"required,dive"`
	Address     addressRequest     `json:"address"`
	PaymentMode models.PaymentMode `json:"paymentMode" binding:"required"`
}

func (r placeOrderRequest) input(userID string) services.PlaceOrderInput {
	in := services.PlaceOrderInput{
		UserID: userID,
		Address: models.Address{
			Line:    r.Address.Line,
			PinCode: r.Address.PinCode,
			Lat:     *r.Address.Lat,
			Lng:     *r.Address.Lng,
		},
		PaymentMode: r.PaymentMode,
	}
	for _, g := range r.Restaurants {
		group := services.GroupInput{RestaurantID: g.RestaurantID}
		for _, it := range g.Items {
			group.Items = append(group.Items, services.ItemInput{DishID: it.DishID, Qty: it.Qty})
		}
		in.Groups = append(in.Groups, group)
	}
	return in
}

func (s *Server) placeOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.svc.PlaceOrder(c.Request.Context(), req.input(subject(c)))
	if err != nil {
		s.respondError(c, err)
		return
	}
	body := gin.H{"orders": res.Orders, "paymentState": res.PaymentState}
	if res.MerchantOrderID != "" {
		body["merchantOrderId"] = res.MerchantOrderID
		body["gatewayOrderId"] = res.GatewayOrderID
		body["paymentToken"] = res.PaymentToken
	}
	respond(c, http.StatusCreated, body)
}

func (s *Server) getOwnOrder(c *gin.Context) {
	o, err := s.svc.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if o.UserID != subject(c) {
		// Do not reveal other users' orders.
		fail(c, http.StatusNotFound, services.ReasonOrderNotFound, "order not found")
		return
	}
	respond(c, http.StatusOK, gin.H{"order": o})
}

func (s *Server) cancelOrder(c *gin.Context) {
	o, err := s.svc.CancelOrder(c.Request.Context(), subject(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"order": o})
}

func (s *Server) refundStatus(c *gin.Context) {
	res, err := s.svc.RefundStatus(c.Request.Context(), subject(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"refundState": res.RefundState, "order": res.Order})
}

func (s *Server) acceptOrder(c *gin.Context) {
	o, err := s.svc.AcceptOrder(c.Request.Context(), subject(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"order": o})
}

func (s *Server) rejectOrder(c *gin.Context) {
	o, err := s.svc.RejectOrder(c.Request.Context(), subject(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"order": o})
}

func (s *Server) riderAccept(c *gin.Context) {
	o, err := s.svc.RiderAcceptOrder(c.Request.Context(), subject(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"order": o})
}

func (s *Server) riderPickup(c *gin.Context) {
	o, err := s.svc.MarkPickedUp(c.Request.Context(), subject(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"order": o})
}

func (s *Server) riderDeliver(c *gin.Context) {
	o, err := s.svc.MarkDelivered(c.Request.Context(), subject(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"order": o})
}
