package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/cart-recovery-backend/internal/app/model"
	"github.com/ikkim/cart-recovery-backend/internal/app/service"
	apperrors "github.com/ikkim/cart-recovery-backend/internal/errors"
	"github.com/ikkim/cart-recovery-backend/internal/middleware"
)

// HookController receives server-to-server notifications from the
// storefront checkout. Hooks never fail the caller's checkout: once the
// request is well formed they answer 204 and only log problems.
type HookController struct {
	captureService service.CaptureService
}

func NewHookController(captureService service.CaptureService) *HookController {
	return &HookController{
		captureService: captureService,
	}
}

type CheckoutHookRequest struct {
	OrderID   uint              `json:"order_id"`
	UserID    uint              `json:"user_id"`
	SessionID string            `json:"session_id" binding:"max=255"`
	Data      map[string]string `json:"data"`
}

type OrderCompletedHookRequest struct {
	OrderID   uint   `json:"order_id"`
	UserID    uint   `json:"user_id"`
	SessionID string `json:"session_id" binding:"max=255"`
}

// Checkout captures the full field set submitted with an order.
// POST /api/v1/hooks/checkout
func (ctrl *HookController) Checkout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req CheckoutHookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid checkout hook payload", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}

	identity := model.Identity{UserID: req.UserID, SessionID: req.SessionID}
	result, err := ctrl.captureService.Capture(c.Request.Context(), service.SourceCheckout, identity, req.Data)
	if err != nil {
		log.Error("Checkout hook capture failed", err, map[string]interface{}{
			"order_id": req.OrderID,
			"identity": identity.String(),
		})
	} else {
		log.Info("Checkout hook processed", map[string]interface{}{
			"order_id": req.OrderID,
			"identity": identity.String(),
			"outcome":  string(result.Outcome),
			"cart_id":  result.CartID,
		})
	}

	c.Status(http.StatusNoContent)
}

// OrderCompleted closes the abandoned cart of the identity that placed the
// order.
// POST /api/v1/hooks/order-completed
func (ctrl *HookController) OrderCompleted(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req OrderCompletedHookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid order-completed hook payload", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}

	if req.OrderID == 0 {
		log.Debug("Order-completed hook ignored: no order id", nil)
		c.Status(http.StatusNoContent)
		return
	}

	identity := model.Identity{UserID: req.UserID, SessionID: req.SessionID}
	result, err := ctrl.captureService.Complete(c.Request.Context(), identity)
	if err != nil {
		log.Error("Order-completed hook failed", err, map[string]interface{}{
			"order_id": req.OrderID,
			"identity": identity.String(),
		})
	} else {
		log.Info("Order-completed hook processed", map[string]interface{}{
			"order_id": req.OrderID,
			"identity": identity.String(),
			"matched":  result.Matched,
		})
	}

	c.Status(http.StatusNoContent)
}
