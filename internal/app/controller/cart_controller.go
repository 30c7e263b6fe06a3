package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/cart-recovery-backend/internal/app/service"
	apperrors "github.com/ikkim/cart-recovery-backend/internal/errors"
	"github.com/ikkim/cart-recovery-backend/internal/middleware"
	"github.com/shopspring/decimal"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{
		cartService: cartService,
	}
}

type SetCartItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,gt=0"`
}

// GetCart returns the live cart of the current shopper
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	identity := middleware.GetIdentity(c)

	lines, err := ctrl.cartService.GetCart(c.Request.Context(), identity)
	if err != nil {
		log.Error("Failed to fetch cart", err, identity.LogFields())
		apperrors.InternalError(c, "Failed to fetch cart")
		return
	}

	total := decimal.Zero
	for _, line := range lines {
		price := decimal.NewFromFloat(line.Price).Round(2)
		total = total.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	c.JSON(http.StatusOK, gin.H{
		"items": lines,
		"count": len(lines),
		"total": total,
	})
}

// SetItem adds a product or replaces its quantity
// POST /api/v1/cart
func (ctrl *CartController) SetItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	identity := middleware.GetIdentity(c)

	var req SetCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid cart item request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return
	}

	if err := ctrl.cartService.SetItem(c.Request.Context(), identity, req.ProductID, req.Quantity); err != nil {
		ctrl.respondCartError(c, err, req.ProductID)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart updated",
	})
}

// RemoveItem removes one product from the cart
// DELETE /api/v1/cart/:product_id
func (ctrl *CartController) RemoveItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	identity := middleware.GetIdentity(c)

	productID, err := strconv.ParseUint(c.Param("product_id"), 10, 32)
	if err != nil || productID == 0 {
		log.Warn("Invalid product ID", map[string]interface{}{
			"product_id": c.Param("product_id"),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid product ID")
		return
	}

	if err := ctrl.cartService.RemoveItem(c.Request.Context(), identity, uint(productID)); err != nil {
		ctrl.respondCartError(c, err, uint(productID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item removed from cart",
	})
}

// ClearCart empties the cart
// DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	identity := middleware.GetIdentity(c)

	if err := ctrl.cartService.ClearCart(c.Request.Context(), identity); err != nil {
		ctrl.respondCartError(c, err, 0)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared",
	})
}

func (ctrl *CartController) respondCartError(c *gin.Context, err error, productID uint) {
	log := middleware.GetLoggerFromContext(c)

	switch {
	case errors.Is(err, service.ErrProductNotFound):
		apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
	case errors.Is(err, service.ErrInvalidQuantity):
		apperrors.BadRequest(c, apperrors.ValidationInvalidRange, "Quantity must be positive")
	case errors.Is(err, service.ErrIdentityRequired):
		apperrors.BadRequest(c, apperrors.CaptureSessionMissing, "Cart session is missing")
	default:
		log.Error("Cart operation failed", err, map[string]interface{}{
			"product_id": productID,
		})
		apperrors.InternalError(c, "Failed to update cart")
	}
}
