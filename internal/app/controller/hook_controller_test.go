package controller

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ikkim/cart-recovery-backend/internal/app/model"
	"github.com/ikkim/cart-recovery-backend/internal/app/service"
	"github.com/ikkim/cart-recovery-backend/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHookRoutes(e *controllerEnv) {
	ctrl := NewHookController(e.capture)
	hooks := e.router.Group("/hooks", middleware.RequireHookToken("hook-secret"))
	hooks.POST("/checkout", ctrl.Checkout)
	hooks.POST("/order-completed", ctrl.OrderCompleted)
}

func postHook(e *controllerEnv, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HookTokenHeader, "hook-secret")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestHookController_Checkout(t *testing.T) {
	e := setupControllerEnv(t)
	setupHookRoutes(e)

	identity := model.Identity{UserID: 12, SessionID: "sess-hook"}
	widget := e.product(t, "Widget", "5.00")
	e.addToCart(t, identity, widget.ID, 3)

	w := postHook(e, "/hooks/checkout", `{
		"order_id": 1001,
		"user_id": 12,
		"session_id": "sess-hook",
		"data": {"billing_email": "grace@example.com", "billing_city": "Arlington"}
	}`)
	require.Equal(t, http.StatusNoContent, w.Code)

	id, found, err := e.carts.FindActiveID(context.Background(), identity)
	require.NoError(t, err)
	require.True(t, found)

	cart, err := e.carts.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", cart.Customer().Get("billing_email"))
	assert.Equal(t, "Arlington", cart.Customer().Get("billing_city"))
	require.Len(t, cart.Items(), 1)
	assert.Equal(t, 3, cart.Items()[0].Quantity)
}

func TestHookController_Checkout_NoIdentityStill204(t *testing.T) {
	e := setupControllerEnv(t)
	setupHookRoutes(e)

	w := postHook(e, "/hooks/checkout", `{"order_id": 5, "data": {"billing_email": "a@example.com"}}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	var count int64
	require.NoError(t, e.db.Model(&model.AbandonedCart{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestHookController_InvalidPayload(t *testing.T) {
	e := setupControllerEnv(t)
	setupHookRoutes(e)

	w := postHook(e, "/hooks/checkout", `{"order_id": "not a number"`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postHook(e, "/hooks/order-completed", `[]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHookController_RejectsWrongToken(t *testing.T) {
	e := setupControllerEnv(t)
	setupHookRoutes(e)

	req := httptest.NewRequest(http.MethodPost, "/hooks/order-completed", bytes.NewBufferString(`{"order_id": 1, "session_id": "s"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HookTokenHeader, "wrong")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHookController_OrderCompleted(t *testing.T) {
	e := setupControllerEnv(t)
	setupHookRoutes(e)

	identity := model.Identity{SessionID: "sess-done"}
	widget := e.product(t, "Widget", "5.00")
	e.addToCart(t, identity, widget.ID, 1)
	_, err := e.capture.Capture(context.Background(), service.SourceAjax, identity, map[string]string{"billing_email": "a@example.com"})
	require.NoError(t, err)

	t.Run("Order id 0 is ignored", func(t *testing.T) {
		w := postHook(e, "/hooks/order-completed", `{"order_id": 0, "session_id": "sess-done"}`)
		assert.Equal(t, http.StatusNoContent, w.Code)

		_, found, err := e.carts.FindActiveID(context.Background(), identity)
		require.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("Completes the active cart", func(t *testing.T) {
		w := postHook(e, "/hooks/order-completed", `{"order_id": 77, "session_id": "sess-done"}`)
		assert.Equal(t, http.StatusNoContent, w.Code)

		_, found, err := e.carts.FindActiveID(context.Background(), identity)
		require.NoError(t, err)
		assert.False(t, found)

		var completed int64
		require.NoError(t, e.db.Model(&model.AbandonedCart{}).Where("status = ?", model.CartStatusCompleted).Count(&completed).Error)
		assert.Equal(t, int64(1), completed)
	})

	t.Run("Repeat is a no-op", func(t *testing.T) {
		w := postHook(e, "/hooks/order-completed", `{"order_id": 77, "session_id": "sess-done"}`)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
