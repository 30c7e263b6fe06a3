package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ikkim/cart-recovery-backend/internal/app/model"
	"github.com/ikkim/cart-recovery-backend/internal/app/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCartRoutes(e *controllerEnv, identity model.Identity) {
	ctrl := NewCartController(service.NewCartService(e.live, e.products))
	e.router.Use(asShopper(identity))
	e.router.GET("/cart", ctrl.GetCart)
	e.router.POST("/cart", ctrl.SetItem)
	e.router.DELETE("/cart", ctrl.ClearCart)
	e.router.DELETE("/cart/:product_id", ctrl.RemoveItem)
}

func doJSON(e *controllerEnv, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type cartBody struct {
	Items []model.CartLine `json:"items"`
	Count int              `json:"count"`
	Total string           `json:"total"`
}

func getCart(t *testing.T, e *controllerEnv) cartBody {
	t.Helper()
	w := doJSON(e, http.MethodGet, "/cart", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body cartBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestCartController_GetCart_Empty(t *testing.T) {
	e := setupControllerEnv(t)
	setupCartRoutes(e, model.Identity{SessionID: "sess-a"})

	body := getCart(t, e)
	assert.Equal(t, 0, body.Count)
	assert.Empty(t, body.Items)
	assert.Equal(t, "0", body.Total)
}

func TestCartController_SetItemAndTotal(t *testing.T) {
	e := setupControllerEnv(t)
	setupCartRoutes(e, model.Identity{SessionID: "sess-a"})

	widget := e.product(t, "Widget", "9.99")
	gadget := e.product(t, "Gadget", "0.10")

	w := doJSON(e, http.MethodPost, "/cart", `{"product_id": `+itoa(widget.ID)+`, "quantity": 2}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(e, http.MethodPost, "/cart", `{"product_id": `+itoa(gadget.ID)+`, "quantity": 3}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := getCart(t, e)
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "20.28", body.Total) // 9.99*2 + 0.10*3

	// Posting again replaces the quantity
	w = doJSON(e, http.MethodPost, "/cart", `{"product_id": `+itoa(widget.ID)+`, "quantity": 1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10.29", getCart(t, e).Total)
}

func TestCartController_SetItem_Errors(t *testing.T) {
	e := setupControllerEnv(t)
	setupCartRoutes(e, model.Identity{SessionID: "sess-a"})

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "Missing product", body: `{"quantity": 1}`, wantStatus: http.StatusBadRequest},
		{name: "Zero quantity", body: `{"product_id": 1, "quantity": 0}`, wantStatus: http.StatusBadRequest},
		{name: "Unknown product", body: `{"product_id": 999, "quantity": 1}`, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(e, http.MethodPost, "/cart", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestCartController_NoIdentity(t *testing.T) {
	e := setupControllerEnv(t)
	setupCartRoutes(e, model.Identity{})

	widget := e.product(t, "Widget", "1.00")
	w := doJSON(e, http.MethodPost, "/cart", `{"product_id": `+itoa(widget.ID)+`, "quantity": 1}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "CAPTURE_SESSION_MISSING")
}

func TestCartController_RemoveAndClear(t *testing.T) {
	e := setupControllerEnv(t)
	identity := model.Identity{UserID: 3, SessionID: "sess-u"}
	setupCartRoutes(e, identity)

	widget := e.product(t, "Widget", "1.00")
	gadget := e.product(t, "Gadget", "2.00")
	e.addToCart(t, identity, widget.ID, 1)
	e.addToCart(t, identity, gadget.ID, 1)

	w := doJSON(e, http.MethodDelete, "/cart/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(e, http.MethodDelete, "/cart/"+itoa(widget.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	body := getCart(t, e)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "Gadget", body.Items[0].ProductName)

	w = doJSON(e, http.MethodDelete, "/cart", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, getCart(t, e).Count)
}
