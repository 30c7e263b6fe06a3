package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/ikkim/cart-recovery-backend/internal/app/repository"
	"github.com/ikkim/cart-recovery-backend/internal/app/service"
	apperrors "github.com/ikkim/cart-recovery-backend/internal/errors"
	"github.com/ikkim/cart-recovery-backend/internal/middleware"
	"github.com/ikkim/cart-recovery-backend/internal/websocket"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AdminCartController struct {
	adminService     service.AdminCartService
	retentionService service.RetentionService
	hub              *websocket.Hub
	upgrader         gorillaws.Upgrader
}

func NewAdminCartController(
	adminService service.AdminCartService,
	retentionService service.RetentionService,
	hub *websocket.Hub,
	allowedOrigins []string,
) *AdminCartController {
	return &AdminCartController{
		adminService:     adminService,
		retentionService: retentionService,
		hub:              hub,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker allows same-origin requests and the configured origins.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set["*"]; ok {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

type CleanupRequest struct {
	Days int `json:"days" binding:"required,gt=0"`
}

func listFilterFromQuery(c *gin.Context) repository.ListFilter {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(repository.DefaultPerPage)))
	return repository.ListFilter{
		Search:  c.Query("search"),
		OrderBy: c.Query("orderby"),
		Order:   c.Query("order"),
		Page:    page,
		PerPage: perPage,
	}
}

// List returns a page of abandoned carts
// GET /api/v1/admin/abandoned-carts
func (ctrl *AdminCartController) List(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	page, err := ctrl.adminService.List(c.Request.Context(), listFilterFromQuery(c))
	if err != nil {
		log.Error("Failed to list abandoned carts", err)
		apperrors.InternalError(c, "Failed to list abandoned carts")
		return
	}

	c.JSON(http.StatusOK, page)
}

// Get returns one abandoned cart and marks it viewed
// GET /api/v1/admin/abandoned-carts/:id
func (ctrl *AdminCartController) Get(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		log.Warn("Invalid abandoned cart ID", map[string]interface{}{
			"id": c.Param("id"),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid abandoned cart ID")
		return
	}

	detail, err := ctrl.adminService.Get(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, service.ErrAbandonedCartNotFound) {
			apperrors.NotFound(c, apperrors.CartNotFound, "Abandoned cart not found")
			return
		}
		log.Error("Failed to fetch abandoned cart", err, map[string]interface{}{
			"cart_id": id,
		})
		apperrors.InternalError(c, "Failed to fetch abandoned cart")
		return
	}

	c.JSON(http.StatusOK, detail)
}

// UnviewedCount feeds the admin menu badge
// GET /api/v1/admin/abandoned-carts/unviewed-count
func (ctrl *AdminCartController) UnviewedCount(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	count, err := ctrl.adminService.CountUnviewed(c.Request.Context())
	if err != nil {
		log.Error("Failed to count unviewed abandoned carts", err)
		apperrors.InternalError(c, "Failed to count unviewed abandoned carts")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count": count,
	})
}

// Export downloads the matching carts as an XLSX workbook
// GET /api/v1/admin/abandoned-carts/export
func (ctrl *AdminCartController) Export(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	body, err := ctrl.adminService.Export(c.Request.Context(), listFilterFromQuery(c))
	if err != nil {
		log.Error("Failed to export abandoned carts", err)
		apperrors.InternalError(c, "Failed to export abandoned carts")
		return
	}

	filename := fmt.Sprintf("abandoned-carts-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, body)
}

// Cleanup deletes abandoned carts older than the given number of days
// POST /api/v1/admin/abandoned-carts/cleanup
func (ctrl *AdminCartController) Cleanup(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req CleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid cleanup request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidRange, "days must be a positive integer")
		return
	}

	deleted := ctrl.retentionService.Cleanup(c.Request.Context(), req.Days)

	userID, _ := middleware.GetUserID(c)
	log.Info("Manual abandoned cart cleanup", map[string]interface{}{
		"admin_id": userID,
		"days":     req.Days,
		"deleted":  deleted,
	})

	c.JSON(http.StatusOK, gin.H{
		"deleted": deleted,
	})
}

// Feed upgrades to a websocket streaming live cart events.
// GET /api/v1/admin/abandoned-carts/feed
func (ctrl *AdminCartController) Feed(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, _ := middleware.GetUserID(c)
	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		log.Warn("Live feed upgrade failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return
	}

	client := websocket.NewClient(ctrl.hub, &websocket.Conn{Conn: conn}, userID)
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
