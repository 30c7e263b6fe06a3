package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/cart-recovery-backend/internal/app/service"
	apperrors "github.com/ikkim/cart-recovery-backend/internal/errors"
	"github.com/ikkim/cart-recovery-backend/internal/middleware"
	"github.com/ikkim/cart-recovery-backend/pkg/util"
)

const (
	captureFieldsKey = "customer_data"
	captureNonceKey  = "security"

	msgCartInserted  = "Abandoned cart inserted."
	msgCartUpdated   = "Abandoned cart updated."
	msgCaptureFailed = "Database update/insert failed"
)

type CaptureController struct {
	captureService service.CaptureService
	nonceSecret    string
	nonceTTL       time.Duration
}

func NewCaptureController(captureService service.CaptureService, nonceSecret string, nonceTTL time.Duration) *CaptureController {
	return &CaptureController{
		captureService: captureService,
		nonceSecret:    nonceSecret,
		nonceTTL:       nonceTTL,
	}
}

// IssueNonce hands the storefront script the token it must echo back in
// every capture.
// GET /api/v1/checkout/nonce
func (ctrl *CaptureController) IssueNonce(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	identity := middleware.GetIdentity(c)

	if identity.SessionID == "" {
		log.Warn("Nonce requested without cart session", identity.LogFields())
		apperrors.BadRequest(c, apperrors.CaptureSessionMissing, "Cart session is missing")
		return
	}

	nonce, err := util.IssueNonce(identity.SessionID, identity.UserID, ctrl.nonceSecret, ctrl.nonceTTL)
	if err != nil {
		log.Error("Failed to issue capture nonce", err, identity.LogFields())
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nonce":      nonce,
		"expires_in": int(ctrl.nonceTTL.Seconds()),
	})
}

// Capture stores the checkout fields typed so far together with the live
// cart. Fields arrive form-encoded as customer_data[billing_email]=...
// POST /api/v1/checkout/capture
func (ctrl *CaptureController) Capture(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	identity := middleware.GetIdentity(c)

	if err := util.ValidateNonce(c.PostForm(captureNonceKey), identity.SessionID, identity.UserID, ctrl.nonceSecret); err != nil {
		log.Warn("Capture rejected: invalid nonce", map[string]interface{}{
			"identity": identity.String(),
			"error":    err.Error(),
		})
		apperrors.RespondWithError(c, http.StatusForbidden, apperrors.CaptureNonceInvalid, "Security check failed")
		return
	}

	fields := c.PostFormMap(captureFieldsKey)
	result, err := ctrl.captureService.Capture(c.Request.Context(), service.SourceAjax, identity, fields)
	if err != nil {
		log.Error("Checkout capture failed", err, identity.LogFields())
		apperrors.AjaxFailure(c, http.StatusOK, msgCaptureFailed)
		return
	}

	switch result.Outcome {
	case service.OutcomeInserted:
		apperrors.AjaxSuccess(c, msgCartInserted, result.CartID)
	case service.OutcomeUpdated:
		apperrors.AjaxSuccess(c, msgCartUpdated, result.CartID)
	default:
		log.Debug("Checkout capture skipped", map[string]interface{}{
			"identity": identity.String(),
			"reason":   result.Reason,
		})
		apperrors.AjaxFailure(c, http.StatusOK, "Abandoned cart not captured: "+result.Reason)
	}
}
