package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"santua/pkg/models"
)

type Verifier interface {
	Verify(ctx context.Context, paymentID string) (Payment, error)
}

type PreferenceCreator interface {
	CreatePreference(ctx context.Context, stickerID, publicURL string) (Preference, error)
}

// Activator is satisfied by *sticker.Registry.
type Activator interface {
	ConfirmPayment(ctx context.Context, id string) (models.Sticker, error)
}

type Handler struct {
	Verifier    Verifier
	Preferences PreferenceCreator
	Activator   Activator
	// WebhookSecret enables x-signature checks when set.
	WebhookSecret string
	PublicURL     string
	Log           *zap.Logger
}

const maxWebhookBody = 64 << 10

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/preference", h.createPreference)
	rg.POST("/payments/webhook", h.webhook)
}

func (h *Handler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

type preferenceReq struct {
	ID   string `json:"id"`
	IDQR string `json:"id_qr"`
}

func (h *Handler) createPreference(c *gin.Context) {
	var req preferenceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	id := strings.ToUpper(strings.TrimSpace(req.ID))
	if id == "" {
		id = strings.ToUpper(strings.TrimSpace(req.IDQR))
	}
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id required"})
		return
	}

	pref, err := h.Preferences.CreatePreference(c.Request.Context(), id, h.PublicURL)
	if err != nil {
		h.logger().Error("create preference failed", zap.String("sticker_id", id), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable"})
		return
	}
	c.JSON(http.StatusOK, pref)
}

type notification struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
}

// webhook verifies the announced payment with the provider before touching
// the sticker. A provider outage answers 202 so the provider retries later.
func (h *Handler) webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body"})
		return
	}

	var n notification
	if len(body) > 0 {
		if err := json.Unmarshal(body, &n); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}

	kind := n.Type
	if kind == "" {
		kind = c.Query("type")
	}
	if kind == "" {
		kind = c.Query("topic")
	}
	paymentID := idString(n.Data.ID)
	if paymentID == "" {
		paymentID = c.Query("data.id")
	}
	if paymentID == "" {
		paymentID = c.Query("id")
	}

	if h.WebhookSecret != "" {
		err := VerifySignature(h.WebhookSecret, c.GetHeader("x-signature"), c.GetHeader("x-request-id"), paymentID)
		if err != nil {
			h.logger().Warn("webhook signature rejected", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
	}

	if kind != "payment" || paymentID == "" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	p, err := h.Verifier.Verify(c.Request.Context(), paymentID)
	if err != nil {
		if errors.Is(err, ErrVerificationUnavailable) {
			c.JSON(http.StatusAccepted, gin.H{"status": "pending"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !p.Confirmed() {
		c.JSON(http.StatusOK, gin.H{"status": p.Status, "activated": false})
		return
	}

	s, err := h.Activator.ConfirmPayment(c.Request.Context(), p.ExternalReference)
	if err != nil {
		h.logger().Error("confirm payment failed",
			zap.String("payment_id", paymentID),
			zap.String("sticker_id", p.ExternalReference),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "activation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": p.Status, "activated": true, "id": s.ID})
}

// idString accepts data.id as either a JSON string or number.
func idString(raw json.RawMessage) string {
	if string(raw) == "null" {
		return ""
	}
	return strings.TrimSpace(strings.Trim(string(raw), `"`))
}
