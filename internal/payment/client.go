// Package payment talks to MercadoPago: it creates checkout preferences for
// sticker activation and verifies the payments its webhook announces.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"santua/pkg/metrics"
)

// ErrVerificationUnavailable means the provider could not be asked. Callers
// treat it as "not yet confirmed", never as a denial.
var ErrVerificationUnavailable = errors.New("payment verification unavailable")

// ErrInvalidPaymentID rejects ids that are not provider payment numbers.
var ErrInvalidPaymentID = errors.New("invalid payment id")

const (
	DefaultBaseURL  = "https://api.mercadopago.com"
	DefaultTimeout  = 10 * time.Second
	DefaultCurrency = "ARS"

	StatusApproved = "approved"
)

type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
	Price       float64
	Currency    string
}

// Payment is the part of a provider payment record we act on.
type Payment struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference"`
}

// Confirmed reports whether the payment is approved and names a sticker.
func (p Payment) Confirmed() bool {
	return p.Status == StatusApproved && strings.TrimSpace(p.ExternalReference) != ""
}

type Preference struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point,omitempty"`
}

type Client struct {
	baseURL  string
	token    string
	price    float64
	currency string
	http     *http.Client
	log      *zap.Logger
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		token:    cfg.AccessToken,
		price:    cfg.Price,
		currency: cfg.Currency,
		http:     &http.Client{Timeout: cfg.Timeout},
		log:      log,
	}
}

// Verify fetches a payment by id. Transport failures, timeouts and non-200
// answers all yield ErrVerificationUnavailable.
func (c *Client) Verify(ctx context.Context, paymentID string) (Payment, error) {
	paymentID = strings.TrimSpace(paymentID)
	if !validPaymentID(paymentID) {
		return Payment{}, fmt.Errorf("%w: %q", ErrInvalidPaymentID, paymentID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/payments/"+url.PathEscape(paymentID), nil)
	if err != nil {
		return Payment{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ExternalAPIDuration.WithLabelValues("mercadopago", "payments").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PaymentVerificationsTotal.WithLabelValues("unavailable").Inc()
		c.log.Warn("payment verification failed", zap.String("payment_id", paymentID), zap.Error(err))
		return Payment{}, fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		metrics.PaymentVerificationsTotal.WithLabelValues("unavailable").Inc()
		c.log.Warn("payment verification rejected",
			zap.String("payment_id", paymentID),
			zap.Int("status", resp.StatusCode),
		)
		return Payment{}, fmt.Errorf("%w: provider returned %d", ErrVerificationUnavailable, resp.StatusCode)
	}

	var raw struct {
		ID                json.Number `json:"id"`
		Status            string      `json:"status"`
		ExternalReference string      `json:"external_reference"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		metrics.PaymentVerificationsTotal.WithLabelValues("unavailable").Inc()
		return Payment{}, fmt.Errorf("%w: decode: %v", ErrVerificationUnavailable, err)
	}

	p := Payment{ID: raw.ID.String(), Status: raw.Status, ExternalReference: raw.ExternalReference}
	if p.Confirmed() {
		metrics.PaymentVerificationsTotal.WithLabelValues("approved").Inc()
	} else {
		metrics.PaymentVerificationsTotal.WithLabelValues("not_approved").Inc()
	}
	return p, nil
}

type preferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type preferenceBody struct {
	Items             []preferenceItem  `json:"items"`
	ExternalReference string            `json:"external_reference"`
	BackURLs          map[string]string `json:"back_urls"`
	AutoReturn        string            `json:"auto_return"`
	NotificationURL   string            `json:"notification_url,omitempty"`
}

// CreatePreference opens a checkout for activating stickerID. publicURL is
// where the provider sends the buyer back to and posts its notifications.
func (c *Client) CreatePreference(ctx context.Context, stickerID, publicURL string) (Preference, error) {
	base := strings.TrimRight(publicURL, "/")
	body := preferenceBody{
		Items: []preferenceItem{{
			Title:      "Activación Sticker ID: " + stickerID,
			Quantity:   1,
			UnitPrice:  c.price,
			CurrencyID: c.currency,
		}},
		ExternalReference: stickerID,
		BackURLs: map[string]string{
			"success": base + "/perfil.html?activacion=exitosa&id=" + stickerID,
			"failure": base + "/presentacion_pago.html?error=pago_fallido",
			"pending": base + "/perfil.html",
		},
		AutoReturn: "approved",
	}
	if base != "" {
		body.NotificationURL = base + "/api/payments/webhook"
	}

	buf, err := json.Marshal(body)
	if err != nil {
		return Preference{}, fmt.Errorf("encode preference: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkout/preferences", bytes.NewReader(buf))
	if err != nil {
		return Preference{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ExternalAPIDuration.WithLabelValues("mercadopago", "preferences").Observe(time.Since(start).Seconds())
	if err != nil {
		return Preference{}, fmt.Errorf("create preference: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Preference{}, fmt.Errorf("create preference: provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var pref Preference
	if err := json.NewDecoder(resp.Body).Decode(&pref); err != nil {
		return Preference{}, fmt.Errorf("decode preference: %w", err)
	}
	c.log.Info("checkout preference created",
		zap.String("sticker_id", stickerID),
		zap.String("preference_id", pref.ID),
	)
	return pref, nil
}

// validPaymentID accepts the numeric ids the provider assigns. The id reaches
// us from an unauthenticated webhook, so nothing else goes into the URL.
func validPaymentID(id string) bool {
	if id == "" || len(id) > 32 {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
