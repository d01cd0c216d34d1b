package sticker

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Registry  *Registry
	PublicURL string
}

func NewHandler(reg *Registry, publicURL string) *Handler {
	return &Handler{Registry: reg, PublicURL: publicURL}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stickers/stats", h.stats)
	rg.POST("/stickers/configure", h.configure)
	rg.GET("/stickers/:id", h.lookup)
	rg.GET("/stickers/:id/validate", h.validate)
	rg.GET("/stickers/:id/qr.png", h.qr)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/stickers", h.list)
	rg.POST("/stickers/batch", h.generateBatch)
}

// RegisterScanRoute mounts the short link printed in QR codes.
func (h *Handler) RegisterScanRoute(r gin.IRoutes) {
	r.GET("/s/:id", h.scan)
}

type batchReq struct {
	Count int    `json:"cantidad"`
	Kind  string `json:"tipo"`
}

func (h *Handler) generateBatch(c *gin.Context) {
	var req batchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	batch, err := h.Registry.GenerateBatch(c.Request.Context(), req.Count, req.Kind)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate failed"})
		return
	}
	c.JSON(http.StatusCreated, batch)
}

type configureReq struct {
	ID      string `json:"id"`
	Alias   string `json:"alias"`
	Phone   string `json:"telefono"`
	Message string `json:"mensaje"`
	Kind    string `json:"tipo"`
}

func (h *Handler) configure(c *gin.Context) {
	var req configureReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	_, err := h.Registry.Configure(c.Request.Context(), Details{
		ID:      req.ID,
		Alias:   req.Alias,
		Phone:   req.Phone,
		Message: req.Message,
		Kind:    req.Kind,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "id required"})
	case errors.Is(err, ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "sticker not activated"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "configure failed"})
	}
}

func (h *Handler) lookup(c *gin.Context) {
	contact, err := h.Registry.Lookup(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not activated or does not exist"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, contact)
}

func (h *Handler) validate(c *gin.Context) {
	v, err := h.Registry.Validate(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id required"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validate failed"})
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) scan(c *gin.Context) {
	v, err := h.Registry.Validate(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sticker"})
		return
	}
	c.Redirect(http.StatusFound, strings.TrimRight(h.PublicURL, "/")+"/"+v.Redirect)
}

func (h *Handler) qr(c *gin.Context) {
	size := DefaultQRSize
	if s := strings.TrimSpace(c.Query("size")); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 64 && n <= 1024 {
			size = n
		}
	}

	png, err := QRCode(h.PublicURL, c.Param("id"), size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "qr failed"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) stats(c *gin.Context) {
	st, err := h.Registry.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Registry.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(items), "items": items})
}
