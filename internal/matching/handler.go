package matching

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes mounts the public submission routes. guard runs before
// each submission (rate limiting); the Spanish paths keep old clients working.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, guard ...gin.HandlerFunc) {
	found := append(append([]gin.HandlerFunc{}, guard...), h.submit(KindFound))
	lost := append(append([]gin.HandlerFunc{}, guard...), h.submit(KindLost))

	rg.POST("/found", found...)
	rg.POST("/reportar", found...)
	rg.POST("/lost", lost...)
	rg.POST("/buscar", lost...)
	rg.GET("/counters", h.counters)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.DELETE("/match/:key", h.deleteMatch)
	rg.DELETE("/found/:key", h.deleteOne(KindFound))
	rg.DELETE("/lost/:key", h.deleteOne(KindLost))
}

// submission field names, Spanish first as sent by the web forms
var (
	categoryFields   = []string{"categoria", "category"}
	identifierFields = []string{"nro", "identifier"}
	contactFields    = []string{"contacto", "contact"}
)

func (h *Handler) submit(kind Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}

		sub := SubmissionFromMap(body)
		var (
			res Result
			err error
		)
		if kind == KindFound {
			res, err = h.Svc.SubmitFound(c.Request.Context(), sub)
		} else {
			res, err = h.Svc.SubmitLost(c.Request.Context(), sub)
		}
		if err != nil {
			if errors.Is(err, ErrValidation) {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "nro required"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "submit failed"})
			return
		}

		c.JSON(http.StatusOK, submitResponse(res))
	}
}

func submitResponse(res Result) gin.H {
	out := gin.H{
		"success": res.Status != StatusDuplicate,
		"status":  res.Status,
		"entry":   res.Entry,
	}
	switch res.Status {
	case StatusMatch:
		out["match"] = res.Match
	case StatusDuplicate:
		out["error"] = "duplicate"
		out["message"] = res.Message
	}
	return out
}

// SubmissionFromMap picks the known fields out of body and keeps the rest as
// payload. Both the JSON and gRPC surfaces decode into this shape.
func SubmissionFromMap(body map[string]any) Submission {
	sub := Submission{
		Category:   pick(body, categoryFields),
		Identifier: pick(body, identifierFields),
		Contact:    pick(body, contactFields),
	}

	for k, v := range body {
		if isKnownField(k) || v == nil {
			continue
		}
		if sub.Payload == nil {
			sub.Payload = make(map[string]string)
		}
		sub.Payload[k] = stringify(v)
	}
	return sub
}

func pick(body map[string]any, names []string) string {
	for _, n := range names {
		if v, ok := body[n]; ok && v != nil {
			return strings.TrimSpace(stringify(v))
		}
	}
	return ""
}

// stringify keeps JSON numbers in plain notation; fmt.Sprint would render
// 12345678 as 1.2345678e+07.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func isKnownField(k string) bool {
	for _, group := range [][]string{categoryFields, identifierFields, contactFields} {
		for _, n := range group {
			if n == k {
				return true
			}
		}
	}
	return false
}

func (h *Handler) counters(c *gin.Context) {
	counts, err := h.Svc.Counts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *Handler) deleteMatch(c *gin.Context) {
	counts, err := h.Svc.DeleteMatch(c.Request.Context(), c.Param("key"))
	if err != nil {
		if errors.Is(err, ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "key required"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "found_removed": counts.Found, "lost_removed": counts.Lost})
}

func (h *Handler) deleteOne(kind Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var err error
		if kind == KindFound {
			err = h.Svc.DeleteFound(c.Request.Context(), c.Param("key"))
		} else {
			err = h.Svc.DeleteLost(c.Request.Context(), c.Param("key"))
		}
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"success": true})
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "not found"})
		case errors.Is(err, ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "key required"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "delete failed"})
		}
	}
}
