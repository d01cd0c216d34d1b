package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"santua/internal/matching"
	"santua/internal/stats"
	"santua/internal/sticker"
	"santua/internal/sync"
	"santua/pkg/models"
)

func setup(t *testing.T) (*gin.Engine, *matching.Service, *sticker.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := matching.NewService(matching.NewMemoryStore())
	reg := sticker.NewRegistry(sticker.NewMemoryStore())
	h := &Handler{Matching: svc, Stickers: reg, Visitors: stats.NewTracker(), Hub: sync.NewHub(nil)}

	r := gin.New()
	h.RegisterRoutes(r.Group("/api/admin"))
	return r, svc, reg
}

func TestAdmin_Data(t *testing.T) {
	r, svc, reg := setup(t)
	ctx := context.Background()

	_, err := svc.SubmitFound(ctx, matching.Submission{Category: "dni", Identifier: "12.345.678"})
	require.NoError(t, err)
	_, err = svc.SubmitLost(ctx, matching.Submission{Category: "patente", Identifier: "AB 123 CD"})
	require.NoError(t, err)
	_, err = reg.GenerateBatch(ctx, 1, "")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/data", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Hallazgos []models.Entry   `json:"hallazgos"`
		Busquedas []models.Entry   `json:"busquedas"`
		Stickers  []models.Sticker `json:"stickers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out.Hallazgos, 1)
	assert.Equal(t, "12345678", out.Hallazgos[0].Key)
	require.Len(t, out.Busquedas, 1)
	assert.Equal(t, "AB123CD", out.Busquedas[0].Key)
	assert.Len(t, out.Stickers, 1)
}

func TestAdmin_Stats(t *testing.T) {
	r, svc, _ := setup(t)
	_, err := svc.SubmitFound(context.Background(), matching.Submission{Identifier: "X1"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.EqualValues(t, 1, out["online"])
	assert.EqualValues(t, 0, out["visitas"])
	assert.EqualValues(t, 1, out["total_found"])
	assert.EqualValues(t, 0, out["total_lost"])
	assert.Contains(t, out, "watchers")
}
