package matching

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := NewService(NewMemoryStore())
	h := NewHandler(svc)

	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	h.RegisterAdminRoutes(r.Group("/api/admin"))
	return r, svc
}

func do(t *testing.T, r http.Handler, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func TestHandler_SubmitFlow(t *testing.T) {
	r, _ := newTestRouter(t)

	code, out := do(t, r, http.MethodPost, "/api/buscar", `{"categoria":"dni","nro":"12.345.678","contacto":"+5491100000000"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "registered", out["status"])
	assert.Equal(t, true, out["success"])

	code, out = do(t, r, http.MethodPost, "/api/lost", `{"category":"DNI","identifier":"12345678"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "duplicate", out["status"])
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "duplicate", out["error"])

	code, out = do(t, r, http.MethodPost, "/api/reportar", `{"tipo":"hallazgo","categoria":"DNI","nro":"12345678","contacto":"finder"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "match", out["status"])
	match, ok := out["match"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "+5491100000000", match["contacto"])

	entry, ok := out["entry"].(map[string]any)
	require.True(t, ok)
	payload, ok := entry["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hallazgo", payload["tipo"])
}

func TestHandler_SubmitValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	code, _ := do(t, r, http.MethodPost, "/api/found", `{"categoria":"DNI"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, r, http.MethodPost, "/api/found", `not json`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHandler_NumericIdentifier(t *testing.T) {
	r, _ := newTestRouter(t)

	code, out := do(t, r, http.MethodPost, "/api/found", `{"categoria":"DNI","nro":12345678}`)
	require.Equal(t, http.StatusOK, code)
	entry := out["entry"].(map[string]any)
	assert.Equal(t, "12345678", entry["nro"])
}

func TestHandler_Counters(t *testing.T) {
	r, _ := newTestRouter(t)

	do(t, r, http.MethodPost, "/api/found", `{"nro":"A"}`)
	do(t, r, http.MethodPost, "/api/found", `{"nro":"B"}`)
	do(t, r, http.MethodPost, "/api/lost", `{"nro":"C"}`)

	code, out := do(t, r, http.MethodGet, "/api/counters", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), out["total_found"])
	assert.Equal(t, float64(1), out["total_lost"])
}

func TestHandler_Deletes(t *testing.T) {
	r, _ := newTestRouter(t)

	do(t, r, http.MethodPost, "/api/found", `{"categoria":"DNI","nro":"111"}`)
	do(t, r, http.MethodPost, "/api/lost", `{"categoria":"DNI","nro":"111"}`)
	do(t, r, http.MethodPost, "/api/lost", `{"categoria":"DNI","nro":"222"}`)

	code, out := do(t, r, http.MethodDelete, "/api/admin/match/111", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), out["found_removed"])
	assert.Equal(t, float64(1), out["lost_removed"])

	code, _ = do(t, r, http.MethodDelete, "/api/admin/lost/222", "")
	assert.Equal(t, http.StatusOK, code)

	code, out = do(t, r, http.MethodDelete, "/api/admin/lost/222", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, out["success"])

	code, _ = do(t, r, http.MethodDelete, "/api/admin/found/999", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHandler_GuardRunsBeforeSubmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewService(NewMemoryStore()))
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"), func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "slow down"})
	})

	code, _ := do(t, r, http.MethodPost, "/api/found", `{"nro":"A"}`)
	assert.Equal(t, http.StatusTooManyRequests, code)

	code, _ = do(t, r, http.MethodGet, "/api/counters", "")
	assert.Equal(t, http.StatusOK, code)
}
