package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testTokens = TokenService{Secret: []byte("test-secret"), Issuer: "santua", Duration: time.Hour}

func TestTokenService_RoundTrip(t *testing.T) {
	tok, exp, err := testTokens.Sign(&User{ID: "u1", Username: "ana", Role: RoleAdmin, TokenVersion: 3})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := testTokens.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, 3, claims.TokenVersion)
	assert.True(t, claims.IsAdmin())
}

func TestTokenService_RejectsForeignTokens(t *testing.T) {
	tok, _, err := testTokens.Sign(&User{ID: "u1"})
	require.NoError(t, err)

	other := TokenService{Secret: []byte("other"), Issuer: "santua", Duration: time.Hour}
	_, err = other.Parse(tok)
	assert.Error(t, err)

	wrongIssuer := TokenService{Secret: testTokens.Secret, Issuer: "someone-else", Duration: time.Hour}
	_, err = wrongIssuer.Parse(tok)
	assert.Error(t, err)

	expired := TokenService{Secret: testTokens.Secret, Issuer: "santua", Duration: -time.Minute}
	tok, _, err = expired.Sign(&User{ID: "u1"})
	require.NoError(t, err)
	_, err = testTokens.Parse(tok)
	assert.Error(t, err)
}

type fakeVersions map[string]int

func (f fakeVersions) GetTokenVersion(_ context.Context, id string) (int, error) {
	v, ok := f[id]
	if !ok {
		return 0, ErrUserNotFound
	}
	return v, nil
}

func guarded(versions TokenVersions) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(testTokens, versions), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": MustGetClaims(c).UserID})
	})
	r.GET("/admin", AuthMiddleware(testTokens, versions), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := guarded(fakeVersions{"u1": 2, "a1": 0})
	current, _, _ := testTokens.Sign(&User{ID: "u1", Role: RoleUser, TokenVersion: 2})
	revoked, _, _ := testTokens.Sign(&User{ID: "u1", Role: RoleUser, TokenVersion: 1})
	ghost, _, _ := testTokens.Sign(&User{ID: "gone"})

	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "garbage").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", revoked).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", ghost).Code)

	w := get(r, "/me", current)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"u1"}`, w.Body.String())

	w = get(r, "/me?token="+current, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	r := guarded(nil)
	user, _, _ := testTokens.Sign(&User{ID: "u1", Role: RoleUser})
	admin, _, _ := testTokens.Sign(&User{ID: "a1", Role: RoleAdmin})

	assert.Equal(t, http.StatusForbidden, get(r, "/admin", user).Code)
	assert.Equal(t, http.StatusNoContent, get(r, "/admin", admin).Code)
}

var userCols = []string{"id", "username", "email", "password_hash", "role", "token_version", "created_at"}

func newMockRepo(t *testing.T) (*Repo, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewRepo(db), mock, db
}

func TestHandler_Login(t *testing.T) {
	repo, mock, db := newMockRepo(t)
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows(userCols).
			AddRow("a1", "admin", "admin@santua.test", string(hash), RoleAdmin, 4, time.Now())
	}
	mock.ExpectQuery(`FROM users WHERE LOWER\(email\) = \?`).WithArgs("admin@santua.test").WillReturnRows(rows())
	mock.ExpectQuery(`FROM users WHERE LOWER\(email\) = \?`).WithArgs("admin@santua.test").WillReturnRows(rows())

	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(repo, testTokens, nil).RegisterRoutes(r.Group("/auth"))

	body := `{"email":" Admin@Santua.test ","password":"correct horse"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Token string `json:"token"`
		User  struct {
			Role string `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, RoleAdmin, out.User.Role)
	claims, err := testTokens.Parse(out.Token)
	require.NoError(t, err)
	assert.Equal(t, 4, claims.TokenVersion)

	req = httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"admin@santua.test","password":"wrong"}`))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_RegisterValidation(t *testing.T) {
	repo, _, db := newMockRepo(t)
	defer db.Close()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(repo, testTokens, nil).RegisterRoutes(r.Group("/auth"))

	for _, body := range []string{
		`{"username":"ab","email":"a@b.c","password":"12345678"}`,
		`{"username":"abc","email":"nope","password":"12345678"}`,
		`{"username":"abc","email":"a@b.c","password":"short"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestRepo_GetTokenVersion_UnknownUser(t *testing.T) {
	repo, mock, db := newMockRepo(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT token_version FROM users`).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetTokenVersion(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestEnsureAdmin_PromotesExisting(t *testing.T) {
	repo, mock, db := newMockRepo(t)
	defer db.Close()

	mock.ExpectQuery(`FROM users WHERE LOWER\(email\)`).WithArgs("ops@santua.test").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u9", "ops", "ops@santua.test", "x", RoleUser, 0, time.Now()))
	mock.ExpectExec(`UPDATE users SET role = \? WHERE id = \?`).WithArgs(RoleAdmin, "u9").
		WillReturnResult(sqlmock.NewResult(0, 1))

	u, err := EnsureAdmin(context.Background(), repo, "ops", "OPS@santua.test", "whatever")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, u.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureAdmin_Creates(t *testing.T) {
	repo, mock, db := newMockRepo(t)
	defer db.Close()

	mock.ExpectQuery(`FROM users WHERE LOWER\(email\)`).WithArgs("root@santua.test").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(sqlmock.AnyArg(), "admin", "root@santua.test", sqlmock.AnyArg(), RoleAdmin).
		WillReturnResult(sqlmock.NewResult(1, 1))

	u, err := EnsureAdmin(context.Background(), repo, "", "root@santua.test", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "admin", u.Username)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret-pass")))
	require.NoError(t, mock.ExpectationsWereMet())
}
