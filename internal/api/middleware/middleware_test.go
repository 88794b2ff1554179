package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeledger/homeledger/internal/logger"
)

var secret = []byte("test-secret")

func sign(t *testing.T, key []byte, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"user": UserID(r.Context())})
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestAuth(t *testing.T) {
	valid := sign(t, secret, jwt.SigningMethodHS256, jwt.MapClaims{"uid": "u1", "exp": time.Now().Add(time.Hour).Unix()})
	subOnly := sign(t, secret, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u2"})
	numeric := sign(t, secret, jwt.SigningMethodHS256, jwt.MapClaims{"uid": 42})
	expired := sign(t, secret, jwt.SigningMethodHS256, jwt.MapClaims{"uid": "u1", "exp": time.Now().Add(-time.Hour).Unix()})
	wrongKey := sign(t, []byte("other"), jwt.SigningMethodHS256, jwt.MapClaims{"uid": "u1"})
	noUser := sign(t, secret, jwt.SigningMethodHS256, jwt.MapClaims{"role": "admin"})
	hs512 := sign(t, secret, jwt.SigningMethodHS512, jwt.MapClaims{"uid": "u1"})

	tests := []struct {
		name       string
		header     string
		cookie     string
		wantStatus int
		wantUser   string
	}{
		{"header", "Bearer " + valid, "", http.StatusOK, "u1"},
		{"cookie", "", valid, http.StatusOK, "u1"},
		{"sub claim", "Bearer " + subOnly, "", http.StatusOK, "u2"},
		{"numeric uid", "Bearer " + numeric, "", http.StatusOK, "42"},
		{"missing", "", "", http.StatusUnauthorized, ""},
		{"basic scheme", "Basic dXNlcjpwdw==", "", http.StatusUnauthorized, ""},
		{"expired", "Bearer " + expired, "", http.StatusUnauthorized, ""},
		{"wrong key", "Bearer " + wrongKey, "", http.StatusUnauthorized, ""},
		{"no user claim", "Bearer " + noUser, "", http.StatusUnauthorized, ""},
		{"wrong algorithm", "Bearer " + hs512, "", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "Bearer", Value: tt.cookie})
			}
			rec := httptest.NewRecorder()

			Auth(secret)(echoUser()).ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				var body map[string]string
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, tt.wantUser, body["user"])
				return
			}
			body := decodeError(t, rec)
			assert.False(t, body.Success)
			assert.Contains(t, body.Message, "Unauthorized")
		})
	}
}

func TestAuth_PublicPath(t *testing.T) {
	rec := httptest.NewRecorder()
	Auth(secret, "/health")(echoUser()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestLogger_ContextLoggerCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf)

	h := Logger(log)(RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		log.Info().Msg("inside")
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest(http.MethodGet, "/brew", nil)
	req.Header.Set(RequestIDHeader, "req-7")
	h.ServeHTTP(httptest.NewRecorder(), req)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var inner, access map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &inner))
	require.NoError(t, json.Unmarshal(lines[1], &access))
	assert.Equal(t, "req-7", inner["request_id"])
	assert.Equal(t, "/brew", access["path"])
	assert.Equal(t, float64(http.StatusTeapot), access["status"])
	assert.Equal(t, "req-7", access["request_id"])
}

func TestRecovery(t *testing.T) {
	h := Recovery(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.False(t, body.Success)
	assert.Equal(t, "Internal server error", body.Message)
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]int{"n": 1})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n": 1}`, rec.Body.String())
}
