package app

import (
	"bigfootds/auth-api/config"
	"bigfootds/auth-api/internal"
	"bigfootds/auth-api/internal/model"
	"bigfootds/auth-api/internal/testdb"
	"bigfootds/auth-api/pkg/security"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingMailer remembers the last code sent to every recipient
type recordingMailer struct {
	mu    sync.Mutex
	codes map[string]string
	fail  bool
}

func (m *recordingMailer) SendVerificationEmail(_ context.Context, recipient, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail {
		return errors.New("smtp down")
	}

	m.codes[recipient] = code
	return nil
}

func (m *recordingMailer) code(recipient string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.codes[recipient]
}

type testServer struct {
	router *gin.Engine
	deps   *internal.Deps
	mailer *recordingMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	gin.SetMode(gin.TestMode)

	c := &config.Config{
		LogLevel: "debug",
		Host:     config.HostConfig{Port: 8080, Domain: "localhost", CORS: []string{"http://localhost:5173"}},
		JWT: config.JWTConfig{
			ShortSecret: "short-secret",
			LongSecret:  "long-secret",
			ShortTTL:    time.Hour,
			LongTTL:     30 * 24 * time.Hour,
			Issuer:      "test",
		},
		Password: config.PasswordConfig{MinLength: 8, MinLower: 1, MinUpper: 1, MinDigits: 1},
		Tokens: config.TokensConfig{
			EmailVerificationTTL: time.Hour,
			TVLoginTTL:           10 * time.Minute,
			CleanupInterval:      time.Hour,
		},
		Mail: config.MailConfig{ResendCooldown: time.Minute},
		OAuth: map[string]config.OAuthProviderConfig{
			model.ProviderDiscord: {ClientID: "discord-id", ClientSecret: "secret", RedirectURL: "http://localhost/api/oauth/discord/redirect"},
		},
		FrontendURL: "http://localhost:5173/",
		RateLimit:   1000,
	}

	mailer := &recordingMailer{codes: map[string]string{}}
	argon := &security.ArgonHash{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

	d, err := internal.NewDeps(c, testdb.New(t), argon, mailer)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return &testServer{
		router: NewRouter(ctx, d),
		deps:   d,
		mailer: mailer,
	}
}

func (s *testServer) do(t *testing.T, method, target, bearer string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = strings.NewReader(string(b))
	}

	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}

	return rec, out
}

func tokensOf(t *testing.T, body map[string]any) (string, string) {
	t.Helper()

	tokens, ok := body["tokens"].(map[string]any)
	require.True(t, ok, "response has no tokens: %v", body)

	return tokens["short"].(string), tokens["long"].(string)
}

func userOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()

	user, ok := body["user"].(map[string]any)
	require.True(t, ok, "response has no user: %v", body)

	return user
}

func (s *testServer) signup(t *testing.T, email string) (id, short, long string) {
	t.Helper()

	rec, body := s.do(t, http.MethodPost, "/api/users", "", gin.H{"email": email, "password": "Password1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	short, long = tokensOf(t, body)
	return userOf(t, body)["id"].(string), short, long
}

func TestHeartbeat(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodHead, "/api/heartbeat", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	sqlDB, err := s.deps.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	rec, _ = s.do(t, http.MethodHead, "/api/heartbeat", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSignupAndLogin(t *testing.T) {
	s := newTestServer(t)

	id, _, _ := s.signup(t, "a@example.com")
	assert.NotEmpty(t, s.mailer.code("a@example.com"))

	rec, body := s.do(t, http.MethodPost, "/api/users", "", gin.H{"email": "a@example.com", "password": "Password1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NotEmpty(t, body["requestID"])

	rec, _ = s.do(t, http.MethodPost, "/api/users", "", gin.H{"email": "b@example.com", "password": "weak"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/users", "", gin.H{"email": "b@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = s.do(t, http.MethodPost, "/api/users/login", "", gin.H{"email": "a@example.com", "password": "Password1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, userOf(t, body)["id"])
	assert.NotContains(t, userOf(t, body), "passwordHash")

	_, wrong := s.do(t, http.MethodPost, "/api/users/login", "", gin.H{"email": "a@example.com", "password": "Password2"})
	rec, unknown := s.do(t, http.MethodPost, "/api/users/login", "", gin.H{"email": "x@example.com", "password": "Password1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, wrong["error"], unknown["error"])
}

func TestSignup_DeliveryFailure(t *testing.T) {
	s := newTestServer(t)
	s.mailer.fail = true

	rec, _ := s.do(t, http.MethodPost, "/api/users", "", gin.H{"email": "a@example.com", "password": "Password1"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	s.mailer.fail = false
	s.signup(t, "a@example.com")
}

func TestMe(t *testing.T) {
	s := newTestServer(t)

	id, short, long := s.signup(t, "a@example.com")

	rec, body := s.do(t, http.MethodGet, "/api/users/me", long, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, userOf(t, body)["id"])
	newShort, newLong := tokensOf(t, body)
	assert.NotEmpty(t, newShort)
	assert.NotEmpty(t, newLong)

	rec, _ = s.do(t, http.MethodGet, "/api/users/me/short", short, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/users/me", short, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/users/me/short", long, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateAndDelete(t *testing.T) {
	s := newTestServer(t)

	id, short, _ := s.signup(t, "a@example.com")
	otherID, _, _ := s.signup(t, "b@example.com")

	rec, _ := s.do(t, http.MethodPatch, "/api/users/"+otherID, short, gin.H{"password": "NewPassword2"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(t, http.MethodPatch, "/api/users/"+id, short, gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body := s.do(t, http.MethodPatch, "/api/users/"+id, short, gin.H{"password": "NewPassword2"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, userOf(t, body)["id"])

	rec, _ = s.do(t, http.MethodPost, "/api/users/login", "", gin.H{"email": "a@example.com", "password": "NewPassword2"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodDelete, "/api/users/"+otherID, short, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body = s.do(t, http.MethodDelete, "/api/users/"+id, short, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a@example.com", userOf(t, body)["email"])

	// The token outlives the user but is no longer accepted
	rec, _ = s.do(t, http.MethodGet, "/api/users/me/short", short, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerifyEmail(t *testing.T) {
	s := newTestServer(t)

	_, short, _ := s.signup(t, "a@example.com")
	code := s.mailer.code("a@example.com")

	rec, _ := s.do(t, http.MethodGet, "/api/users/verify?token="+url.QueryEscape(code), "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://localhost:5173/", rec.Header().Get("Location"))

	rec, _ = s.do(t, http.MethodGet, "/api/users/verify?token="+url.QueryEscape(code), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body := s.do(t, http.MethodGet, "/api/users/me/short", short, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, userOf(t, body)["emailVerified"])

	rec, _ = s.do(t, http.MethodPost, "/api/users/verify/resend", short, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResendVerification(t *testing.T) {
	s := newTestServer(t)

	_, short, _ := s.signup(t, "a@example.com")
	first := s.mailer.code("a@example.com")

	rec, body := s.do(t, http.MethodPost, "/api/users/verify/resend", short, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tokensOf(t, body)
	assert.NotEqual(t, first, s.mailer.code("a@example.com"))

	rec, _ = s.do(t, http.MethodPost, "/api/users/verify/resend", short, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestResendVerification_RetryAfterDeliveryFailure(t *testing.T) {
	s := newTestServer(t)

	_, short, _ := s.signup(t, "a@example.com")
	first := s.mailer.code("a@example.com")

	s.mailer.fail = true
	rec, _ := s.do(t, http.MethodPost, "/api/users/verify/resend", short, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	s.mailer.fail = false
	rec, _ = s.do(t, http.MethodPost, "/api/users/verify/resend", short, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, first, s.mailer.code("a@example.com"))
}

func TestTVLogin(t *testing.T) {
	s := newTestServer(t)

	id, short, long := s.signup(t, "a@example.com")

	rec, _ := s.do(t, http.MethodGet, "/api/tv/code", long, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body := s.do(t, http.MethodGet, "/api/tv/code", short, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	code, ok := body["code"].(string)
	require.True(t, ok)
	assert.Len(t, code, security.TVCodeLength)

	rec, body = s.do(t, http.MethodGet, "/api/tv/code/"+code, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, userOf(t, body)["id"])

	_, tvLong := tokensOf(t, body)
	claims, err := s.deps.Sessions.Verify(security.ClassLong, tvLong)
	require.NoError(t, err)
	assert.Equal(t, id, claims.Subject)

	rec, _ = s.do(t, http.MethodGet, "/api/tv/code/"+code, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProviders(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodGet, "/api/providers", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{model.ProviderDiscord}, body["providers"])
}

func TestOAuthRedirect(t *testing.T) {
	s := newTestServer(t)

	_, short, long := s.signup(t, "a@example.com")

	rec, _ := s.do(t, http.MethodGet, "/api/oauth/discord?jwt="+short, "", nil)
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "discord.com", loc.Host)

	state := loc.Query().Get("state")
	_, err = s.deps.Sessions.Verify(security.ClassShort, state)
	assert.NoError(t, err)

	rec, _ = s.do(t, http.MethodGet, "/api/oauth/discord?jwt="+long, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/oauth/twitch?jwt="+short, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// A forged state is rejected before the provider is contacted
	rec, _ = s.do(t, http.MethodGet, "/api/oauth/discord/redirect?code=abc&state=forged", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/oauth/discord/redirect?error=access_denied&state="+state, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
