package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"notehd/internal/auth"
	"notehd/internal/http_server/handlers/health"
	resp "notehd/internal/lib/api/response"
	"notehd/internal/lib/logger/sl"
	"notehd/internal/models"
	"notehd/internal/notes"
	"notehd/internal/session"
	"notehd/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type inbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (i *inbox) SendChallenge(_ context.Context, email, code string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.codes[email] = code

	return nil
}

func (i *inbox) code(email string) string {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.codes[email]
}

type fakeGoogle struct {
	ident *models.ExternalIdentity
	err   error
}

func (g *fakeGoogle) AuthCodeURL(state string) string {
	return "https://accounts.example/o/oauth2/auth?state=" + url.QueryEscape(state)
}

func (g *fakeGoogle) Exchange(_ context.Context, code string) (*models.ExternalIdentity, error) {
	if g.err != nil {
		return nil, g.err
	}
	if code != "good-code" {
		return nil, errors.New("bad code")
	}

	return g.ident, nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

type app struct {
	srv    *httptest.Server
	inbox  *inbox
	google *fakeGoogle
	store  *memory.Storage
}

func newApp(t *testing.T) *app {
	t.Helper()

	log := sl.NewDiscardLogger()
	store := memory.New()
	box := &inbox{codes: make(map[string]string)}
	sessions := session.New("test-secret", session.DefaultTTL)
	g := &fakeGoogle{ident: &models.ExternalIdentity{Subject: "g-jonas", Email: "jonas@example.com", Name: "Jonas"}}

	authService := auth.New(log, store, store, box, sessions, auth.DefaultChallengeTTL,
		auth.WithPasscodeCost(bcrypt.MinCost),
	)

	router := NewRouter(Deps{
		Log:      log,
		Accounts: authService,
		Sessions: sessions,
		Notes:    notes.New(log, store),
		Google: &GoogleRoutes{
			Provider:   g,
			States:     store,
			StateTTL:   5 * time.Minute,
			SuccessURL: "http://localhost:5173/dashboard",
			FailureURL: "http://localhost:5173/signin",
		},
		AllowedOrigins: []string{"*"},
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &app{srv: srv, inbox: box, google: g, store: store}
}

func (a *app) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, a.srv.URL+path, &buf)
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}

	res, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })

	return res
}

func decode[T any](t *testing.T, res *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&v))

	return v
}

type verifyResponse struct {
	resp.Response
	Token string         `json:"token"`
	User  models.Summary `json:"user"`
}

func TestJonasScenario(t *testing.T) {
	t.Parallel()

	a := newApp(t)

	res := a.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"name":        "Jonas",
		"email":       "jonas@example.com",
		"dateOfBirth": "1990-01-15",
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "OTP sent to your email. Please verify.", decode[resp.Response](t, res).Message)

	res = a.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"name":        "Jonas",
		"email":       "jonas@example.com",
		"dateOfBirth": "1990-01-15",
	})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "User already exists", decode[resp.Response](t, res).Error)

	code := a.inbox.code("jonas@example.com")
	require.Len(t, code, 6)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	res = a.do(t, http.MethodPost, "/auth/verify", "", map[string]string{"email": "jonas@example.com", "otp": wrong})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "Invalid or expired OTP.", decode[resp.Response](t, res).Error)

	res = a.do(t, http.MethodPost, "/auth/verify", "", map[string]string{"email": "jonas@example.com", "otp": code})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	verified := decode[verifyResponse](t, res)
	assert.Equal(t, resp.StatusOK, verified.Status)
	assert.Equal(t, "Jonas", verified.User.Name)
	assert.Equal(t, "jonas@example.com", verified.User.Email)
	require.NotEmpty(t, verified.Token)

	res = a.do(t, http.MethodPost, "/auth/verify", "", map[string]string{"email": "jonas@example.com", "otp": code})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = a.do(t, http.MethodGet, "/auth/me", verified.Token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var meBody map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&meBody))
	assert.Equal(t, verified.User.ID, meBody["id"])
	assert.NotContains(t, meBody, "OTPHash")
	assert.NotContains(t, meBody, "otp")

	res = a.do(t, http.MethodPost, "/notes", verified.Token, map[string]string{"content": "buy milk"})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	note := decode[models.Note](t, res)
	assert.Equal(t, verified.User.ID, note.OwnerID)

	res = a.do(t, http.MethodGet, "/notes", verified.Token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	list := decode[[]models.Note](t, res)
	require.Len(t, list, 1)
	assert.Equal(t, "buy milk", list[0].Content)

	// later Jonas uses "Sign in with Google" with the same address
	res = a.do(t, http.MethodGet, "/auth/google", "", nil)
	require.Equal(t, http.StatusFound, res.StatusCode)
	consent, err := url.Parse(res.Header.Get("Location"))
	require.NoError(t, err)
	state := consent.Query().Get("state")
	require.NotEmpty(t, state)

	res = a.do(t, http.MethodGet, "/auth/google/callback?state="+url.QueryEscape(state)+"&code=good-code", "", nil)
	require.Equal(t, http.StatusFound, res.StatusCode)
	landing, err := url.Parse(res.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/dashboard", landing.Path)
	googleToken := landing.Query().Get("token")
	require.NotEmpty(t, googleToken)

	res = a.do(t, http.MethodGet, "/notes", googleToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, decode[[]models.Note](t, res), 1)

	// state is single use
	res = a.do(t, http.MethodGet, "/auth/google/callback?state="+url.QueryEscape(state)+"&code=good-code", "", nil)
	require.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, "http://localhost:5173/signin", res.Header.Get("Location"))
}

func TestSignupValidation(t *testing.T) {
	t.Parallel()

	a := newApp(t)

	tests := []struct {
		name string
		body map[string]string
		want string
	}{
		{name: "missing name", body: map[string]string{"email": "a@example.com", "dateOfBirth": "1990-01-15"}, want: "Name"},
		{name: "bad email", body: map[string]string{"name": "A", "email": "nope", "dateOfBirth": "1990-01-15"}, want: "Email"},
		{name: "bad date", body: map[string]string{"name": "A", "email": "a@example.com", "dateOfBirth": "15/01/1990"}, want: "DateOfBirth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := a.do(t, http.MethodPost, "/auth/signup", "", tt.body)
			require.Equal(t, http.StatusBadRequest, res.StatusCode)
			assert.Contains(t, decode[resp.Response](t, res).Error, tt.want)
		})
	}
}

func TestSigninUnknownUser(t *testing.T) {
	t.Parallel()

	a := newApp(t)

	res := a.do(t, http.MethodPost, "/auth/signin", "", map[string]string{"email": "ghost@example.com"})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "User not found. Please sign up.", decode[resp.Response](t, res).Error)
}

func TestVerifyRejectsMalformedCode(t *testing.T) {
	t.Parallel()

	a := newApp(t)

	res := a.do(t, http.MethodPost, "/auth/verify", "", map[string]string{"email": "a@example.com", "otp": "12ab"})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, decode[resp.Response](t, res).Error, "6 digit code")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	t.Parallel()

	a := newApp(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/auth/me"},
		{http.MethodGet, "/notes"},
		{http.MethodPost, "/notes"},
		{http.MethodDelete, "/notes/abc"},
	} {
		res := a.do(t, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode, tc.method+" "+tc.path)

		res = a.do(t, tc.method, tc.path, "not-a-token", nil)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode, tc.method+" "+tc.path)
	}
}

func signInWithGoogle(t *testing.T, a *app, ident models.ExternalIdentity) string {
	t.Helper()

	a.google.ident = &ident

	res := a.do(t, http.MethodGet, "/auth/google", "", nil)
	require.Equal(t, http.StatusFound, res.StatusCode)
	consent, err := url.Parse(res.Header.Get("Location"))
	require.NoError(t, err)

	res = a.do(t, http.MethodGet,
		"/auth/google/callback?state="+url.QueryEscape(consent.Query().Get("state"))+"&code=good-code", "", nil)
	require.Equal(t, http.StatusFound, res.StatusCode)
	landing, err := url.Parse(res.Header.Get("Location"))
	require.NoError(t, err)

	token := landing.Query().Get("token")
	require.NotEmpty(t, token)

	return token
}

func TestNoteOwnership(t *testing.T) {
	t.Parallel()

	a := newApp(t)

	ana := signInWithGoogle(t, a, models.ExternalIdentity{Subject: "g-ana", Email: "ana@example.com", Name: "Ana"})
	bob := signInWithGoogle(t, a, models.ExternalIdentity{Subject: "g-bob", Email: "bob@example.com", Name: "Bob"})

	res := a.do(t, http.MethodPost, "/notes", ana, map[string]string{"content": "ana's note"})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	note := decode[models.Note](t, res)

	res = a.do(t, http.MethodGet, "/notes", bob, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, decode[[]models.Note](t, res))

	res = a.do(t, http.MethodDelete, "/notes/"+note.ID, bob, nil)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "Not authorized", decode[resp.Response](t, res).Error)

	res = a.do(t, http.MethodDelete, "/notes/missing", ana, nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode)

	res = a.do(t, http.MethodDelete, "/notes/"+note.ID, ana, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "Note removed", decode[resp.Response](t, res).Message)
}

func TestCreateNoteValidation(t *testing.T) {
	t.Parallel()

	a := newApp(t)
	token := signInWithGoogle(t, a, models.ExternalIdentity{Subject: "g-ana", Email: "ana@example.com"})

	res := a.do(t, http.MethodPost, "/notes", token, map[string]string{"content": ""})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = a.do(t, http.MethodPost, "/notes", token, map[string]string{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = a.do(t, http.MethodPost, "/notes", token, map[string]string{"content": strings.Repeat("x", 10001)})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestGoogleCallbackFailures(t *testing.T) {
	t.Parallel()

	a := newApp(t)
	failure := "http://localhost:5173/signin"

	res := a.do(t, http.MethodGet, "/auth/google/callback?error=access_denied", "", nil)
	require.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, failure, res.Header.Get("Location"))

	res = a.do(t, http.MethodGet, "/auth/google/callback?state=forged&code=good-code", "", nil)
	require.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, failure, res.Header.Get("Location"))

	res = a.do(t, http.MethodGet, "/auth/google", "", nil)
	consent, err := url.Parse(res.Header.Get("Location"))
	require.NoError(t, err)

	res = a.do(t, http.MethodGet,
		"/auth/google/callback?state="+url.QueryEscape(consent.Query().Get("state"))+"&code=bad-code", "", nil)
	require.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, failure, res.Header.Get("Location"))
}

func TestGoogleCallbackIncompleteIdentity(t *testing.T) {
	t.Parallel()

	a := newApp(t)
	a.google.ident = &models.ExternalIdentity{Subject: "g-1"}

	res := a.do(t, http.MethodGet, "/auth/google", "", nil)
	consent, err := url.Parse(res.Header.Get("Location"))
	require.NoError(t, err)

	res = a.do(t, http.MethodGet,
		"/auth/google/callback?state="+url.QueryEscape(consent.Query().Get("state"))+"&code=good-code", "", nil)
	require.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, "http://localhost:5173/signin", res.Header.Get("Location"))
}

func TestMeAccountGone(t *testing.T) {
	t.Parallel()

	a := newApp(t)
	token, err := session.New("test-secret", time.Hour).Issue("deleted-account")
	require.NoError(t, err)

	res := a.do(t, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	a := newApp(t)

	res := a.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, resp.StatusOK, decode[resp.Response](t, res).Status)

	router := NewRouter(Deps{
		Log:      sl.NewDiscardLogger(),
		Sessions: session.New("s", time.Hour),
		Health:   map[string]health.Pinger{"postgres": failingPinger{}},
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestGoogleRoutesDisabled(t *testing.T) {
	t.Parallel()

	router := NewRouter(Deps{
		Log:      sl.NewDiscardLogger(),
		Sessions: session.New("s", time.Hour),
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/google", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
