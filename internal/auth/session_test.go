package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"possync/m/internal/auth"
	"possync/m/internal/localstore/storetest"
)

type tokenServer struct {
	*httptest.Server
	refreshes  atomic.Int32
	expiresIn  int64
	rejectNext atomic.Bool
}

func newTokenServer(t *testing.T, expiresIn int64) *tokenServer {
	ts := &tokenServer{expiresIn: expiresIn}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "anon", r.Header.Get("apikey"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch r.URL.Query().Get("grant_type") {
		case "password":
			if body["password"] != "secret" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
				return
			}
		case "refresh_token":
			ts.refreshes.Add(1)
			if ts.rejectNext.Load() {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Refresh Token Not Found"}`))
				return
			}
		}

		n := ts.refreshes.Load()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-" + string(rune('a'+n)),
			"refresh_token": "refresh-" + string(rune('a'+n)),
			"expires_in":    ts.expiresIn,
			"user":          map[string]string{"id": "user-1", "email": "cashier@example.com"},
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newManager(t *testing.T, ts *tokenServer) *auth.Manager {
	store := storetest.New(t)
	return auth.NewManager(auth.NewClient(ts.URL, "anon"), store.DB(), "https://sync.example.com", zap.NewNop())
}

func TestCredentialsWithoutSession(t *testing.T) {
	ts := newTokenServer(t, 3600)
	m := newManager(t, ts)
	require.NoError(t, m.Init(context.Background()))

	_, err := m.Credentials(context.Background())
	assert.ErrorIs(t, err, auth.ErrNoSession)
}

func TestLoginStartsSession(t *testing.T) {
	ts := newTokenServer(t, 3600)
	m := newManager(t, ts)
	ctx := context.Background()

	var started []auth.Session
	m.OnSessionStarted(func(s auth.Session) { started = append(started, s) })

	s, err := m.Login(ctx, "cashier@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", s.UserID)
	require.Len(t, started, 1)

	creds, err := m.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-a", creds.Token)
	assert.Equal(t, "https://sync.example.com", creds.Endpoint)
	assert.Equal(t, int32(0), ts.refreshes.Load())
}

func TestLoginRejected(t *testing.T) {
	ts := newTokenServer(t, 3600)
	m := newManager(t, ts)

	_, err := m.Login(context.Background(), "cashier@example.com", "wrong")
	var apiErr *auth.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Rejected())

	_, ok := m.Session()
	assert.False(t, ok)
}

func TestCredentialsRefreshNearExpiry(t *testing.T) {
	ts := newTokenServer(t, 30)
	m := newManager(t, ts)
	ctx := context.Background()

	_, err := m.Login(ctx, "cashier@example.com", "secret")
	require.NoError(t, err)

	creds, err := m.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), ts.refreshes.Load())
	assert.Equal(t, "access-b", creds.Token)
}

func TestCredentialsRejectedRefreshSignsOut(t *testing.T) {
	ts := newTokenServer(t, 30)
	m := newManager(t, ts)
	ctx := context.Background()

	_, err := m.Login(ctx, "cashier@example.com", "secret")
	require.NoError(t, err)

	ts.rejectNext.Store(true)
	_, err = m.Credentials(ctx)
	assert.ErrorIs(t, err, auth.ErrNoSession)

	_, ok := m.Session()
	assert.False(t, ok)
}

func TestInitRestoresPersistedSession(t *testing.T) {
	ts := newTokenServer(t, 3600)
	store := storetest.New(t)
	ctx := context.Background()

	first := auth.NewManager(auth.NewClient(ts.URL, "anon"), store.DB(), "", zap.NewNop())
	_, err := first.Login(ctx, "cashier@example.com", "secret")
	require.NoError(t, err)

	second := auth.NewManager(auth.NewClient(ts.URL, "anon"), store.DB(), "", zap.NewNop())
	var restored bool
	second.OnSessionStarted(func(auth.Session) { restored = true })
	require.NoError(t, second.Init(ctx))
	assert.True(t, restored)

	s, ok := second.Session()
	require.True(t, ok)
	assert.Equal(t, "user-1", s.UserID)
	assert.Equal(t, "cashier@example.com", s.Email)
	assert.WithinDuration(t, time.Now().Add(time.Hour), s.ExpiresAt, 5*time.Second)
}

func TestLogoutClearsPersistedSession(t *testing.T) {
	ts := newTokenServer(t, 3600)
	store := storetest.New(t)
	ctx := context.Background()

	m := auth.NewManager(auth.NewClient(ts.URL, "anon"), store.DB(), "", zap.NewNop())
	_, err := m.Login(ctx, "cashier@example.com", "secret")
	require.NoError(t, err)
	require.NoError(t, m.Logout(ctx))

	var count int
	require.NoError(t, store.DB().Get(&count, `SELECT COUNT(*) FROM auth_session`))
	assert.Zero(t, count)
}
