package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ErrNoSession means nobody is signed in, or the session can no longer be
// refreshed. Uploads wait until a new session starts.
var ErrNoSession = errors.New("no active session")

// refreshSkew renews tokens this long before they expire.
const refreshSkew = 60 * time.Second

type Session struct {
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email,omitempty"`
}

// Credentials are what the connector needs for one upload cycle.
type Credentials struct {
	Endpoint string
	Token    string
	UserID   string
}

type sessionRow struct {
	AccessToken  string         `db:"access_token"`
	RefreshToken string         `db:"refresh_token"`
	ExpiresAt    int64          `db:"expires_at"`
	UserID       string         `db:"user_id"`
	Email        sql.NullString `db:"email"`
}

// Manager owns the single authenticated session of this device. The session
// is persisted locally so a restart does not sign the user out.
type Manager struct {
	client   *Client
	db       *sqlx.DB
	endpoint string
	log      *zap.Logger
	now      func() time.Time

	mu        sync.Mutex
	session   *Session
	ready     bool
	listeners []func(Session)
}

// NewManager wires the token client and the local database. endpoint is
// handed out with the credentials (the sync service URL).
func NewManager(client *Client, db *sqlx.DB, endpoint string, log *zap.Logger) *Manager {
	return &Manager{client: client, db: db, endpoint: endpoint, log: log, now: time.Now}
}

// OnSessionStarted registers fn to run whenever a session is established.
func (m *Manager) OnSessionStarted(fn func(Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Init restores a persisted session. Calling it again is a no-op.
func (m *Manager) Init(ctx context.Context) error {
	m.mu.Lock()
	if m.ready {
		m.mu.Unlock()
		return nil
	}

	var row sessionRow
	err := m.db.GetContext(ctx, &row, `SELECT access_token, refresh_token, expires_at, user_id, email FROM auth_session WHERE id = 1`)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		m.mu.Unlock()
		return fmt.Errorf("load session: %w", err)
	}
	m.ready = true
	if errors.Is(err, sql.ErrNoRows) {
		m.mu.Unlock()
		m.log.Info("no persisted session")
		return nil
	}

	s := Session{
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken,
		ExpiresAt:    time.Unix(row.ExpiresAt, 0),
		UserID:       row.UserID,
		Email:        row.Email.String,
	}
	m.session = &s
	listeners := append([]func(Session){}, m.listeners...)
	m.mu.Unlock()

	m.log.Info("restored session", zap.String("user_id", s.UserID), zap.Time("expires_at", s.ExpiresAt))
	for _, l := range listeners {
		l(s)
	}
	return nil
}

// Login signs in with email and password and starts a new session.
func (m *Manager) Login(ctx context.Context, email, password string) (Session, error) {
	token, err := m.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	s := m.sessionFromToken(token)
	if err := m.updateSession(ctx, &s); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Logout forgets the session locally.
func (m *Manager) Logout(ctx context.Context) error {
	return m.updateSession(ctx, nil)
}

// Session returns a copy of the current session, if any.
func (m *Manager) Session() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

// Credentials returns a valid access token, refreshing it first when it is
// about to expire. ErrNoSession is returned when there is nothing to refresh
// or the refresh token was rejected.
func (m *Manager) Credentials(ctx context.Context) (Credentials, error) {
	m.mu.Lock()
	current := m.session
	m.mu.Unlock()
	if current == nil {
		return Credentials{}, ErrNoSession
	}

	if m.now().Add(refreshSkew).Before(current.ExpiresAt) {
		return Credentials{Endpoint: m.endpoint, Token: current.AccessToken, UserID: current.UserID}, nil
	}

	m.log.Debug("refreshing session", zap.Time("expires_at", current.ExpiresAt))
	token, err := m.client.Refresh(ctx, current.RefreshToken)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Rejected() {
			m.log.Warn("refresh token rejected, signing out", zap.Error(err))
			if clearErr := m.updateSession(ctx, nil); clearErr != nil {
				return Credentials{}, clearErr
			}
			return Credentials{}, ErrNoSession
		}
		return Credentials{}, fmt.Errorf("refresh session: %w", err)
	}

	s := m.sessionFromToken(token)
	if err := m.updateSession(ctx, &s); err != nil {
		return Credentials{}, err
	}
	return Credentials{Endpoint: m.endpoint, Token: s.AccessToken, UserID: s.UserID}, nil
}

func (m *Manager) sessionFromToken(token *TokenResponse) Session {
	s := Session{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		UserID:       token.User.ID,
		Email:        token.User.Email,
	}
	switch {
	case token.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(token.ExpiresAt, 0)
	case token.ExpiresIn > 0:
		s.ExpiresAt = m.now().Add(time.Duration(token.ExpiresIn) * time.Second)
	default:
		s.ExpiresAt = tokenExpiry(token.AccessToken)
	}
	if s.UserID == "" {
		s.UserID = tokenSubject(token.AccessToken)
	}
	return s
}

func (m *Manager) updateSession(ctx context.Context, s *Session) error {
	m.mu.Lock()
	if s == nil {
		if _, err := m.db.ExecContext(ctx, `DELETE FROM auth_session`); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("clear session: %w", err)
		}
		m.session = nil
		m.mu.Unlock()
		return nil
	}

	_, err := m.db.ExecContext(ctx, `INSERT INTO auth_session (id, access_token, refresh_token, expires_at, user_id, email)
            VALUES (1, ?, ?, ?, ?, ?)
            ON CONFLICT (id) DO UPDATE SET
                access_token = excluded.access_token,
                refresh_token = excluded.refresh_token,
                expires_at = excluded.expires_at,
                user_id = excluded.user_id,
                email = excluded.email`,
		s.AccessToken, s.RefreshToken, s.ExpiresAt.Unix(), s.UserID, s.Email)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("persist session: %w", err)
	}
	m.session = s
	listeners := append([]func(Session){}, m.listeners...)
	m.mu.Unlock()

	m.log.Info("session started", zap.String("user_id", s.UserID), zap.Time("expires_at", s.ExpiresAt))
	for _, l := range listeners {
		l(*s)
	}
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature; the
// backend verifies it, this side only needs to know when to refresh.
func tokenExpiry(token string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

func tokenSubject(token string) string {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return ""
	}
	return claims.Subject
}
