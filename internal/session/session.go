// Package session manages the login that gates remote extraction.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-form-filler/internal/logging"
	"github.com/a3tai/mcp-form-filler/internal/store"
)

// DefaultTTL is how long a login stays valid.
const DefaultTTL = 24 * time.Hour

const (
	stateKey     = "session:current"
	defaultIssue = "mcp-form-filler"
)

var (
	ErrNotLoggedIn        = errors.New("not logged in")
	ErrLoginFailed        = errors.New("login failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid session token")
)

// Credentials are the login inputs. The password is never stored.
type Credentials struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=256"`
}

// Config configures a Manager.
type Config struct {
	// LoginURL is the remote login endpoint. Empty means local login.
	LoginURL string
	// Secret signs session tokens. A random secret is used when empty.
	Secret string
	TTL    time.Duration
	Issuer string
}

// Claims are the session token claims.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// state is what gets persisted.
type state struct {
	Username    string    `json:"username"`
	RemoteToken string    `json:"remoteToken,omitempty"`
	Token       string    `json:"token"`
	LoginTime   time.Time `json:"loginTime"`
}

// Status describes the current login.
type Status struct {
	LoggedIn  bool      `json:"isLoggedIn"`
	Username  string    `json:"userIdentifier,omitempty"`
	LoginTime time.Time `json:"lastLoginTime,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// Manager owns the login state.
type Manager struct {
	cfg        Config
	secret     []byte
	store      store.Store
	httpClient *http.Client
	validate   *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
	mu         sync.Mutex
}

// NewManager creates a Manager persisting to st.
func NewManager(cfg Config, st store.Store, httpClient *http.Client, logger *zap.Logger) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaultIssue
	}
	secret := cfg.Secret
	if secret == "" {
		secret = uuid.NewString() + uuid.NewString()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Manager{
		cfg:        cfg,
		secret:     []byte(secret),
		store:      st,
		httpClient: httpClient,
		validate:   validator.New(),
		logger:     logging.OrNop(logger).Named("session"),
		now:        time.Now,
	}
}

// Login authenticates creds and persists a new session.
func (m *Manager) Login(ctx context.Context, creds Credentials) (Status, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	if err := m.validate.Struct(creds); err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	st := state{Username: creds.Username}
	if m.cfg.LoginURL != "" {
		remote, err := m.remoteLogin(ctx, creds)
		if err != nil {
			return Status{}, err
		}
		if remote.Username != "" {
			st.Username = remote.Username
		}
		st.RemoteToken = remote.Token
	}

	st.LoginTime = m.now().UTC()
	token, err := m.issue(st.Username, st.LoginTime)
	if err != nil {
		return Status{}, err
	}
	st.Token = token

	data, err := json.Marshal(st)
	if err != nil {
		return Status{}, fmt.Errorf("failed to encode session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Set(ctx, stateKey, data, m.cfg.TTL); err != nil {
		return Status{}, fmt.Errorf("failed to save session: %w", err)
	}

	m.logger.Info("logged in", zap.String("username", st.Username), zap.Bool("remote", m.cfg.LoginURL != ""))
	return m.statusOf(st), nil
}

type loginResponse struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

func (m *Manager) remoteLogin(ctx context.Context, creds Credentials) (loginResponse, error) {
	payload, err := json.Marshal(creds)
	if err != nil {
		return loginResponse{}, fmt.Errorf("failed to encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.LoginURL, bytes.NewReader(payload))
	if err != nil {
		return loginResponse{}, fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return loginResponse{}, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return loginResponse{}, fmt.Errorf("%w: status %d", ErrLoginFailed, resp.StatusCode)
	}

	var out loginResponse
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			return loginResponse{}, fmt.Errorf("%w: malformed response: %v", ErrLoginFailed, err)
		}
	}
	return out, nil
}

func (m *Manager) issue(username string, at time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    m.cfg.Issuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(at),
			NotBefore: jwt.NewNumericDate(at),
			ExpiresAt: jwt.NewNumericDate(at.Add(m.cfg.TTL)),
		},
		Username: username,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks a session token issued by this manager.
func (m *Manager) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithIssuer(m.cfg.Issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Logout discards the current session.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Delete(ctx, stateKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Status reports the current login, logging out sessions older than the TTL.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	st, ok, err := m.load(ctx)
	if err != nil || !ok {
		return Status{}, err
	}
	return m.statusOf(st), nil
}

// Acquire returns a snapshot of the current session for one extraction
// call, or nil when nobody is logged in.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	st, ok, err := m.load(ctx)
	if err != nil || !ok {
		return nil, err
	}
	token := st.RemoteToken
	if token == "" {
		token = st.Token
	}
	return &Session{
		username:  st.Username,
		token:     token,
		expiresAt: st.LoginTime.Add(m.cfg.TTL),
		now:       m.now,
	}, nil
}

func (m *Manager) load(ctx context.Context) (state, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := m.store.Get(ctx, stateKey)
	if errors.Is(err, store.ErrNotFound) {
		return state{}, false, nil
	}
	if err != nil {
		return state{}, false, fmt.Errorf("failed to load session: %w", err)
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		m.logger.Warn("discarding unreadable session", zap.Error(err))
		_ = m.store.Delete(ctx, stateKey)
		return state{}, false, nil
	}

	if !m.now().Before(st.LoginTime.Add(m.cfg.TTL)) {
		m.logger.Info("session expired", zap.String("username", st.Username))
		if err := m.store.Delete(ctx, stateKey); err != nil {
			return state{}, false, fmt.Errorf("failed to clear expired session: %w", err)
		}
		return state{}, false, nil
	}
	return st, true, nil
}

func (m *Manager) statusOf(st state) Status {
	return Status{
		LoggedIn:  true,
		Username:  st.Username,
		LoginTime: st.LoginTime,
		ExpiresAt: st.LoginTime.Add(m.cfg.TTL),
	}
}

// Session is an immutable view of a login taken at the start of a call.
type Session struct {
	username  string
	token     string
	expiresAt time.Time
	now       func() time.Time
}

// IsLoggedIn reports whether the session may be used for remote calls.
func (s *Session) IsLoggedIn() bool {
	if s == nil || s.token == "" {
		return false
	}
	return s.now().Before(s.expiresAt)
}

// Username returns the logged in user.
func (s *Session) Username() string {
	if s == nil {
		return ""
	}
	return s.username
}

// AuthorizationHeader returns the Authorization header value for remote calls.
func (s *Session) AuthorizationHeader() string {
	if !s.IsLoggedIn() {
		return ""
	}
	return "Bearer " + s.token
}
