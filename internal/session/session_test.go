package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-form-filler/internal/store"
)

func newTestManager(cfg Config) (*Manager, *time.Time) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	m := NewManager(cfg, store.NewMemoryStore(), nil, nil)
	m.now = func() time.Time { return now }
	return m, &now
}

func TestLocalLoginLifecycle(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(Config{Secret: "s3cret"})

	sess, err := m.Acquire(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.False(t, sess.IsLoggedIn())
	assert.Empty(t, sess.AuthorizationHeader())

	status, err := m.Login(ctx, Credentials{Username: " alice ", Password: "pw"})
	require.NoError(t, err)
	assert.True(t, status.LoggedIn)
	assert.Equal(t, "alice", status.Username)
	assert.Equal(t, status.LoginTime.Add(DefaultTTL), status.ExpiresAt)

	sess, err = m.Acquire(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.True(t, sess.IsLoggedIn())
	assert.Equal(t, "alice", sess.Username())
	require.True(t, strings.HasPrefix(sess.AuthorizationHeader(), "Bearer "))

	claims, err := m.Verify(strings.TrimPrefix(sess.AuthorizationHeader(), "Bearer "))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.NotEmpty(t, claims.ID)

	require.NoError(t, m.Logout(ctx))
	status, err = m.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.LoggedIn)
}

func TestStatusExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	m, now := newTestManager(Config{TTL: time.Hour})

	_, err := m.Login(ctx, Credentials{Username: "bob", Password: "pw"})
	require.NoError(t, err)

	sess, err := m.Acquire(ctx)
	require.NoError(t, err)

	*now = now.Add(59 * time.Minute)
	status, err := m.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.LoggedIn)

	*now = now.Add(time.Minute)
	assert.False(t, sess.IsLoggedIn(), "snapshot expires with the session")

	status, err = m.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.LoggedIn)

	sess, err = m.Acquire(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestLoginValidatesCredentials(t *testing.T) {
	m, _ := newTestManager(Config{})

	for _, creds := range []Credentials{
		{Username: "", Password: "pw"},
		{Username: "   ", Password: "pw"},
		{Username: "u", Password: ""},
	} {
		_, err := m.Login(context.Background(), creds)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
}

func TestRemoteLogin(t *testing.T) {
	var got Credentials
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if got.Password != "right" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"username": "Alice Zhang", "token": "remote-abc"}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	m, _ := newTestManager(Config{LoginURL: srv.URL})

	_, err := m.Login(ctx, Credentials{Username: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, ErrLoginFailed)

	status, err := m.Login(ctx, Credentials{Username: "alice", Password: "right"})
	require.NoError(t, err)
	assert.Equal(t, "Alice Zhang", status.Username)
	assert.Equal(t, "alice", got.Username)

	sess, err := m.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer remote-abc", sess.AuthorizationHeader())
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestManager(Config{Secret: "one"})
	b, _ := newTestManager(Config{Secret: "two"})

	_, err := a.Login(ctx, Credentials{Username: "u", Password: "p"})
	require.NoError(t, err)
	sess, err := a.Acquire(ctx)
	require.NoError(t, err)

	_, err = b.Verify(strings.TrimPrefix(sess.AuthorizationHeader(), "Bearer "))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = a.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCorruptStateIsDiscarded(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(ctx, stateKey, []byte("{"), 0))

	m := NewManager(Config{}, st, nil, nil)
	status, err := m.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.LoggedIn)

	_, err = st.Get(ctx, stateKey)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
