package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/insurance-crm-web/internal/infra/redisstore"
	"github.com/boddenberg/insurance-crm-web/internal/session"
)

var cookieOpts = session.CookieOptions{Name: "crm_session", TTL: time.Hour}

func TestSealer_RoundTripAndTamper(t *testing.T) {
	s, err := session.NewSealer([]byte("top secret"))
	require.NoError(t, err)

	sealed, err := s.Seal("tok-123")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "tok-123")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", plain)

	tampered := []byte(sealed)
	tampered[len(tampered)/2] ^= 0x01
	_, err = s.Open(string(tampered))
	assert.Error(t, err)

	other, err := session.NewSealer([]byte("another secret"))
	require.NoError(t, err)
	_, err = other.Open(sealed)
	assert.Error(t, err, "foreign key must not open the cookie")

	_, err = s.Open("short")
	assert.Error(t, err)
}

func TestNewSealer_RejectsEmptySecret(t *testing.T) {
	_, err := session.NewSealer(nil)
	assert.Error(t, err)
}

func TestCookiePersistence_SaveThenLoad(t *testing.T) {
	sealer, err := session.NewSealer([]byte("k"))
	require.NoError(t, err)
	p := session.NewCookiePersistence(sealer, cookieOpts)

	rec := httptest.NewRecorder()
	store := p.For(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, store.Save(context.Background(), "tok-1"))

	token, ok := store.Load(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "tok-1", token)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	ck := cookies[0]
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, ck.SameSite)

	next := httptest.NewRequest(http.MethodGet, "/agent/dashboard", nil)
	next.AddCookie(ck)
	token, ok = p.For(httptest.NewRecorder(), next).Load(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "tok-1", token)
}

func TestCookiePersistence_ClearExpiresCookie(t *testing.T) {
	sealer, _ := session.NewSealer([]byte("k"))
	p := session.NewCookiePersistence(sealer, cookieOpts)

	sealed, _ := sealer.Seal("tok-1")
	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "crm_session", Value: sealed})
	rec := httptest.NewRecorder()

	store := p.For(rec, req)
	require.NoError(t, store.Clear(context.Background()))

	_, ok := store.Load(context.Background())
	assert.False(t, ok, "cleared within the same request")
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestCookiePersistence_GarbageCookieIsAbsent(t *testing.T) {
	sealer, _ := session.NewSealer([]byte("k"))
	p := session.NewCookiePersistence(sealer, cookieOpts)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "crm_session", Value: "not-a-sealed-token"})
	_, ok := p.For(httptest.NewRecorder(), req).Load(context.Background())
	assert.False(t, ok)
}

func TestServerPersistence_RedisRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redisstore.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "crm")
	p := session.NewServerPersistence(redisstore.NewSessions(rc, time.Hour), cookieOpts, zap.NewNop())

	rec := httptest.NewRecorder()
	require.NoError(t, p.For(rec, httptest.NewRequest(http.MethodPost, "/login", nil)).Save(context.Background(), "tok-9"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	id := cookies[0].Value
	assert.NotContains(t, id, "tok-9", "cookie carries only the session id")

	stored, err := mr.Get("crm:session:" + id)
	require.NoError(t, err)
	assert.Equal(t, "tok-9", stored)

	req := httptest.NewRequest(http.MethodGet, "/agent/dashboard", nil)
	req.AddCookie(cookies[0])
	store := p.For(httptest.NewRecorder(), req)
	token, ok := store.Load(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "tok-9", token)

	require.NoError(t, store.Clear(context.Background()))
	assert.False(t, mr.Exists("crm:session:"+id))
}

func TestServerPersistence_UnknownIDIsAbsent(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redisstore.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "crm")
	p := session.NewServerPersistence(redisstore.NewSessions(rc, time.Hour), cookieOpts, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "crm_session", Value: "6f1c7f0e-4a59-4c5e-9d0a-0e1c1f3a2b4c"})
	_, ok := p.For(httptest.NewRecorder(), req).Load(context.Background())
	assert.False(t, ok)
}
