package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/boddenberg/insurance-crm-web/internal/port"
)

const nonceSize = 24

var errMalformedCookie = errors.New("malformed session cookie")

// Persistence hands out the token store bound to one request/response pair.
type Persistence interface {
	For(w http.ResponseWriter, r *http.Request) port.TokenStore
}

// CookieOptions shape the session cookie.
type CookieOptions struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

func (o CookieOptions) write(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     o.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(o.TTL.Seconds()),
		Expires:  time.Now().Add(o.TTL),
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (o CookieOptions) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     o.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ============================================================
// Sealed cookie persistence
// ============================================================

// Sealer encrypts tokens with NaCl secretbox under a key derived from the
// session secret.
type Sealer struct {
	key [32]byte
}

// NewSealer derives the cookie key from secret with HKDF-SHA256.
func NewSealer(secret []byte) (*Sealer, error) {
	if len(secret) == 0 {
		return nil, errors.New("session secret is empty")
	}
	s := &Sealer{}
	kdf := hkdf.New(sha256.New, secret, nil, []byte("crm-web session cookie v1"))
	if _, err := io.ReadFull(kdf, s.key[:]); err != nil {
		return nil, fmt.Errorf("derive cookie key: %w", err)
	}
	return s, nil
}

// RandomSecret returns 32 random bytes, used when no secret is configured.
func RandomSecret() []byte {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return b
}

// Seal encrypts plaintext into a URL-safe string.
func (s *Sealer) Seal(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", err
	}
	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return base64.RawURLEncoding.EncodeToString(box), nil
}

// Open reverses Seal, rejecting tampered or foreign values.
func (s *Sealer) Open(sealed string) (string, error) {
	box, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(box) < nonceSize+secretbox.Overhead {
		return "", errMalformedCookie
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", errMalformedCookie
	}
	return string(plain), nil
}

// CookiePersistence keeps the sealed token itself in the cookie.
type CookiePersistence struct {
	sealer *Sealer
	opts   CookieOptions
}

// NewCookiePersistence creates a CookiePersistence.
func NewCookiePersistence(sealer *Sealer, opts CookieOptions) *CookiePersistence {
	return &CookiePersistence{sealer: sealer, opts: opts}
}

func (p *CookiePersistence) For(w http.ResponseWriter, r *http.Request) port.TokenStore {
	return &cookieTokens{p: p, w: w, r: r}
}

type cookieTokens struct {
	p *CookiePersistence
	w http.ResponseWriter
	r *http.Request

	// written records a Save/Clear made during this request, so later loads
	// see it instead of the stale request cookie.
	written  bool
	override string
}

func (c *cookieTokens) Load(context.Context) (string, bool) {
	if c.written {
		return c.override, c.override != ""
	}
	ck, err := c.r.Cookie(c.p.opts.Name)
	if err != nil || ck.Value == "" {
		return "", false
	}
	token, err := c.p.sealer.Open(ck.Value)
	if err != nil || token == "" {
		return "", false
	}
	return token, true
}

func (c *cookieTokens) Save(_ context.Context, token string) error {
	sealed, err := c.p.sealer.Seal(token)
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}
	c.p.opts.write(c.w, sealed)
	c.written, c.override = true, token
	return nil
}

func (c *cookieTokens) Clear(context.Context) error {
	c.p.opts.clear(c.w)
	c.written, c.override = true, ""
	return nil
}
