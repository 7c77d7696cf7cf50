package state

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/BlackMission/collectivelink/internal/domain"
)

const (
	// NonceCookie is the cookie binding a browser to its flow's state tokens.
	NonceCookie = "nonce"

	DefaultNonceBytes  = 16
	DefaultNonceMaxAge = 25 * time.Hour
)

// IssueNonce returns n cryptographically random bytes, base64url encoded.
func IssueNonce(n int) (string, error) {
	if n <= 0 {
		n = DefaultNonceBytes
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	return encoding.EncodeToString(buf), nil
}

// Binder ties signed flow state to the nonce cookie held by the browser.
// A state token is only accepted when it embeds the same nonce the request's
// cookie carries.
type Binder struct {
	codec  *Codec
	maxAge time.Duration
}

// NewBinder creates a binder. A non-positive maxAge selects DefaultNonceMaxAge.
func NewBinder(codec *Codec, maxAge time.Duration) *Binder {
	if maxAge <= 0 {
		maxAge = DefaultNonceMaxAge
	}
	return &Binder{codec: codec, maxAge: maxAge}
}

// Begin starts a flow: it issues a nonce, the cookie carrying it, and the
// initial state token embedding it.
func (b *Binder) Begin() (*http.Cookie, string, error) {
	nonce, err := IssueNonce(DefaultNonceBytes)
	if err != nil {
		return nil, "", err
	}
	token, err := b.Seal(domain.FlowState{Nonce: nonce})
	if err != nil {
		return nil, "", err
	}
	return b.Cookie(nonce), token, nil
}

// Cookie returns the nonce cookie for the given value.
func (b *Binder) Cookie(nonce string) *http.Cookie {
	return &http.Cookie{
		Name:     NonceCookie,
		Value:    nonce,
		Path:     "/",
		MaxAge:   int(b.maxAge / time.Second),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// Seal signs a flow state into a fresh token.
func (b *Binder) Seal(fs domain.FlowState) (string, error) {
	if fs.Nonce == "" {
		return "", fmt.Errorf("%w: flow state without nonce", domain.ErrMalformedState)
	}
	return b.codec.Sign(fs)
}

// Validate verifies stateToken and checks it against the nonce found in the
// raw Cookie header. It fails closed when the cookie is absent.
func (b *Binder) Validate(stateToken, cookieHeader string) (*domain.FlowState, error) {
	nonce := nonceFromHeader(cookieHeader)
	if nonce == "" {
		return nil, domain.ErrMissingNonce
	}

	var fs domain.FlowState
	if err := b.codec.Verify(stateToken, &fs); err != nil {
		return nil, err
	}

	if fs.Nonce == "" || subtle.ConstantTimeCompare([]byte(fs.Nonce), []byte(nonce)) != 1 {
		return nil, domain.ErrNonceMismatch
	}
	return &fs, nil
}

func nonceFromHeader(header string) string {
	if header == "" {
		return ""
	}
	r := http.Request{Header: http.Header{"Cookie": {header}}}
	c, err := r.Cookie(NonceCookie)
	if err != nil {
		return ""
	}
	return c.Value
}
