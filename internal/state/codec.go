package state

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BlackMission/collectivelink/internal/domain"
)

// DefaultTTL is how long a freshly signed token stays valid.
const DefaultTTL = 15 * time.Minute

const expiryField = "exp"

// Strict decoding rejects non-canonical trailing bits, so every distinct
// token string maps to distinct bytes.
var encoding = base64.RawURLEncoding.Strict()

// Codec signs and verifies compact expiring tokens of the form
// base64url(json).base64url(hmac-sha256(json)).
//
// The key is read-only after construction and the codec is safe for
// concurrent use.
type Codec struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewCodec creates a codec with the given HMAC key and default TTL.
// A non-positive ttl selects DefaultTTL.
func NewCodec(key []byte, ttl time.Duration) *Codec {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Codec{
		key: k,
		ttl: ttl,
		now: time.Now,
	}
}

// SetNow overrides the time function (for testing).
func (c *Codec) SetNow(fn func() time.Time) {
	c.now = fn
}

// Sign signs payload with the codec's default TTL.
func (c *Codec) Sign(payload any) (string, error) {
	return c.SignWithTTL(payload, c.ttl)
}

// SignWithTTL serializes payload, which must marshal to a JSON object, adds an
// absolute "exp" field in Unix milliseconds and signs the resulting bytes.
func (c *Codec) SignWithTTL(payload any, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("%w: ttl must be positive", domain.ErrInvalidConfig)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling state payload: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", fmt.Errorf("state payload must be a JSON object: %w", err)
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage, 1)
	}
	exp := c.now().Add(ttl).UnixMilli()
	fields[expiryField] = json.RawMessage(strconv.FormatInt(exp, 10))

	// Map keys marshal in sorted order, which keeps the encoding canonical.
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("marshaling signed payload: %w", err)
	}

	return encoding.EncodeToString(data) + "." + encoding.EncodeToString(c.mac(data)), nil
}

// Verify checks the token's signature and expiry and decodes its payload into dst.
func (c *Codec) Verify(token string, dst any) error {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return domain.ErrMalformedState
	}

	data, err := encoding.DecodeString(parts[0])
	if err != nil {
		return domain.ErrMalformedState
	}
	sig, err := encoding.DecodeString(parts[1])
	if err != nil {
		return domain.ErrMalformedState
	}

	// Nothing is parsed until the payload is authenticated.
	if !hmac.Equal(sig, c.mac(data)) {
		return domain.ErrInvalidState
	}

	var envelope struct {
		Exp *int64 `json:"exp"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return domain.ErrMalformedState
	}
	if envelope.Exp == nil {
		return domain.ErrMalformedState
	}
	if *envelope.Exp <= c.now().UnixMilli() {
		return domain.ErrExpiredState
	}

	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedState, err)
	}
	return nil
}

func (c *Codec) mac(data []byte) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write(data)
	return mac.Sum(nil)
}
