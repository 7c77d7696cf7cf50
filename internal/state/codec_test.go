package state

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BlackMission/collectivelink/internal/domain"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestCodec() *Codec {
	return NewCodec(testKey, 0)
}

func TestRoundTrip(t *testing.T) {
	c := newTestCodec()
	now := time.UnixMilli(1_700_000_000_000)
	c.SetNow(func() time.Time { return now })

	token, err := c.Sign(map[string]any{"nonce": "abc", "count": 3})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, c.Verify(token, &got))

	assert.Equal(t, "abc", got["nonce"])
	assert.EqualValues(t, 3, got["count"])
	assert.EqualValues(t, now.Add(DefaultTTL).UnixMilli(), got["exp"])
}

func TestRoundTrip_FlowState(t *testing.T) {
	c := newTestCodec()
	total := int64(20)
	in := domain.FlowState{
		Nonce:    "n-1",
		Account:  &domain.LinkedAccount{ID: "acc", Name: "Name", Slug: "slug"},
		Metadata: &domain.Metadata{TotalDonated: &total, IsBacker: 1},
	}

	token, err := c.SignWithTTL(in, time.Minute)
	require.NoError(t, err)

	var out domain.FlowState
	require.NoError(t, c.Verify(token, &out))
	assert.Equal(t, in, out)
}

func TestTokenFormat(t *testing.T) {
	c := newTestCodec()
	token, err := c.Sign(map[string]string{"nonce": "x"})
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 2)
	assert.NotContains(t, token, "=")
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")

	data, err := base64.RawURLEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"nonce":"x"`)
	assert.Contains(t, string(data), `"exp":`)
}

func TestExpiredToken(t *testing.T) {
	c := newTestCodec()
	now := time.Now()
	c.SetNow(func() time.Time { return now })

	token, err := c.SignWithTTL(map[string]string{"nonce": "x"}, time.Minute)
	require.NoError(t, err)

	c.SetNow(func() time.Time { return now.Add(time.Minute - time.Millisecond) })
	require.NoError(t, c.Verify(token, nil))

	// exp <= now is rejected, so the exact expiry instant already fails.
	c.SetNow(func() time.Time { return now.Add(time.Minute) })
	assert.ErrorIs(t, c.Verify(token, nil), domain.ErrExpiredState)

	c.SetNow(func() time.Time { return now.Add(time.Hour) })
	assert.ErrorIs(t, c.Verify(token, nil), domain.ErrExpiredState)
}

func TestTamperedToken_EveryByte(t *testing.T) {
	c := newTestCodec()
	token, err := c.Sign(map[string]string{"nonce": "tamper-me"})
	require.NoError(t, err)

	for i := range token {
		if token[i] == '.' {
			continue
		}
		tampered := []byte(token)
		if tampered[i] == 'A' {
			tampered[i] = 'B'
		} else {
			tampered[i] = 'A'
		}
		assert.Error(t, c.Verify(string(tampered), nil), "byte %d", i)
	}
}

func TestTamperedPayload(t *testing.T) {
	c := newTestCodec()
	token, err := c.Sign(map[string]string{"nonce": "website"})
	require.NoError(t, err)

	parts := strings.SplitN(token, ".", 2)
	data, _ := base64.RawURLEncoding.DecodeString(parts[0])
	modified := strings.Replace(string(data), "website", "hacked!", 1)
	parts[0] = base64.RawURLEncoding.EncodeToString([]byte(modified))

	assert.ErrorIs(t, c.Verify(parts[0]+"."+parts[1], nil), domain.ErrInvalidState)
}

func TestWrongKey(t *testing.T) {
	c1 := NewCodec([]byte("key-one-1234567890abcdef12345678"), 0)
	c2 := NewCodec([]byte("key-two-1234567890abcdef12345678"), 0)

	token, err := c1.Sign(map[string]string{"nonce": "x"})
	require.NoError(t, err)

	assert.ErrorIs(t, c2.Verify(token, nil), domain.ErrInvalidState)
}

func TestMissingExpiry(t *testing.T) {
	c := newTestCodec()
	data := []byte(`{"nonce":"x"}`)
	token := encoding.EncodeToString(data) + "." + encoding.EncodeToString(c.mac(data))

	assert.ErrorIs(t, c.Verify(token, nil), domain.ErrMalformedState)
}

func TestMalformedInput(t *testing.T) {
	c := newTestCodec()

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"no dot", "nodothere"},
		{"just dots", "..."},
		{"three parts", "a.b.c"},
		{"bad base64", "!!!.???"},
		{"not json", encoding.EncodeToString([]byte("nope")) + ".AAAA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, c.Verify(tt.token, nil))
		})
	}
}

func TestVerify_AuthenticatesBeforeParsing(t *testing.T) {
	c := newTestCodec()
	data := []byte("not json at all")

	unsigned := encoding.EncodeToString(data) + "." + encoding.EncodeToString([]byte("forged-signature"))
	assert.ErrorIs(t, c.Verify(unsigned, nil), domain.ErrInvalidState)

	signed := encoding.EncodeToString(data) + "." + encoding.EncodeToString(c.mac(data))
	assert.ErrorIs(t, c.Verify(signed, nil), domain.ErrMalformedState)
}

func TestSign_RejectsNonObjectPayload(t *testing.T) {
	c := newTestCodec()
	_, err := c.Sign([]string{"a"})
	assert.Error(t, err)

	_, err = c.SignWithTTL(map[string]string{}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestSign_OverridesPayloadExpiry(t *testing.T) {
	c := newTestCodec()
	now := time.Now()
	c.SetNow(func() time.Time { return now })

	token, err := c.Sign(map[string]any{"exp": 1})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, c.Verify(token, &got))
	assert.EqualValues(t, now.Add(DefaultTTL).UnixMilli(), got["exp"])
}
