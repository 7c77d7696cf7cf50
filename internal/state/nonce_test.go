package state

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BlackMission/collectivelink/internal/domain"
)

func newTestBinder() *Binder {
	return NewBinder(newTestCodec(), 0)
}

func TestIssueNonce(t *testing.T) {
	n1, err := IssueNonce(16)
	require.NoError(t, err)
	n2, err := IssueNonce(16)
	require.NoError(t, err)

	assert.NotEqual(t, n1, n2)
	// 16 bytes, unpadded base64url.
	assert.Len(t, n1, 22)
	assert.NotContains(t, n1, "=")
}

func TestBegin(t *testing.T) {
	b := newTestBinder()

	cookie, token, err := b.Begin()
	require.NoError(t, err)

	assert.Equal(t, NonceCookie, cookie.Name)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, int((25 * time.Hour).Seconds()), cookie.MaxAge)
	assert.True(t, cookie.Secure)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	fs, err := b.Validate(token, cookie.String())
	require.NoError(t, err)
	assert.Equal(t, cookie.Value, fs.Nonce)
	assert.False(t, fs.Enriched())
}

func TestValidate_MatchingNonce(t *testing.T) {
	b := newTestBinder()
	token, err := b.Seal(domain.FlowState{Nonce: "abc"})
	require.NoError(t, err)

	fs, err := b.Validate(token, "theme=dark; nonce=abc; other=1")
	require.NoError(t, err)
	assert.Equal(t, "abc", fs.Nonce)
}

func TestValidate_Failures(t *testing.T) {
	b := newTestBinder()
	token, err := b.Seal(domain.FlowState{Nonce: "abc"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		cookie string
		want   error
	}{
		{"missing cookie header", token, "", domain.ErrMissingNonce},
		{"cookie without nonce", token, "theme=dark", domain.ErrMissingNonce},
		{"empty nonce", token, "nonce=", domain.ErrMissingNonce},
		{"mismatched nonce", token, "nonce=abd", domain.ErrNonceMismatch},
		{"prefix nonce", token, "nonce=ab", domain.ErrNonceMismatch},
		{"invalid token", "garbage", "nonce=abc", domain.ErrMalformedState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, err := b.Validate(tt.token, tt.cookie)
			assert.Nil(t, fs)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidate_ForeignTokenWithMatchingCookie(t *testing.T) {
	b := newTestBinder()
	other := NewBinder(NewCodec([]byte("another-key-0123456789abcdef0123"), 0), 0)

	token, err := other.Seal(domain.FlowState{Nonce: "abc"})
	require.NoError(t, err)

	_, err = b.Validate(token, "nonce=abc")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestValidate_TokenWithoutNonce(t *testing.T) {
	b := newTestBinder()
	token, err := b.codec.Sign(map[string]string{"other": "x"})
	require.NoError(t, err)

	_, err = b.Validate(token, "nonce=abc")
	assert.ErrorIs(t, err, domain.ErrNonceMismatch)
}

func TestSeal_RequiresNonce(t *testing.T) {
	b := newTestBinder()
	_, err := b.Seal(domain.FlowState{})
	assert.ErrorIs(t, err, domain.ErrMalformedState)
}
