package page

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, DefaultSuccessTitle)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	body := rec.Body.String()
	assert.Contains(t, body, `data-outcome="success"`)
	assert.Contains(t, body, DefaultSuccessTitle)
	assert.Contains(t, body, `fill="#66cc33"`)
	assert.Contains(t, body, "You can now safely close this tab.")
	assert.Regexp(t, `replaceState\(null, "", "(\\/|/)success"\)`, body)
}

func TestError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, "token expired")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-outcome="error"`)
	assert.Contains(t, body, "token expired")
	assert.Contains(t, body, `fill="#cc3366"`)
	assert.Regexp(t, `replaceState\(null, "", "(\\/|/)error"\)`, body)
}

func TestError_EscapesMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, `<script>alert("x")</script>`)

	body := rec.Body.String()
	assert.NotContains(t, body, `<script>alert`)
	assert.Contains(t, body, "&lt;script&gt;")
}
