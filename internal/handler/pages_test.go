package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BlackMission/collectivelink/pkg/testutil"
)

func TestHealth(t *testing.T) {
	rr := testutil.DoRequest(t, Health("v1.2.3"), http.MethodGet, "/health", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var body map[string]string
	testutil.ParseJSON(t, rr, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "v1.2.3", body["version"])
}

func TestStaticPages(t *testing.T) {
	rr := testutil.DoRequest(t, Success(), http.MethodGet, "/success", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Contains(t, rr.Body.String(), `data-outcome="success"`)

	rr = testutil.DoRequest(t, Error(), http.MethodGet, "/error", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Contains(t, rr.Body.String(), `data-outcome="error"`)
}

func TestNotFound(t *testing.T) {
	rr := testutil.DoRequest(t, NotFound(), http.MethodGet, "/nope", nil)
	testutil.AssertStatus(t, rr, http.StatusNotFound)
	assert.Equal(t, "Not Found.", rr.Body.String())
}
