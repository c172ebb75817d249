package saucetest

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, s *Server, path, auth string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.URL+path, nil)
	require.NoError(t, err)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestServer_UsageFiltersRange(t *testing.T) {
	s := New(t)
	s.SetUsage("a",
		Day{Date: "2018-01-01", Jobs: 1, Seconds: 10},
		Day{Date: "2018-02-01", Jobs: 2, Seconds: 20},
	)

	status, body := get(t, s, "/users/a/usage?start=2018-01-15", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `["2018-02-01",[2,20]]`)
	assert.NotContains(t, body, "2018-01-01")
}

func TestServer_Auth(t *testing.T) {
	s := New(t)
	s.AuthHeader = "Basic good"

	status, _ := get(t, s, "/users/a/list-subaccounts", "Basic bad")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := get(t, s, "/users/a/list-subaccounts", "Basic good")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"users":[]}`, body)

	reqs := s.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "Basic bad", reqs[0].Authorization)
}

func TestServer_Fail(t *testing.T) {
	s := New(t)
	s.Fail("/users/a/usage", http.StatusTooManyRequests, "slow down")

	status, body := get(t, s, "/users/a/usage", "")
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "slow down", body)
	assert.Equal(t, []string{"/users/a/usage"}, s.Paths())
}
