package ivasms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	ts := httptest.NewServer(handler)
	return NewClient(ts.URL, 5*time.Second, 5*time.Second), ts
}

func TestLogin_Success(t *testing.T) {
	var gotBody map[string]string
	c, ts := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/auth/login", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"data":{"token":"tok-123"}}`))
	}))
	defer ts.Close()

	tok, err := c.Login(context.Background(), "a@x.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", tok)
	assert.Equal(t, map[string]string{"email": "a@x.com", "password": "pw"}, gotBody)
}

func TestLogin_NonOKStatus(t *testing.T) {
	c, ts := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"invalid credentials"}`))
	}))
	defer ts.Close()

	_, err := c.Login(context.Background(), "a@x.com", "pw")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "a@x.com", authErr.Email)
}

func TestLogin_MissingToken(t *testing.T) {
	c, ts := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{}}`))
	}))
	defer ts.Close()

	_, err := c.Login(context.Background(), "a@x.com", "pw")
	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestFetchMessages_Success(t *testing.T) {
	var gotBody map[string]string
	c, ts := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/biring/code", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"data":{"messages":[
			{"number":"12425551234","service_name":"Acme","message":"code 4321","range":"r1","revenue":0.05},
			{"number":"2010000000","service_name":"Other","message":"code 9999"}
		]}}`))
	}))
	defer ts.Close()

	msgs, err := c.FetchMessages(context.Background(), "tok", "2026-08-01", 30)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "12425551234", msgs[0].Number)
	assert.Equal(t, "Acme", msgs[0].ServiceName)
	assert.Equal(t, "r1", msgs[0].Range)
	assert.Equal(t, "0.05", msgs[0].Revenue, "numeric revenue is coerced to a string")
	assert.Equal(t, map[string]string{"token": "tok", "start_date": "2026-08-01"}, gotBody)
}

func TestFetchMessages_TruncatesToLimit(t *testing.T) {
	c, ts := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"messages":[
			{"number":"1"},{"number":"2"},{"number":"3"}
		]}}`))
	}))
	defer ts.Close()

	msgs, err := c.FetchMessages(context.Background(), "tok", "2026-08-01", 2)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestFetchMessages_NonOKStatus(t *testing.T) {
	c, ts := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := c.FetchMessages(context.Background(), "tok", "2026-08-01", 30)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusBadGateway, fetchErr.StatusCode)
}

func TestFetchMessages_TransportError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 100*time.Millisecond, 100*time.Millisecond)

	_, err := c.FetchMessages(context.Background(), "tok", "2026-08-01", 30)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.True(t, errors.Unwrap(fetchErr) != nil)
}
