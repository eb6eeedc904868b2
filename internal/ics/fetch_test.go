package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var crlfFeed = strings.ReplaceAll(holidayFeed, "\n", "\r\n")

func feedServer(t *testing.T, notModified *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken.ics" {
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write([]byte(crlfFeed))
	}))
}

func TestFetcherCachesWithETag(t *testing.T) {
	var notModified atomic.Int32
	srv := feedServer(t, &notModified)
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	ctx := context.Background()

	got, err := f.Holidays(ctx, srv.URL+"/kerala.ics?token=secret")
	require.NoError(t, err)
	assert.Len(t, got, 3)

	res, err := f.Fetch(ctx, srv.URL+"/kerala.ics?token=secret")
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, crlfFeed, string(res.Body))
	assert.Equal(t, int32(1), notModified.Load())
}

func TestFetcherFallsBackToCache(t *testing.T) {
	var notModified atomic.Int32
	srv := feedServer(t, &notModified)
	url := srv.URL + "/kerala.ics"

	f := NewFetcher(t.TempDir(), srv.Client())
	_, err := f.Fetch(context.Background(), url)
	require.NoError(t, err)

	srv.Close()
	res, err := f.Fetch(context.Background(), url)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, crlfFeed, string(res.Body))
}

func TestFetcherErrorWithoutCache(t *testing.T) {
	var notModified atomic.Int32
	srv := feedServer(t, &notModified)
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	_, err := f.Fetch(context.Background(), srv.URL+"/broken.ics")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.NotContains(t, err.Error(), "broken.ics")

	_, err = f.Fetch(context.Background(), "")
	assert.Error(t, err)
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://example.com/h.ics"))
	assert.True(t, IsRemote("http://example.com/h.ics"))
	assert.False(t, IsRemote("/etc/panchcal/holidays.ics"))
	assert.False(t, IsRemote("holidays.ics"))
}

func TestRedactURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://calendar.example.com/private/abc.ics?token=x", "https://calendar.example.com/...(redacted)"},
		{"http://127.0.0.1:8080/h.ics", "http://127.0.0.1:8080/...(redacted)"},
		{"not a url", "ics://...(redacted)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, redactURL(tt.in), tt.in)
	}
}
