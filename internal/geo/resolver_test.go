package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func apiServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestResolve_LocalAddresses(t *testing.T) {
	r := NewResolver(Options{})
	for _, ip := range []string{"127.0.0.1", "::1", "10.1.2.3", "192.168.0.10", "172.16.5.4", "100.64.1.1", "fe80::1", "::ffff:127.0.0.1"} {
		assert.Equal(t, Local, r.Resolve(context.Background(), ip), ip)
	}
}

func TestResolve_InvalidIP(t *testing.T) {
	r := NewResolver(Options{})
	assert.Equal(t, Unknown, r.Resolve(context.Background(), "not-an-ip"))
	assert.Equal(t, Unknown, r.Resolve(context.Background(), ""))
}

func TestResolve_APISuccessIsCached(t *testing.T) {
	srv, hits := apiServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/203.0.114.9", r.URL.Path)
		w.Write([]byte(`{"status":"success","country":"Germany","countryCode":"DE","city":"Berlin","regionName":"Land Berlin"}`))
	})
	r := NewResolver(Options{APIURL: srv.URL + "/json/%s"})

	for range 3 {
		got := r.Resolve(context.Background(), "203.0.114.9")
		assert.Equal(t, "DE", got.CountryCode)
		assert.Equal(t, "Berlin", got.City)
		assert.Equal(t, "Land Berlin", got.Region)
	}
	assert.EqualValues(t, 1, hits.Load())
}

func TestResolve_APIWithoutPlaceholderAppendsIP(t *testing.T) {
	srv, _ := apiServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lookup/45.1.2.3", r.URL.Path)
		w.Write([]byte(`{"status":"success","country":"Canada","countryCode":"CA"}`))
	})
	r := NewResolver(Options{APIURL: srv.URL + "/lookup/"})
	assert.Equal(t, "CA", r.Resolve(context.Background(), "45.1.2.3").CountryCode)
}

func TestResolve_APIFailureNotCached(t *testing.T) {
	srv, hits := apiServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	r := NewResolver(Options{APIURL: srv.URL + "/%s"})

	assert.Equal(t, Unknown, r.Resolve(context.Background(), "45.1.2.3"))
	assert.Equal(t, Unknown, r.Resolve(context.Background(), "45.1.2.3"))
	assert.EqualValues(t, 2, hits.Load())
}

func TestResolve_APIStatusFail(t *testing.T) {
	srv, _ := apiServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":"fail","message":"reserved range"}`))
	})
	r := NewResolver(Options{APIURL: srv.URL + "/%s"})
	assert.Equal(t, Unknown, r.Resolve(context.Background(), "45.1.2.3"))
}

func TestResolve_TimeoutFallsBack(t *testing.T) {
	srv, _ := apiServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	r := NewResolver(Options{APIURL: srv.URL + "/%s", Timeout: 50 * time.Millisecond})

	start := time.Now()
	got := r.Resolve(context.Background(), "8.8.8.8")
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, "US", got.CountryCode, "static table covers 8.8.8.8")
}

func TestResolve_StaticFallbackWithoutAPI(t *testing.T) {
	r := NewResolver(Options{})
	assert.Equal(t, "AU", r.Resolve(context.Background(), "1.1.1.1").CountryCode)
	assert.Equal(t, Unknown, r.Resolve(context.Background(), "45.1.2.3"))
}

func TestNewResolver_CapsTimeout(t *testing.T) {
	r := NewResolver(Options{Timeout: time.Minute})
	assert.Equal(t, MaxTimeout, r.timeout)
}
