package docqa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req askRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		img, err := base64.StdEncoding.DecodeString(req.Image)
		require.NoError(t, err)
		assert.Equal(t, "png-bytes", string(img))
		assert.Equal(t, "What is the invoice number?", req.Question)
		_, _ = w.Write([]byte(`{"answer":" INV-2024-001 ","score":0.93}`))
	}))
	defer srv.Close()

	answer, err := NewClient(srv.URL, Options{}).Ask(context.Background(), []byte("png-bytes"), "What is the invoice number?")
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-001", answer.Text)
	assert.InDelta(t, 0.93, answer.Confidence, 1e-9)
}

func TestAskClampsScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"answer":"42","score":1.7}`))
	}))
	defer srv.Close()

	answer, err := NewClient(srv.URL, Options{}).Ask(context.Background(), []byte("x"), "q")
	require.NoError(t, err)
	assert.Equal(t, 1.0, answer.Confidence)
}

func TestAskFailuresAreCapabilityErrors(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
		"garbage": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		},
		"empty answer": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"answer":"","score":0.5}`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			_, err := NewClient(srv.URL, Options{}).Ask(context.Background(), []byte("x"), "q")
			var capErr *CapabilityError
			assert.True(t, errors.As(err, &capErr), "got %v", err)
		})
	}
}

func TestAskTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewClient(srv.URL, Options{Timeout: 50 * time.Millisecond}).Ask(context.Background(), []byte("x"), "q")
	var capErr *CapabilityError
	assert.True(t, errors.As(err, &capErr))
}

func TestAskWithoutEndpoint(t *testing.T) {
	_, err := NewClient("", Options{}).Ask(context.Background(), []byte("x"), "q")
	var capErr *CapabilityError
	assert.True(t, errors.As(err, &capErr))
}

func TestFetchImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			_, _ = w.Write([]byte("0123456789"))
		case "/big.png":
			_, _ = w.Write(make([]byte, 64))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	client := NewClient(srv.URL, Options{MaxImageBytes: 32, AllowPrivateNetworks: true})
	ctx := context.Background()

	data, err := client.FetchImage(ctx, srv.URL+"/ok.png")
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(data))

	var capErr *CapabilityError
	_, err = client.FetchImage(ctx, srv.URL+"/big.png")
	assert.True(t, errors.As(err, &capErr))

	_, err = client.FetchImage(ctx, srv.URL+"/missing.png")
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, "fetch", capErr.Op)
}

func TestFetchImageRefusesPrivateAddresses(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("secret"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, Options{}).FetchImage(context.Background(), srv.URL+"/internal.png")
	require.Error(t, err)
	var capErr *CapabilityError
	require.True(t, errors.As(err, &capErr))
	assert.ErrorIs(t, err, ErrHostNotAllowed)
	assert.Zero(t, hits.Load())
}

func TestFetchImageHostAllowlist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("png"))
	}))
	defer srv.Close()
	ctx := context.Background()

	blocked := NewClient(srv.URL, Options{AllowPrivateNetworks: true, AllowedImageHosts: []string{"images.example.com"}})
	_, err := blocked.FetchImage(ctx, srv.URL+"/a.png")
	assert.ErrorIs(t, err, ErrHostNotAllowed)

	allowed := NewClient(srv.URL, Options{AllowPrivateNetworks: true, AllowedImageHosts: []string{"127.0.0.1"}})
	data, err := allowed.FetchImage(ctx, srv.URL+"/a.png")
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestFetchImageRejectsRedirectOffAllowlist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://localhost:1/elsewhere.png", http.StatusFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, Options{AllowPrivateNetworks: true, AllowedImageHosts: []string{"127.0.0.1"}})
	_, err := client.FetchImage(context.Background(), srv.URL+"/a.png")
	assert.ErrorIs(t, err, ErrHostNotAllowed)
}

func TestIsPublicIP(t *testing.T) {
	for _, raw := range []string{"127.0.0.1", "10.1.2.3", "192.168.0.10", "169.254.169.254", "::1", "fd00::1", "0.0.0.0"} {
		assert.False(t, isPublicIP(net.ParseIP(raw)), raw)
	}
	for _, raw := range []string{"93.184.216.34", "2606:4700::1111"} {
		assert.True(t, isPublicIP(net.ParseIP(raw)), raw)
	}
}
