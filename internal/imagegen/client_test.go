package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongyue0721/image-fill-site/internal/domain"
)

var (
	testPNG  = append([]byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}, make([]byte, 24)...)
	testJPEG = append([]byte{0xff, 0xd8, 0xff, 0xe0}, make([]byte, 24)...)
)

func testAttempt(baseURL, key string) EditAttempt {
	return EditAttempt{
		Upstream: domain.UpstreamDescriptor{Name: "new-api", Enabled: true, BaseURL: baseURL, APIKey: key, Model: "gpt-image-1"},
		Prompt:   "fill the melon with stars",
		Image:    Part{Filename: "original.jpg", Data: testJPEG},
		Mask:     Part{Filename: "mask.png", Data: testPNG},
		Timeout:  5 * time.Second,
	}
}

func TestHTTPEditorSendsMultipartEdit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/images/edits", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "gpt-image-1", r.FormValue("model"))
		assert.Equal(t, "fill the melon with stars", r.FormValue("prompt"))
		assert.Equal(t, "1", r.FormValue("n"))
		assert.Equal(t, "b64_json", r.FormValue("response_format"))

		image, header, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, "original.jpg", header.Filename)
		imageBytes, _ := io.ReadAll(image)
		assert.Equal(t, testJPEG, imageBytes)

		mask, header, err := r.FormFile("mask")
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, "mask.png", header.Filename)
		maskBytes, _ := io.ReadAll(mask)
		assert.Equal(t, testPNG, maskBytes)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(testPNG)}},
		})
	}))
	defer ts.Close()

	editor := NewHTTPEditor(HTTPEditorOptions{})
	got, err := editor.Edit(context.Background(), testAttempt(ts.URL+"//", "test-key"))
	require.NoError(t, err)
	assert.Equal(t, testPNG, got.Data)
	assert.Equal(t, domain.MIMEPNG, got.MIME)
	assert.Equal(t, "new-api", got.Provider)
}

func TestHTTPEditorRejectedStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer ts.Close()

	editor := NewHTTPEditor(HTTPEditorOptions{})
	_, err := editor.Edit(context.Background(), testAttempt(ts.URL, "bad-key"))
	require.Error(t, err)

	var rejected *domain.UpstreamRejectedError
	require.True(t, errors.As(err, &rejected), "got %T", err)
	assert.Equal(t, http.StatusUnauthorized, rejected.StatusCode)
	assert.Equal(t, "new-api", rejected.Provider)
	assert.Contains(t, rejected.Body, "invalid api key")
}

func TestHTTPEditorTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	attempt := testAttempt(ts.URL, "k")
	attempt.Timeout = 50 * time.Millisecond

	editor := NewHTTPEditor(HTTPEditorOptions{})
	_, err := editor.Edit(context.Background(), attempt)
	require.Error(t, err)

	var netErr *domain.UpstreamNetworkError
	require.True(t, errors.As(err, &netErr), "got %T", err)
	assert.Equal(t, "send edit", netErr.Op)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHTTPEditorIgnoresCallerCancellation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"base64": base64.StdEncoding.EncodeToString(testJPEG)}},
		})
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	editor := NewHTTPEditor(HTTPEditorOptions{})
	got, err := editor.Edit(ctx, testAttempt(ts.URL, "k"))
	require.NoError(t, err)
	assert.Equal(t, domain.MIMEJPEG, got.MIME)
}

func TestHTTPEditorConnectionRefused(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	editor := NewHTTPEditor(HTTPEditorOptions{})
	_, err := editor.Edit(context.Background(), testAttempt(url, "k"))

	var netErr *domain.UpstreamNetworkError
	require.True(t, errors.As(err, &netErr), "got %T", err)
	assert.ErrorIs(t, err, domain.ErrProviderFailure)
}
