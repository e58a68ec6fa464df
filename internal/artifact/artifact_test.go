package artifact

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/faults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreOverwrite(t *testing.T) {
	root := filepath.Join(t.TempDir(), "generated")
	s, err := NewLocalStore(root, nil)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := s.SaveImage(ctx, []byte("first"), "ember")
	require.NoError(t, err)
	second, err := s.SaveImage(ctx, []byte("second"), "ember")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, filepath.ToSlash(filepath.Join(root, "images", "ember.png")), first)

	b, err := os.ReadFile(filepath.Join(root, "images", "ember.png"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(b))

	entries, err := os.ReadDir(filepath.Join(root, "images"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestLocalStoreJSON(t *testing.T) {
	s, err := NewLocalStore(filepath.Join(t.TempDir(), "generated"), nil)
	require.NoError(t, err)

	uri, err := s.SaveJSON(context.Background(), "ember", map[string]string{"name": "Ember"})
	require.NoError(t, err)
	assert.Equal(t, "ember.json", filepath.Base(uri))

	b, err := os.ReadFile(filepath.FromSlash(uri))
	require.NoError(t, err)
	var got map[string]string
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "Ember", got["name"])
}

func TestLocalStoreNames(t *testing.T) {
	root := filepath.Join(t.TempDir(), "generated")
	s, err := NewLocalStore(root, nil)
	require.NoError(t, err)

	uri, err := s.SaveJSON(context.Background(), "../../etc/passwd", struct{}{})
	require.NoError(t, err)
	assert.Equal(t, filepath.ToSlash(filepath.Join(root, "json")), filepath.ToSlash(filepath.Dir(uri)))

	_, err = s.SaveJSON(context.Background(), "  ", struct{}{})
	assert.True(t, faults.Is(err, faults.Validation))

	_, err = s.SaveImage(context.Background(), nil, "ember")
	assert.True(t, faults.Is(err, faults.Validation))
}

func TestPinataJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pinning/pinJSONToIPFS", r.URL.Path)
		assert.Equal(t, "Bearer jwt-token", r.Header.Get("Authorization"))

		var req pinJSONReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ember.json", req.Metadata.Name)

		_, _ = w.Write([]byte(`{"IpfsHash":"bafyhero","PinSize":42,"Timestamp":"2025-01-01T00:00:00Z"}`))
	}))
	defer srv.Close()

	s := NewPinataStore("jwt-token", "", nil)
	s.BaseURL = srv.URL

	uri, err := s.SaveJSON(context.Background(), "ember", map[string]string{"name": "Ember"})
	require.NoError(t, err)
	assert.Equal(t, "ipfs://bafyhero", uri)

	s.Gateway = "cobalt.mypinata.cloud"
	uri, err = s.SaveJSON(context.Background(), "ember", map[string]string{"name": "Ember"})
	require.NoError(t, err)
	assert.Equal(t, "https://cobalt.mypinata.cloud/ipfs/bafyhero", uri)
}

func TestPinataImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pinning/pinFileToIPFS", r.URL.Path)
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "ember.png", hdr.Filename)
		assert.Equal(t, "image/png", hdr.Header.Get("Content-Type"))
		b, _ := io.ReadAll(f)
		assert.Equal(t, "png-bytes", string(b))

		_, _ = w.Write([]byte(`{"IpfsHash":"bafyimage"}`))
	}))
	defer srv.Close()

	s := NewPinataStore("jwt-token", "https://gw.example/", nil)
	s.BaseURL = srv.URL

	uri, err := s.SaveImage(context.Background(), []byte("png-bytes"), "ember")
	require.NoError(t, err)
	assert.Equal(t, "https://gw.example/ipfs/bafyimage", uri)
}

func TestPinataErrors(t *testing.T) {
	status := http.StatusServiceUnavailable
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", status)
	}))
	defer srv.Close()

	s := NewPinataStore("jwt-token", "", nil)
	s.BaseURL = srv.URL

	_, err := s.SaveJSON(context.Background(), "ember", struct{}{})
	assert.True(t, faults.Is(err, faults.Transient))

	status = http.StatusUnauthorized
	_, err = s.SaveJSON(context.Background(), "ember", struct{}{})
	assert.True(t, faults.Is(err, faults.Internal))
}
