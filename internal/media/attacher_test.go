package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-importer/internal/config"
	"catalog-importer/internal/domain"
)

type memAssets struct {
	byURL map[string]domain.MediaAsset
	next  int64
}

func newMemAssets() *memAssets {
	return &memAssets{byURL: map[string]domain.MediaAsset{}}
}

func (m *memAssets) FindBySourceURL(_ context.Context, url string) (domain.MediaAsset, error) {
	a, ok := m.byURL[url]
	if !ok {
		return domain.MediaAsset{}, domain.ErrNotFound
	}
	return a, nil
}

func (m *memAssets) Create(_ context.Context, a domain.MediaAsset) (int64, error) {
	if existing, ok := m.byURL[a.SourceURL]; ok {
		return existing.ID, nil
	}
	m.next++
	a.ID = m.next
	m.byURL[a.SourceURL] = a
	return a.ID, nil
}

func imageServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/ok.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("\x89PNG fake"))
		case "/big.jpg":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		case "/slow.jpg":
			time.Sleep(200 * time.Millisecond)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testMediaConfig(dir string) config.MediaConfig {
	return config.MediaConfig{
		Enabled:  true,
		Timeout:  50 * time.Millisecond,
		MaxBytes: 32,
		LocalDir: dir,
	}
}

func TestStoreAttacher_DownloadsAndRegisters(t *testing.T) {
	var hits atomic.Int32
	srv := imageServer(t, &hits)
	dir := t.TempDir()
	assets := newMemAssets()
	a := NewStoreAttacher(assets, NewLocalStorage(dir), testMediaConfig(dir), nil)

	url := srv.URL + "/ok.png"
	id, err := a.Attach(t.Context(), url)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	asset := assets.byURL[url]
	assert.Equal(t, "image/png", asset.ContentType)
	assert.Equal(t, filepath.Join(dir, ObjectName(url, "image/png")), asset.Location)
	body, err := os.ReadFile(asset.Location)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG fake", string(body))

	again, err := a.Attach(t.Context(), url)
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Equal(t, int32(1), hits.Load(), "known assets are not downloaded again")
}

func TestStoreAttacher_Failures(t *testing.T) {
	var hits atomic.Int32
	srv := imageServer(t, &hits)
	dir := t.TempDir()
	a := NewStoreAttacher(newMemAssets(), NewLocalStorage(dir), testMediaConfig(dir), nil)

	cases := map[string]string{
		"not found":  srv.URL + "/missing.jpg",
		"too large":  srv.URL + "/big.jpg",
		"timeout":    srv.URL + "/slow.jpg",
		"bad scheme": "ftp://example.com/a.jpg",
		"not a url":  "::::",
	}
	for name, url := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := a.Attach(t.Context(), url)
			assert.Error(t, err)
		})
	}
}

func TestStoreAttacher_ReusesLocalFile(t *testing.T) {
	var hits atomic.Int32
	srv := imageServer(t, &hits)
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "2024", "05"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2024", "05", "mug.jpg"), []byte("jpeg"), 0o644))

	cfg := testMediaConfig(dir)
	cfg.LocalBaseURL = srv.URL + "/uploads/"
	assets := newMemAssets()
	a := NewStoreAttacher(assets, NewLocalStorage(dir), cfg, nil)

	url := srv.URL + "/uploads/2024/05/mug.jpg"
	id, err := a.Attach(t.Context(), url)
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Zero(t, hits.Load())
	assert.Equal(t, filepath.Join(dir, "2024", "05", "mug.jpg"), assets.byURL[url].Location)
	assert.Equal(t, int64(4), assets.byURL[url].Size)

	_, err = a.Attach(t.Context(), srv.URL+"/uploads/../../etc/passwd")
	assert.Error(t, err)
}

func TestObjectName(t *testing.T) {
	a := ObjectName("https://cdn.example.com/p/1.JPG?w=200", "")
	b := ObjectName("https://cdn.example.com/p/1.JPG?w=200", "")
	assert.Equal(t, a, b)
	assert.True(t, strings.HasSuffix(a, ".jpg"))
	assert.Len(t, a, 16+len(".jpg"))

	c := ObjectName("https://cdn.example.com/render?id=7", "image/png")
	assert.True(t, strings.HasSuffix(c, ".png"))
}

type fakeS3 struct {
	inputs []*s3.PutObjectInput
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.inputs = append(f.inputs, in)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Storage_Put(t *testing.T) {
	api := &fakeS3{}
	s := &S3Storage{client: api, bucket: "media", prefix: "/catalog/"}

	loc, err := s.Put(t.Context(), "abc.jpg", "image/jpeg", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, "s3://media/catalog/abc.jpg", loc)
	require.Len(t, api.inputs, 1)
	assert.Equal(t, "catalog/abc.jpg", aws.ToString(api.inputs[0].Key))
	assert.Equal(t, "image/jpeg", aws.ToString(api.inputs[0].ContentType))
	assert.Equal(t, int64(4), aws.ToInt64(api.inputs[0].ContentLength))
}
