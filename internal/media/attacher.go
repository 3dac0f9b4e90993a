package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"catalog-importer/internal/config"
	"catalog-importer/internal/domain"
)

// AssetStore is the media sub-contract of the record store.
type AssetStore interface {
	// FindBySourceURL returns domain.ErrNotFound when no asset has url.
	FindBySourceURL(ctx context.Context, url string) (domain.MediaAsset, error)
	// Create registers an asset and returns its id; an asset that already
	// exists for the same source URL is returned instead.
	Create(ctx context.Context, asset domain.MediaAsset) (int64, error)
}

// StoreAttacher attaches images by reusing known assets, registering files
// already present in the local media directory, or downloading them.
type StoreAttacher struct {
	assets       AssetStore
	storage      Storage
	client       *http.Client
	timeout      time.Duration
	limiter      *rate.Limiter
	maxBytes     int64
	localBaseURL string
	localDir     string
	logger       *zap.Logger
}

func NewStoreAttacher(assets AssetStore, storage Storage, cfg config.MediaConfig, logger *zap.Logger) *StoreAttacher {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &StoreAttacher{
		assets:       assets,
		storage:      storage,
		client:       &http.Client{},
		timeout:      cfg.Timeout,
		maxBytes:     cfg.MaxBytes,
		localBaseURL: strings.TrimRight(cfg.LocalBaseURL, "/"),
		localDir:     cfg.LocalDir,
		logger:       logger,
	}
	if cfg.RatePerSecond > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	return a
}

func (a *StoreAttacher) Attach(ctx context.Context, rawURL string) (int64, error) {
	existing, err := a.assets.FindBySourceURL(ctx, rawURL)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return 0, fmt.Errorf("find asset: %w", err)
	}

	if asset, ok := a.localFile(rawURL); ok {
		return a.register(ctx, asset)
	}

	asset, err := a.download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	return a.register(ctx, asset)
}

func (a *StoreAttacher) register(ctx context.Context, asset domain.MediaAsset) (int64, error) {
	id, err := a.assets.Create(ctx, asset)
	if err != nil {
		return 0, fmt.Errorf("register asset: %w", err)
	}
	a.logger.Debug("media attached", zap.String("url", asset.SourceURL), zap.String("location", asset.Location), zap.Int64("id", id))
	return id, nil
}

// localFile maps a URL under the local base URL onto the media directory.
func (a *StoreAttacher) localFile(rawURL string) (domain.MediaAsset, bool) {
	if a.localBaseURL == "" || a.localDir == "" || !strings.HasPrefix(rawURL, a.localBaseURL+"/") {
		return domain.MediaAsset{}, false
	}
	rel, err := url.PathUnescape(strings.TrimPrefix(rawURL, a.localBaseURL+"/"))
	if err != nil || !filepath.IsLocal(rel) {
		return domain.MediaAsset{}, false
	}
	p := filepath.Join(a.localDir, rel)
	info, err := os.Stat(p)
	if err != nil || !info.Mode().IsRegular() {
		return domain.MediaAsset{}, false
	}
	return domain.MediaAsset{
		SourceURL:   rawURL,
		Location:    p,
		ContentType: mime.TypeByExtension(filepath.Ext(p)),
		Size:        info.Size(),
	}, true
}

func (a *StoreAttacher) download(ctx context.Context, rawURL string) (domain.MediaAsset, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return domain.MediaAsset{}, fmt.Errorf("unsupported image url %q", rawURL)
	}
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return domain.MediaAsset{}, err
		}
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return domain.MediaAsset{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return domain.MediaAsset{}, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.MediaAsset{}, fmt.Errorf("fetch: unexpected status %s", resp.Status)
	}

	var body io.Reader = resp.Body
	if a.maxBytes > 0 {
		body = io.LimitReader(resp.Body, a.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return domain.MediaAsset{}, fmt.Errorf("read body: %w", err)
	}
	if a.maxBytes > 0 && int64(len(data)) > a.maxBytes {
		return domain.MediaAsset{}, fmt.Errorf("image larger than %d bytes", a.maxBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	name := ObjectName(rawURL, contentType)
	location, err := a.storage.Put(ctx, name, contentType, data)
	if err != nil {
		return domain.MediaAsset{}, err
	}
	return domain.MediaAsset{
		SourceURL:   rawURL,
		Location:    location,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

// ObjectName derives a stable storage name from the source URL.
func ObjectName(rawURL, contentType string) string {
	ext := ""
	if u, err := url.Parse(rawURL); err == nil {
		ext = strings.ToLower(path.Ext(u.Path))
	}
	if ext == "" || len(ext) > 5 {
		ext = ""
		if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
			if exts, _ := mime.ExtensionsByType(mediaType); len(exts) > 0 {
				ext = exts[0]
			}
		}
	}
	return fmt.Sprintf("%016x%s", xxh3.HashString(rawURL), ext)
}
