package footage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/GiladLeef/ShortsTurbo/internal/log"
	"github.com/GiladLeef/ShortsTurbo/internal/provider"
)

// DownloaderConfig is the configuration for the clip downloader.
type DownloaderConfig struct {
	UserAgent string
	Timeout   time.Duration
	Logger    log.Logger
}

func (c *DownloaderConfig) defaults() error {
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Minute
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "footage.Downloader"})

	return nil
}

// Downloader materializes remote clips on disk. Files are written to a
// temporary path first and renamed once the size checks out, so a crashed
// download never leaves a half-written clip behind.
type Downloader struct {
	userAgent string
	client    *http.Client
	logger    log.Logger
}

// NewDownloader creates a new clip downloader.
func NewDownloader(cfg DownloaderConfig) (*Downloader, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Downloader{
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: cfg.Timeout},
		logger:    cfg.Logger,
	}, nil
}

// Download fetches url into savePath. An already existing file is reused.
func (d *Downloader) Download(ctx context.Context, url, savePath string) error {
	if _, err := os.Stat(savePath); err == nil {
		d.logger.Debugf("Reusing already downloaded clip %s", savePath)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return provider.NewPermanent("download", fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "*/*")
	// Compressed bodies would break the Content-Length verification.
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := d.client.Do(req)
	if err != nil {
		return provider.NewTransient("download", fmt.Errorf("fetching %s: %w", url, err))
	}
	defer resp.Body.Close()

	if err := classifyStatus("download", resp.StatusCode, ""); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(savePath), 0o755); err != nil {
		return provider.NewPermanent("download", fmt.Errorf("creating clip directory: %w", err))
	}

	tmpPath := savePath + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return provider.NewPermanent("download", fmt.Errorf("creating %s: %w", tmpPath, err))
	}

	written, err := io.Copy(file, resp.Body)
	if err != nil {
		file.Close()
		os.Remove(tmpPath)
		return provider.NewTransient("download", fmt.Errorf("writing clip data: %w", err))
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return provider.NewTransient("download", fmt.Errorf("flushing clip data: %w", err))
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return provider.NewTransient("download", fmt.Errorf("closing clip file: %w", err))
	}

	if resp.ContentLength > 0 && written != resp.ContentLength {
		os.Remove(tmpPath)
		return provider.NewTransient("download", fmt.Errorf("incomplete download: got %d of %d bytes", written, resp.ContentLength))
	}

	if err := os.Rename(tmpPath, savePath); err != nil {
		os.Remove(tmpPath)
		return provider.NewPermanent("download", fmt.Errorf("moving clip into place: %w", err))
	}

	d.logger.Debugf("Downloaded %s (%d bytes)", savePath, written)

	return nil
}
