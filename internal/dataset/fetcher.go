package dataset

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// Fetcher resolves table locations to local files, downloading http(s)
// sources into a data directory once.
type Fetcher struct {
	dir  string
	rest *resty.Client
}

func NewFetcher(dir string, timeout time.Duration) *Fetcher {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(60 * time.Second) // default fallback
	}
	return &Fetcher{dir: dir, rest: r}
}

// IsRemote reports whether location is an http or https URL.
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// Resolve returns a local path for location. Local paths are returned as is.
// A URL is downloaded to the data directory unless a file of the same name is
// already there.
func (f *Fetcher) Resolve(ctx context.Context, location string) (string, error) {
	if !IsRemote(location) {
		return location, nil
	}

	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", location, err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		name = "download.csv"
	}
	dest := filepath.Join(f.dir, name)

	if _, err := os.Stat(dest); err == nil {
		log.Debug().Str("url", location).Str("file", dest).Msg("Using cached download")
		return dest, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat %s: %w", dest, err)
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	tmp := dest + ".part"
	start := time.Now()
	resp, err := f.rest.R().
		SetContext(ctx).
		SetOutput(tmp).
		Get(location)
	if err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("download %s: %w", location, err)
	}
	if resp.IsError() {
		os.Remove(tmp)
		return "", fmt.Errorf("download %s: unexpected status %s", location, resp.Status())
	}
	if err := os.Rename(tmp, dest); err != nil {
		return "", fmt.Errorf("failed to move download into place: %w", err)
	}

	log.Info().
		Str("url", location).
		Str("file", dest).
		Dur("took", time.Since(start)).
		Msg("Downloaded dataset")

	return dest, nil
}
