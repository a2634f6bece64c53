package collaborators

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/jonesrussell/newsroom/internal/logger"
)

const maxImageBytes = 10 << 20 // 10 MiB

// LocalImageStore downloads remote images into a local directory. Fetch
// failures are non-fatal: the draft proceeds without an image.
type LocalImageStore struct {
	dir    string
	client *http.Client
	logger logger.Logger
}

// NewLocalImageStore creates an image store rooted at dir.
func NewLocalImageStore(dir string, log logger.Logger) *LocalImageStore {
	return &LocalImageStore{
		dir:    dir,
		client: &http.Client{Timeout: defaultHTTPTimeout},
		logger: log,
	}
}

// Fetch downloads imageURL and returns the local path. On any failure it
// logs and returns an empty path with a nil error.
func (s *LocalImageStore) Fetch(ctx context.Context, imageURL string) (string, error) {
	if imageURL == "" {
		return "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, http.NoBody)
	if err != nil {
		s.logger.Warn("invalid image URL", logger.String("url", imageURL), logger.Error(err))
		return "", nil
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("image fetch failed", logger.String("url", imageURL), logger.Error(err))
		return "", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("image fetch returned non-200",
			logger.String("url", imageURL),
			logger.Int("status", resp.StatusCode))
		return "", nil
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		s.logger.Warn("create image dir failed", logger.String("dir", s.dir), logger.Error(err))
		return "", nil
	}

	ext := filepath.Ext(imageURL)
	if ext == "" || len(ext) > 5 {
		ext = ".img"
	}
	path := filepath.Join(s.dir, uuid.NewString()+ext)

	out, err := os.Create(path)
	if err != nil {
		s.logger.Warn("create image file failed", logger.String("path", path), logger.Error(err))
		return "", nil
	}
	defer out.Close()

	if _, err := io.Copy(out, io.LimitReader(resp.Body, maxImageBytes)); err != nil {
		s.logger.Warn("write image file failed", logger.String("path", path), logger.Error(err))
		// Leave no partial file behind.
		_ = os.Remove(path)
		return "", nil
	}

	s.logger.Debug("image stored",
		logger.String("url", imageURL),
		logger.String("path", path))
	return path, nil
}
