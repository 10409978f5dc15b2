// Package local serves invoice documents from a directory tree, one sub-directory
// per location. Used for development and offline backfills.
package local

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/feichai0017/invoice-aggregator/internal/models"
	"github.com/feichai0017/invoice-aggregator/pkg/logger"
)

const defaultPageSize = 1000

type Source struct {
	root     string
	pageSize int
	logger   logger.Logger
}

func New(root string, pageSize int, log logger.Logger) *Source {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Source{root: root, pageSize: pageSize, logger: log}
}

// List pages through the regular, non-hidden files of location in name order. The
// token is the last file name of the previous page.
func (s *Source) List(ctx context.Context, location, token string) (*models.SourcePage, error) {
	dir, err := s.resolve(location)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	page := &models.SourcePage{Entries: make([]models.SourceEntry, 0)}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || (token != "" && name <= token) {
			continue
		}
		if len(page.Entries) == s.pageSize {
			page.NextToken = page.Entries[len(page.Entries)-1].Name
			break
		}

		info, err := e.Info()
		if err != nil {
			s.logger.Warn("Skipping unreadable file",
				logger.String("location", location),
				logger.String("name", name),
				logger.Error(err),
			)
			continue
		}
		page.Entries = append(page.Entries, models.SourceEntry{
			ID:         path.Join(filepath.ToSlash(location), name),
			Name:       name,
			ModifiedAt: info.ModTime(),
		})
	}
	return page, nil
}

// Download reads the file named by id, relative to the root.
func (s *Source) Download(_ context.Context, id string) ([]byte, error) {
	p, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", id, err)
	}
	return data, nil
}

func (s *Source) resolve(rel string) (string, error) {
	rel = filepath.FromSlash(strings.Trim(rel, "/"))
	if rel == "" {
		return s.root, nil
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("path %q escapes the source root", rel)
	}
	return filepath.Join(s.root, rel), nil
}
