package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/landscape-engine/pkg/apperrors"
	"github.com/ekaya-inc/landscape-engine/pkg/jsonutil"
	"github.com/ekaya-inc/landscape-engine/pkg/models"
)

// maxConcurrentDecodes bounds the number of landscape files decoded at once.
const maxConcurrentDecodes = 8

// LandscapeFile is a landscape document read from disk.
type LandscapeFile struct {
	Name   string
	Path   string
	Source models.LandscapeSource
}

// IsLandscapeFile reports whether the path has a supported landscape extension.
func IsLandscapeFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// LandscapeNameFromPath returns the file base name without its extension.
func LandscapeNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DecodeLandscape decodes a JSON or YAML landscape document. The top level must be an object.
func DecodeLandscape(data []byte, path string) (models.Document, error) {
	var raw any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrInvalidLandscape, path, err)
		}
		normalized, err := jsonutil.Normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrInvalidLandscape, path, err)
		}
		raw = normalized
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrInvalidLandscape, path, err)
		}
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s: top level is not an object", apperrors.ErrInvalidLandscape, path)
	}
	return models.Document(obj), nil
}

// ReadLandscapeFile reads and decodes a single landscape file as a file source.
func ReadLandscapeFile(path string) (*LandscapeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read landscape file %s: %w", path, err)
	}
	doc, err := DecodeLandscape(data, path)
	if err != nil {
		return nil, err
	}
	name := LandscapeNameFromPath(path)
	return &LandscapeFile{
		Name: name,
		Path: path,
		Source: models.LandscapeSource{
			Name:     name,
			Type:     models.SourceTypeFile,
			Document: doc,
		},
	}, nil
}

// ListLandscapeFiles returns the landscape files in dir sorted by file name.
// A missing directory yields an empty list.
func ListLandscapeFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list landscape directory %s: %w", dir, err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsLandscapeFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadLandscapeFiles decodes the given files concurrently, keeping their order.
// The first decode failure cancels the rest.
func LoadLandscapeFiles(ctx context.Context, paths []string) ([]*LandscapeFile, error) {
	files := make([]*LandscapeFile, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDecodes)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := ReadLandscapeFile(path)
			if err != nil {
				return err
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}
