package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/landscape-engine/pkg/apperrors"
	"github.com/ekaya-inc/landscape-engine/pkg/models"
	"github.com/ekaya-inc/landscape-engine/pkg/repositories"
)

// LandscapeCatalog lists and resolves the landscapes the engine can load.
type LandscapeCatalog interface {
	// Available lists file landscapes followed by database landscapes.
	Available(ctx context.Context) ([]models.LandscapeInfo, error)

	// Resolve returns the sources for the given names in request order.
	// A database landscape shadows a file landscape of the same name.
	Resolve(ctx context.Context, names []string) ([]models.LandscapeSource, error)
}

type landscapeCatalog struct {
	directory string
	repo      repositories.LandscapeRepository
	logger    *zap.Logger
}

var _ LandscapeCatalog = (*landscapeCatalog)(nil)

// NewLandscapeCatalog creates a catalog over a landscape directory and an optional repository.
// Pass a nil repository when no database is configured.
func NewLandscapeCatalog(directory string, repo repositories.LandscapeRepository, logger *zap.Logger) LandscapeCatalog {
	return &landscapeCatalog{
		directory: directory,
		repo:      repo,
		logger:    logger.Named("landscape-catalog"),
	}
}

func (c *landscapeCatalog) Available(ctx context.Context) ([]models.LandscapeInfo, error) {
	paths, err := ListLandscapeFiles(c.directory)
	if err != nil {
		return nil, err
	}

	infos := make([]models.LandscapeInfo, 0, len(paths))
	for _, path := range paths {
		infos = append(infos, models.LandscapeInfo{
			Name: LandscapeNameFromPath(path),
			Type: models.SourceTypeFile,
			Path: path,
		})
	}

	if c.repo == nil {
		return infos, nil
	}

	stored, err := c.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list database landscapes: %w", err)
	}
	for _, s := range stored {
		src := s.Source()
		infos = append(infos, models.LandscapeInfo{Name: src.Name, Type: src.Type})
	}
	return infos, nil
}

// Resolve decodes only the files of requested names that no database landscape shadows,
// so a malformed file fails only the requests that name it.
func (c *landscapeCatalog) Resolve(ctx context.Context, names []string) ([]models.LandscapeSource, error) {
	paths, err := ListLandscapeFiles(c.directory)
	if err != nil {
		return nil, err
	}
	pathByName := make(map[string]string, len(paths))
	for _, path := range paths {
		pathByName[LandscapeNameFromPath(path)] = path
	}

	sources := make([]models.LandscapeSource, len(names))
	var toDecode []string
	var decodeSlots []int
	for i, name := range names {
		if c.repo != nil {
			stored, err := c.repo.GetByName(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("failed to get landscape %q: %w", name, err)
			}
			if stored != nil {
				if _, shadowed := pathByName[name]; shadowed {
					c.logger.Debug("Database landscape shadows file landscape", zap.String("landscape", name))
				}
				sources[i] = stored.Source()
				continue
			}
		}

		path, ok := pathByName[name]
		if !ok {
			return nil, fmt.Errorf("landscape %q: %w", name, apperrors.ErrNotFound)
		}
		toDecode = append(toDecode, path)
		decodeSlots = append(decodeSlots, i)
	}

	files, err := LoadLandscapeFiles(ctx, toDecode)
	if err != nil {
		return nil, err
	}
	for j, f := range files {
		sources[decodeSlots[j]] = f.Source
	}
	return sources, nil
}
