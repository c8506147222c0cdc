package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/landscape-engine/pkg/database"
	"github.com/ekaya-inc/landscape-engine/pkg/models"
)

// LandscapeRepository reads database-provided landscape documents.
type LandscapeRepository interface {
	// List returns every stored landscape ordered by name.
	List(ctx context.Context) ([]*models.StoredLandscape, error)

	// GetByName returns one stored landscape (nil if absent).
	GetByName(ctx context.Context, name string) (*models.StoredLandscape, error)
}

// landscapeRepository implements LandscapeRepository using PostgreSQL.
type landscapeRepository struct {
	db *database.DB
}

// NewLandscapeRepository creates a new landscape repository.
func NewLandscapeRepository(db *database.DB) LandscapeRepository {
	return &landscapeRepository{db: db}
}

func (r *landscapeRepository) List(ctx context.Context) ([]*models.StoredLandscape, error) {
	query := `
		SELECT name, source_type, document, updated_at
		FROM engine_landscapes
		ORDER BY name ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list landscapes: %w", err)
	}
	defer rows.Close()

	var landscapes []*models.StoredLandscape
	for rows.Next() {
		l, err := scanLandscape(rows)
		if err != nil {
			return nil, err
		}
		landscapes = append(landscapes, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating landscapes: %w", err)
	}

	return landscapes, nil
}

func (r *landscapeRepository) GetByName(ctx context.Context, name string) (*models.StoredLandscape, error) {
	query := `
		SELECT name, source_type, document, updated_at
		FROM engine_landscapes
		WHERE name = $1`

	l, err := scanLandscape(r.db.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return l, nil
}

func scanLandscape(row pgx.Row) (*models.StoredLandscape, error) {
	var l models.StoredLandscape
	var document map[string]any
	if err := row.Scan(&l.Name, &l.SourceType, &document, &l.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan landscape: %w", err)
	}
	l.Document = models.Document(document)
	return &l, nil
}
