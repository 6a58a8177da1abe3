package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"taskhub/internal/platform/postgres"
	"taskhub/internal/workspace/models"
	id "taskhub/pkg/domain"
	"taskhub/pkg/platform/sentinel"
	"taskhub/pkg/platform/tx"
)

const projectColumns = `id, name, description, owner_id, created_at, updated_at`

// PostgresStore persists projects. Queries run on the transaction carried by
// the context when there is one.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*models.Project, error) {
	var p models.Project
	var desc sql.NullString
	if err := row.Scan((*uuid.UUID)(&p.ID), &p.Name, &desc, (*uuid.UUID)(&p.OwnerID), &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if desc.Valid {
		p.Description = &desc.String
	}
	return &p, nil
}

func (s *PostgresStore) Create(ctx context.Context, p *models.Project) error {
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(p.ID), p.Name, p.Description, uuid.UUID(p.OwnerID), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		if postgres.IsForeignKeyViolation(err) {
			return fmt.Errorf("project owner missing: %w", sentinel.ErrInvalidState)
		}
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, projectID id.ProjectID) (*models.Project, error) {
	row := tx.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, uuid.UUID(projectID))
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find project: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Update(ctx context.Context, p *models.Project) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE projects SET name = $2, description = $3, updated_at = $4
		WHERE id = $1`,
		uuid.UUID(p.ID), p.Name, p.Description, p.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update project: %w", err)
	}
	return expectOne(res)
}

func (s *PostgresStore) Delete(ctx context.Context, projectID id.ProjectID) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, uuid.UUID(projectID))
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return expectOne(res)
}

// scope renders the filter as a WHERE clause bound to $1.
func scope(filter models.ProjectFilter) (string, []any) {
	if filter.All {
		return `TRUE`, nil
	}
	return `id = ANY($1::uuid[])`, []any{pq.Array(idStrings(filter.ProjectIDs))}
}

func (s *PostgresStore) List(ctx context.Context, filter models.ProjectFilter, page models.Pagination) ([]*models.Project, error) {
	where, args := scope(filter)
	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE %s ORDER BY created_at, id OFFSET $%d LIMIT $%d`,
		projectColumns, where, n+1, n+2)
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, query, append(args, page.Skip, page.Limit)...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Project, 0, page.Limit)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context, filter models.ProjectFilter) (int, error) {
	where, args := scope(filter)
	var n int
	if err := tx.Exec(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE `+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) ListIDsByOwner(ctx context.Context, ownerID id.UserID) ([]id.ProjectID, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, `SELECT id FROM projects WHERE owner_id = $1`, uuid.UUID(ownerID))
	if err != nil {
		return nil, fmt.Errorf("list owned projects: %w", err)
	}
	defer rows.Close()
	var out []id.ProjectID
	for rows.Next() {
		var pid id.ProjectID
		if err := rows.Scan((*uuid.UUID)(&pid)); err != nil {
			return nil, fmt.Errorf("scan project id: %w", err)
		}
		out = append(out, pid)
	}
	return out, rows.Err()
}

func idStrings(ids []id.ProjectID) []string {
	out := make([]string, len(ids))
	for i, v := range ids {
		out[i] = v.String()
	}
	return out
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
