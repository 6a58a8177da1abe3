package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"taskhub/internal/platform/postgres"
	"taskhub/internal/workspace/models"
	id "taskhub/pkg/domain"
	"taskhub/pkg/platform/sentinel"
	"taskhub/pkg/platform/tx"
)

const memberColumns = `id, project_id, user_id, role, created_at`

// PostgresStore persists memberships. The (project_id, user_id) unique
// constraint backs the one-membership-per-project rule.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*models.ProjectMember, error) {
	var m models.ProjectMember
	var role string
	if err := row.Scan((*uuid.UUID)(&m.ID), (*uuid.UUID)(&m.ProjectID), (*uuid.UUID)(&m.UserID), &role, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Role = models.Role(role)
	return &m, nil
}

func (s *PostgresStore) Create(ctx context.Context, m *models.ProjectMember) error {
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO project_members (`+memberColumns+`)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(m.ID), uuid.UUID(m.ProjectID), uuid.UUID(m.UserID), string(m.Role), m.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		if postgres.IsForeignKeyViolation(err) {
			return fmt.Errorf("membership references missing row: %w", sentinel.ErrInvalidState)
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

func (s *PostgresStore) findOne(ctx context.Context, where string, args ...any) (*models.ProjectMember, error) {
	row := tx.Exec(ctx, s.db).QueryRowContext(ctx, `SELECT `+memberColumns+` FROM project_members WHERE `+where, args...)
	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find member: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, memberID id.MemberID) (*models.ProjectMember, error) {
	return s.findOne(ctx, `id = $1`, uuid.UUID(memberID))
}

func (s *PostgresStore) FindByProjectAndUser(ctx context.Context, projectID id.ProjectID, userID id.UserID) (*models.ProjectMember, error) {
	return s.findOne(ctx, `project_id = $1 AND user_id = $2`, uuid.UUID(projectID), uuid.UUID(userID))
}

func (s *PostgresStore) list(ctx context.Context, where string, arg any) ([]*models.ProjectMember, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx,
		`SELECT `+memberColumns+` FROM project_members WHERE `+where+` ORDER BY created_at, id`, arg)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()
	out := []*models.ProjectMember{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListByProject(ctx context.Context, projectID id.ProjectID) ([]*models.ProjectMember, error) {
	return s.list(ctx, `project_id = $1`, uuid.UUID(projectID))
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.ProjectMember, error) {
	return s.list(ctx, `user_id = $1`, uuid.UUID(userID))
}

func (s *PostgresStore) UpdateRole(ctx context.Context, memberID id.MemberID, role models.Role) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx,
		`UPDATE project_members SET role = $2 WHERE id = $1`, uuid.UUID(memberID), string(role))
	if err != nil {
		return fmt.Errorf("update member role: %w", err)
	}
	return expectOne(res)
}

func (s *PostgresStore) Delete(ctx context.Context, memberID id.MemberID) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM project_members WHERE id = $1`, uuid.UUID(memberID))
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return expectOne(res)
}

func (s *PostgresStore) DeleteByProject(ctx context.Context, projectID id.ProjectID) (int, error) {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM project_members WHERE project_id = $1`, uuid.UUID(projectID))
	if err != nil {
		return 0, fmt.Errorf("delete project members: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
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
