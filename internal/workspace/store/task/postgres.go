package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"taskhub/internal/platform/postgres"
	"taskhub/internal/workspace/models"
	id "taskhub/pkg/domain"
	"taskhub/pkg/platform/sentinel"
	"taskhub/pkg/platform/tx"
)

const taskColumns = `id, project_id, title, description, status, assigned_member_id, created_at, updated_at`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var desc sql.NullString
	var status string
	var assignee uuid.NullUUID
	if err := row.Scan((*uuid.UUID)(&t.ID), (*uuid.UUID)(&t.ProjectID), &t.Title, &desc, &status, &assignee, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if desc.Valid {
		t.Description = &desc.String
	}
	t.Status = models.TaskStatus(status)
	if assignee.Valid {
		m := id.MemberID(assignee.UUID)
		t.AssignedMemberID = &m
	}
	return &t, nil
}

func assigneeArg(m *id.MemberID) uuid.NullUUID {
	if m == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*m), Valid: true}
}

func (s *PostgresStore) Create(ctx context.Context, t *models.Task) error {
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(t.ID), uuid.UUID(t.ProjectID), t.Title, t.Description, string(t.Status),
		assigneeArg(t.AssignedMemberID), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		if postgres.IsForeignKeyViolation(err) {
			return fmt.Errorf("task references missing row: %w", sentinel.ErrInvalidState)
		}
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, taskID id.TaskID) (*models.Task, error) {
	row := tx.Exec(ctx, s.db).QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, uuid.UUID(taskID))
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) Update(ctx context.Context, t *models.Task) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE tasks
		SET title = $2, description = $3, status = $4, assigned_member_id = $5, updated_at = $6
		WHERE id = $1`,
		uuid.UUID(t.ID), t.Title, t.Description, string(t.Status), assigneeArg(t.AssignedMemberID), t.UpdatedAt,
	)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return fmt.Errorf("task assignee missing: %w", sentinel.ErrInvalidState)
		}
		return fmt.Errorf("update task: %w", err)
	}
	return expectOne(res)
}

func (s *PostgresStore) Delete(ctx context.Context, taskID id.TaskID) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, uuid.UUID(taskID))
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return expectOne(res)
}

// where renders filter as a WHERE clause with positional args starting at $1.
func where(filter models.TaskFilter) (string, []any) {
	var clauses []string
	var args []any
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if !filter.All {
		ids := make([]string, len(filter.ProjectIDs))
		for i, v := range filter.ProjectIDs {
			ids[i] = v.String()
		}
		add(`project_id = ANY($%d::uuid[])`, pq.Array(ids))
	}
	if filter.ProjectID != nil {
		add(`project_id = $%d`, uuid.UUID(*filter.ProjectID))
	}
	if filter.Status != nil {
		add(`status = $%d`, string(*filter.Status))
	}
	if len(clauses) == 0 {
		return `TRUE`, nil
	}
	return strings.Join(clauses, ` AND `), args
}

func (s *PostgresStore) List(ctx context.Context, filter models.TaskFilter, page models.Pagination) ([]*models.Task, error) {
	cond, args := where(filter)
	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE %s ORDER BY created_at, id OFFSET $%d LIMIT $%d`,
		taskColumns, cond, n+1, n+2)
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, query, append(args, page.Skip, page.Limit)...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	out := make([]*models.Task, 0, page.Limit)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context, filter models.TaskFilter) (int, error) {
	cond, args := where(filter)
	var n int
	if err := tx.Exec(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE `+cond, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) ListIDsByProject(ctx context.Context, projectID id.ProjectID) ([]id.TaskID, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, `SELECT id FROM tasks WHERE project_id = $1`, uuid.UUID(projectID))
	if err != nil {
		return nil, fmt.Errorf("list project tasks: %w", err)
	}
	defer rows.Close()
	var out []id.TaskID
	for rows.Next() {
		var tid id.TaskID
		if err := rows.Scan((*uuid.UUID)(&tid)); err != nil {
			return nil, fmt.Errorf("scan task id: %w", err)
		}
		out = append(out, tid)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteByProject(ctx context.Context, projectID id.ProjectID) (int, error) {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM tasks WHERE project_id = $1`, uuid.UUID(projectID))
	if err != nil {
		return 0, fmt.Errorf("delete project tasks: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *PostgresStore) ClearAssignee(ctx context.Context, memberID id.MemberID) (int, error) {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx,
		`UPDATE tasks SET assigned_member_id = NULL WHERE assigned_member_id = $1`, uuid.UUID(memberID))
	if err != nil {
		return 0, fmt.Errorf("clear task assignee: %w", err)
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
