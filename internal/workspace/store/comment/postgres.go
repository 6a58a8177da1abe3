package comment

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"taskhub/internal/platform/postgres"
	"taskhub/internal/workspace/models"
	id "taskhub/pkg/domain"
	"taskhub/pkg/platform/sentinel"
	"taskhub/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Comment) error {
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO task_comments (id, task_id, author_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(c.ID), uuid.UUID(c.TaskID), uuid.UUID(c.AuthorID), c.Content, c.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		if postgres.IsForeignKeyViolation(err) {
			return fmt.Errorf("comment references missing row: %w", sentinel.ErrInvalidState)
		}
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByTask(ctx context.Context, taskID id.TaskID) ([]*models.Comment, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT id, task_id, author_id, content, created_at
		FROM task_comments WHERE task_id = $1
		ORDER BY created_at, id`, uuid.UUID(taskID))
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()
	out := []*models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan((*uuid.UUID)(&c.ID), (*uuid.UUID)(&c.TaskID), (*uuid.UUID)(&c.AuthorID), &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteByTasks(ctx context.Context, taskIDs []id.TaskID) (int, error) {
	if len(taskIDs) == 0 {
		return 0, nil
	}
	ids := make([]string, len(taskIDs))
	for i, v := range taskIDs {
		ids[i] = v.String()
	}
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx,
		`DELETE FROM task_comments WHERE task_id = ANY($1::uuid[])`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("delete task comments: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *PostgresStore) DeleteByAuthor(ctx context.Context, authorID id.UserID) (int, error) {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM task_comments WHERE author_id = $1`, uuid.UUID(authorID))
	if err != nil {
		return 0, fmt.Errorf("delete author comments: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
