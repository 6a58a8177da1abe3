//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"taskhub/internal/platform/postgres"
	"taskhub/pkg/platform/tx"
	"taskhub/pkg/testutil/containers"
)

type TxRunnerSuite struct {
	suite.Suite
	pg     *containers.PostgresContainer
	runner *postgres.TxRunner
}

func TestTxRunnerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(TxRunnerSuite))
}

func (s *TxRunnerSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.runner = postgres.NewTxRunner(s.pg.DB, time.Second)
	_, err := s.pg.DB.Exec(`CREATE TABLE IF NOT EXISTS tx_scratch (v INT)`)
	s.Require().NoError(err)
}

func (s *TxRunnerSuite) SetupTest() {
	_, err := s.pg.DB.Exec(`TRUNCATE tx_scratch`)
	s.Require().NoError(err)
}

func (s *TxRunnerSuite) count() int {
	var n int
	s.Require().NoError(s.pg.DB.QueryRow(`SELECT COUNT(*) FROM tx_scratch`).Scan(&n))
	return n
}

func (s *TxRunnerSuite) TestCommitAndRollback() {
	ctx := context.Background()

	s.Run("commits on success", func() {
		err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
			_, err := tx.Exec(ctx, s.pg.DB).ExecContext(ctx, `INSERT INTO tx_scratch VALUES (1)`)
			return err
		})
		s.Require().NoError(err)
		s.Equal(1, s.count())
	})

	s.Run("rolls back nested work on error", func() {
		boom := errors.New("boom")
		err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
			if err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
				_, err := tx.Exec(ctx, s.pg.DB).ExecContext(ctx, `INSERT INTO tx_scratch VALUES (2)`)
				return err
			}); err != nil {
				return err
			}
			return boom
		})
		s.ErrorIs(err, boom)
		s.Equal(1, s.count())
	})
}

func (s *TxRunnerSuite) TestReadTxIsReadOnly() {
	err := s.runner.RunReadTx(context.Background(), func(ctx context.Context) error {
		_, err := tx.Exec(ctx, s.pg.DB).ExecContext(ctx, `INSERT INTO tx_scratch VALUES (3)`)
		return err
	})
	s.Error(err)
	s.Equal(0, s.count())
}

func (s *TxRunnerSuite) TestMigrateIsIdempotent() {
	s.Require().NoError(postgres.Migrate(context.Background(), s.pg.DB))
	s.Require().NoError(postgres.Migrate(context.Background(), s.pg.DB))
}
