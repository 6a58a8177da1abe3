package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"taskhub/internal/audit"
	identityservice "taskhub/internal/identity/service"
	"taskhub/internal/identity/store/revocation"
	userstore "taskhub/internal/identity/store/user"
	"taskhub/internal/platform/config"
	"taskhub/internal/platform/kafka"
	"taskhub/internal/platform/postgres"
	"taskhub/internal/platform/redis"
	ratelimit "taskhub/internal/ratelimit/middleware"
	ratelimitstore "taskhub/internal/ratelimit/store"
	workspaceservice "taskhub/internal/workspace/service"
	commentstore "taskhub/internal/workspace/store/comment"
	memberstore "taskhub/internal/workspace/store/member"
	projectstore "taskhub/internal/workspace/store/project"
	taskstore "taskhub/internal/workspace/store/task"
	"taskhub/pkg/platform/tx"
)

type txRunner interface {
	workspaceservice.StoreTx
	identityservice.StoreTx
}

// stores groups every persistence dependency behind one transaction runner
// shared by both services, so account deletion and its workspace cascade
// commit together.
type stores struct {
	kind     string
	db       *sql.DB
	tx       txRunner
	users    identityservice.UserStore
	projects workspaceservice.ProjectStore
	members  workspaceservice.MemberStore
	tasks    workspaceservice.TaskStore
	comments workspaceservice.CommentStore
}

func (s *stores) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func openStores(ctx context.Context, cfg config.Server, log *slog.Logger) (*stores, error) {
	if cfg.Database.URL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		return &stores{
			kind:     "memory",
			tx:       tx.NewMemoryRunner(),
			users:    userstore.NewInMemory(),
			projects: projectstore.NewInMemory(),
			members:  memberstore.NewInMemory(),
			tasks:    taskstore.NewInMemory(),
			comments: commentstore.NewInMemory(),
		}, nil
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &stores{
		kind:     "postgres",
		db:       db,
		tx:       postgres.NewTxRunner(db, cfg.Database.TxTimeout),
		users:    userstore.NewPostgres(db),
		projects: projectstore.NewPostgres(db),
		members:  memberstore.NewPostgres(db),
		tasks:    taskstore.NewPostgres(db),
		comments: commentstore.NewPostgres(db),
	}, nil
}

// revocationList uses Redis when configured so logouts survive restarts and
// are shared between replicas.
func revocationList(client *redis.Client) identityservice.RevocationList {
	if client == nil {
		return revocation.NewInMemoryTRL()
	}
	return revocation.NewRedisTRL(client.Client)
}

// rateLimitStore shares counters through Redis when configured.
func rateLimitStore(client *redis.Client) ratelimit.Store {
	if client == nil {
		return ratelimitstore.NewInMemory()
	}
	return ratelimitstore.NewRedis(client.Client)
}

// auditSink publishes to Kafka when brokers are configured and to the log
// otherwise. The returned func releases the sink's resources.
func auditSink(ctx context.Context, cfg config.KafkaConfig, log *slog.Logger) (audit.Sink, func(), error) {
	client, err := kafka.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Warn("KAFKA_BROKERS not set, audit events go to the log only")
		return audit.NewLogSink(log), func() {}, nil
	}
	if err := kafka.EnsureTopic(ctx, client, cfg.AuditTopic, int16(cfg.ReplicationFactor)); err != nil {
		client.Close()
		return nil, nil, err
	}
	return audit.NewKafkaSink(client, cfg.AuditTopic), client.Close, nil
}

// healthChecks lists the dependencies /healthz pings.
func healthChecks(st *stores, redisClient *redis.Client) map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{}
	if st.db != nil {
		checks["postgres"] = st.db.PingContext
	}
	if redisClient != nil {
		checks["redis"] = redisClient.Health
	}
	return checks
}
