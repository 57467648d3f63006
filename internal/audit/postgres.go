package audit

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/venueops-dev/shift-sync/backend/internal/config"
	"github.com/venueops-dev/shift-sync/backend/internal/domain"
)

// PostgresStore 把审计记录写进 postgres，生产部署用的持久化后端
type PostgresStore struct {
	cfg    *config.Config
	dbpool *sql.DB
}

func NewPostgresStore(cfg *config.Config, dbpool *sql.DB) *PostgresStore {
	return &PostgresStore{
		cfg:    cfg,
		dbpool: dbpool,
	}
}

// EnsureSchema 建出审计日志表，给本地开发和 seed 工具使用
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		CREATE TABLE IF NOT EXISTS audit_log (
			id BIGSERIAL PRIMARY KEY,
			request_id TEXT NOT NULL,
			idempotency_key TEXT NOT NULL DEFAULT '',
			method TEXT NOT NULL,
			path TEXT NOT NULL,
			body JSONB,
			status_code INT NOT NULL,
			payload JSONB,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			outcome TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
	_, err := s.dbpool.ExecContext(ctx, query)
	return err
}

func (s *PostgresStore) Record(ctx context.Context, entry *domain.AuditEntry) error {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		INSERT INTO audit_log (request_id, idempotency_key, method, path, body, status_code, payload, duration_ms, outcome)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	var id int64
	if err := s.dbpool.QueryRowContext(ctx, query,
		entry.RequestID,
		entry.IdempotencyKey,
		entry.Method,
		entry.Path,
		[]byte(entry.Body),
		entry.StatusCode,
		[]byte(entry.Payload),
		entry.DurationMs,
		entry.Outcome,
	).Scan(&id, &entry.CreatedAt); err != nil {
		return err
	}

	entry.ID = strconv.FormatInt(id, 10)
	return nil
}

// Query 最新在前分页，游标是上一页最后一条记录的 id
func (s *PostgresStore) Query(ctx context.Context, limit int, cursor string) (*QueryPage, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if limit < 1 {
		limit = 20
	}

	query := `
		SELECT id, request_id, idempotency_key, method, path, body, status_code, payload, duration_ms, outcome, created_at
		FROM audit_log
		WHERE ($1 = 0 OR id < $1)
		ORDER BY id DESC
		LIMIT $2
	`

	var before int64
	if cursor != "" {
		parsed, err := strconv.ParseInt(cursor, 10, 64)
		if err == nil && parsed > 0 {
			before = parsed
		}
	}

	// 多取一条来判断是否还有下一页
	rows, err := s.dbpool.QueryContext(ctx, query, before, limit+1)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.AuditEntry, 0, limit)
	for rows.Next() {
		var id int64
		var body, payload []byte
		entry := domain.AuditEntry{}

		if err := rows.Scan(
			&id,
			&entry.RequestID,
			&entry.IdempotencyKey,
			&entry.Method,
			&entry.Path,
			&body,
			&entry.StatusCode,
			&payload,
			&entry.DurationMs,
			&entry.Outcome,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}

		entry.ID = strconv.FormatInt(id, 10)
		entry.Body = body
		entry.Payload = payload
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	page := &QueryPage{}
	if len(entries) > limit {
		entries = entries[:limit]
		page.NextCursor = entries[limit-1].ID
	}
	page.Entries = entries
	return page, nil
}
