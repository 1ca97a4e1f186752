package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/markdave123-py/vectordb/internal/config"
	"github.com/markdave123-py/vectordb/internal/core"
	"github.com/markdave123-py/vectordb/internal/logging"
	"github.com/markdave123-py/vectordb/internal/models"
)

var _ core.ChunkStore = (*DatabaseClient)(nil)

type DatabaseClient struct {
	db       *sql.DB
	rawTable string
	table    string
	dim      int
	timeout  time.Duration
	retry    core.RetryPolicy
	logger   *zap.Logger
}

// NewDatabaseClient prepares a connection pool. No connection is made until
// the first query; call Bootstrap to verify connectivity and the schema.
func NewDatabaseClient(cfg *config.Config, logger *zap.Logger) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database_url is empty")
	}
	if cfg.SslCertPath != "" {
		if _, err := os.Stat(cfg.SslCertPath); err != nil {
			return nil, fmt.Errorf("ssl cert not accessible at %q: %w", cfg.SslCertPath, err)
		}
	}

	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	return &DatabaseClient{
		db:       db,
		rawTable: cfg.TableName,
		table:    quoteIdent(cfg.TableName),
		dim:      cfg.EmbedDim,
		timeout:  cfg.DatabaseTimeout,
		retry: core.RetryPolicy{
			MaxRetries: cfg.DatabaseRetries,
			Delay:      500 * time.Millisecond,
			MaxDelay:   10 * time.Second,
		},
		logger: logging.OrNop(logger),
	}, nil
}

// Bootstrap pings the database and creates the schema if it is missing.
func (c *DatabaseClient) Bootstrap(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.db.PingContext(pingCtx); err != nil {
		return &core.StorageError{Op: "ping", Err: err}
	}
	if err := EnsureBootstrapped(ctx, c.db, c.rawTable, c.dim); err != nil {
		return &core.StorageError{Op: "bootstrap", Err: err}
	}
	c.logger.Debug("schema ready", zap.String("table", c.rawTable))
	return nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// withRetry runs fn with a per-attempt timeout, retrying transient errors.
func (c *DatabaseClient) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return core.Retry(ctx, c.retry, c.logger, op, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		err := fn(attemptCtx)
		if err != nil && isPermanent(err) {
			return core.Permanent(err)
		}
		return err
	})
}

// Store inserts every chunk of doc in one transaction.
func (c *DatabaseClient) Store(ctx context.Context, doc *models.Document) (bool, error) {
	rows, err := buildRows(doc)
	if err != nil {
		return false, &core.StorageError{Op: "store", Err: err}
	}

	var accepted int64
	err = c.withRetry(ctx, "store", func(ctx context.Context) error {
		n, err := c.insertRows(ctx, rows)
		if err != nil {
			return err
		}
		accepted = n
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return false, &core.StorageError{Op: "store", Err: fmt.Errorf("%w: %w", core.ErrDuplicate, err)}
		}
		return false, &core.StorageError{Op: "store", Err: err}
	}

	if accepted != int64(len(rows)) {
		c.logger.Warn("partial insert", zap.Int64("accepted", accepted), zap.Int("submitted", len(rows)))
		return false, nil
	}
	return true, nil
}

func (c *DatabaseClient) insertRows(ctx context.Context, rows []chunkRow) (int64, error) {
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, err
	}

	q := fmt.Sprintf(`
		INSERT INTO %s
			(document_id, filename, file_path, content_hash, chunk_index, content, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, c.table)
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	var total int64
	for i := range rows {
		r := &rows[i]
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			_ = tx.Rollback()
			return 0, core.Permanent(fmt.Errorf("encode metadata for chunk %d: %w", r.ChunkIndex, err))
		}
		var vec any
		if len(r.Embedding) > 0 {
			vec = pgvector.NewVector(r.Embedding)
		}

		res, err := stmt.ExecContext(ctx,
			r.DocumentID, r.Filename, r.FilePath, r.ContentHash, r.ChunkIndex, r.Content, vec, string(meta),
		)
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}

func (c *DatabaseClient) FindByHash(ctx context.Context, contentHash string) (*models.Document, error) {
	q := fmt.Sprintf(`
		SELECT document_id, filename, file_path, content_hash, chunk_index, content, embedding, metadata, created_at
		FROM %s
		WHERE content_hash = $1
		ORDER BY chunk_index ASC
	`, c.table)

	var rows []chunkRow
	err := c.withRetry(ctx, "find", func(ctx context.Context) error {
		rs, err := c.db.QueryContext(ctx, q, contentHash)
		if err != nil {
			return err
		}
		defer rs.Close()

		rows = rows[:0]
		for rs.Next() {
			var (
				r    chunkRow
				emb  *pgvector.Vector
				meta []byte
			)
			if err := rs.Scan(&r.DocumentID, &r.Filename, &r.FilePath, &r.ContentHash,
				&r.ChunkIndex, &r.Content, &emb, &meta, &r.CreatedAt); err != nil {
				return err
			}
			if emb != nil {
				r.Embedding = emb.Slice()
			}
			if r.Metadata, err = decodeMetadata(meta); err != nil {
				return core.Permanent(err)
			}
			rows = append(rows, r)
		}
		return rs.Err()
	})
	if err != nil {
		return nil, &core.StorageError{Op: "find", Err: err}
	}
	return documentFromRows(rows), nil
}

// HealthCheck runs a trivial query against the chunk table. An empty table
// is healthy.
func (c *DatabaseClient) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var id string
	err := c.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT id FROM %s LIMIT 1`, c.table)).Scan(&id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		c.logger.Debug("storage health check failed", zap.Error(err))
		return false
	}
	return true
}

// SearchChunks returns the chunks closest to query by cosine distance.
func (c *DatabaseClient) SearchChunks(ctx context.Context, query []float32, limit int) ([]models.SearchHit, error) {
	if len(query) == 0 {
		return nil, &core.StorageError{Op: "search", Err: errors.New("empty query vector")}
	}
	if limit <= 0 {
		limit = 5
	}
	q := fmt.Sprintf(`
		SELECT document_id, filename, file_path, content_hash, chunk_index, content, metadata,
		       embedding <=> $1 AS distance
		FROM %s
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2
	`, c.table)
	vec := pgvector.NewVector(query)

	var out []models.SearchHit
	err := c.withRetry(ctx, "search", func(ctx context.Context) error {
		rs, err := c.db.QueryContext(ctx, q, vec, limit)
		if err != nil {
			return err
		}
		defer rs.Close()

		out = out[:0]
		for rs.Next() {
			var (
				h    models.SearchHit
				meta []byte
			)
			if err := rs.Scan(&h.DocumentID, &h.Filename, &h.FilePath, &h.ContentHash,
				&h.ChunkIndex, &h.Content, &meta, &h.Distance); err != nil {
				return err
			}
			if h.Metadata, err = decodeMetadata(meta); err != nil {
				return core.Permanent(err)
			}
			out = append(out, h)
		}
		return rs.Err()
	})
	if err != nil {
		return nil, &core.StorageError{Op: "search", Err: err}
	}
	return out, nil
}

// ListDocuments groups rows by content hash, newest first. limit <= 0 lists all.
func (c *DatabaseClient) ListDocuments(ctx context.Context, limit, offset int) ([]models.DocumentSummary, error) {
	q := fmt.Sprintf(`
		SELECT content_hash, min(filename), min(file_path), count(*), min(created_at)
		FROM %s
		GROUP BY content_hash
		ORDER BY min(created_at) DESC, content_hash
		LIMIT $1 OFFSET $2
	`, c.table)

	var lim any
	if limit > 0 {
		lim = limit
	}
	if offset < 0 {
		offset = 0
	}

	var out []models.DocumentSummary
	err := c.withRetry(ctx, "list", func(ctx context.Context) error {
		rs, err := c.db.QueryContext(ctx, q, lim, offset)
		if err != nil {
			return err
		}
		defer rs.Close()

		out = out[:0]
		for rs.Next() {
			var (
				s       models.DocumentSummary
				created time.Time
			)
			if err := rs.Scan(&s.ContentHash, &s.Filename, &s.FilePath, &s.ChunkCount, &created); err != nil {
				return err
			}
			s.CreatedAt = &created
			out = append(out, s)
		}
		return rs.Err()
	})
	if err != nil {
		return nil, &core.StorageError{Op: "list", Err: err}
	}
	return out, nil
}

func (c *DatabaseClient) DeleteByHash(ctx context.Context, contentHash string) (int, error) {
	q := fmt.Sprintf(`DELETE FROM %s WHERE content_hash = $1`, c.table)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	res, err := c.db.ExecContext(ctx, q, contentHash)
	if err != nil {
		return 0, &core.StorageError{Op: "delete", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &core.StorageError{Op: "delete", Err: err}
	}
	return int(n), nil
}

func (c *DatabaseClient) Stats(ctx context.Context) (models.Stats, error) {
	q := fmt.Sprintf(`
		SELECT count(DISTINCT content_hash), count(*), pg_total_relation_size($1::regclass)
		FROM %s
	`, c.table)

	var st models.Stats
	err := c.withRetry(ctx, "stats", func(ctx context.Context) error {
		return c.db.QueryRowContext(ctx, q, c.table).Scan(&st.Documents, &st.Chunks, &st.TableSize)
	})
	if err != nil {
		return models.Stats{}, &core.StorageError{Op: "stats", Err: err}
	}
	return st, nil
}

func decodeMetadata(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isPermanent reports errors that a retry cannot fix: data exceptions (22),
// integrity violations (23) and syntax or access errors (42).
func isPermanent(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	for _, class := range []string{"22", "23", "42"} {
		if strings.HasPrefix(pgErr.Code, class) {
			return true
		}
	}
	return false
}
