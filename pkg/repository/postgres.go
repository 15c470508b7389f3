package repository

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

//go:embed schema/postgres.sql
var postgresSchema string

// PostgresConfig holds connection settings for a Postgres (Supabase) store
type PostgresConfig struct {
	// DSN in PostgreSQL URL format, e.g. the Supabase direct connection string
	DSN string

	// ServiceKey overrides the password in DSN when set
	ServiceKey string
}

// Postgres implements Repository on PostgreSQL with the pgvector extension.
// Nearest-neighbour search goes through the match_ai_documents function.
type Postgres struct {
	pool *pgxpool.Pool
}

func (c PostgresConfig) parse() (*pgxpool.Config, error) {
	if c.DSN == "" {
		return nil, goerr.New("postgres DSN is required")
	}

	poolConfig, err := pgxpool.ParseConfig(c.DSN)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse postgres DSN")
	}
	if c.ServiceKey != "" {
		poolConfig.ConnConfig.Password = c.ServiceKey
	}
	return poolConfig, nil
}

// MigratePostgres creates the vector extension, tables and the search
// function if they do not exist
func MigratePostgres(ctx context.Context, cfg PostgresConfig) error {
	poolConfig, err := cfg.parse()
	if err != nil {
		return err
	}

	conn, err := pgx.ConnectConfig(ctx, poolConfig.ConnConfig)
	if err != nil {
		return goerr.Wrap(err, "failed to connect postgres")
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, postgresSchema); err != nil {
		return goerr.Wrap(err, "failed to apply schema")
	}
	return nil
}

// NewPostgres opens a connection pool. The vector extension must already be
// installed, see MigratePostgres.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	poolConfig, err := cfg.parse()
	if err != nil {
		return nil, err
	}

	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, goerr.Wrap(err, "failed to connect postgres")
	}

	return &Postgres{pool: pool}, nil
}

func (r *Postgres) ListUnembeddedPlans(ctx context.Context, userID model.UserID) ([]*model.SourceDocument, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, COALESCE(title, ''), COALESCE(description, ''), COALESCE(content, ''),
		       COALESCE(plan_text, ''), generated_at
		FROM plans
		WHERE user_id = $1 AND is_embedded = false
		ORDER BY id`, string(userID))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query plans", goerr.V("user_id", userID))
	}
	defer rows.Close()

	var docs []*model.SourceDocument
	for rows.Next() {
		doc := &model.SourceDocument{Kind: model.DocumentKindPlan}
		var id, uid string
		if err := rows.Scan(&id, &uid, &doc.Title, &doc.Description, &doc.Content, &doc.PlanText, &doc.GeneratedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan plan")
		}
		doc.ID = model.DocumentID(id)
		doc.UserID = model.UserID(uid)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate plans")
	}
	return docs, nil
}

func (r *Postgres) ListUnembeddedEntries(ctx context.Context, userID model.UserID) ([]*model.SourceDocument, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, COALESCE(name, ''), COALESCE(description, ''), COALESCE(notes, ''),
		       COALESCE(content, ''), COALESCE(type, ''), "timestamp"
		FROM entries
		WHERE user_id = $1 AND is_embedded = false
		ORDER BY id`, string(userID))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query entries", goerr.V("user_id", userID))
	}
	defer rows.Close()

	var docs []*model.SourceDocument
	for rows.Next() {
		doc := &model.SourceDocument{Kind: model.DocumentKindEntry}
		var id, uid string
		if err := rows.Scan(&id, &uid, &doc.Name, &doc.Description, &doc.Notes, &doc.Content, &doc.EntryType, &doc.Timestamp); err != nil {
			return nil, goerr.Wrap(err, "failed to scan entry")
		}
		doc.ID = model.DocumentID(id)
		doc.UserID = model.UserID(uid)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate entries")
	}
	return docs, nil
}

func (r *Postgres) MarkEmbedded(ctx context.Context, kind model.DocumentKind, id model.DocumentID) error {
	// table name comes from a closed set, never from input
	sql := fmt.Sprintf(`UPDATE %s SET is_embedded = true WHERE id = $1`, collectionOf(kind))

	tag, err := r.pool.Exec(ctx, sql, string(id))
	if err != nil {
		return goerr.Wrap(err, "failed to mark document embedded", goerr.V("kind", kind), goerr.V("id", id))
	}
	if tag.RowsAffected() == 0 {
		return goerr.Wrap(model.ErrNotFound, "source document not found", goerr.V("kind", kind), goerr.V("id", id))
	}
	return nil
}

func (r *Postgres) PutVectorRecord(ctx context.Context, record *model.VectorRecord) error {
	if record.ID == "" {
		record.ID = model.NewVectorRecordID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal metadata", goerr.V("id", record.ID))
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO ai_documents (id, user_id, type, content, vector, embedding_model, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(record.ID),
		string(record.UserID),
		record.Type,
		record.Content,
		pgvector.NewVector(record.Vector),
		record.EmbeddingModel,
		metadata,
		record.CreatedAt,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to insert vector record",
			goerr.V("id", record.ID), goerr.V("source_id", record.Metadata.SourceID))
	}
	return nil
}

func (r *Postgres) GetUserGoal(ctx context.Context, userID model.UserID) (string, error) {
	var goal string
	err := r.pool.QueryRow(ctx, `SELECT goal FROM profiles WHERE id = $1`, string(userID)).Scan(&goal)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", goerr.Wrap(model.ErrNotFound, "user not found", goerr.V("user_id", userID))
	}
	if err != nil {
		return "", goerr.Wrap(err, "failed to get user goal", goerr.V("user_id", userID))
	}
	return goal, nil
}

func (r *Postgres) SearchVectorRecords(ctx context.Context, userID model.UserID, vector model.Embedding, limit int) ([]*model.RagContextDocument, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT content, metadata, similarity FROM match_ai_documents($1, $2, $3)`,
		string(userID),
		pgvector.NewVector(vector),
		limit,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call match_ai_documents", goerr.V("user_id", userID))
	}
	defer rows.Close()

	results := make([]*model.RagContextDocument, 0, limit)
	for rows.Next() {
		var (
			doc          model.RagContextDocument
			metadataJSON []byte
			meta         model.VectorMetadata
		)
		if err := rows.Scan(&doc.Content, &metadataJSON, &doc.Similarity); err != nil {
			return nil, goerr.Wrap(err, "failed to scan search result")
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &meta); err != nil {
				return nil, goerr.Wrap(err, "failed to parse metadata")
			}
		}
		doc.Metadata = contextMetadata(meta)
		results = append(results, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate search results")
	}
	return results, nil
}

func (r *Postgres) PutPlan(ctx context.Context, plan *model.SourceDocument) error {
	if plan.ID == "" {
		plan.ID = model.NewDocumentID()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO plans (id, user_id, title, description, content, plan_text, generated_at, is_embedded)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(plan.ID),
		string(plan.UserID),
		plan.Title,
		plan.Description,
		plan.Content,
		plan.PlanText,
		plan.GeneratedAt,
		plan.IsEmbedded,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to insert plan", goerr.V("id", plan.ID))
	}
	return nil
}

func (r *Postgres) PutEntry(ctx context.Context, entry *model.SourceDocument) error {
	if entry.ID == "" {
		entry.ID = model.NewDocumentID()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO entries (id, user_id, name, description, notes, content, type, "timestamp", is_embedded)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(entry.ID),
		string(entry.UserID),
		entry.Name,
		entry.Description,
		entry.Notes,
		entry.Content,
		entry.EntryType,
		entry.Timestamp,
		entry.IsEmbedded,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to insert entry", goerr.V("id", entry.ID))
	}
	return nil
}

func (r *Postgres) PutUserGoal(ctx context.Context, userID model.UserID, goal string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO profiles (id, goal) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET goal = EXCLUDED.goal`,
		string(userID), goal)
	if err != nil {
		return goerr.Wrap(err, "failed to put user goal", goerr.V("user_id", userID))
	}
	return nil
}

func (r *Postgres) Close() error {
	r.pool.Close()
	return nil
}
