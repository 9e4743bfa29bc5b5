package records

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/msrishav-28/Living-Heirloom/internal/vault"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initRecordSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initRecordSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS voice_models (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			origin TEXT NOT NULL,
			quality TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			sample_refs TEXT[] NOT NULL DEFAULT '{}'
		);`,
		`CREATE TABLE IF NOT EXISTS content_records (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			ciphertext TEXT NOT NULL DEFAULT '',
			salt TEXT NOT NULL DEFAULT '',
			iv TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_content_records_created ON content_records (created_at DESC);`,
		`CREATE TABLE IF NOT EXISTS sample_blobs (
			ref TEXT PRIMARY KEY,
			ciphertext TEXT NOT NULL,
			salt TEXT NOT NULL,
			iv TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init record schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveVoiceModel(ctx context.Context, model VoiceModel) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO voice_models (id, name, origin, quality, is_active, created_at, sample_refs)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (id) DO UPDATE SET
			name=EXCLUDED.name,
			origin=EXCLUDED.origin,
			quality=EXCLUDED.quality,
			is_active=EXCLUDED.is_active,
			created_at=EXCLUDED.created_at,
			sample_refs=EXCLUDED.sample_refs`,
		model.ID, model.Name, string(model.Origin), string(model.Quality),
		model.IsActive, model.CreatedAt, model.SampleRefs,
	)
	if err != nil {
		return fmt.Errorf("upsert voice model: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetVoiceModel(ctx context.Context, id string) (VoiceModel, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, origin, quality, is_active, created_at, sample_refs
		   FROM voice_models WHERE id=$1`, id)
	model, err := scanVoiceModel(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return VoiceModel{}, ErrNotFound
		}
		return VoiceModel{}, fmt.Errorf("get voice model: %w", err)
	}
	return model, nil
}

func (s *PostgresStore) ListVoiceModels(ctx context.Context) ([]VoiceModel, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, origin, quality, is_active, created_at, sample_refs
		   FROM voice_models ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list voice models: %w", err)
	}
	defer rows.Close()

	var out []VoiceModel
	for rows.Next() {
		model, err := scanVoiceModel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan voice model: %w", err)
		}
		out = append(out, model)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voice models: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SetActiveVoiceModel(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `UPDATE voice_models SET is_active = (id=$1)`, id)
	if err != nil {
		return fmt.Errorf("set active voice model: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM voice_models WHERE id=$1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check voice model: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteVoiceModel(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM voice_models WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete voice model: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SaveContent(ctx context.Context, record ContentRecord) error {
	var ciphertext, salt, iv string
	if record.Encrypted != nil {
		ciphertext = record.Encrypted.Ciphertext
		salt = record.Encrypted.Salt
		iv = record.Encrypted.IV
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO content_records (id, session_id, title, body, ciphertext, salt, iv, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (id) DO UPDATE SET
			session_id=EXCLUDED.session_id,
			title=EXCLUDED.title,
			body=EXCLUDED.body,
			ciphertext=EXCLUDED.ciphertext,
			salt=EXCLUDED.salt,
			iv=EXCLUDED.iv,
			created_at=EXCLUDED.created_at`,
		record.ID, record.SessionID, record.Title, record.Body,
		ciphertext, salt, iv, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert content record: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetContent(ctx context.Context, id string) (ContentRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, session_id, title, body, ciphertext, salt, iv, created_at
		   FROM content_records WHERE id=$1`, id)
	record, err := scanContentRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ContentRecord{}, ErrNotFound
		}
		return ContentRecord{}, fmt.Errorf("get content record: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) ListContent(ctx context.Context) ([]ContentRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, title, body, ciphertext, salt, iv, created_at
		   FROM content_records ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list content records: %w", err)
	}
	defer rows.Close()

	var out []ContentRecord
	for rows.Next() {
		record, err := scanContentRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content record: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content records: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SaveSampleBlob(ctx context.Context, ref string, blob vault.EncryptedBlob) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sample_blobs (ref, ciphertext, salt, iv)
		 VALUES ($1,$2,$3,$4)
		 ON CONFLICT (ref) DO UPDATE SET
			ciphertext=EXCLUDED.ciphertext,
			salt=EXCLUDED.salt,
			iv=EXCLUDED.iv`,
		ref, blob.Ciphertext, blob.Salt, blob.IV,
	)
	if err != nil {
		return fmt.Errorf("upsert sample blob: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSampleBlob(ctx context.Context, ref string) (vault.EncryptedBlob, error) {
	var blob vault.EncryptedBlob
	err := s.pool.QueryRow(ctx,
		`SELECT ciphertext, salt, iv FROM sample_blobs WHERE ref=$1`, ref,
	).Scan(&blob.Ciphertext, &blob.Salt, &blob.IV)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return vault.EncryptedBlob{}, ErrNotFound
		}
		return vault.EncryptedBlob{}, fmt.Errorf("get sample blob: %w", err)
	}
	return blob, nil
}

func (s *PostgresStore) DeleteSampleBlob(ctx context.Context, ref string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sample_blobs WHERE ref=$1`, ref); err != nil {
		return fmt.Errorf("delete sample blob: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

type pgScanner interface {
	Scan(dest ...any) error
}

func scanVoiceModel(row pgScanner) (VoiceModel, error) {
	var (
		model   VoiceModel
		origin  string
		quality string
	)
	if err := row.Scan(&model.ID, &model.Name, &origin, &quality,
		&model.IsActive, &model.CreatedAt, &model.SampleRefs); err != nil {
		return VoiceModel{}, err
	}
	model.Origin = VoiceOrigin(origin)
	model.Quality = VoiceQuality(quality)
	return model, nil
}

func scanContentRecord(row pgScanner) (ContentRecord, error) {
	var (
		record     ContentRecord
		ciphertext string
		salt       string
		iv         string
	)
	if err := row.Scan(&record.ID, &record.SessionID, &record.Title, &record.Body,
		&ciphertext, &salt, &iv, &record.CreatedAt); err != nil {
		return ContentRecord{}, err
	}
	if ciphertext != "" {
		record.Encrypted = &vault.EncryptedBlob{Ciphertext: ciphertext, Salt: salt, IV: iv}
	}
	return record, nil
}
