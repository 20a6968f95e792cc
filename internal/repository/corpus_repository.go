package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CorpusRepository stores chunked knowledge-base and FAQ files.
type CorpusRepository interface {
	// ReplaceFile swaps every chunk of filename for the given chunks.
	ReplaceFile(ctx context.Context, corpus domain.Corpus, filename string, chunks []string) error
	// DeleteFile removes a file's chunks, returning ErrNotFound if none existed.
	DeleteFile(ctx context.Context, corpus domain.Corpus, filename string) error
	ListFilenames(ctx context.Context, corpus domain.Corpus) ([]string, error)
	ListChunks(ctx context.Context, corpus domain.Corpus) ([]domain.Chunk, error)
}

type corpusRepository struct {
	pool *pgxpool.Pool
}

// NewCorpusRepository builds repository.
func NewCorpusRepository(pool *pgxpool.Pool) CorpusRepository {
	return &corpusRepository{pool: pool}
}

func (r *corpusRepository) ReplaceFile(ctx context.Context, corpus domain.Corpus, filename string, chunks []string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM corpus_chunks WHERE corpus=$1 AND filename=$2`, corpus, filename); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for i, content := range chunks {
			batch.Queue(`INSERT INTO corpus_chunks (corpus, filename, seq, content) VALUES ($1,$2,$3,$4)`,
				corpus, filename, i, content)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (r *corpusRepository) DeleteFile(ctx context.Context, corpus domain.Corpus, filename string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM corpus_chunks WHERE corpus=$1 AND filename=$2`, corpus, filename)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *corpusRepository) ListFilenames(ctx context.Context, corpus domain.Corpus) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT filename FROM corpus_chunks WHERE corpus=$1 ORDER BY filename`, corpus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *corpusRepository) ListChunks(ctx context.Context, corpus domain.Corpus) ([]domain.Chunk, error) {
	const query = `
        SELECT corpus, filename, seq, content
        FROM corpus_chunks WHERE corpus=$1 ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, query, corpus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chunks := []domain.Chunk{}
	for rows.Next() {
		var chunk domain.Chunk
		if err := rows.Scan(&chunk.Corpus, &chunk.Filename, &chunk.Seq, &chunk.Content); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}
