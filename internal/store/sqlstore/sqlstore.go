// Package sqlstore persists documents, postings and ranks in PostgreSQL or
// SQLite. Posting lists are stored as one JSON value per word.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/document"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/errors"
)

// Dialect selects placeholder syntax and column types.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// ParseDialect maps a storage driver name to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch driver {
	case "postgres":
		return Postgres, nil
	case "sqlite":
		return SQLite, nil
	}
	return 0, fmt.Errorf("%w: unknown storage driver %q", apperrors.ErrInvalidInput, driver)
}

const maxInParams = 500

type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		logger:  slog.Default().With("component", "sqlstore"),
	}
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	schema := postgresSchema
	if s.dialect == SQLite {
		schema = sqliteSchema
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// SaveDocument upserts doc by ID. The stored rank is left unchanged.
func (s *Store) SaveDocument(ctx context.Context, doc document.Document) error {
	outlinks, err := encodeList(doc.Outlinks)
	if err != nil {
		return fmt.Errorf("encoding outlinks: %w", err)
	}
	words, err := encodeList(doc.Words)
	if err != nil {
		return fmt.Errorf("encoding words: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO documents (id, url, title, raw_content, token_count, outlinks, words)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			url = excluded.url,
			title = excluded.title,
			raw_content = excluded.raw_content,
			token_count = excluded.token_count,
			outlinks = excluded.outlinks,
			words = excluded.words,
			indexed_at = CURRENT_TIMESTAMP`),
		doc.ID, doc.URL, doc.Title, doc.RawContent, doc.TokenCount, outlinks, words,
	)
	if err != nil {
		return fmt.Errorf("saving document %s: %w", doc.ID, err)
	}
	return nil
}

// ListKnownDocuments returns every document without its raw content.
func (s *Store) ListKnownDocuments(ctx context.Context) ([]document.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, title, token_count, page_rank, outlinks FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []document.Document
	for rows.Next() {
		var (
			d     document.Document
			links []byte
		)
		if err := rows.Scan(&d.ID, &d.URL, &d.Title, &d.TokenCount, &d.Rank, &links); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if err := json.Unmarshal(links, &d.Outlinks); err != nil {
			return nil, fmt.Errorf("decoding outlinks of %s: %w", d.ID, err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *Store) GetPageWords(ctx context.Context, pageID string) ([]string, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT words FROM documents WHERE id = ?`), pageID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("words of %s: %w", pageID, apperrors.ErrDocumentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("words of %s: %w", pageID, err)
	}
	var words []string
	if err := json.Unmarshal(raw, &words); err != nil {
		return nil, fmt.Errorf("decoding words of %s: %w", pageID, err)
	}
	return words, nil
}

func (s *Store) GetDocumentContent(ctx context.Context, pageID string) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT raw_content FROM documents WHERE id = ?`), pageID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("content of %s: %w", pageID, apperrors.ErrDocumentNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("content of %s: %w", pageID, err)
	}
	return content, nil
}

func (s *Store) GetPageTokenCount(ctx context.Context, pageID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT token_count FROM documents WHERE id = ?`), pageID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("token count of %s: %w", pageID, apperrors.ErrDocumentNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("token count of %s: %w", pageID, err)
	}
	return n, nil
}

// GetPageStats returns the stats of the known pages among pageIDs.
func (s *Store) GetPageStats(ctx context.Context, pageIDs []string) (map[string]document.PageStats, error) {
	out := make(map[string]document.PageStats, len(pageIDs))
	for start := 0; start < len(pageIDs); start += maxInParams {
		chunk := pageIDs[start:min(start+maxInParams, len(pageIDs))]
		query := s.rebind(`SELECT id, url, title, token_count, page_rank FROM documents WHERE id IN (` + placeholders(len(chunk)) + `)`)
		rows, err := s.db.QueryContext(ctx, query, anySlice(chunk)...)
		if err != nil {
			return nil, fmt.Errorf("loading page stats: %w", err)
		}
		for rows.Next() {
			var st document.PageStats
			if err := rows.Scan(&st.ID, &st.URL, &st.Title, &st.TokenCount, &st.Rank); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning page stats: %w", err)
			}
			out[st.ID] = st
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("loading page stats: %w", err)
		}
	}
	return out, nil
}

func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// FindPostings returns the stored entries for the words that have one.
func (s *Store) FindPostings(ctx context.Context, words []string) ([]index.PostingEntry, error) {
	var out []index.PostingEntry
	for start := 0; start < len(words); start += maxInParams {
		chunk := words[start:min(start+maxInParams, len(words))]
		query := s.rebind(`SELECT word, page_count, pages FROM postings WHERE word IN (` + placeholders(len(chunk)) + `)`)
		rows, err := s.db.QueryContext(ctx, query, anySlice(chunk)...)
		if err != nil {
			return nil, fmt.Errorf("finding postings: %w", err)
		}
		for rows.Next() {
			var (
				e     index.PostingEntry
				pages []byte
			)
			if err := rows.Scan(&e.Word, &e.PageCount, &pages); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning posting: %w", err)
			}
			if err := json.Unmarshal(pages, &e.Pages); err != nil {
				rows.Close()
				return nil, fmt.Errorf("decoding postings of %q: %w", e.Word, err)
			}
			out = append(out, e)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("finding postings: %w", err)
		}
	}
	return out, nil
}

// MergePostings merges each word in its own transaction. The row is created
// empty if missing and then locked (FOR UPDATE on PostgreSQL; SQLite holds
// the write lock from the insert on), so concurrent merges of one word run
// one after the other. Words that fail are collected into a
// PartialWriteError; the others stay written.
func (s *Store) MergePostings(ctx context.Context, words []string, merge index.MergeFunc) (int, error) {
	var (
		failed  []string
		lastErr error
		written int
	)
	for _, w := range words {
		changed, err := s.mergeWord(ctx, w, merge)
		if err != nil {
			failed = append(failed, w)
			lastErr = err
			continue
		}
		if changed {
			written++
		}
	}
	if len(failed) > 0 {
		s.logger.Warn("posting merge incomplete",
			"attempted", len(words),
			"written", written,
			"failed", len(failed),
			"error", lastErr,
		)
		return written, &apperrors.PartialWriteError{
			Op:        "merge postings",
			Attempted: len(words),
			Succeeded: written,
			Failed:    failed,
			Cause:     lastErr,
		}
	}
	return written, nil
}

var errUnchanged = errors.New("posting unchanged")

func (s *Store) mergeWord(ctx context.Context, word string, merge index.MergeFunc) (bool, error) {
	lock := `SELECT page_count, pages FROM postings WHERE word = ?`
	if s.dialect == Postgres {
		lock += ` FOR UPDATE`
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO postings (word, page_count, pages) VALUES (?, 0, '[]')
			ON CONFLICT (word) DO NOTHING`), word); err != nil {
			return fmt.Errorf("reserving posting %q: %w", word, err)
		}
		var (
			count int
			raw   []byte
		)
		if err := tx.QueryRowContext(ctx, s.rebind(lock), word).Scan(&count, &raw); err != nil {
			return fmt.Errorf("locking posting %q: %w", word, err)
		}
		var stored *index.PostingEntry
		var pages []index.PageReference
		if err := json.Unmarshal(raw, &pages); err != nil {
			return fmt.Errorf("decoding postings of %q: %w", word, err)
		}
		if len(pages) > 0 {
			stored = &index.PostingEntry{Word: word, Pages: pages, PageCount: count}
		}

		next, changed := merge(word, stored)
		if !changed {
			return errUnchanged
		}
		if len(next.Pages) == 0 {
			if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM postings WHERE word = ?`), word); err != nil {
				return fmt.Errorf("deleting posting %q: %w", word, err)
			}
			return nil
		}
		encoded, err := json.Marshal(next.Pages)
		if err != nil {
			return fmt.Errorf("encoding postings of %q: %w", word, err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`UPDATE postings SET page_count = ?, pages = ? WHERE word = ?`),
			next.PageCount, string(encoded), word); err != nil {
			return fmt.Errorf("writing posting %q: %w", word, err)
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return false, nil
	}
	return err == nil, err
}

// WriteRanks updates every listed page in one transaction. Unknown IDs are
// ignored.
func (s *Store) WriteRanks(ctx context.Context, ranks map[string]float64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, s.rebind(`UPDATE documents SET page_rank = ? WHERE id = ?`))
		if err != nil {
			return fmt.Errorf("preparing rank update: %w", err)
		}
		defer stmt.Close()
		for id, r := range ranks {
			if _, err := stmt.ExecContext(ctx, r, id); err != nil {
				return fmt.Errorf("updating rank of %s: %w", id, err)
			}
		}
		return nil
	})
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
