package document

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/resilience"
)

// Source produces the full document set.
type Source interface {
	Load(ctx context.Context) ([]Document, error)
	Name() string
}

var (
	_ Source = (*FileSource)(nil)
	_ Source = (*PostgresSource)(nil)
)

// maxLineBytes bounds a single NDJSON record.
const maxLineBytes = 4 << 20

// FileSource reads newline-delimited JSON, one Document per non-blank line.
type FileSource struct {
	Path string
	// SkipMalformed drops undecodable lines with a warning instead of
	// failing the whole load.
	SkipMalformed bool
	logger        *slog.Logger
}

// NewFileSource creates a FileSource for path.
func NewFileSource(path string, skipMalformed bool) *FileSource {
	return &FileSource{
		Path:          path,
		SkipMalformed: skipMalformed,
		logger:        slog.Default().With("component", "file-source", "path", path),
	}
}

func (f *FileSource) Name() string { return "file:" + f.Path }

func (f *FileSource) Load(ctx context.Context) ([]Document, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", f.Path, err)
	}
	defer file.Close()

	var docs []Document
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%1000 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var doc Document
		if err := json.Unmarshal(line, &doc); err != nil {
			if f.SkipMalformed {
				f.logger.Warn("skipping malformed line", "line", lineNo, "error", err)
				continue
			}
			return nil, fmt.Errorf("%s line %d: %w", f.Path, lineNo, err)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Path, err)
	}
	return docs, nil
}

// PostgresSource reads documents from a table with the same columns as the
// NDJSON records. tags is a text[] column.
type PostgresSource struct {
	db    *sql.DB
	table string
	retry resilience.RetryConfig
}

// NewPostgresSource reads from table through db. Transient errors are
// retried with backoff.
func NewPostgresSource(db *sql.DB, table string) *PostgresSource {
	return &PostgresSource{db: db, table: table}
}

func (p *PostgresSource) Name() string { return "postgres:" + p.table }

func (p *PostgresSource) Load(ctx context.Context) ([]Document, error) {
	var docs []Document
	err := resilience.Retry(ctx, "load-documents", p.retry, func(ctx context.Context) error {
		var err error
		docs, err = p.query(ctx)
		return err
	})
	return docs, err
}

func (p *PostgresSource) query(ctx context.Context) ([]Document, error) {
	q := fmt.Sprintf(`SELECT id, company_id, section_type, language, text,
		tags, source_type, source_url, created_at
		FROM %s ORDER BY ordinal`, pq.QuoteIdentifier(p.table))
	rows, err := p.db.QueryContext(ctx, q)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Class() == "42" {
			// Syntax or undefined object: retrying will not help.
			return nil, resilience.Permanent(fmt.Errorf("querying %s: %w", p.table, err))
		}
		return nil, fmt.Errorf("querying %s: %w", p.table, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			d                                Document
			text                             sql.NullString
			tags                             pq.StringArray
			sourceType, sourceURL, createdAt sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.CompanyID, &d.SectionType, &d.Language, &text,
			&tags, &sourceType, &sourceURL, &createdAt); err != nil {
			return nil, resilience.Permanent(fmt.Errorf("scanning %s row: %w", p.table, err))
		}
		d.Text = text.String
		if tags != nil {
			d.Tags = []string(tags)
		}
		d.SourceType = nullable(sourceType)
		d.SourceURL = nullable(sourceURL)
		d.CreatedAt = nullable(createdAt)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", p.table, err)
	}
	return docs, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
