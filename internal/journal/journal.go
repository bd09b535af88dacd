package journal

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var ErrSubmissionNotFound = errors.New("submission not found")

type Status string

const (
	StatusAccepted Status = "accepted"
	StatusFailed   Status = "failed"
)

// Submission is one checkout attempt. DisplayTotal is the cart total shown at the
// terminal; the backend's own total is authoritative.
type Submission struct {
	ID           string
	SessionID    string
	TerminalID   string
	Payload      json.RawMessage
	DisplayTotal decimal.Decimal
	Status       Status
	OrderID      string
	Error        string
	Published    bool
	CreatedAt    time.Time
}

type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite has a single writer, and ":memory:" is per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db, now: time.Now}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	return up(m)
}

// RunEmbeddedMigrations applies the migrations compiled into the binary.
func (r *Repository) RunEmbeddedMigrations() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	return up(m)
}

func up(m *migrate.Migrate) error {
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

// Record stores a checkout attempt. ID and CreatedAt are assigned when empty.
func (r *Repository) Record(ctx context.Context, s Submission) (Submission, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.now()
	}
	if len(s.Payload) == 0 {
		s.Payload = json.RawMessage("{}")
	}

	query := `
		INSERT INTO submissions (id, session_id, terminal_id, payload, display_total, status, order_id, error, published, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.SessionID,
		s.TerminalID,
		string(s.Payload),
		s.DisplayTotal.String(),
		string(s.Status),
		s.OrderID,
		s.Error,
		s.Published,
		s.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return Submission{}, fmt.Errorf("failed to insert submission: %w", err)
	}
	s.CreatedAt = time.UnixMilli(s.CreatedAt.UnixMilli())
	return s, nil
}

// Recent returns the latest attempts, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Submission, error) {
	query := `
		SELECT id, session_id, terminal_id, payload, display_total, status, order_id, error, published, created_at
		FROM submissions
		ORDER BY created_at DESC, rowid DESC
		LIMIT $1
	`
	return r.query(ctx, query, limit)
}

// Unpublished returns accepted submissions whose order event has not been sent yet,
// oldest first.
func (r *Repository) Unpublished(ctx context.Context, limit int) ([]Submission, error) {
	query := `
		SELECT id, session_id, terminal_id, payload, display_total, status, order_id, error, published, created_at
		FROM submissions
		WHERE status = $1 AND published = 0
		ORDER BY created_at, rowid
		LIMIT $2
	`
	return r.query(ctx, query, string(StatusAccepted), limit)
}

func (r *Repository) MarkPublished(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE submissions SET published = 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark submission %s published: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrSubmissionNotFound
	}
	return nil
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]Submission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	submissions := make([]Submission, 0)
	for rows.Next() {
		var (
			s         Submission
			payload   string
			total     string
			status    string
			createdAt int64
		)
		err := rows.Scan(
			&s.ID,
			&s.SessionID,
			&s.TerminalID,
			&payload,
			&total,
			&status,
			&s.OrderID,
			&s.Error,
			&s.Published,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		s.Payload = json.RawMessage(payload)
		s.Status = Status(status)
		s.CreatedAt = time.UnixMilli(createdAt)
		if s.DisplayTotal, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("submission %s has invalid total %q: %w", s.ID, total, err)
		}
		submissions = append(submissions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return submissions, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
