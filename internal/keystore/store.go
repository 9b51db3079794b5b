// Package keystore persists credentials and moderation strikes in an
// embedded SQLite database. Records are soft-deleted: revocation flips a
// flag but the row stays for audit, and its name can never be reused.
package keystore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/anticlanker/anticlanker/internal/model"
)

// Store manages the service's credential state backed by SQLite. A single
// open connection serializes every read-modify-write sequence, so two
// concurrent creates for the same name cannot both succeed and a revoke is
// fully visible before it is acknowledged.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a new credential store. Pass empty string for in-memory.
func NewStore(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == "" {
		dsn = ":memory:?_journal_mode=WAL"
	} else {
		if err := os.MkdirAll(dataDir, 0700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "anticlanker.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open credential database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate credential database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Credentials
// ---------------------------------------------------------------------------

// credentialRow is a flat struct that maps 1:1 to the credentials table.
// The projects_json column stores the JSON-encoded project scope.
type credentialRow struct {
	ID           int64      `db:"id"`
	Name         string     `db:"name"`
	SecretHash   string     `db:"secret_hash"`
	Role         string     `db:"role"`
	ProjectsJSON string     `db:"projects_json"`
	Notes        string     `db:"notes"`
	Revoked      bool       `db:"revoked"`
	CreatedAt    time.Time  `db:"created_at"`
	LastUsed     *time.Time `db:"last_used"`
}

func credentialRowFromModel(c *model.Credential) (credentialRow, error) {
	projects := c.Projects
	if projects == nil {
		projects = model.Projects{}
	}
	projectsJSON, err := json.Marshal(projects)
	if err != nil {
		return credentialRow{}, fmt.Errorf("marshal projects: %w", err)
	}
	return credentialRow{
		ID:           c.ID,
		Name:         c.Name,
		SecretHash:   c.SecretHash,
		Role:         c.Role,
		ProjectsJSON: string(projectsJSON),
		Notes:        c.Notes,
		Revoked:      c.Revoked,
		CreatedAt:    c.CreatedAt,
		LastUsed:     c.LastUsed,
	}, nil
}

func (r credentialRow) toModel() (model.Credential, error) {
	var projects model.Projects
	if r.ProjectsJSON != "" && r.ProjectsJSON != "[]" {
		if err := json.Unmarshal([]byte(r.ProjectsJSON), &projects); err != nil {
			return model.Credential{}, fmt.Errorf("unmarshal projects: %w", err)
		}
	}
	return model.Credential{
		ID:         r.ID,
		Name:       r.Name,
		SecretHash: r.SecretHash,
		Role:       r.Role,
		Projects:   projects,
		Notes:      r.Notes,
		Revoked:    r.Revoked,
		CreatedAt:  r.CreatedAt,
		LastUsed:   r.LastUsed,
	}, nil
}

// CreateCredential inserts a new credential record. The secret_hash must
// already be set by the caller. Returns ErrDuplicateName when the name was
// ever used before, including for since-revoked credentials.
func (s *Store) CreateCredential(ctx context.Context, cred *model.Credential) error {
	cred.CreatedAt = time.Now().UTC()

	row, err := credentialRowFromModel(cred)
	if err != nil {
		return err
	}

	const q = `INSERT INTO credentials
		(name, secret_hash, role, projects_json, notes, revoked, created_at)
		VALUES
		(:name, :secret_hash, :role, :projects_json, :notes, :revoked, :created_at)`

	result, err := s.db.NamedExecContext(ctx, q, row)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrDuplicateName
		}
		return fmt.Errorf("insert credential: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get credential id: %w", err)
	}
	cred.ID = id
	return nil
}

// GetCredentialByName returns a credential by its unique name, revoked or
// not. Names are case-sensitive.
func (s *Store) GetCredentialByName(ctx context.Context, name string) (*model.Credential, error) {
	var row credentialRow
	if err := s.db.GetContext(ctx, &row, "SELECT * FROM credentials WHERE name = ?", name); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get credential by name: %w", err)
	}
	cred, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// ListCredentials returns all credential records, newest first.
func (s *Store) ListCredentials(ctx context.Context) ([]model.Credential, error) {
	var rows []credentialRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM credentials ORDER BY created_at DESC, id DESC"); err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}

	creds := make([]model.Credential, 0, len(rows))
	for _, r := range rows {
		c, err := r.toModel()
		if err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}
	return creds, nil
}

// RevokeCredential marks a credential as revoked by name. Revocation is a
// one-way transition: revoking an unknown or already-revoked name returns
// ErrNotFound rather than succeeding silently.
func (s *Store) RevokeCredential(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE credentials SET revoked = 1 WHERE name = ? AND revoked = 0", name)
	if err != nil {
		return fmt.Errorf("revoke credential: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke credential rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchCredential sets the last_used timestamp for a credential.
func (s *Store) TouchCredential(ctx context.Context, name string) error {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		"UPDATE credentials SET last_used = ? WHERE name = ?", now, name)
	if err != nil {
		return fmt.Errorf("update credential last used: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update credential last used rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Admin credential
// ---------------------------------------------------------------------------

// SetAdminCredential installs or replaces the single admin credential. This
// happens only through the CLI, never over HTTP.
func (s *Store) SetAdminCredential(ctx context.Context, admin *model.AdminCredential) error {
	admin.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO admin_credential (id, name, secret_hash, created_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, secret_hash = excluded.secret_hash, created_at = excluded.created_at`,
		admin.Name, admin.SecretHash, admin.CreatedAt)
	if err != nil {
		return fmt.Errorf("set admin credential: %w", err)
	}
	return nil
}

// GetAdminCredential returns the admin credential, or ErrNotFound if the
// store was never bootstrapped.
func (s *Store) GetAdminCredential(ctx context.Context) (*model.AdminCredential, error) {
	var admin model.AdminCredential
	const q = "SELECT name, secret_hash, created_at FROM admin_credential WHERE id = 1"
	if err := s.db.GetContext(ctx, &admin, q); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin credential: %w", err)
	}
	return &admin, nil
}

// ---------------------------------------------------------------------------
// Strikes
// ---------------------------------------------------------------------------

// AddStrike increments the strike count for a user and returns the new
// total.
func (s *Store) AddStrike(ctx context.Context, userID string) (int, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO strikes (user_id, count, updated_at) VALUES (?, 1, ?)
		 ON CONFLICT(user_id) DO UPDATE SET count = count + 1, updated_at = excluded.updated_at`,
		userID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("add strike: %w", err)
	}
	return s.GetStrikes(ctx, userID)
}

// GetStrikes returns the strike count for a user, zero if none recorded.
func (s *Store) GetStrikes(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT count FROM strikes WHERE user_id = ?", userID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get strikes: %w", err)
	}
	return count, nil
}

// ClearStrikes removes the strike record for a user.
func (s *Store) ClearStrikes(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM strikes WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("clear strikes: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Integrity
// ---------------------------------------------------------------------------

// CheckIntegrity runs check against every stored digest, admin credential
// included. Any structural error is fatal to the caller: a corrupt record
// must stop startup rather than be silently dropped.
func (s *Store) CheckIntegrity(ctx context.Context, check func(digest string) error) error {
	creds, err := s.ListCredentials(ctx)
	if err != nil {
		return err
	}
	for _, c := range creds {
		if err := check(c.SecretHash); err != nil {
			return fmt.Errorf("credential %q: %w", c.Name, err)
		}
	}

	admin, err := s.GetAdminCredential(ctx)
	if err == ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	if err := check(admin.SecretHash); err != nil {
		return fmt.Errorf("admin credential: %w", err)
	}
	return nil
}
