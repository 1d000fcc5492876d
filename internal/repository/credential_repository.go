package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/workspace-auth/internal/domain"
)

const uniqueViolation = "23505"

// CredentialRepository defines persistence access for credential records.
// Every mutation of the secret or the active flag increments the revision.
type CredentialRepository interface {
	Create(ctx context.Context, record *domain.CredentialRecord) error
	GetByIdentifier(ctx context.Context, identifier string) (*domain.CredentialRecord, error)
	List(ctx context.Context) ([]*domain.CredentialRecord, error)
	UpdateSecret(ctx context.Context, identifier, secretHash string) (int64, error)
	SetActive(ctx context.Context, identifier string, active bool) (int64, error)
	TouchLastLogin(ctx context.Context, identifier string, at time.Time) error
}

type credentialRepository struct {
	pool *pgxpool.Pool
}

// NewCredentialRepository returns a Postgres-backed implementation.
func NewCredentialRepository(pool *pgxpool.Pool) CredentialRepository {
	return &credentialRepository{pool: pool}
}

const credentialColumns = `id, identifier, email, secret_hash, active, privilege, revision, last_login_at, created_at, updated_at`

func (r *credentialRepository) Create(ctx context.Context, record *domain.CredentialRecord) error {
	const query = `
        INSERT INTO credentials (identifier, email, secret_hash, active, privilege)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, revision, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		record.Identifier,
		record.Email,
		record.SecretHash,
		record.Active,
		record.Privilege,
	).Scan(&record.ID, &record.Revision, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrIdentifierTaken
		}
		return err
	}
	return nil
}

func (r *credentialRepository) GetByIdentifier(ctx context.Context, identifier string) (*domain.CredentialRecord, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE identifier=$1`

	record, err := scanCredential(r.pool.QueryRow(ctx, query, identifier))
	if err != nil {
		return nil, notFound(err)
	}
	return record, nil
}

func (r *credentialRepository) List(ctx context.Context) ([]*domain.CredentialRecord, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials ORDER BY identifier`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.CredentialRecord
	for rows.Next() {
		record, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *credentialRepository) UpdateSecret(ctx context.Context, identifier, secretHash string) (int64, error) {
	const query = `
        UPDATE credentials SET secret_hash=$1, revision=revision+1, updated_at=NOW()
        WHERE identifier=$2
        RETURNING revision`

	var revision int64
	if err := r.pool.QueryRow(ctx, query, secretHash, identifier).Scan(&revision); err != nil {
		return 0, notFound(err)
	}
	return revision, nil
}

func (r *credentialRepository) SetActive(ctx context.Context, identifier string, active bool) (int64, error) {
	const query = `
        UPDATE credentials
        SET revision = revision + CASE WHEN active <> $1 THEN 1 ELSE 0 END,
            active=$1, updated_at=NOW()
        WHERE identifier=$2
        RETURNING revision`

	var revision int64
	if err := r.pool.QueryRow(ctx, query, active, identifier).Scan(&revision); err != nil {
		return 0, notFound(err)
	}
	return revision, nil
}

func (r *credentialRepository) TouchLastLogin(ctx context.Context, identifier string, at time.Time) error {
	const query = `
        UPDATE credentials SET last_login_at=$1
        WHERE identifier=$2`

	cmd, err := r.pool.Exec(ctx, query, at, identifier)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrCredentialNotFound
	}
	return nil
}

func scanCredential(row pgx.Row) (*domain.CredentialRecord, error) {
	var record domain.CredentialRecord
	if err := row.Scan(
		&record.ID,
		&record.Identifier,
		&record.Email,
		&record.SecretHash,
		&record.Active,
		&record.Privilege,
		&record.Revision,
		&record.LastLoginAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &record, nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrCredentialNotFound
	}
	return err
}
