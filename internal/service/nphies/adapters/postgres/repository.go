package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/pkg/errors"

	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/ledger"
)

type queryable interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const sqlFlavor = sqlbuilder.PostgreSQL

var columns = []string{
	"id", "kind", "correlation_id", "payer_code", "member_id", "bundle_id",
	"status", "errors", "response", "created_at", "updated_at",
}

// Ensure Repository satisfies the interface
var _ ledger.Repository = &Repository{}

type Repository struct {
	queryable
	now func() time.Time
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{queryable: db, now: time.Now}
}

func NewRepositoryTx(tx *sql.Tx) *Repository {
	return &Repository{queryable: tx, now: time.Now}
}

// Save upserts on the business id. created_at of an existing row is kept.
func (r *Repository) Save(ctx context.Context, s ledger.Submission) (ledger.Submission, error) {
	if s.ID == "" {
		return ledger.Submission{}, errors.New("submission id is required")
	}

	errs, err := json.Marshal(nonNil(s.Errors))
	if err != nil {
		return ledger.Submission{}, errors.Wrap(err, "encode submission errors")
	}
	now := r.now().UTC()

	query, args := sqlbuilder.Buildf(`INSERT INTO submissions
		(id, kind, correlation_id, payer_code, member_id, bundle_id,
			status, errors, response, created_at, updated_at) VALUES
		(%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind, correlation_id = EXCLUDED.correlation_id,
			payer_code = EXCLUDED.payer_code, member_id = EXCLUDED.member_id,
			bundle_id = EXCLUDED.bundle_id, status = EXCLUDED.status,
			errors = EXCLUDED.errors, response = EXCLUDED.response,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at`,
		s.ID, s.Kind, s.CorrelationID, s.PayerCode, s.MemberID, s.BundleID,
		string(s.Status), string(errs), nullableJSON(s.Response), now, now).
		BuildWithFlavor(sqlFlavor)

	if err := r.QueryRowContext(ctx, query, args...).Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		return ledger.Submission{}, errors.Wrapf(err, "save submission %s", s.ID)
	}
	s.Errors = nonNil(s.Errors)
	return s, nil
}

func (r *Repository) Get(ctx context.Context, id string) (ledger.Submission, error) {
	sb := sqlFlavor.NewSelectBuilder()
	sb.Select(columns...).From("submissions")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	s, err := scanSubmission(r.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Submission{}, ledger.ErrNotFound
		}
		return ledger.Submission{}, errors.Wrapf(err, "get submission %s", id)
	}
	return s, nil
}

func (r *Repository) List(ctx context.Context, f ledger.Filter) ([]ledger.Submission, error) {
	sb := sqlFlavor.NewSelectBuilder()
	sb.Select(columns...).From("submissions")
	if f.Kind != "" {
		sb.Where(sb.Equal("kind", f.Kind))
	}
	if f.PayerCode != "" {
		sb.Where(sb.Equal("payer_code", f.PayerCode))
	}
	if f.Status != "" {
		sb.Where(sb.Equal("status", string(f.Status)))
	}
	if !f.Since.IsZero() {
		sb.Where(sb.GreaterEqualThan("created_at", f.Since))
	}
	sb.OrderBy("created_at").Desc()
	if f.Limit > 0 {
		sb.Limit(f.Limit)
	}

	query, args := sb.Build()
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list submissions")
	}
	defer rows.Close()

	var out []ledger.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan submission")
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate submissions")
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmission(row scanner) (ledger.Submission, error) {
	var (
		s        ledger.Submission
		status   string
		errs     []byte
		response []byte
	)
	if err := row.Scan(&s.ID, &s.Kind, &s.CorrelationID, &s.PayerCode, &s.MemberID, &s.BundleID,
		&status, &errs, &response, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return ledger.Submission{}, err
	}
	s.Status = ledger.Status(status)
	s.Errors = []string{}
	if len(errs) > 0 {
		if err := json.Unmarshal(errs, &s.Errors); err != nil {
			return ledger.Submission{}, errors.Wrap(err, "decode submission errors")
		}
	}
	if len(response) > 0 {
		s.Response = json.RawMessage(response)
	}
	return s, nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func nullableJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
