package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/startupforworld/coach/internal/domain/model"
	"github.com/startupforworld/coach/internal/domain/recommend"
)

// Pool is the subset of *pgxpool.Pool the store uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// uniqueViolation is the Postgres SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

// NewPostgres connects a pool and pings it.
func NewPostgres(ctx context.Context, connString string, opts ...Option) (*PostgresStore, error) {
	cfg := defaultPoolConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = cfg.MaxConns
	pgxCfg.MinConns = cfg.MinConns
	pgxCfg.MaxConnLifetime = cfg.MaxConnLifetime
	pgxCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS clinical_records (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	seller_id  TEXT NOT NULL DEFAULT '',
	patient    JSONB NOT NULL DEFAULT '{}',
	biomarkers JSONB NOT NULL DEFAULT '{}',
	analysis   TEXT NOT NULL DEFAULT '',
	protocol   JSONB NOT NULL DEFAULT '[]',
	risk_flags JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_clinical_records_user ON clinical_records(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS prospect_leads (
	id                TEXT PRIMARY KEY,
	referrer_id       TEXT NOT NULL,
	prospect_email    TEXT NOT NULL DEFAULT '',
	prospect_phone    TEXT NOT NULL DEFAULT '',
	prospect_name     TEXT NOT NULL DEFAULT '',
	conversation_data JSONB,
	clinical_analysis JSONB,
	status            TEXT NOT NULL DEFAULT 'new',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_activity     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_prospect_leads_referrer ON prospect_leads(referrer_id, created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveClinicalRecord(ctx context.Context, rec model.ClinicalRecord) error {
	cols, err := marshalRecord(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal clinical record")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO clinical_records (id, user_id, seller_id, patient, biomarkers, analysis, protocol, risk_flags, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.UserID, rec.SellerID, cols.patient, cols.biomarkers, rec.Analysis, cols.protocol, cols.riskFlags, rec.CreatedAt.UTC(),
	)
	if isUniqueViolation(err) {
		return eris.Wrapf(ErrDuplicate, "postgres: clinical record %s", rec.ID)
	}
	return eris.Wrapf(err, "postgres: insert clinical record %s", rec.ID)
}

func (s *PostgresStore) UpdateProtocol(ctx context.Context, recordID string, protocol []recommend.ProtocolEntry) error {
	data, err := json.Marshal(nonNil(protocol))
	if err != nil {
		return eris.Wrap(err, "postgres: marshal protocol")
	}
	tag, err := s.pool.Exec(ctx, `UPDATE clinical_records SET protocol = $1 WHERE id = $2`, data, recordID)
	if err != nil {
		return eris.Wrapf(err, "postgres: update protocol %s", recordID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: clinical record %s", recordID)
	}
	return nil
}

func (s *PostgresStore) ListClinicalRecords(ctx context.Context, userID string, limit int) ([]model.ClinicalRecord, error) {
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, seller_id, patient, biomarkers, analysis, protocol, risk_flags, created_at
		 FROM clinical_records WHERE user_id = $1 ORDER BY created_at DESC, id LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list clinical records")
	}
	defer rows.Close()

	out := make([]model.ClinicalRecord, 0)
	for rows.Next() {
		var rec model.ClinicalRecord
		var cols recordColumns
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.SellerID, &cols.patient, &cols.biomarkers,
			&rec.Analysis, &cols.protocol, &cols.riskFlags, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan clinical record")
		}
		if err := cols.unmarshalInto(&rec); err != nil {
			return nil, eris.Wrapf(err, "postgres: decode clinical record %s", rec.ID)
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list clinical records iterate")
}

func (s *PostgresStore) SaveLead(ctx context.Context, lead model.ProspectLead) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO prospect_leads (id, referrer_id, prospect_email, prospect_phone, prospect_name,
		 conversation_data, clinical_analysis, status, created_at, last_activity)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		lead.ID, lead.ReferrerID, lead.Email, lead.Phone, lead.Name,
		rawOrNil(lead.Conversation), rawOrNil(lead.ClinicalAnalysis),
		string(lead.Status), lead.CreatedAt.UTC(), lead.LastActivity.UTC(),
	)
	if isUniqueViolation(err) {
		return eris.Wrapf(ErrDuplicate, "postgres: lead %s", lead.ID)
	}
	return eris.Wrapf(err, "postgres: insert lead %s", lead.ID)
}

const leadColumns = `id, referrer_id, prospect_email, prospect_phone, prospect_name,
	conversation_data, clinical_analysis, status, created_at, last_activity`

func (s *PostgresStore) ListLeads(ctx context.Context, referrerID string, limit int) ([]model.ProspectLead, error) {
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+leadColumns+` FROM prospect_leads WHERE referrer_id = $1 ORDER BY created_at DESC, id LIMIT $2`,
		referrerID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	out := make([]model.ProspectLead, 0)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		out = append(out, l)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) UpdateLeadStatus(ctx context.Context, id string, status model.LeadStatus, at time.Time) (model.ProspectLead, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE prospect_leads SET status = $1, last_activity = $2 WHERE id = $3 RETURNING `+leadColumns,
		string(status), at.UTC(), id,
	)
	l, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ProspectLead{}, eris.Wrapf(ErrNotFound, "postgres: lead %s", id)
	}
	if err != nil {
		return model.ProspectLead{}, eris.Wrapf(err, "postgres: update lead status %s", id)
	}
	return l, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
