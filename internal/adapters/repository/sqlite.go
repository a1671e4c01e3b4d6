package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/startupforworld/coach/internal/domain/model"
	"github.com/startupforworld/coach/internal/domain/recommend"
)

// SQLiteStore implements Store using modernc.org/sqlite. Timestamps are kept
// as unix nanoseconds so ordering does not depend on text formatting.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// SQLite allows one writer; a single connection also keeps the pragmas
	// and ":memory:" databases consistent.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS clinical_records (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	seller_id  TEXT NOT NULL DEFAULT '',
	patient    TEXT NOT NULL DEFAULT '{}',
	biomarkers TEXT NOT NULL DEFAULT '{}',
	analysis   TEXT NOT NULL DEFAULT '',
	protocol   TEXT NOT NULL DEFAULT '[]',
	risk_flags TEXT NOT NULL DEFAULT '[]',
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_clinical_records_user ON clinical_records(user_id, created_at);

CREATE TABLE IF NOT EXISTS prospect_leads (
	id                TEXT PRIMARY KEY,
	referrer_id       TEXT NOT NULL,
	prospect_email    TEXT NOT NULL DEFAULT '',
	prospect_phone    TEXT NOT NULL DEFAULT '',
	prospect_name     TEXT NOT NULL DEFAULT '',
	conversation_data TEXT,
	clinical_analysis TEXT,
	status            TEXT NOT NULL DEFAULT 'new',
	created_at        INTEGER NOT NULL,
	last_activity     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_prospect_leads_referrer ON prospect_leads(referrer_id, created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveClinicalRecord(ctx context.Context, rec model.ClinicalRecord) error {
	cols, err := marshalRecord(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal clinical record")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO clinical_records (id, user_id, seller_id, patient, biomarkers, analysis, protocol, risk_flags, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.SellerID, string(cols.patient), string(cols.biomarkers), rec.Analysis,
		string(cols.protocol), string(cols.riskFlags), rec.CreatedAt.UnixNano(),
	)
	if isSQLiteConstraint(err) {
		return eris.Wrapf(ErrDuplicate, "sqlite: clinical record %s", rec.ID)
	}
	return eris.Wrapf(err, "sqlite: insert clinical record %s", rec.ID)
}

func (s *SQLiteStore) UpdateProtocol(ctx context.Context, recordID string, protocol []recommend.ProtocolEntry) error {
	cols, err := marshalRecord(model.ClinicalRecord{Protocol: protocol})
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal protocol")
	}
	res, err := s.db.ExecContext(ctx, `UPDATE clinical_records SET protocol = ? WHERE id = ?`, string(cols.protocol), recordID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update protocol %s", recordID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: clinical record %s", recordID)
	}
	return nil
}

func (s *SQLiteStore) ListClinicalRecords(ctx context.Context, userID string, limit int) ([]model.ClinicalRecord, error) {
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, seller_id, patient, biomarkers, analysis, protocol, risk_flags, created_at
		 FROM clinical_records WHERE user_id = ? ORDER BY created_at DESC, id LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list clinical records")
	}
	defer rows.Close()

	out := make([]model.ClinicalRecord, 0)
	for rows.Next() {
		var rec model.ClinicalRecord
		var patient, biomarkers, protocol, riskFlags string
		var created int64
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.SellerID, &patient, &biomarkers,
			&rec.Analysis, &protocol, &riskFlags, &created); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan clinical record")
		}
		cols := recordColumns{
			patient:    []byte(patient),
			biomarkers: []byte(biomarkers),
			protocol:   []byte(protocol),
			riskFlags:  []byte(riskFlags),
		}
		if err := cols.unmarshalInto(&rec); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode clinical record %s", rec.ID)
		}
		rec.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list clinical records iterate")
}

func (s *SQLiteStore) SaveLead(ctx context.Context, lead model.ProspectLead) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prospect_leads (id, referrer_id, prospect_email, prospect_phone, prospect_name,
		 conversation_data, clinical_analysis, status, created_at, last_activity)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.ID, lead.ReferrerID, lead.Email, lead.Phone, lead.Name,
		textOrNil(lead.Conversation), textOrNil(lead.ClinicalAnalysis),
		string(lead.Status), lead.CreatedAt.UnixNano(), lead.LastActivity.UnixNano(),
	)
	if isSQLiteConstraint(err) {
		return eris.Wrapf(ErrDuplicate, "sqlite: lead %s", lead.ID)
	}
	return eris.Wrapf(err, "sqlite: insert lead %s", lead.ID)
}

func (s *SQLiteStore) ListLeads(ctx context.Context, referrerID string, limit int) ([]model.ProspectLead, error) {
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM prospect_leads WHERE referrer_id = ? ORDER BY created_at DESC, id LIMIT ?`,
		referrerID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	out := make([]model.ProspectLead, 0)
	for rows.Next() {
		l, err := scanSQLiteLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		out = append(out, l)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) UpdateLeadStatus(ctx context.Context, id string, status model.LeadStatus, at time.Time) (model.ProspectLead, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE prospect_leads SET status = ?, last_activity = ? WHERE id = ?`,
		string(status), at.UnixNano(), id,
	)
	if err != nil {
		return model.ProspectLead{}, eris.Wrapf(err, "sqlite: update lead status %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ProspectLead{}, eris.Wrapf(ErrNotFound, "sqlite: lead %s", id)
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM prospect_leads WHERE id = ?`, id)
	l, err := scanSQLiteLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ProspectLead{}, eris.Wrapf(ErrNotFound, "sqlite: lead %s", id)
	}
	return l, eris.Wrapf(err, "sqlite: get lead %s", id)
}

func scanSQLiteLead(row rowScanner) (model.ProspectLead, error) {
	var l model.ProspectLead
	var conversation, analysis sql.NullString
	var status string
	var created, active int64
	err := row.Scan(&l.ID, &l.ReferrerID, &l.Email, &l.Phone, &l.Name,
		&conversation, &analysis, &status, &created, &active)
	if err != nil {
		return model.ProspectLead{}, err
	}
	l.Status = model.LeadStatus(status)
	l.CreatedAt = time.Unix(0, created).UTC()
	l.LastActivity = time.Unix(0, active).UTC()
	if conversation.Valid && conversation.String != "" {
		l.Conversation = []byte(conversation.String)
	}
	if analysis.Valid && analysis.String != "" {
		l.ClinicalAnalysis = []byte(analysis.String)
	}
	return l, nil
}

func textOrNil(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// isSQLiteConstraint matches primary key conflicts by message.
func isSQLiteConstraint(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
