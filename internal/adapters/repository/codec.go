package repository

import (
	"encoding/json"

	"github.com/startupforworld/coach/internal/domain/model"
	"github.com/startupforworld/coach/internal/domain/recommend"
)

// recordColumns holds the JSON encoded columns of a clinical record.
type recordColumns struct {
	patient    []byte
	biomarkers []byte
	protocol   []byte
	riskFlags  []byte
}

func marshalRecord(rec model.ClinicalRecord) (recordColumns, error) {
	var c recordColumns
	var err error
	if c.patient, err = json.Marshal(rec.Patient); err != nil {
		return c, err
	}
	if c.biomarkers, err = json.Marshal(rec.Biomarkers); err != nil {
		return c, err
	}
	if c.protocol, err = json.Marshal(nonNil(rec.Protocol)); err != nil {
		return c, err
	}
	if c.riskFlags, err = json.Marshal(nonNil(rec.RiskFlags)); err != nil {
		return c, err
	}
	return c, nil
}

func (c recordColumns) unmarshalInto(rec *model.ClinicalRecord) error {
	if len(c.patient) > 0 {
		if err := json.Unmarshal(c.patient, &rec.Patient); err != nil {
			return err
		}
	}
	if len(c.biomarkers) > 0 {
		b, err := recommend.ParseBiomarkers(c.biomarkers)
		if err != nil {
			return err
		}
		rec.Biomarkers = b
	}
	if len(c.protocol) > 0 {
		if err := json.Unmarshal(c.protocol, &rec.Protocol); err != nil {
			return err
		}
	}
	if len(c.riskFlags) > 0 {
		if err := json.Unmarshal(c.riskFlags, &rec.RiskFlags); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (model.ProspectLead, error) {
	var l model.ProspectLead
	var conversation, analysis []byte
	var status string
	err := row.Scan(&l.ID, &l.ReferrerID, &l.Email, &l.Phone, &l.Name,
		&conversation, &analysis, &status, &l.CreatedAt, &l.LastActivity)
	if err != nil {
		return model.ProspectLead{}, err
	}
	l.Status = model.LeadStatus(status)
	if len(conversation) > 0 {
		l.Conversation = json.RawMessage(conversation)
	}
	if len(analysis) > 0 {
		l.ClinicalAnalysis = json.RawMessage(analysis)
	}
	return l, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// rawOrNil maps an empty document to SQL NULL.
func rawOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
