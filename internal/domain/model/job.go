package model

import (
	"time"

	"github.com/startupforworld/coach/internal/domain/recommend"
)

// JobKind names a persistence job.
type JobKind string

const (
	JobSaveClinicalRecord JobKind = "save_clinical_record"
	JobSaveProtocol       JobKind = "save_protocol"
)

// Job is one unit of asynchronous persistence work.
type Job struct {
	ID   string
	Kind JobKind
	// Record is set for JobSaveClinicalRecord.
	Record *ClinicalRecord
	// RecordID and Protocol are set for JobSaveProtocol.
	RecordID   string
	Protocol   []recommend.ProtocolEntry
	EnqueuedAt time.Time
}
