package genai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/startupforworld/coach/internal/domain/model"
	"github.com/startupforworld/coach/internal/domain/recommend"
)

// MaxReportBytes bounds the report text sent to the model.
const MaxReportBytes = 64 << 10

// ErrUnparseable is returned when the model output is not the expected JSON.
var ErrUnparseable = errors.New("model output is not valid clinical json")

const extractionInstruction = `MODE ADAPTATIF INTELLIGENT ACTIVÉ.
Extrait les données cliniques du document médical fourni.
RÈGLES STRICTES :
- Analyse UNIQUEMENT les données présentes.
- Si un biomarqueur est absent, mets-le à null.
- N'invente jamais de chiffres.
- Sortie JSON valide uniquement, au format :
{"patient":{"age":number|null,"sex":"M"|"F"|null},
 "biomarkers":{"cholesterol_total_mmol_l":number|null,"glycemia_mmol_l":number|null,
  "hdl_mmol_l":number|null,"ldl_mmol_l":number|null,"triglycerides_mmol_l":number|null,
  "systolic_bp":number|null,"diastolic_bp":number|null,"bmi":number|null},
 "analysis":string,"risk_flags":[string]}`

// Extraction is the structured content of one lab report.
type Extraction struct {
	Patient    model.Patient        `json:"patient"`
	Biomarkers recommend.Biomarkers `json:"biomarkers"`
	Analysis   string               `json:"analysis"`
	RiskFlags  []string             `json:"risk_flags"`
}

// Extractor turns report text into an Extraction.
type Extractor struct {
	gen Generator
}

// NewExtractor wraps a Generator.
func NewExtractor(gen Generator) *Extractor {
	return &Extractor{gen: gen}
}

// Extract asks the model for the clinical JSON of report. Values the model
// did not find stay absent; a malformed value fails the whole extraction.
func (e *Extractor) Extract(ctx context.Context, report string) (Extraction, error) {
	report = truncate(strings.TrimSpace(report), MaxReportBytes)
	out, err := e.gen.Generate(ctx, extractionInstruction, report)
	if err != nil {
		return Extraction{}, err
	}
	return ParseExtraction(out)
}

type rawExtraction struct {
	Patient struct {
		Age *float64 `json:"age"`
		Sex *string  `json:"sex"`
	} `json:"patient"`
	Biomarkers json.RawMessage `json:"biomarkers"`
	Analysis   string          `json:"analysis"`
	RiskFlags  []string        `json:"risk_flags"`
}

// ParseExtraction decodes model output, tolerating a surrounding markdown
// code fence.
func ParseExtraction(out string) (Extraction, error) {
	var raw rawExtraction
	if err := json.Unmarshal([]byte(stripFence(out)), &raw); err != nil {
		return Extraction{}, eris.Wrap(ErrUnparseable, err.Error())
	}
	b, err := recommend.ParseBiomarkers(raw.Biomarkers)
	if err != nil {
		return Extraction{}, err
	}
	ex := Extraction{Biomarkers: b, Analysis: strings.TrimSpace(raw.Analysis), RiskFlags: raw.RiskFlags}
	if raw.Patient.Age != nil && *raw.Patient.Age > 0 && *raw.Patient.Age < 150 {
		age := int(*raw.Patient.Age)
		ex.Patient.Age = &age
	}
	if raw.Patient.Sex != nil {
		ex.Patient.Sex = strings.ToUpper(strings.TrimSpace(*raw.Patient.Sex))
	}
	return ex, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
