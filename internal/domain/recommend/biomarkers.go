package recommend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Biomarkers is a sparse lab panel. A nil field means the value was not
// measured; it is never read as zero.
type Biomarkers struct {
	CholesterolTotal *float64 `json:"cholesterol_total_mmol_l,omitempty"`
	Glycemia         *float64 `json:"glycemia_mmol_l,omitempty"`
	HDL              *float64 `json:"hdl_mmol_l,omitempty"`
	LDL              *float64 `json:"ldl_mmol_l,omitempty"`
	Triglycerides    *float64 `json:"triglycerides_mmol_l,omitempty"`
	SystolicBP       *float64 `json:"systolic_bp,omitempty"`
	DiastolicBP      *float64 `json:"diastolic_bp,omitempty"`
	BMI              *float64 `json:"bmi,omitempty"`
}

// Value returns a pointer to v, for building Biomarkers literals.
func Value(v float64) *float64 { return &v }

// Empty reports whether no field is present.
func (b Biomarkers) Empty() bool {
	for _, f := range b.fields() {
		if *f.ptr != nil {
			return false
		}
	}
	return true
}

// Present lists the keys of the measured fields.
func (b Biomarkers) Present() []string {
	var out []string
	for _, f := range b.fields() {
		if *f.ptr != nil {
			out = append(out, f.key)
		}
	}
	return out
}

type biomarkerField struct {
	key string
	ptr **float64
}

func (b *Biomarkers) fields() []biomarkerField {
	return []biomarkerField{
		{"cholesterol_total_mmol_l", &b.CholesterolTotal},
		{"glycemia_mmol_l", &b.Glycemia},
		{"hdl_mmol_l", &b.HDL},
		{"ldl_mmol_l", &b.LDL},
		{"triglycerides_mmol_l", &b.Triglycerides},
		{"systolic_bp", &b.SystolicBP},
		{"diastolic_bp", &b.DiastolicBP},
		{"bmi", &b.BMI},
	}
}

// ParseBiomarkers decodes a JSON object into Biomarkers. Known keys must hold
// a finite, non-negative number or null; null and missing keys stay absent.
// Unknown keys are ignored.
func ParseBiomarkers(data []byte) (Biomarkers, error) {
	var b Biomarkers
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return b, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Biomarkers{}, fmt.Errorf("%w: %w", ErrInvalidBiomarkers, err)
	}

	for _, f := range b.fields() {
		msg, ok := raw[f.key]
		if !ok || bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
			continue
		}
		var v float64
		if err := json.Unmarshal(msg, &v); err != nil {
			return Biomarkers{}, fmt.Errorf("%w: %s is not a number", ErrInvalidBiomarkers, f.key)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return Biomarkers{}, fmt.Errorf("%w: %s out of range", ErrInvalidBiomarkers, f.key)
		}
		*f.ptr = Value(v)
	}
	return b, nil
}

// UnmarshalJSON routes decoding through ParseBiomarkers so request bodies get
// the same validation.
func (b *Biomarkers) UnmarshalJSON(data []byte) error {
	parsed, err := ParseBiomarkers(data)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
