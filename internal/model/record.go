// Package model defines the core types shared across the analysis pipeline:
// normalized records, aggregation windows, metric results, and the error
// taxonomy for per-record and per-window failures.
package model

import "time"

// SourceType identifies which production data stream a record came from.
type SourceType string

const (
	SourceEquipment   SourceType = "equipment"
	SourcePersonnel   SourceType = "personnel"
	SourceMaterial    SourceType = "material"
	SourceEnvironment SourceType = "environment"
)

// SourceTypes lists all known source types in canonical order.
var SourceTypes = []SourceType{
	SourceEquipment,
	SourcePersonnel,
	SourceMaterial,
	SourceEnvironment,
}

// Valid reports whether s is a known source type.
func (s SourceType) Valid() bool {
	switch s {
	case SourceEquipment, SourcePersonnel, SourceMaterial, SourceEnvironment:
		return true
	}
	return false
}

// FillPolicy names the imputation strategy that produced a filled value.
type FillPolicy string

const (
	FillCarryForward FillPolicy = "carry_forward" // last valid value for the same unit
	FillSourceMean   FillPolicy = "source_mean"   // mean of valid values in the batch
	FillDefault      FillPolicy = "default"       // fixed per-field default
)

// FieldKind distinguishes numeric from categorical fields.
type FieldKind string

const (
	KindNumber FieldKind = "number"
	KindText   FieldKind = "text"
)

// Field is one named value on a normalized record. Imputed values carry the
// policy that produced them so provenance survives into reporting; the raw
// value is never overwritten silently.
type Field struct {
	Kind    FieldKind  `json:"kind"`
	Number  float64    `json:"number,omitempty"`
	Text    string     `json:"text,omitempty"`
	Imputed bool       `json:"imputed,omitempty"`
	Policy  FillPolicy `json:"policy,omitempty"`
}

// NumberField returns a present (non-imputed) numeric field.
func NumberField(v float64) Field {
	return Field{Kind: KindNumber, Number: v}
}

// TextField returns a present (non-imputed) categorical field.
func TextField(s string) Field {
	return Field{Kind: KindText, Text: s}
}

// ImputedNumber returns a numeric field filled by the given policy.
func ImputedNumber(v float64, p FillPolicy) Field {
	return Field{Kind: KindNumber, Number: v, Imputed: true, Policy: p}
}

// ImputedText returns a categorical field filled by the given policy.
func ImputedText(s string, p FillPolicy) Field {
	return Field{Kind: KindText, Text: s, Imputed: true, Policy: p}
}

// Record is one normalized observation at a timestamp. Records are created
// once by the normalizer and never mutated afterwards.
type Record struct {
	UnitID     string           `json:"unit_id"`
	SourceType SourceType       `json:"source_type"`
	Timestamp  time.Time        `json:"timestamp"`
	Fields     map[string]Field `json:"fields"`
}

// Number returns the named numeric field value, if present.
func (r Record) Number(name string) (float64, bool) {
	f, ok := r.Fields[name]
	if !ok || f.Kind != KindNumber {
		return 0, false
	}
	return f.Number, true
}

// Text returns the named categorical field value, if present.
func (r Record) Text(name string) (string, bool) {
	f, ok := r.Fields[name]
	if !ok || f.Kind != KindText {
		return "", false
	}
	return f.Text, true
}

// Imputed reports whether any field on the record was filled by a policy.
func (r Record) Imputed() bool {
	for _, f := range r.Fields {
		if f.Imputed {
			return true
		}
	}
	return false
}
