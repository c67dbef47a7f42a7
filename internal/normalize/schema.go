// Package normalize maps heterogeneous raw production rows into the unified
// record schema, resolving missing and out-of-range values through declared
// per-field fill policies. Records are immutable once produced; imputation is
// recorded as provenance, never as a silent overwrite.
package normalize

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/mfg-analytics/oee-cli/internal/model"
)

// ColumnSpec declares one canonical column of a source-type table.
type ColumnSpec struct {
	Name    string          `yaml:"name"`
	Aliases []string        `yaml:"aliases"`
	Kind    model.FieldKind `yaml:"kind"`

	// Numeric validity range (inclusive). Values outside it are treated as
	// missing and re-imputed, never clamped.
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`

	// Hours columns accept d/h/m/s unit suffixes and normalize to hours.
	Hours bool `yaml:"hours"`

	// Allowed whitelists categorical values; empty allows any.
	Allowed []string `yaml:"allowed"`

	// RefPrefix standardizes a text column as a cross-reference ID
	// (e.g. the equipment unit a personnel operation touched).
	RefPrefix string `yaml:"ref_prefix"`

	Fill    model.FillPolicy `yaml:"fill"`
	Default string           `yaml:"default"` // raw default, parsed per Kind; "" = none
}

// Schema declares the full column contract for one source type.
type Schema struct {
	Source model.SourceType

	IDColumn  string
	IDPrefix  string
	IDAliases []string

	TimeColumn  string
	TimeAliases []string

	Columns []ColumnSpec
}

// DefaultSchemas returns the built-in column contracts for the four source
// types. Aliases cover the header spellings seen across plant exports.
func DefaultSchemas() map[model.SourceType]Schema {
	return map[model.SourceType]Schema{
		model.SourceEquipment: {
			Source:      model.SourceEquipment,
			IDColumn:    "equipment_id",
			IDPrefix:    "CNC",
			IDAliases:   []string{"equipment_id", "device_id", "machine_id", "equipment", "device"},
			TimeColumn:  "timestamp",
			TimeAliases: []string{"timestamp", "time", "date_time", "datetime"},
			Columns: []ColumnSpec{
				{
					Name: "status", Aliases: []string{"status", "state", "device_status", "machine_status"},
					Kind:    model.KindText,
					Allowed: []string{"running", "stopped", "maintenance", "fault", "idle"},
					Fill:    model.FillDefault, Default: "running",
				},
				{
					Name: "run_minutes", Aliases: []string{"run_minutes", "runtime", "run_time", "operation_time"},
					Kind: model.KindNumber, Min: 0, Max: 1440,
					Fill: model.FillCarryForward, Default: "480",
				},
				{
					Name: "downtime_minutes", Aliases: []string{"downtime_minutes", "downtime", "fault_duration"},
					Kind: model.KindNumber, Min: 0, Max: 1440,
					Fill: model.FillDefault, Default: "0",
				},
				{
					Name: "failure_count", Aliases: []string{"failure_count", "failures", "fault_count"},
					Kind: model.KindNumber, Min: 0, Max: 100,
					Fill: model.FillDefault, Default: "0",
				},
				{
					Name: "warning", Aliases: []string{"warning", "warning_status", "alert_status"},
					Kind:    model.KindText,
					Allowed: []string{"normal", "minor", "severe"},
					Fill:    model.FillDefault, Default: "normal",
				},
			},
		},
		model.SourceMaterial: {
			Source:      model.SourceMaterial,
			IDColumn:    "material_id",
			IDPrefix:    "CNC", // material batches are keyed by the producing unit
			IDAliases:   []string{"material_id", "product_id", "batch_id", "equipment_id"},
			TimeColumn:  "date",
			TimeAliases: []string{"date", "timestamp", "time", "production_date"},
			Columns: []ColumnSpec{
				{
					Name: "total_count", Aliases: []string{"total_count", "quantity", "total_quantity", "product_count"},
					Kind: model.KindNumber, Min: 0, Max: 10000,
					Fill: model.FillSourceMean, Default: "100",
				},
				{
					Name: "good_count", Aliases: []string{"good_count", "good_quantity", "qualified_count"},
					Kind: model.KindNumber, Min: 0, Max: 10000,
					Fill: model.FillSourceMean, Default: "95",
				},
			},
		},
		model.SourcePersonnel: {
			Source:      model.SourcePersonnel,
			IDColumn:    "worker_id",
			IDPrefix:    "W",
			IDAliases:   []string{"worker_id", "staff_id", "employee_id", "operator_id"},
			TimeColumn:  "timestamp",
			TimeAliases: []string{"timestamp", "time", "date_time", "datetime"},
			Columns: []ColumnSpec{
				{
					Name: "equipment_id", Aliases: []string{"equipment_id", "device_id", "machine_id"},
					Kind: model.KindText, RefPrefix: "CNC",
				},
				{
					Name: "operation_type", Aliases: []string{"operation_type", "operation", "work_type", "task_type"},
					Kind:    model.KindText,
					Allowed: []string{"loading", "unloading", "maintenance", "inspection", "calibration", "cleaning", "planning"},
					Fill:    model.FillDefault, Default: "loading",
				},
				{
					Name: "duration_hours", Aliases: []string{"duration_hours", "duration", "operation_time", "time_spent"},
					Kind: model.KindNumber, Min: 0, Max: 24, Hours: true,
					Fill: model.FillSourceMean, Default: "1",
				},
				{
					Name: "result", Aliases: []string{"result", "operation_result", "outcome"},
					Kind:    model.KindText,
					Allowed: []string{"normal", "abnormal"},
					Fill:    model.FillDefault, Default: "normal",
				},
				{
					Name: "skill_level", Aliases: []string{"skill_level", "proficiency", "skill_score"},
					Kind: model.KindNumber, Min: 0, Max: 1,
					Fill: model.FillSourceMean, Default: "0.85",
				},
			},
		},
		model.SourceEnvironment: {
			Source:      model.SourceEnvironment,
			IDColumn:    "sensor_id",
			IDPrefix:    "TEMP",
			IDAliases:   []string{"sensor_id", "device_id", "sensor"},
			TimeColumn:  "timestamp",
			TimeAliases: []string{"timestamp", "time", "date_time", "datetime"},
			Columns: []ColumnSpec{
				{
					Name: "temperature", Aliases: []string{"temperature", "temp", "ambient_temperature"},
					Kind: model.KindNumber, Min: 0, Max: 50,
					Fill: model.FillCarryForward, Default: "25",
				},
				{
					Name: "humidity", Aliases: []string{"humidity", "humid", "ambient_humidity"},
					Kind: model.KindNumber, Min: 0, Max: 100,
					Fill: model.FillCarryForward, Default: "50",
				},
				{
					Name: "pm25", Aliases: []string{"pm25", "pm2.5", "pm2_5", "particulate_matter"},
					Kind: model.KindNumber, Min: 0, Max: 500,
					Fill: model.FillCarryForward, Default: "35",
				},
				{
					Name: "location", Aliases: []string{"location", "position", "zone", "place"},
					Kind: model.KindText,
					Fill: model.FillDefault, Default: "zone-a",
				},
				{
					Name: "warning", Aliases: []string{"warning", "warning_status", "alert_status"},
					Kind:    model.KindText,
					Allowed: []string{"normal", "minor", "severe"},
					Fill:    model.FillDefault, Default: "normal",
				},
			},
		},
	}
}

// ColumnOverride adjusts one column of a built-in schema from a YAML file.
type ColumnOverride struct {
	Aliases []string          `yaml:"aliases"`
	Min     *float64          `yaml:"min"`
	Max     *float64          `yaml:"max"`
	Fill    *model.FillPolicy `yaml:"fill"`
	Default *string           `yaml:"default"`
	Allowed []string          `yaml:"allowed"`
}

// Overrides maps source type -> column name -> override.
type Overrides map[model.SourceType]map[string]ColumnOverride

// LoadSchemas returns the default schemas, with overrides from the given
// YAML file applied when path is non-empty.
func LoadSchemas(path string) (map[model.SourceType]Schema, error) {
	schemas := DefaultSchemas()
	if path == "" {
		return schemas, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "normalize: read schema overrides")
	}
	var ov Overrides
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return nil, eris.Wrap(err, "normalize: parse schema overrides")
	}

	for source, cols := range ov {
		schema, ok := schemas[source]
		if !ok {
			return nil, eris.Errorf("normalize: override for unknown source type %q", source)
		}
		for name, o := range cols {
			if !schema.override(name, o) {
				return nil, eris.Errorf("normalize: override for unknown column %s.%s", source, name)
			}
		}
		schemas[source] = schema
	}

	return schemas, nil
}

// override applies o to the named column, returning false if absent.
func (s *Schema) override(name string, o ColumnOverride) bool {
	for i := range s.Columns {
		c := &s.Columns[i]
		if c.Name != name {
			continue
		}
		if len(o.Aliases) > 0 {
			c.Aliases = append(c.Aliases, o.Aliases...)
		}
		if o.Min != nil {
			c.Min = *o.Min
		}
		if o.Max != nil {
			c.Max = *o.Max
		}
		if o.Fill != nil {
			c.Fill = *o.Fill
		}
		if o.Default != nil {
			c.Default = *o.Default
		}
		if len(o.Allowed) > 0 {
			c.Allowed = o.Allowed
		}
		return true
	}
	return false
}
