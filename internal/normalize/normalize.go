package normalize

import (
	"fmt"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mfg-analytics/oee-cli/internal/fetcher"
	"github.com/mfg-analytics/oee-cli/internal/model"
)

// Skip records one dropped input row and why it was dropped.
type Skip struct {
	Row    int // 1-based data row number, excluding the header
	Reason string
}

// Result is the outcome of normalizing one table. Records are sorted by
// timestamp, then unit ID, and are safe to persist as-is.
type Result struct {
	Source        model.SourceType
	Records       []model.Record
	Skipped       []Skip
	ImputedFields int
}

// Normalizer coerces raw tables into normalized records per the source-type
// schemas. The same input always yields the same output: imputation draws
// only on batch statistics and prior rows in timestamp order.
type Normalizer struct {
	schemas map[model.SourceType]Schema
}

// New returns a Normalizer over the given schemas.
func New(schemas map[model.SourceType]Schema) *Normalizer {
	return &Normalizer{schemas: schemas}
}

// draft is a partially parsed row: nil pointers mark missing values awaiting
// imputation.
type draft struct {
	row   int
	unit  string
	ts    time.Time
	nums  map[string]*float64
	texts map[string]*string
}

// Normalize converts one raw table into records of the given source type.
// Rows that cannot be coerced are skipped individually; a missing required
// column fails the whole table with ErrSchemaMismatch.
func (n *Normalizer) Normalize(source model.SourceType, table *fetcher.Table) (*Result, error) {
	schema, ok := n.schemas[source]
	if !ok {
		return nil, eris.Wrapf(model.ErrSchemaMismatch, "normalize: unknown source type %q", source)
	}
	if table.Empty() {
		return nil, eris.Wrapf(model.ErrSchemaMismatch, "normalize: %s table has no data rows", source)
	}

	idIdx := resolveColumn(table.Header, schema.IDAliases)
	if idIdx < 0 {
		return nil, eris.Wrapf(model.ErrSchemaMismatch, "normalize: %s table missing ID column %q", source, schema.IDColumn)
	}
	tsIdx := resolveColumn(table.Header, schema.TimeAliases)
	if tsIdx < 0 {
		return nil, eris.Wrapf(model.ErrSchemaMismatch, "normalize: %s table missing timestamp column %q", source, schema.TimeColumn)
	}
	colIdx := make(map[string]int, len(schema.Columns))
	for _, c := range schema.Columns {
		colIdx[c.Name] = resolveColumn(table.Header, c.Aliases)
	}

	result := &Result{Source: source}

	// Pass 1: parse rows. Unusable IDs and timestamps drop the row; bad or
	// out-of-range values are marked missing for imputation.
	drafts := make([]draft, 0, len(table.Rows))
	for i, row := range table.Rows {
		d, err := parseRow(schema, colIdx, idIdx, tsIdx, i+1, row)
		if err != nil {
			result.Skipped = append(result.Skipped, Skip{Row: i + 1, Reason: err.Error()})
			zap.L().Debug("skipping row",
				zap.String("source", string(source)),
				zap.Int("row", i+1),
				zap.String("reason", err.Error()))
			continue
		}
		drafts = append(drafts, d)
	}

	if source == model.SourceMaterial {
		markInconsistentCounts(drafts)
	}

	// Stable order before imputation so carry-forward sees prior rows in
	// timestamp order and reruns are byte-identical.
	sort.SliceStable(drafts, func(a, b int) bool {
		if !drafts[a].ts.Equal(drafts[b].ts) {
			return drafts[a].ts.Before(drafts[b].ts)
		}
		if drafts[a].unit != drafts[b].unit {
			return drafts[a].unit < drafts[b].unit
		}
		return drafts[a].row < drafts[b].row
	})

	im := newImputer(schema, drafts)

	// Pass 2: fill missing values and materialize records.
	for _, d := range drafts {
		rec, imputed, err := im.finalize(schema, d)
		if err != nil {
			result.Skipped = append(result.Skipped, Skip{Row: d.row, Reason: err.Error()})
			zap.L().Debug("skipping row",
				zap.String("source", string(source)),
				zap.Int("row", d.row),
				zap.String("reason", err.Error()))
			continue
		}
		result.ImputedFields += imputed
		result.Records = append(result.Records, rec)
	}

	zap.L().Info("normalized table",
		zap.String("source", string(source)),
		zap.Int("rows", len(table.Rows)),
		zap.Int("records", len(result.Records)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("imputed_fields", result.ImputedFields))

	return result, nil
}

// parseRow coerces one raw row into a draft. ID and timestamp failures abort
// the row; field-level failures become missing values.
func parseRow(schema Schema, colIdx map[string]int, idIdx, tsIdx, rowNum int, row []string) (draft, error) {
	d := draft{
		row:   rowNum,
		nums:  make(map[string]*float64),
		texts: make(map[string]*string),
	}

	unit, ok := StandardizeID(cell(row, idIdx), schema.IDPrefix)
	if !ok {
		return d, eris.Wrapf(model.ErrSchemaMismatch, "row %d: unusable %s %q", rowNum, schema.IDColumn, cell(row, idIdx))
	}
	d.unit = unit

	ts, err := ParseTimestamp(cell(row, tsIdx))
	if err != nil {
		return d, eris.Wrapf(model.ErrSchemaMismatch, "row %d: unusable %s %q", rowNum, schema.TimeColumn, cell(row, tsIdx))
	}
	d.ts = ts

	for _, c := range schema.Columns {
		raw := cell(row, colIdx[c.Name])
		switch c.Kind {
		case model.KindNumber:
			v, ok := ParseNumber(raw, c.Hours)
			if ok && v >= c.Min && v <= c.Max {
				d.nums[c.Name] = &v
			} else {
				d.nums[c.Name] = nil
			}
		case model.KindText:
			d.texts[c.Name] = parseText(c, raw)
		}
	}

	return d, nil
}

// parseText validates one categorical cell, returning nil when it must be
// imputed. Unknown categories and unusable references are treated as missing.
func parseText(c ColumnSpec, raw string) *string {
	if c.RefPrefix != "" {
		id, ok := StandardizeID(raw, c.RefPrefix)
		if !ok {
			return nil
		}
		return &id
	}
	s := cleanText(raw)
	if s == "" {
		return nil
	}
	if len(c.Allowed) > 0 && !contains(c.Allowed, s) {
		return nil
	}
	return &s
}

// markInconsistentCounts clears good_count wherever it exceeds total_count,
// sending it back through imputation instead of trusting either value.
func markInconsistentCounts(drafts []draft) {
	for i := range drafts {
		good := drafts[i].nums["good_count"]
		total := drafts[i].nums["total_count"]
		if good != nil && total != nil && *good > *total {
			drafts[i].nums["good_count"] = nil
		}
	}
}

// cell returns the trimmed value at idx, tolerating short rows and columns
// absent from the header.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// resolveColumn finds the index of the first header matching any alias,
// comparing case-insensitively with spaces folded to underscores.
func resolveColumn(header []string, aliases []string) int {
	for i, h := range header {
		key := normalizeHeader(h)
		for _, a := range aliases {
			if key == normalizeHeader(a) {
				return i
			}
		}
	}
	return -1
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// carryKey identifies a unit+column pair in carry-forward bookkeeping.
func carryKey(unit, col string) string { return fmt.Sprintf("%s|%s", unit, col) }
