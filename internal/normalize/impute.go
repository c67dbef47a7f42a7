package normalize

import (
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/mfg-analytics/oee-cli/internal/model"
)

// imputer fills missing draft values. Batch means are fixed up front from
// the valid values; carry-forward state advances as rows are finalized in
// timestamp order.
type imputer struct {
	means map[string]float64 // column -> mean of valid values
	have  map[string]bool    // column -> at least one valid value
	last  map[string]float64 // unit|column -> most recent valid value
}

func newImputer(schema Schema, drafts []draft) *imputer {
	im := &imputer{
		means: make(map[string]float64),
		have:  make(map[string]bool),
		last:  make(map[string]float64),
	}
	for _, c := range schema.Columns {
		if c.Kind != model.KindNumber {
			continue
		}
		var sum float64
		var n int
		for _, d := range drafts {
			if v := d.nums[c.Name]; v != nil {
				sum += *v
				n++
			}
		}
		if n > 0 {
			im.means[c.Name] = sum / float64(n)
			im.have[c.Name] = true
		}
	}
	return im
}

// finalize turns a draft into an immutable record, filling missing values
// per the column policies. Returns the count of imputed fields; a policy
// with nothing to give fails the row with ErrImputationExhausted.
func (im *imputer) finalize(schema Schema, d draft) (model.Record, int, error) {
	fields := make(map[string]model.Field, len(schema.Columns))
	imputed := 0

	for _, c := range schema.Columns {
		switch c.Kind {
		case model.KindNumber:
			if v := d.nums[c.Name]; v != nil {
				fields[c.Name] = model.NumberField(*v)
				im.last[carryKey(d.unit, c.Name)] = *v
				continue
			}
			f, err := im.fillNumber(c, d.unit)
			if err != nil {
				return model.Record{}, 0, eris.Wrapf(err, "row %d: field %s", d.row, c.Name)
			}
			fields[c.Name] = f
			im.last[carryKey(d.unit, c.Name)] = f.Number
			imputed++

		case model.KindText:
			if v := d.texts[c.Name]; v != nil {
				fields[c.Name] = model.TextField(*v)
				continue
			}
			if c.Default == "" {
				return model.Record{}, 0, eris.Wrapf(model.ErrImputationExhausted, "row %d: field %s has no default", d.row, c.Name)
			}
			fields[c.Name] = model.ImputedText(c.Default, model.FillDefault)
			imputed++
		}
	}

	if schema.Source == model.SourceMaterial {
		if fields["good_count"].Number > fields["total_count"].Number {
			return model.Record{}, 0, eris.Wrapf(model.ErrSchemaMismatch,
				"row %d: good_count exceeds total_count after imputation", d.row)
		}
	}

	return model.Record{
		UnitID:     d.unit,
		SourceType: schema.Source,
		Timestamp:  d.ts,
		Fields:     fields,
	}, imputed, nil
}

// fillNumber applies the column fill policy, falling back to the declared
// default when the policy has no value to offer.
func (im *imputer) fillNumber(c ColumnSpec, unit string) (model.Field, error) {
	switch c.Fill {
	case model.FillCarryForward:
		if v, ok := im.last[carryKey(unit, c.Name)]; ok {
			return model.ImputedNumber(v, model.FillCarryForward), nil
		}
	case model.FillSourceMean:
		if im.have[c.Name] {
			return model.ImputedNumber(im.means[c.Name], model.FillSourceMean), nil
		}
	case model.FillDefault:
		// handled below
	default:
		return model.Field{}, eris.Wrapf(model.ErrImputationExhausted, "unknown fill policy %q", c.Fill)
	}

	if c.Default != "" {
		v, err := strconv.ParseFloat(c.Default, 64)
		if err != nil {
			return model.Field{}, eris.Wrapf(model.ErrImputationExhausted, "bad default %q", c.Default)
		}
		return model.ImputedNumber(v, model.FillDefault), nil
	}
	return model.Field{}, eris.Wrap(model.ErrImputationExhausted, "no prior value and no default")
}
