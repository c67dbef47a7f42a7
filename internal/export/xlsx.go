// Package export writes normalized records and metric results back out as
// XLSX workbooks for plant engineers who live in spreadsheets.
package export

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/mfg-analytics/oee-cli/internal/model"
	"github.com/mfg-analytics/oee-cli/internal/normalize"
)

// WriteRecords writes one sheet per source type, columns in schema order.
// The trailing imputed_fields column names every filled field so reviewers
// can see which values are measurements and which are policy output.
func WriteRecords(path string, schemas map[model.SourceType]normalize.Schema, datasets map[model.SourceType][]model.Record) error {
	f := xlsx.NewFile()

	for _, source := range model.SourceTypes {
		records := datasets[source]
		if len(records) == 0 {
			continue
		}
		schema, ok := schemas[source]
		if !ok {
			return eris.Errorf("export: no schema for source type %q", source)
		}

		sheet, err := f.AddSheet(string(source))
		if err != nil {
			return eris.Wrapf(err, "export: add sheet %s", source)
		}

		header := sheet.AddRow()
		header.AddCell().SetString(schema.IDColumn)
		header.AddCell().SetString(schema.TimeColumn)
		for _, c := range schema.Columns {
			header.AddCell().SetString(c.Name)
		}
		header.AddCell().SetString("imputed_fields")

		for _, r := range records {
			row := sheet.AddRow()
			row.AddCell().SetString(r.UnitID)
			row.AddCell().SetString(r.Timestamp.UTC().Format("2006-01-02 15:04:05"))

			var imputed []string
			for _, c := range schema.Columns {
				field := r.Fields[c.Name]
				switch field.Kind {
				case model.KindNumber:
					row.AddCell().SetFloat(field.Number)
				default:
					row.AddCell().SetString(field.Text)
				}
				if field.Imputed {
					imputed = append(imputed, c.Name)
				}
			}
			sort.Strings(imputed)
			row.AddCell().SetString(strings.Join(imputed, ","))
		}
	}

	if len(f.Sheets) == 0 {
		return eris.New("export: nothing to write")
	}
	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

// resultColumns is the metric sheet header, matching the dashboard row shape.
var resultColumns = []string{
	"start_time", "end_time", "unit_id",
	"availability", "performance", "quality",
	"oee", "teep", "composite_efficiency", "bottleneck_level",
}

// WriteResults writes metric results to a single "metrics" sheet.
func WriteResults(path string, results []model.MetricResult) error {
	if len(results) == 0 {
		return eris.New("export: no results to write")
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("metrics")
	if err != nil {
		return eris.Wrap(err, "export: add metrics sheet")
	}

	header := sheet.AddRow()
	for _, col := range resultColumns {
		header.AddCell().SetString(col)
	}

	for _, res := range results {
		r := res.Row()
		row := sheet.AddRow()
		row.AddCell().SetString(r.StartTime)
		row.AddCell().SetString(r.EndTime)
		row.AddCell().SetString(r.UnitID)
		row.AddCell().SetFloat(r.Availability)
		row.AddCell().SetFloat(r.Performance)
		row.AddCell().SetFloat(r.Quality)
		row.AddCell().SetFloat(r.OEE)
		row.AddCell().SetFloat(r.TEEP)
		row.AddCell().SetFloat(r.CompositeEfficiency)
		row.AddCell().SetString(r.BottleneckLevel)
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}
