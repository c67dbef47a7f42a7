package metrics

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mfg-analytics/oee-cli/internal/model"
)

// BatchResult is the outcome of a batch computation: one result per
// window/unit that could be computed, one gap per pair that could not.
type BatchResult struct {
	Results []model.MetricResult
	Gaps    []model.Gap
}

// ComputeBatch evaluates every window/unit pair over the record set. Pairs
// fail independently: a unit with no data in one window becomes a gap
// without affecting its other windows. When units is empty the unit list is
// derived from the equipment records.
func (e *Engine) ComputeBatch(ctx context.Context, records []model.Record, windows []model.Window, units []string, concurrency int) (*BatchResult, error) {
	idx := indexRecords(records)
	if len(units) == 0 {
		units = idx.units()
	}

	if concurrency < 1 {
		concurrency = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	batch := &BatchResult{}

	for _, w := range windows {
		for _, unit := range units {
			w, unit := w, unit
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}

				res, err := e.Compute(idx.inputs(unit, w))
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					batch.Gaps = append(batch.Gaps, model.Gap{UnitID: unit, Window: w, Reason: err.Error()})
					zap.L().Debug("metric gap",
						zap.String("unit", unit),
						zap.String("window", w.String()),
						zap.Error(err))
					return nil
				}
				batch.Results = append(batch.Results, res)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(batch.Results, func(a, b int) bool {
		ra, rb := batch.Results[a], batch.Results[b]
		if !ra.Window.Start.Equal(rb.Window.Start) {
			return ra.Window.Start.Before(rb.Window.Start)
		}
		return ra.UnitID < rb.UnitID
	})
	sort.Slice(batch.Gaps, func(a, b int) bool {
		ga, gb := batch.Gaps[a], batch.Gaps[b]
		if !ga.Window.Start.Equal(gb.Window.Start) {
			return ga.Window.Start.Before(gb.Window.Start)
		}
		return ga.UnitID < gb.UnitID
	})

	zap.L().Info("computed batch",
		zap.Int("windows", len(windows)),
		zap.Int("units", len(units)),
		zap.Int("results", len(batch.Results)),
		zap.Int("gaps", len(batch.Gaps)))

	return batch, nil
}

// recordIndex partitions records by source for window/unit slicing.
type recordIndex struct {
	equipment   map[string][]model.Record // by unit
	material    map[string][]model.Record // by producing unit
	personnel   map[string][]model.Record // by referenced equipment unit
	environment []model.Record            // shop-floor wide
}

func indexRecords(records []model.Record) *recordIndex {
	idx := &recordIndex{
		equipment: make(map[string][]model.Record),
		material:  make(map[string][]model.Record),
		personnel: make(map[string][]model.Record),
	}
	for _, r := range records {
		switch r.SourceType {
		case model.SourceEquipment:
			idx.equipment[r.UnitID] = append(idx.equipment[r.UnitID], r)
		case model.SourceMaterial:
			idx.material[r.UnitID] = append(idx.material[r.UnitID], r)
		case model.SourcePersonnel:
			if unit, ok := r.Text("equipment_id"); ok {
				idx.personnel[unit] = append(idx.personnel[unit], r)
			}
		case model.SourceEnvironment:
			idx.environment = append(idx.environment, r)
		}
	}
	return idx
}

// units lists the equipment units present, sorted.
func (idx *recordIndex) units() []string {
	out := make([]string, 0, len(idx.equipment))
	for unit := range idx.equipment {
		out = append(out, unit)
	}
	sort.Strings(out)
	return out
}

// inputs slices the indexed records down to one window/unit pair.
func (idx *recordIndex) inputs(unit string, w model.Window) Inputs {
	return Inputs{
		UnitID:      unit,
		Window:      w,
		Equipment:   inWindow(idx.equipment[unit], w),
		Material:    inWindow(idx.material[unit], w),
		Personnel:   inWindow(idx.personnel[unit], w),
		Environment: inWindow(idx.environment, w),
	}
}

func inWindow(records []model.Record, w model.Window) []model.Record {
	var out []model.Record
	for _, r := range records {
		if w.Contains(r.Timestamp) {
			out = append(out, r)
		}
	}
	return out
}
