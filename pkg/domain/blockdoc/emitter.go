package blockdoc

import (
	"fmt"

	"github.com/runcoach/analysis/pkg/domain/activity"
	"github.com/runcoach/analysis/pkg/domain/segment"
	"github.com/runcoach/analysis/pkg/domain/stats"
)

// Emit assembles the document for one activity from its parallel slices:
// blocks, per-block stats, and per-block compliance results (nil entries
// mean no target or nothing scorable). The slices must be index-aligned;
// compliance may also be nil entirely when no targets were prescribed.
func Emit(stream *activity.Stream, signal activity.Metric, blocks []segment.Block, blockStats []stats.BlockStats, compliance []*stats.ComplianceResult) (*Document, error) {
	if len(blocks) != len(blockStats) {
		return nil, fmt.Errorf("blockdoc: %d blocks but %d stats entries", len(blocks), len(blockStats))
	}
	if compliance != nil && len(compliance) != len(blocks) {
		return nil, fmt.Errorf("blockdoc: %d blocks but %d compliance entries", len(blocks), len(compliance))
	}

	doc := &Document{
		ActivityTotals: Totals{
			DurationS: stream.Span(),
			DistanceM: stream.TotalDistanceM,
		},
		PrimarySignal: signal,
		Blocks:        make([]BlockEntry, 0, len(blocks)),
	}

	for i, blk := range blocks {
		st := blockStats[i]
		entry := BlockEntry{
			Phase:            blk.Phase,
			DurationS:        st.DurationS,
			AvgPower:         st.AvgPower,
			MaxPower:         st.MaxPower,
			MinPower:         st.MinPower,
			AvgHR:            st.AvgHR,
			MaxHR:            st.MaxHR,
			AvgPace:          st.AvgPace,
			AvgCadence:       st.AvgCadence,
			ZoneDistribution: st.ZoneDistribution,
			HRDriftPct:       st.HRDriftPct,
			HRDelta5s:        st.HRDelta5s,
		}
		if entry.ZoneDistribution == nil {
			entry.ZoneDistribution = map[string]float64{}
		}
		if compliance != nil && compliance[i] != nil {
			c := compliance[i]
			entry.Target = &TargetSpec{Metric: c.Target.Metric, Lower: c.Target.Lower, Upper: c.Target.Upper}
			entry.CompliancePct = activity.Float64(c.CompliancePct)
			entry.PctBelow = activity.Float64(c.PctBelow)
			entry.PctAbove = activity.Float64(c.PctAbove)
		}
		doc.Blocks = append(doc.Blocks, entry)
	}
	return doc, nil
}
