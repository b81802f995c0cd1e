package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/fleetscan/fleetscan/pkg/output/dispatcher"
	"github.com/fleetscan/fleetscan/pkg/output/events"
	"github.com/google/uuid"
)

// Export serializes the filtered view of a snapshot through a writer:
// one finding event per matching finding, then a summary event carrying
// the corpus-wide posture and the filter echo, then Flush. The summary
// always reflects the whole snapshot; the echo tells the reader which
// slice the finding list covers. The caller owns closing the writer,
// since document writers render on Close.
func Export(data *SecurityData, filters Filters, w dispatcher.Writer) error {
	if data == nil {
		return errors.New("store: export of nil snapshot")
	}

	exportID := uuid.NewString()
	now := time.Now()

	if w.SupportsEvent(events.EventTypeFinding) {
		matched := filters.Apply(data.Findings)
		for i := range matched {
			ev := &events.FindingEvent{
				BaseEvent: events.BaseEvent{Type: events.EventTypeFinding, Time: now, Run: exportID},
				Finding:   matched[i],
			}
			if err := w.Write(ev); err != nil {
				return fmt.Errorf("store: export finding: %w", err)
			}
		}
	}

	if w.SupportsEvent(events.EventTypeSummary) {
		summary := &events.SummaryEvent{
			BaseEvent: events.BaseEvent{Type: events.EventTypeSummary, Time: now, Run: exportID},
			Summary: events.Summary{
				SecurityScore: data.SecurityScore,
				RiskLevel:     data.RiskLevel,
				Stats:         data.Stats,
				Compliance:    data.ComplianceList(),
				Projects:      data.Projects,
				Services:      data.Services,
			},
			Filters: filters.Echo(),
		}
		if err := w.Write(summary); err != nil {
			return fmt.Errorf("store: export summary: %w", err)
		}
	}

	return w.Flush()
}
