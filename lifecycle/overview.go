package lifecycle

import (
	"encoding/json"
	"errors"

	"papertrail/apperr"
)

// ErrOverviewFormat meldet ein Dokument von sp_get_paper_overview, das kein JSON-Objekt ist.
var ErrOverviewFormat = errors.New("Stored procedure returned invalid format.")

// decodeOverview zerlegt das Overview-Dokument. Fehlende oder falsch
// geformte Teilmengen werden zu leeren Listen.
func decodeOverview(raw []byte) (*Overview, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		return nil, apperr.Wrap(apperr.KindPersistence, ErrOverviewFormat.Error(), ErrOverviewFormat)
	}

	papers := rowSet(doc["paper"])
	if len(papers) == 0 {
		// ein einzelnes Objekt statt einer Liste ist ebenfalls zulässig
		var single map[string]any
		if err := json.Unmarshal(doc["paper"], &single); err == nil && len(single) > 0 {
			papers = []map[string]any{single}
		}
	}
	if len(papers) == 0 {
		return nil, apperr.NotFound(msgPaperNotFound)
	}

	return &Overview{
		Paper:       papers[0],
		Authors:     rowSet(doc["authors"]),
		Revisions:   rowSet(doc["revisions"]),
		ActivityLog: rowSet(doc["activityLog"]),
	}, nil
}

func rowSet(raw json.RawMessage) []map[string]any {
	rows := []map[string]any{}
	if len(raw) == 0 {
		return rows
	}
	var decoded []map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return rows
	}
	for _, row := range decoded {
		if row != nil {
			rows = append(rows, row)
		}
	}
	return rows
}
