package session

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Export formats accepted by ExportSnapshot.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// ExportSnapshot serializes the current snapshot. JSON exports the full
// snapshot; CSV exports the raw readings as sensor_id,value,timestamp
// rows. A snapshot with zero readings still yields the CSV header.
func (s *Session) ExportSnapshot(format string) ([]byte, error) {
	snap := s.Snapshot()

	switch format {
	case FormatJSON:
		return json.MarshalIndent(snap, "", "  ")
	case FormatCSV:
		return exportCSV(snap)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

func exportCSV(snap Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"sensor_id", "value", "timestamp"}); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(snap.RawData))
	for id := range snap.RawData {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		for _, r := range snap.RawData[id] {
			row := []string{
				r.SensorID,
				strconv.FormatFloat(r.Value, 'f', -1, 64),
				strconv.FormatInt(r.Timestamp.UnixMilli(), 10),
			}
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
