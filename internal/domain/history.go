package domain

import "time"

// HistoryRecord captures one completed scan.
type HistoryRecord struct {
	ID        string        `json:"id,omitempty"`
	URL       string        `json:"url"`
	Verdict   Verdict       `json:"result"`
	Threats   []ThreatMatch `json:"threats"`
	Timestamp time.Time     `json:"timestamp"`
}

// HistoryStats summarizes a slice of records for insight views.
type HistoryStats struct {
	Total      int             `json:"total"`
	ByVerdict  map[Verdict]int `json:"byVerdict"`
	ThreatTops map[string]int  `json:"threatTypes"`
}

// SummarizeHistory counts records by verdict and threat type.
func SummarizeHistory(records []HistoryRecord) HistoryStats {
	stats := HistoryStats{
		Total:      len(records),
		ByVerdict:  make(map[Verdict]int),
		ThreatTops: make(map[string]int),
	}
	for _, rec := range records {
		stats.ByVerdict[rec.Verdict]++
		for _, threat := range rec.Threats {
			stats.ThreatTops[threat.Type]++
		}
	}
	return stats
}
