package commands

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/phishnet-go/internal/domain"
)

func sampleRecords() []domain.HistoryRecord {
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return []domain.HistoryRecord{
		{ID: "b", URL: "https://bad.example/", Verdict: domain.VerdictMalicious, Timestamp: ts,
			Threats: []domain.ThreatMatch{{Type: "SOCIAL_ENGINEERING", Platform: "ANY_PLATFORM", URL: "https://bad.example/"}}},
		{ID: "a", URL: "https://good.example/", Verdict: domain.VerdictSafe, Timestamp: ts.Add(-time.Minute), Threats: []domain.ThreatMatch{}},
	}
}

func TestListHistory(t *testing.T) {
	var out bytes.Buffer
	listHistory(&out, sampleRecords())
	assert.Contains(t, out.String(), "https://bad.example/")
	assert.Contains(t, out.String(), "SOCIAL_ENGINEERING on ANY_PLATFORM")

	out.Reset()
	listHistory(&out, nil)
	assert.Contains(t, out.String(), msgNoHistory)
}

func TestShowHistoryStats(t *testing.T) {
	var out bytes.Buffer
	showHistoryStats(&out, domain.SummarizeHistory(sampleRecords()))
	assert.Contains(t, out.String(), "Scans: 2")
	assert.Contains(t, out.String(), "SOCIAL_ENGINEERING: 1")
}

func TestExportHistoryWritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	require.NoError(t, exportHistory(path, sampleRecords()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec domain.HistoryRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		urls = append(urls, rec.URL)
	}
	assert.Equal(t, []string{"https://bad.example/", "https://good.example/"}, urls)
}
