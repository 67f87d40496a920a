package history

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/doeshing/phishnet-go/internal/domain"
	"github.com/doeshing/phishnet-go/internal/infrastructure/storage"
	"github.com/doeshing/phishnet-go/internal/pkg/logger"
	"github.com/doeshing/phishnet-go/internal/ports"
)

func record(i int) domain.HistoryRecord {
	return domain.HistoryRecord{
		URL:       fmt.Sprintf("https://site%d.example/", i),
		Verdict:   domain.VerdictSafe,
		Threats:   []domain.ThreatMatch{},
		Timestamp: time.Unix(int64(i), 0).UTC(),
	}
}

func TestAppendKeepsNewestFirstAndBounded(t *testing.T) {
	kv := storage.NewMemoryStore()
	log := NewLog(kv, "", 0, logger.Nop())

	for i := 0; i < 120; i++ {
		log.Append(context.Background(), record(i))
		records := log.Records(0)
		if len(records) > domain.DefaultMaxScanHistory {
			t.Fatalf("history grew to %d entries", len(records))
		}
		if records[0].URL != record(i).URL {
			t.Fatalf("head must be the latest append, got %s", records[0].URL)
		}
	}

	records := log.Records(0)
	if len(records) != domain.DefaultMaxScanHistory {
		t.Fatalf("expected %d records, got %d", domain.DefaultMaxScanHistory, len(records))
	}
	if records[len(records)-1].URL != record(70).URL {
		t.Fatalf("oldest surviving record should be #70, got %s", records[len(records)-1].URL)
	}

	reloaded := NewLog(kv, "", 0, logger.Nop())
	reloaded.Load(context.Background())
	if got := reloaded.Records(1); len(got) != 1 || got[0].URL != record(119).URL {
		t.Fatalf("persisted history not reloaded, got %+v", got)
	}
}

func TestAppendSeesRewritesFromOtherContexts(t *testing.T) {
	kv := storage.NewMemoryStore()
	log := NewLog(kv, "", 3, logger.Nop())
	log.Append(context.Background(), record(1))

	_ = kv.Set(context.Background(), domain.DefaultScanHistoryKey, []byte(`[]`))
	log.Append(context.Background(), record(2))

	if got := log.Records(0); len(got) != 1 {
		t.Fatalf("expected storage to be authoritative, got %d records", len(got))
	}
}

func TestAppendSurvivesStorageFailure(t *testing.T) {
	log := NewLog(failingStore{}, "", 2, logger.Nop())

	log.Append(context.Background(), record(1))
	log.Append(context.Background(), record(2))
	log.Append(context.Background(), record(3))

	got := log.Records(0)
	if len(got) != 2 || got[0].URL != record(3).URL || got[1].URL != record(2).URL {
		t.Fatalf("in-memory history should keep working without storage, got %+v", got)
	}
}

func TestMalformedStoredHistoryReadsAsEmpty(t *testing.T) {
	kv := storage.NewMemoryStore()
	_ = kv.Set(context.Background(), domain.DefaultScanHistoryKey, []byte(`{"not":"a list"}`))

	log := NewLog(kv, "", 0, logger.Nop())
	log.Append(context.Background(), record(1))
	if got := log.Records(0); len(got) != 1 {
		t.Fatalf("expected a single record, got %d", len(got))
	}
}

type failingStore struct{}

var errDisk = errors.New("disk unavailable")

func (failingStore) Get(context.Context, string) ([]byte, error) { return nil, errDisk }
func (failingStore) Set(context.Context, string, []byte) error { return errDisk }
func (failingStore) Delete(context.Context, string) error { return errDisk }
func (failingStore) Subscribe(func(ports.StorageChange)) func() { return func() {} }
func (failingStore) Close() error { return nil }
