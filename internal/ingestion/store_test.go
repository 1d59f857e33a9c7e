package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	v1 "github.com/itad-lab/itad-metrics/internal/api/v1"
	"github.com/itad-lab/itad-metrics/internal/core/storage"
	"github.com/itad-lab/itad-metrics/internal/core/storage/memory"
	"github.com/itad-lab/itad-metrics/internal/index"
	storagemocks "github.com/itad-lab/itad-metrics/internal/mocks/storage"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func mustRecord(t *testing.T, id string) *v1.AssetRecord {
	t.Helper()
	p := validPayload(id)
	rec, verr := p.ToRecord(nil)
	require.Nil(t, verr)
	return rec
}

func TestStore_AppendIndexesBeforeReturn(t *testing.T) {
	s := NewStore(memory.NewRecordStore(), index.New())
	fixed := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	status, err := s.Append(context.Background(), mustRecord(t, "rec-1"))
	require.NoError(t, err)
	require.Equal(t, StatusAccepted, status)

	require.Equal(t, int64(1), s.Version())
	got := s.Indexer().RecordsFor(index.ByDeviceType, "Laptop", s.Version())
	require.Len(t, got, 1)
	require.Equal(t, fixed, got[0].IngestedAt)
	require.Equal(t, int64(1), got[0].IngestSeq)
}

func TestStore_DuplicateIDsAreNotStoredTwice(t *testing.T) {
	backend := memory.NewRecordStore()
	s := NewStore(backend, index.New())
	ctx := context.Background()

	status, err := s.Append(ctx, mustRecord(t, "rec-1"))
	require.NoError(t, err)
	require.Equal(t, StatusAccepted, status)

	status, err = s.Append(ctx, mustRecord(t, "rec-1"))
	require.NoError(t, err)
	require.Equal(t, StatusDuplicate, status)

	require.Equal(t, 1, s.Len())
	require.Equal(t, 1, backend.Len())
}

func TestStore_ConcurrentDuplicatesAcceptOnce(t *testing.T) {
	s := NewStore(memory.NewRecordStore(), index.New())

	recs := make([]*v1.AssetRecord, 20)
	for i := range recs {
		recs[i] = mustRecord(t, "same-id")
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		failures int
	)
	for _, rec := range recs {
		wg.Add(1)
		go func(rec *v1.AssetRecord) {
			defer wg.Done()
			status, err := s.Append(context.Background(), rec)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
			}
			if status == StatusAccepted {
				accepted++
			}
		}(rec)
	}
	wg.Wait()

	require.Zero(t, failures)

	require.Equal(t, 1, accepted)
	require.Equal(t, 1, s.Len())
}

func TestStore_BackendDuplicateIsReportedAsDuplicate(t *testing.T) {
	backend := storagemocks.NewRecordStore(t)
	backend.EXPECT().
		SaveRecord(mock.Anything, mock.MatchedBy(func(r *v1.AssetRecord) bool { return r.ID == "rec-old" })).
		Return(storage.ErrDuplicate).
		Once()

	s := NewStore(backend, index.New())
	status, err := s.Append(context.Background(), mustRecord(t, "rec-old"))
	require.NoError(t, err)
	require.Equal(t, StatusDuplicate, status)
	require.Equal(t, 0, s.Len())
}

func TestStore_BackendFailureIsAnError(t *testing.T) {
	backend := storagemocks.NewRecordStore(t)
	backend.EXPECT().
		SaveRecord(mock.Anything, mock.Anything).
		Return(errors.New("connection refused")).
		Once()

	s := NewStore(backend, index.New())
	status, err := s.Append(context.Background(), mustRecord(t, "rec-1"))
	require.Error(t, err)
	require.Equal(t, StatusError, status)
	require.Equal(t, int64(0), s.Version())

	// The failed id is not reserved; a retry reaches the backend again.
	backend.EXPECT().SaveRecord(mock.Anything, mock.Anything).Return(nil).Once()
	status, err = s.Append(context.Background(), mustRecord(t, "rec-1"))
	require.NoError(t, err)
	require.Equal(t, StatusAccepted, status)
}

func TestStore_ReplayPaginatesByCursor(t *testing.T) {
	backend := memory.NewRecordStore()
	ctx := context.Background()
	for i := 1; i <= 7; i++ {
		require.NoError(t, backend.SaveRecord(ctx, mustRecord(t, fmt.Sprintf("rec-%d", i))))
	}

	s := NewStore(backend, index.New())
	loaded, err := s.Replay(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, 7, loaded)
	require.Equal(t, int64(7), s.Version())

	// Replayed ids are known: re-ingesting them is a no-op.
	status, err := s.Append(ctx, mustRecord(t, "rec-4"))
	require.NoError(t, err)
	require.Equal(t, StatusDuplicate, status)
}

func TestStore_ReplayStopsOnBackendError(t *testing.T) {
	backend := storagemocks.NewRecordStore(t)
	backend.EXPECT().
		RetrieveRecordsAfterCursor(mock.Anything, int64(0), 2).
		Return([]*v1.AssetRecord{
			{ID: "a", IngestSeq: 1, DispositionDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
			{ID: "b", IngestSeq: 2, DispositionDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		}, nil).
		Once()
	backend.EXPECT().
		RetrieveRecordsAfterCursor(mock.Anything, int64(2), 2).
		Return(nil, errors.New("db failure")).
		Once()

	s := NewStore(backend, index.New())
	loaded, err := s.Replay(context.Background(), 2)
	require.ErrorContains(t, err, "replay after cursor 2")
	require.Equal(t, 2, loaded)
}
