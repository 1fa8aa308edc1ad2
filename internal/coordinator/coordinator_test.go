package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalpipe/ingest/internal/config"
	"github.com/vitalpipe/ingest/internal/ingesterrors"
	"github.com/vitalpipe/ingest/internal/model"
	"github.com/vitalpipe/ingest/internal/queue"
)

type fakeStore struct {
	created   []*model.RawIngestion
	finalized map[uuid.UUID]model.ProcessingStatus
	duplicate *model.RawIngestion
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{finalized: map[uuid.UUID]model.ProcessingStatus{}}
}

func (s *fakeStore) Create(_ context.Context, r *model.RawIngestion) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, r)
	return nil
}

func (s *fakeStore) Get(_ context.Context, id uuid.UUID) (*model.RawIngestion, error) {
	for _, r := range s.created {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindRecentDuplicate(_ context.Context, _ uuid.UUID, _ string, _ time.Duration) (*model.RawIngestion, error) {
	return s.duplicate, nil
}

func (s *fakeStore) Finalize(_ context.Context, id uuid.UUID, status model.ProcessingStatus, _ []model.ErrorEntry, _ model.ReconcileMetadata) error {
	s.finalized[id] = status
	return nil
}

type fakeDispatcher struct {
	result model.BatchResult
	err    error
}

func (d *fakeDispatcher) Process(_ context.Context, payload model.Payload) (model.BatchResult, error) {
	if d.err != nil {
		return model.BatchResult{}, d.err
	}
	if d.result.TotalProcessed == 0 && d.result.PerFamily == nil {
		return model.BatchResult{TotalProcessed: payload.Count()}, nil
	}
	return d.result, nil
}

type fakeEnqueuer struct {
	jobs []queue.Job
}

func (e *fakeEnqueuer) Enqueue(_ context.Context, job queue.Job) error {
	e.jobs = append(e.jobs, job)
	return nil
}

func cleanHeartRatePayload() []byte {
	return []byte(`{"data":{"metrics":[
		{"type":"heart_rate","user_id":"` + uuid.New().String() + `","recorded_at":"2026-01-01T00:00:00Z","bpm":70,"context":"resting"}
	]}}`)
}

func TestIngest_EmptyPayloadRejected(t *testing.T) {
	s := newFakeStore()
	d := &fakeDispatcher{}
	c := New(s, d, &fakeEnqueuer{}, *config.Default(), log.NewNopLogger())

	_, err := c.Ingest(context.Background(), uuid.New(), []byte(`{"data":{"metrics":[]}}`))
	require.Error(t, err)
}

func TestIngest_DuplicatePayloadRejectedWithOriginalID(t *testing.T) {
	s := newFakeStore()
	s.duplicate = &model.RawIngestion{ID: uuid.New()}
	d := &fakeDispatcher{}
	c := New(s, d, &fakeEnqueuer{}, *config.Default(), log.NewNopLogger())

	_, err := c.Ingest(context.Background(), uuid.New(), cleanHeartRatePayload())
	require.Error(t, err)

	var dupErr *ingesterrors.DuplicatePayloadError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, s.duplicate.ID, dupErr.OriginalRawIngestionID)
}

func TestIngest_SmallCleanPayloadProcessesSynchronously(t *testing.T) {
	s := newFakeStore()
	d := &fakeDispatcher{}
	c := New(s, d, &fakeEnqueuer{}, *config.Default(), log.NewNopLogger())

	resp, err := c.Ingest(context.Background(), uuid.New(), cleanHeartRatePayload())
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, model.StatusProcessed, resp.ProcessingStatus)
	assert.Equal(t, model.StatusProcessed, s.finalized[resp.RawIngestionID])
}

func TestIngest_LargePayloadRoutedAsync(t *testing.T) {
	s := newFakeStore()
	d := &fakeDispatcher{}
	enq := &fakeEnqueuer{}
	cfg := *config.Default()
	cfg.Async.ThresholdRecords = 0 // force every payload down the async path
	c := New(s, d, enq, cfg, log.NewNopLogger())

	resp, err := c.Ingest(context.Background(), uuid.New(), cleanHeartRatePayload())
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, model.StatusAcceptedForProcessing, resp.ProcessingStatus)
	assert.Equal(t, 0, resp.ProcessedCount)
	require.Len(t, enq.jobs, 1)
	assert.Equal(t, resp.RawIngestionID, enq.jobs[0].RawIngestionID)
}
