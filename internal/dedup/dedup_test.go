package dedup

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/vitalpipe/ingest/internal/model"
)

func hr(userID uuid.UUID, at time.Time, bpm int, context string) model.HealthMetric {
	return model.HeartRateMetric{
		Base:    model.NewBase(userID, at, "test-device", 0),
		BPM:     bpm,
		Context: context,
	}
}

func TestDeduplicate_FirstOccurrenceWins(t *testing.T) {
	user := uuid.New()
	now := time.Now()

	records := []model.HealthMetric{
		hr(user, now, 70, "resting"),
		hr(user, now, 999, "resting"), // duplicate key, later value discarded from the unique set
		hr(user, now.Add(time.Minute), 72, "resting"),
	}

	result := Deduplicate(records)
	assert.Equal(t, 1, result.Removed)
	assert.Len(t, result.Unique, 2)
	assert.Equal(t, 70, result.Unique[0].(model.HeartRateMetric).BPM)
}

func TestDeduplicate_OrderPreserved(t *testing.T) {
	user := uuid.New()
	base := time.Now()

	var records []model.HealthMetric
	for i := 0; i < 50; i++ {
		records = append(records, hr(user, base.Add(time.Duration(i)*time.Second), 60+i, "resting"))
	}

	result := Deduplicate(records)
	assert.Equal(t, 0, result.Removed)
	require := result.Unique
	for i, r := range require {
		assert.Equal(t, 60+i, r.(model.HeartRateMetric).BPM)
	}
}

func TestDeduplicate_DiscriminatorKeepsRecordsDistinct(t *testing.T) {
	user := uuid.New()
	now := time.Now()

	records := []model.HealthMetric{
		hr(user, now, 70, "resting"),
		hr(user, now, 140, "workout"),
	}

	result := Deduplicate(records)
	assert.Equal(t, 0, result.Removed)
	assert.Len(t, result.Unique, 2)
}

func TestDeduplicate_EmptyInput(t *testing.T) {
	result := Deduplicate(nil)
	assert.Equal(t, 0, result.Removed)
	assert.Empty(t, result.Unique)
}
