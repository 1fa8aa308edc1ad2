package dispatch

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/vitalpipe/ingest/internal/model"
)

func TestBlockingPool_ValidateAllPreservesOrder(t *testing.T) {
	user := uuid.New()
	var records []model.HealthMetric
	for i := 0; i < 50; i++ {
		records = append(records, heartRate(user, 60+i, i))
	}

	pool := newBlockingPool(4)
	errs := pool.validateAll(records, func(m model.HealthMetric) error {
		if m.(model.HeartRateMetric).BPM%2 == 0 {
			return fmt.Errorf("even bpm at index %d", m.RawIndex())
		}
		return nil
	})

	for i, err := range errs {
		bpm := records[i].(model.HeartRateMetric).BPM
		if bpm%2 == 0 {
			assert.Error(t, err)
		} else {
			assert.NoError(t, err)
		}
	}
}

func TestBlockingPool_EmptyInput(t *testing.T) {
	pool := newBlockingPool(4)
	errs := pool.validateAll(nil, func(model.HealthMetric) error { return nil })
	assert.Empty(t, errs)
}
