package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ylwdream/panko/internal/model"
)

func TestToRecord(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	userID := "u-1"
	s := &model.Sample{
		Name:       "instance:m1.small",
		Type:       model.SampleTypeGauge,
		Unit:       "instance",
		Volume:     1,
		UserID:     &userID,
		ProjectID:  "t-1",
		ResourceID: "i-1",
		MessageID:  "m-1",
		EventType:  "compute.instance.create.end",
		Timestamp:  &ts,
		ResourceMetadata: map[string]any{
			"instance_type": "m1.small",
		},
	}

	r := ToRecord(s)

	assert.Equal(t, "instance:m1.small", r.Name)
	assert.Equal(t, "gauge", r.Type)
	assert.Equal(t, "instance", r.Unit)
	assert.Equal(t, 1.0, r.Volume)
	assert.Equal(t, "u-1", r.UserID)
	assert.Equal(t, "t-1", r.ProjectID)
	assert.Equal(t, "i-1", r.ResourceID)
	assert.Equal(t, model.ToMillis(ts), r.Timestamp)
	assert.JSONEq(t, `{"instance_type":"m1.small"}`, r.ResourceMetadata)
}

func TestToRecordNilUser(t *testing.T) {
	s := &model.Sample{Name: "instance.scheduled", Type: model.SampleTypeDelta}

	r := ToRecord(s)

	assert.Empty(t, r.UserID)
	assert.Empty(t, r.ResourceMetadata)
	// Without a sample timestamp the record falls back to the current time.
	assert.InDelta(t, model.ToMillis(time.Now().UTC()), r.Timestamp, 5000)
}

func TestBatcherThresholds(t *testing.T) {
	record := func() Record {
		return Record{Name: "memory", Type: "gauge", Unit: "MB", Volume: 512}
	}

	t.Run("flags a flush at the record limit", func(t *testing.T) {
		b := NewBatcher(3, 1<<20, time.Hour, nil, "samples", "SNAPPY")

		assert.False(t, b.Add(record()))
		assert.False(t, b.Add(record()))
		assert.True(t, b.Add(record()))
		assert.Equal(t, 3, b.Len())
	})

	t.Run("flags a flush at the byte limit", func(t *testing.T) {
		b := NewBatcher(1000, 40, time.Hour, nil, "samples", "SNAPPY")

		assert.False(t, b.Add(record()))
		assert.True(t, b.Add(record()))
	})

	t.Run("interval flush needs both elapsed time and content", func(t *testing.T) {
		b := NewBatcher(1000, 1<<20, 0, nil, "samples", "SNAPPY")

		assert.False(t, b.ShouldFlushByInterval(), "empty batcher never flushes")
		b.Add(record())
		require.True(t, b.ShouldFlushByInterval())
	})
}
