package meter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ylwdream/panko/internal/model"
)

// newComputeNotification builds a compute.instance.* message with the fixed
// identity triple plus any extra payload fields.
func newComputeNotification(eventType string, extra map[string]any) *model.Notification {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	payload := map[string]any{
		"user_id":     "u-1",
		"tenant_id":   "t-1",
		"instance_id": "i-1",
	}
	for k, v := range extra {
		payload[k] = v
	}
	return &model.Notification{
		MessageID:   "m-1",
		PublisherID: "compute.host-1",
		EventType:   eventType,
		Timestamp:   &ts,
		Payload:     payload,
	}
}

func TestProcessSanitizesMetadata(t *testing.T) {
	t.Run("folds mapping metadata into the payload", func(t *testing.T) {
		msg := newComputeNotification("compute.instance.create.end", map[string]any{
			"metadata": map[string]any{"team": "billing"},
		})

		samples, err := Instance.Process(msg)
		require.NoError(t, err)
		require.Len(t, samples, 1)

		assert.NotContains(t, msg.Payload, "metadata")
		assert.Equal(t, "billing", msg.Payload["user_metadata.team"])
		// The sanitized payload rides along as resource metadata.
		assert.Equal(t, "billing", samples[0].ResourceMetadata["user_metadata.team"])
	})

	t.Run("leaves non-mapping metadata in place", func(t *testing.T) {
		msg := newComputeNotification("compute.instance.create.end", map[string]any{
			"metadata": []any{"not", "a", "mapping"},
		})

		_, err := Instance.Process(msg)
		require.NoError(t, err)

		assert.Equal(t, []any{"not", "a", "mapping"}, msg.Payload["metadata"])
	})

	t.Run("is a no-op the second time", func(t *testing.T) {
		msg := newComputeNotification("compute.instance.create.end", map[string]any{
			"metadata": map[string]any{"team": "billing"},
		})

		_, err := Instance.Process(msg)
		require.NoError(t, err)
		before := len(msg.Payload)

		_, err = Instance.Process(msg)
		require.NoError(t, err)
		assert.Len(t, msg.Payload, before)
		assert.Equal(t, "billing", msg.Payload["user_metadata.team"])
	})
}

func TestInstance(t *testing.T) {
	msg := newComputeNotification("compute.instance.exists", nil)

	samples, err := Instance.Process(msg)
	require.NoError(t, err)
	require.Len(t, samples, 1)

	s := samples[0]
	assert.Equal(t, "instance", s.Name)
	assert.Equal(t, model.SampleTypeGauge, s.Type)
	assert.Equal(t, "instance", s.Unit)
	assert.Equal(t, 1.0, s.Volume)
	require.NotNil(t, s.UserID)
	assert.Equal(t, "u-1", *s.UserID)
	assert.Equal(t, "t-1", s.ProjectID)
	assert.Equal(t, "i-1", s.ResourceID)
	assert.Equal(t, "m-1", s.MessageID)
	assert.Equal(t, "compute.instance.exists", s.EventType)
}

func TestResourceGauges(t *testing.T) {
	cases := []struct {
		converter *Converter
		extra     map[string]any
		name      string
		unit      string
		volume    float64
	}{
		{Memory, map[string]any{"memory_mb": 512.0}, "memory", "MB", 512},
		{VCpus, map[string]any{"vcpus": 2.0}, "vcpus", "vcpu", 2},
		{RootDiskSize, map[string]any{"root_gb": 20.0}, "disk.root.size", "GB", 20},
		{EphemeralDiskSize, map[string]any{"ephemeral_gb": 0.0}, "disk.ephemeral.size", "GB", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := newComputeNotification("compute.instance.create.end", tc.extra)

			samples, err := tc.converter.Process(msg)
			require.NoError(t, err)
			require.Len(t, samples, 1)

			s := samples[0]
			assert.Equal(t, tc.name, s.Name)
			assert.Equal(t, model.SampleTypeGauge, s.Type)
			assert.Equal(t, tc.unit, s.Unit)
			assert.Equal(t, tc.volume, s.Volume)
			require.NotNil(t, s.UserID)
			assert.Equal(t, "u-1", *s.UserID)
			assert.Equal(t, "t-1", s.ProjectID)
			assert.Equal(t, "i-1", s.ResourceID)
		})
	}

	t.Run("missing volume field fails", func(t *testing.T) {
		msg := newComputeNotification("compute.instance.create.end", nil)

		_, err := Memory.Process(msg)
		var missing *MissingFieldError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "memory_mb", missing.Field)
	})

	t.Run("missing identity field fails", func(t *testing.T) {
		msg := newComputeNotification("compute.instance.create.end", map[string]any{"memory_mb": 512.0})
		delete(msg.Payload, "user_id")

		_, err := Memory.Process(msg)
		var missing *MissingFieldError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "user_id", missing.Field)
	})
}

func TestInstanceScheduled(t *testing.T) {
	t.Run("reads nested instance properties", func(t *testing.T) {
		msg := &model.Notification{
			MessageID: "m-1",
			EventType: "scheduler.run_instance.scheduled",
			Payload: map[string]any{
				"instance_id": "i-1",
				"request_spec": map[string]any{
					"instance_properties": map[string]any{
						"project_id": "p-1",
						"metadata":   map[string]any{"team": "billing"},
					},
				},
			},
		}

		samples, err := InstanceScheduled.Process(msg)
		require.NoError(t, err)
		require.Len(t, samples, 1)

		s := samples[0]
		assert.Equal(t, "instance.scheduled", s.Name)
		assert.Equal(t, model.SampleTypeDelta, s.Type)
		assert.Equal(t, "instance", s.Unit)
		assert.Equal(t, 1.0, s.Volume)
		assert.Nil(t, s.UserID)
		assert.Equal(t, "p-1", s.ProjectID)
		assert.Equal(t, "i-1", s.ResourceID)

		// Sanitization applied to the nested properties, not the payload root.
		props := msg.Payload["request_spec"].(map[string]any)["instance_properties"].(map[string]any)
		assert.NotContains(t, props, "metadata")
		assert.Equal(t, "billing", props["user_metadata.team"])
	})

	t.Run("missing request_spec fails", func(t *testing.T) {
		msg := &model.Notification{
			EventType: "scheduler.run_instance.scheduled",
			Payload:   map[string]any{"instance_id": "i-1"},
		}

		_, err := InstanceScheduled.Process(msg)
		var missing *MissingFieldError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "request_spec", missing.Field)
	})
}

func TestInstanceFlavor(t *testing.T) {
	t.Run("emits nothing without a flavor", func(t *testing.T) {
		msg := newComputeNotification("compute.instance.create.end", nil)

		samples, err := InstanceFlavor.Process(msg)
		require.NoError(t, err)
		assert.Empty(t, samples)
	})

	t.Run("emits nothing for an empty flavor", func(t *testing.T) {
		msg := newComputeNotification("compute.instance.create.end", map[string]any{"instance_type": ""})

		samples, err := InstanceFlavor.Process(msg)
		require.NoError(t, err)
		assert.Empty(t, samples)
	})

	t.Run("interpolates the flavor into the sample name", func(t *testing.T) {
		msg := newComputeNotification("compute.instance.create.end", map[string]any{"instance_type": "m1.small"})

		samples, err := InstanceFlavor.Process(msg)
		require.NoError(t, err)
		require.Len(t, samples, 1)

		assert.Equal(t, "instance:m1.small", samples[0].Name)
		assert.Equal(t, model.SampleTypeGauge, samples[0].Type)
		assert.Equal(t, 1.0, samples[0].Volume)
	})
}

func TestInstanceDelete(t *testing.T) {
	entry := func(name string, volume float64) map[string]any {
		return map[string]any{"name": name, "type": "cumulative", "unit": "ns", "volume": volume}
	}

	t.Run("empty batch yields no samples and no error", func(t *testing.T) {
		msg := newComputeNotification("compute.instance.delete.samples", map[string]any{"samples": []any{}})

		samples, err := InstanceDelete.Process(msg)
		require.NoError(t, err)
		assert.Empty(t, samples)
	})

	t.Run("absent batch yields no samples and no error", func(t *testing.T) {
		msg := newComputeNotification("compute.instance.delete.samples", nil)

		samples, err := InstanceDelete.Process(msg)
		require.NoError(t, err)
		assert.Empty(t, samples)
	})

	t.Run("decodes every entry verbatim with top-level identity", func(t *testing.T) {
		msg := newComputeNotification("compute.instance.delete.samples", map[string]any{
			"samples": []any{entry("cpu", 100), entry("disk.io", 200), entry("net.rx", 300)},
		})

		samples, err := InstanceDelete.Process(msg)
		require.NoError(t, err)
		require.Len(t, samples, 3)

		assert.Equal(t, "cpu", samples[0].Name)
		assert.Equal(t, model.SampleTypeCumulative, samples[0].Type)
		assert.Equal(t, "ns", samples[0].Unit)
		assert.Equal(t, 100.0, samples[0].Volume)
		assert.Equal(t, "disk.io", samples[1].Name)
		assert.Equal(t, 300.0, samples[2].Volume)
		for _, s := range samples {
			require.NotNil(t, s.UserID)
			assert.Equal(t, "u-1", *s.UserID)
			assert.Equal(t, "t-1", s.ProjectID)
			assert.Equal(t, "i-1", s.ResourceID)
		}
	})

	t.Run("a malformed entry is skipped, the rest still converts", func(t *testing.T) {
		msg := newComputeNotification("compute.instance.delete.samples", map[string]any{
			"samples": []any{
				entry("cpu", 100),
				map[string]any{"name": "broken", "type": "gauge"}, // no unit, no volume
				entry("net.rx", 300),
			},
		})

		samples, err := InstanceDelete.Process(msg)
		require.Error(t, err)
		require.Len(t, samples, 2)
		assert.Equal(t, "cpu", samples[0].Name)
		assert.Equal(t, "net.rx", samples[1].Name)

		var missing *MissingFieldError
		assert.True(t, errors.As(err, &missing))
		assert.Contains(t, err.Error(), "samples[1]")
	})

	t.Run("missing top-level identity fails the whole batch", func(t *testing.T) {
		msg := newComputeNotification("compute.instance.delete.samples", map[string]any{
			"samples": []any{entry("cpu", 100)},
		})
		delete(msg.Payload, "tenant_id")

		samples, err := InstanceDelete.Process(msg)
		var missing *MissingFieldError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "tenant_id", missing.Field)
		assert.Empty(t, samples)
	})
}
