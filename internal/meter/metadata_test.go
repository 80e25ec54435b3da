package meter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddReservedMetadata(t *testing.T) {
	t.Run("re-keys every entry under the reserved prefix", func(t *testing.T) {
		target := map[string]any{"instance_id": "i-1"}

		AddReservedMetadata(map[string]any{"team": "billing", "tier": "gold"}, target)

		assert.Equal(t, map[string]any{
			"instance_id":        "i-1",
			"user_metadata.team": "billing",
			"user_metadata.tier": "gold",
		}, target)
	})

	t.Run("overwrites a colliding prefixed key", func(t *testing.T) {
		target := map[string]any{"user_metadata.team": "old"}

		AddReservedMetadata(map[string]any{"team": "new"}, target)

		assert.Equal(t, "new", target["user_metadata.team"])
	})

	t.Run("ignores non-mapping metadata", func(t *testing.T) {
		for name, raw := range map[string]any{
			"nil":    nil,
			"string": "not metadata",
			"list":   []any{"a", "b"},
			"number": 42.0,
		} {
			target := map[string]any{"instance_id": "i-1"}
			AddReservedMetadata(raw, target)
			assert.Equal(t, map[string]any{"instance_id": "i-1"}, target, "case %s", name)
		}
	})

	t.Run("does not mutate the source metadata", func(t *testing.T) {
		src := map[string]any{"team": "billing"}
		AddReservedMetadata(src, map[string]any{})
		assert.Equal(t, map[string]any{"team": "billing"}, src)
	})
}
