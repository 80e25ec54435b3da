package meter

import (
	"errors"
	"fmt"

	"github.com/ylwdream/panko/internal/model"
)

// Converters is the closed set of compute notification converters the
// dispatcher selects from.
var Converters = []*Converter{
	InstanceScheduled,
	Instance,
	Memory,
	VCpus,
	RootDiskSize,
	EphemeralDiskSize,
	InstanceFlavor,
	InstanceDelete,
}

// computeEventTypes covers every lifecycle notification a compute host emits
// for an instance.
var computeEventTypes = []string{"compute.instance.*"}

// payloadIdentity reads the fixed identity triple every compute.instance
// payload carries.
func payloadIdentity(props map[string]any) (userID *string, projectID, resourceID string, err error) {
	user, err := stringField(props, "user_id")
	if err != nil {
		return nil, "", "", err
	}
	projectID, err = stringField(props, "tenant_id")
	if err != nil {
		return nil, "", "", err
	}
	resourceID, err = stringField(props, "instance_id")
	if err != nil {
		return nil, "", "", err
	}
	return &user, projectID, resourceID, nil
}

// constantGauge derives a single presence gauge with volume 1.
func constantGauge(name, unit string) DeriveFunc {
	return func(msg *model.Notification, props map[string]any) ([]model.Sample, error) {
		userID, projectID, resourceID, err := payloadIdentity(props)
		if err != nil {
			return nil, err
		}
		return []model.Sample{model.SampleFromNotification(
			name, model.SampleTypeGauge, unit, 1,
			userID, projectID, resourceID, msg)}, nil
	}
}

// payloadGauge derives a single gauge whose volume is read from volumeKey.
func payloadGauge(name, unit, volumeKey string) DeriveFunc {
	return func(msg *model.Notification, props map[string]any) ([]model.Sample, error) {
		volume, err := numberField(props, volumeKey)
		if err != nil {
			return nil, err
		}
		userID, projectID, resourceID, err := payloadIdentity(props)
		if err != nil {
			return nil, err
		}
		return []model.Sample{model.SampleFromNotification(
			name, model.SampleTypeGauge, unit, volume,
			userID, projectID, resourceID, msg)}, nil
	}
}

// InstanceScheduled meters scheduler placement decisions. The resource
// description lives deeper in the payload than for compute events, and no
// user is known yet at scheduling time.
var InstanceScheduled = &Converter{
	Name:       "instance.scheduled",
	EventTypes: []string{"scheduler.run_instance.scheduled"},
	Properties: func(msg *model.Notification) (map[string]any, error) {
		if msg.Payload == nil {
			return nil, &MissingFieldError{Field: "payload"}
		}
		spec, err := mapField(msg.Payload, "request_spec")
		if err != nil {
			return nil, err
		}
		return mapField(spec, "instance_properties")
	},
	Derive: func(msg *model.Notification, props map[string]any) ([]model.Sample, error) {
		projectID, err := stringField(props, "project_id")
		if err != nil {
			return nil, err
		}
		resourceID, err := stringField(msg.Payload, "instance_id")
		if err != nil {
			return nil, err
		}
		return []model.Sample{model.SampleFromNotification(
			"instance.scheduled", model.SampleTypeDelta, "instance", 1,
			nil, projectID, resourceID, msg)}, nil
	},
}

// Instance is the generic presence sample emitted for every lifecycle event.
var Instance = &Converter{
	Name:       "instance",
	EventTypes: computeEventTypes,
	Derive:     constantGauge("instance", "instance"),
}

var Memory = &Converter{
	Name:       "memory",
	EventTypes: computeEventTypes,
	Derive:     payloadGauge("memory", "MB", "memory_mb"),
}

var VCpus = &Converter{
	Name:       "vcpus",
	EventTypes: computeEventTypes,
	Derive:     payloadGauge("vcpus", "vcpu", "vcpus"),
}

var RootDiskSize = &Converter{
	Name:       "disk.root.size",
	EventTypes: computeEventTypes,
	Derive:     payloadGauge("disk.root.size", "GB", "root_gb"),
}

var EphemeralDiskSize = &Converter{
	Name:       "disk.ephemeral.size",
	EventTypes: computeEventTypes,
	Derive:     payloadGauge("disk.ephemeral.size", "GB", "ephemeral_gb"),
}

// InstanceFlavor meters instances per flavor label. An instance without a
// flavor yields no sample: zero output is a valid outcome here, not a
// failure.
var InstanceFlavor = &Converter{
	Name:       "instance.flavor",
	EventTypes: computeEventTypes,
	Derive: func(msg *model.Notification, props map[string]any) ([]model.Sample, error) {
		flavor, _ := props["instance_type"].(string)
		if flavor == "" {
			return nil, nil
		}
		userID, projectID, resourceID, err := payloadIdentity(props)
		if err != nil {
			return nil, err
		}
		return []model.Sample{model.SampleFromNotification(
			"instance:"+flavor, model.SampleTypeGauge, "instance", 1,
			userID, projectID, resourceID, msg)}, nil
	},
}

// InstanceDelete decodes the pre-formed samples a compute host bundles into
// its final delete notification. Entries are isolated: a malformed entry is
// skipped and reported through the returned (joined) error, the rest of the
// batch still converts. An empty or absent list yields no samples and no
// error.
var InstanceDelete = &Converter{
	Name:       "instance.delete.samples",
	EventTypes: []string{"compute.instance.delete.samples"},
	Derive: func(msg *model.Notification, props map[string]any) ([]model.Sample, error) {
		entries, _ := props["samples"].([]any)
		if len(entries) == 0 {
			return nil, nil
		}
		userID, projectID, resourceID, err := payloadIdentity(props)
		if err != nil {
			return nil, err
		}
		samples := make([]model.Sample, 0, len(entries))
		var errs []error
		for i, raw := range entries {
			entry, ok := raw.(map[string]any)
			if !ok {
				errs = append(errs, fmt.Errorf("samples[%d]: not a mapping", i))
				continue
			}
			s, err := deleteEntrySample(entry, userID, projectID, resourceID, msg)
			if err != nil {
				errs = append(errs, fmt.Errorf("samples[%d]: %w", i, err))
				continue
			}
			samples = append(samples, s)
		}
		return samples, errors.Join(errs...)
	},
}

// deleteEntrySample reads one embedded sample descriptor. Name, type, unit
// and volume come from the entry verbatim; identity always comes from the
// top-level payload.
func deleteEntrySample(entry map[string]any, userID *string, projectID, resourceID string,
	msg *model.Notification) (model.Sample, error) {
	name, err := stringField(entry, "name")
	if err != nil {
		return model.Sample{}, err
	}
	sampleType, err := stringField(entry, "type")
	if err != nil {
		return model.Sample{}, err
	}
	unit, err := stringField(entry, "unit")
	if err != nil {
		return model.Sample{}, err
	}
	volume, err := numberField(entry, "volume")
	if err != nil {
		return model.Sample{}, err
	}
	return model.SampleFromNotification(
		name, model.SampleType(sampleType), unit, volume,
		userID, projectID, resourceID, msg), nil
}
