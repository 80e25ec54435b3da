package database

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/ylwdream/panko/internal/config"
	"github.com/ylwdream/panko/internal/model"
)

type InfluxDB struct {
	Client   influxdb2.Client
	WriteAPI api.WriteAPIBlocking
}

func NewInfluxDB(cfg *config.LoaderConfig) *InfluxDB {
	client := influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)
	writeAPI := client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket)
	return &InfluxDB{
		Client:   client,
		WriteAPI: writeAPI,
	}
}

func (db *InfluxDB) Close() {
	if db != nil && db.Client != nil {
		db.Client.Close()
	}
}

func (db *InfluxDB) WriteSample(ctx context.Context, s *model.Sample) error {
	return db.WriteAPI.WritePoint(ctx, db.buildPoint(s))
}

// buildPoint maps a sample onto a point: measurement = sample name, identity
// and typing as tags, volume plus flattened resource metadata as fields.
func (db *InfluxDB) buildPoint(s *model.Sample) *write.Point {
	tags := map[string]string{
		"projectId":  s.ProjectID,
		"resourceId": s.ResourceID,
		"type":       string(s.Type),
		"unit":       s.Unit,
	}
	if s.UserID != nil {
		tags["userId"] = *s.UserID
	}

	fields := map[string]interface{}{
		"volume": s.Volume,
	}

	flat := make(map[string]interface{})
	flatten("", s.ResourceMetadata, flat)
	for k, v := range flat {
		if fv, ok := normalizeFieldValue(v); ok {
			fields["meta_"+sanitizeFieldKey(k)] = fv
		}
	}

	ts := time.Now().UTC()
	if s.Timestamp != nil {
		ts = *s.Timestamp
	}

	return write.NewPoint(s.Name, tags, fields, ts)
}

// flatten: nested objects become "_"-separated keys, arrays become a
// comma-joined scalar string.
func flatten(prefix string, v interface{}, out map[string]interface{}) {
	key := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + "_" + k
	}
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			flatten(key(k), val, out)
		}
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, toScalarString(item))
		}
		out[prefix] = strings.Join(parts, ",")
	default:
		if prefix != "" {
			out[prefix] = t
		}
	}
}

func toScalarString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case map[string]interface{}:
		tmp := make(map[string]interface{})
		flatten("", x, tmp)
		parts := make([]string, 0, len(tmp))
		for k, val := range tmp {
			parts = append(parts, k+":"+fmt.Sprintf("%v", val))
		}
		return strings.Join(parts, "|")
	default:
		return fmt.Sprintf("%v", x)
	}
}

func normalizeFieldValue(v interface{}) (interface{}, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case uint32:
		return float64(x), true
	case bool:
		return x, true
	case string:
		return x, true
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), true
	default:
		return nil, false
	}
}

var fieldKeyRe = regexp.MustCompile(`[^a-zA-Z0-9_.]+`)

func sanitizeFieldKey(k string) string {
	k = strings.TrimSpace(k)
	k = strings.ReplaceAll(k, " ", "_")
	k = fieldKeyRe.ReplaceAllString(k, "_")
	k = strings.Trim(k, "_")
	if k == "" {
		return "field"
	}
	return k
}
