package model

import "time"

// ArchiveRecord is the flattened sample row written to the Parquet archive.
// resource_metadata keeps the raw JSON so dynamic keys survive the columnar
// schema.
type ArchiveRecord struct {
	Name   string  `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Type   string  `parquet:"name=type, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Unit   string  `parquet:"name=unit, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Volume float64 `parquet:"name=volume, type=DOUBLE"`

	UserID     string `parquet:"name=user_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	ProjectID  string `parquet:"name=project_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	ResourceID string `parquet:"name=resource_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`

	MessageID        string `parquet:"name=message_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	EventType        string `parquet:"name=event_type, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Timestamp        int64  `parquet:"name=timestamp, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	ResourceMetadata string `parquet:"name=resource_metadata, type=BYTE_ARRAY, convertedtype=UTF8"`
}

func ToMillis(t time.Time) int64 { return t.UTC().UnixNano() / 1e6 }
