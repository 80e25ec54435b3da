package config

import (
	"errors"
	"fmt"
	"log"
	"time"
)

// ArchiveConfig is read by the archive loader (kafka → parquet → object
// storage).
type ArchiveConfig struct {
	KafkaBrokers string
	KafkaGroupID string
	KafkaTopic   string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3UseTLS    bool
	S3Bucket    string
	S3BasePath  string

	BatchMaxRecords  int
	BatchMaxBytes    int64
	BatchMaxInterval time.Duration

	ParquetCompression string // SNAPPY, GZIP, ZSTD
}

func (c *ArchiveConfig) String() string {
	return fmt.Sprintf(`
Kafka:
  Brokers: %s
  GroupID: %s
  Topic:   %s

S3:
  Endpoint: %s
  Bucket:   %s
  BasePath: %s
  UseTLS:   %v

Batch:
  MaxRecords:  %d
  MaxBytes:    %d
  MaxInterval: %s
  Compression: %s
`, c.KafkaBrokers, c.KafkaGroupID, c.KafkaTopic,
		c.S3Endpoint, c.S3Bucket, c.S3BasePath, c.S3UseTLS,
		c.BatchMaxRecords, c.BatchMaxBytes, c.BatchMaxInterval, c.ParquetCompression)
}

func LoadArchiveConfig(logger *log.Logger) (*ArchiveConfig, error) {
	var errs errList

	cfg := &ArchiveConfig{
		KafkaBrokers: getRequired("KAFKA_BROKERS", &errs),
		KafkaGroupID: getenv("KAFKA_GROUP_ID", "archive-loader"),
		KafkaTopic:   getenv("KAFKA_SAMPLES_TOPIC", "metering-samples"),

		S3Endpoint:  getRequired("S3_ENDPOINT", &errs),
		S3AccessKey: getRequired("S3_ACCESS_KEY", &errs),
		S3SecretKey: getRequired("S3_SECRET_KEY", &errs),
		S3UseTLS:    getenvBool("S3_USE_TLS", false),
		S3Bucket:    getenv("S3_BUCKET", "metering-archive"),
		S3BasePath:  getenv("S3_BASE_PATH", "samples"),

		BatchMaxRecords:  getenvInt("BATCH_MAX_RECORDS", 50000),
		BatchMaxBytes:    getenvInt64("BATCH_MAX_BYTES", 64<<20),
		BatchMaxInterval: time.Duration(getenvInt("BATCH_MAX_INTERVAL_SEC", 300)) * time.Second,

		ParquetCompression: getenv("PARQUET_COMPRESSION", "SNAPPY"),
	}

	ensureOneOf("PARQUET_COMPRESSION", cfg.ParquetCompression, []string{"SNAPPY", "GZIP", "ZSTD"}, &errs)

	if errs.has() {
		for _, e := range errs {
			logger.Printf("[config] %s", e)
		}
		return nil, errors.New("invalid environment variables — see logs above")
	}
	return cfg, nil
}
