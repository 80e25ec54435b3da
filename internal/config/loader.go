package config

import "os"

// LoaderConfig is read by the real-time sample loader (kafka → influx).
type LoaderConfig struct {
	KafkaBrokers string
	KafkaGroupID string
	KafkaTopic   string

	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	Workers      int
	AckBatchSize int
}

func LoadLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		KafkaBrokers: os.Getenv("KAFKA_BROKERS"),
		KafkaGroupID: getenv("KAFKA_GROUP_ID", "sample-loader"),
		KafkaTopic:   getenv("KAFKA_SAMPLES_TOPIC", "metering-samples"),

		InfluxURL:    os.Getenv("INFLUX_URL"),
		InfluxToken:  os.Getenv("INFLUX_TOKEN"),
		InfluxOrg:    os.Getenv("INFLUX_ORG"),
		InfluxBucket: os.Getenv("INFLUX_BUCKET"),

		Workers:      getenvInt("LOADER_WORKERS", 4),
		AckBatchSize: getenvInt("LOADER_ACK_BATCH_SIZE", 500),
	}
}
