package main

import (
	"context"
	"encoding/json"
	"errors"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ylwdream/panko/internal/broker"
	"github.com/ylwdream/panko/internal/config"
	"github.com/ylwdream/panko/internal/data"
	"github.com/ylwdream/panko/internal/model"
	"github.com/ylwdream/panko/internal/storage"
)

func main() {
	logger := config.GetLogger()

	cfg, err := config.LoadArchiveConfig(logger)
	if err != nil {
		logger.Fatalf("[boot] invalid configuration: %v", err)
	}
	logger.Printf("[boot] archive-loader configs loaded:%s", cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := storage.NewObjectStore(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3UseTLS, cfg.S3Bucket)
	if err != nil {
		logger.Fatalf("s3 client error: %v", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		logger.Fatalf("ensure bucket error: %v", err)
	}

	reader := broker.NewSampleReader(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaTopic)
	defer reader.Close()

	batcher := data.NewBatcher(cfg.BatchMaxRecords, cfg.BatchMaxBytes, cfg.BatchMaxInterval,
		store, cfg.S3BasePath, cfg.ParquetCompression)

	msgCh := make(chan kafka.Message, 5000)

	var fetchWG sync.WaitGroup
	fetchWG.Add(1)
	go func() {
		defer fetchWG.Done()
		for {
			m, err := reader.Fetch(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				logger.Printf("kafka fetch error: %v", err)
				time.Sleep(50 * time.Millisecond)
				continue
			}
			msgCh <- m
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	// Last message per partition since the previous flush; committed only
	// after the batch is persisted to object storage.
	lastByPartition := make(map[int]kafka.Message)

	commitBatch := func() {
		if len(lastByPartition) == 0 {
			return
		}
		acks := make([]kafka.Message, 0, len(lastByPartition))
		for _, m := range lastByPartition {
			acks = append(acks, m)
		}
		if err := reader.Commit(context.Background(), acks...); err != nil {
			logger.Printf("commit error: %v", err)
		}
		lastByPartition = make(map[int]kafka.Message)
	}

	flushNow := func(reason string) {
		n, err := batcher.Flush(ctx)
		if err != nil {
			logger.Printf("flush error (%s): %v", reason, err)
			return
		}
		if n > 0 {
			logger.Printf("[flush] %s wrote %d records", reason, n)
			commitBatch()
		}
	}

loop:
	for {
		select {
		case <-ctx.Done():
			logger.Println("signal received, flushing and stopping...")
			flushNow("shutdown")
			break loop

		case <-ticker.C:
			if batcher.ShouldFlushByInterval() {
				flushNow("by interval")
			}

		case m := <-msgCh:
			var s model.Sample
			if err := json.Unmarshal(m.Value, &s); err != nil {
				logger.Printf("json decode error partition=%d offset=%d: %v", m.Partition, m.Offset, err)
				lastByPartition[m.Partition] = m
				continue
			}

			if batcher.Add(data.ToRecord(&s)) {
				flushNow("by size/bytes")
			}

			lastByPartition[m.Partition] = m

			if batcher.ShouldFlushByInterval() {
				flushNow("by interval")
			}
		}
	}

	close(msgCh)
	fetchWG.Wait()
	logger.Println("archive-loader stopped")
}
