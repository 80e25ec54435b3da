package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ylwdream/panko/internal/broker"
	"github.com/ylwdream/panko/internal/config"
	"github.com/ylwdream/panko/internal/database"
	"github.com/ylwdream/panko/internal/model"
	"github.com/ylwdream/panko/internal/runtime"
)

func main() {
	logger := config.GetLogger()
	cfg := config.LoadLoaderConfig()

	logger.Printf("[boot] sample-loader | brokers=%s group=%s topic=%s influx=%s org=%s bucket=%s",
		cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaTopic, cfg.InfluxURL, cfg.InfluxOrg, cfg.InfluxBucket)

	db := database.NewInfluxDB(cfg)
	defer db.Close()

	reader := broker.NewSampleReader(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaTopic)
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runtime.SetupGracefulShutdown(cancel, logger)

	msgCh := make(chan kafka.Message, 5000)
	ackCh := make(chan kafka.Message, 5000)

	// Fetcher: reads as fast as the broker allows.
	go func() {
		for {
			m, err := reader.Fetch(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || ctx.Err() != nil {
					return
				}
				logger.Printf("[kafka] fetch error: %v", err)
				time.Sleep(50 * time.Millisecond)
				continue
			}
			msgCh <- m
		}
	}()

	// Workers: decode sample → write point → signal ack.
	var wg sync.WaitGroup
	wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go func() {
			defer wg.Done()
			for m := range msgCh {
				var s model.Sample
				if err := json.Unmarshal(m.Value, &s); err != nil {
					logger.Printf("[parse] error: %v | payload=%s", err, config.Truncate(m.Value, 256))
					ackCh <- m // ack invalid messages so the partition keeps moving
					continue
				}
				if err := db.WriteSample(ctx, &s); err != nil {
					// No ack: the message is re-fetched after restart.
					logger.Printf("[influx] write failed: %v", err)
					continue
				}
				ackCh <- m
			}
		}()
	}

	// Committer: batches offset commits.
	go func() {
		batch := make([]kafka.Message, 0, cfg.AckBatchSize)
		t := time.NewTicker(100 * time.Millisecond)
		defer t.Stop()
		flush := func() {
			if len(batch) == 0 {
				return
			}
			if err := reader.Commit(context.Background(), batch...); err != nil {
				logger.Printf("[kafka] commit failed: %v", err)
			}
			batch = batch[:0]
		}
		for {
			select {
			case m, ok := <-ackCh:
				if !ok {
					flush()
					return
				}
				batch = append(batch, m)
				if len(batch) >= cfg.AckBatchSize {
					flush()
				}
			case <-t.C:
				flush()
			}
		}
	}()

	<-ctx.Done()
	close(msgCh)
	wg.Wait()
	close(ackCh)
	logger.Println("sample-loader stopped")
}
