package enricher

import (
	"context"
	"sync"
	"time"

	appconfig "orderflow/config"
	"orderflow/internal/platform"
	"orderflow/logger"
)

// Consumer polls the streaming channel on a fixed interval and feeds each
// batch to an Enricher. Redelivery of failed records is the channel's job;
// the consumer only reports them.
type Consumer struct {
	config   *appconfig.Config
	channel  platform.ChannelReader
	enricher *Enricher
	log      *logger.Log

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewConsumer builds a polling consumer around the enricher.
func NewConsumer(cfg *appconfig.Config, channel platform.ChannelReader, enricher *Enricher) *Consumer {
	return &Consumer{
		config:   cfg,
		channel:  channel,
		enricher: enricher,
		log:      logger.GetLogger(),
	}
}

// Start launches the poll loop. It returns immediately; use Stop for a
// graceful shutdown.
func (c *Consumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	interval := c.config.Stream.PollInterval
	if interval <= 0 {
		interval = time.Second
	}

	c.log.WithComponent("consumer").WithFields(logger.Fields{
		"stream":        c.config.Stream.Name,
		"poll_interval": interval.String(),
		"batch_size":    c.config.Stream.BatchSize,
	}).Info("starting channel consumer")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				c.log.WithComponent("consumer").Info("channel consumer stopped")
				return
			case <-ticker.C:
				c.poll(ctx)
			}
		}
	}()
}

func (c *Consumer) poll(ctx context.Context) {
	records, err := c.channel.ReadBatch(ctx, c.config.Stream.BatchSize)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.log.WithComponent("consumer").WithError(err).Error("failed to read channel batch")
		return
	}
	if len(records) == 0 {
		return
	}

	resp := c.enricher.ProcessBatch(ctx, records)
	if len(resp.BatchItemFailures) > 0 {
		c.log.WithComponent("consumer").WithFields(logger.Fields{
			"failed": len(resp.BatchItemFailures),
			"total":  resp.Result.TotalRecords,
		}).Warn("batch completed with item failures")
	}
}

// Stop cancels the poll loop and waits for the in-flight batch to finish.
func (c *Consumer) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}
