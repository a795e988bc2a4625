package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net" //cloudwatch

	"github.com/aws/aws-sdk-go-v2/aws"                              //cloudwatch
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types" //cloudwatch
)

type channelStat struct {
	messages int64
	bytes    int64
}

var (
	errorsGenerator int64
	errorsEnricher  int64
	errorsBatch     int64
	warnsGenerator  int64
	warnsEnricher   int64
	warnsBatch      int64
	streamReads     int64
	objectWrites    int64
	channels        sync.Map // map[string]*channelStat
)

func recordWarn(component string) {
	if strings.Contains(component, "generator") {
		atomic.AddInt64(&warnsGenerator, 1)
	} else if strings.Contains(component, "enricher") || strings.Contains(component, "consumer") {
		atomic.AddInt64(&warnsEnricher, 1)
	} else if strings.Contains(component, "batch") || strings.Contains(component, "transformer") {
		atomic.AddInt64(&warnsBatch, 1)
	}
}

func recordError(component string) {
	if strings.Contains(component, "generator") {
		atomic.AddInt64(&errorsGenerator, 1)
	} else if strings.Contains(component, "enricher") || strings.Contains(component, "consumer") {
		atomic.AddInt64(&errorsEnricher, 1)
	} else if strings.Contains(component, "batch") || strings.Contains(component, "transformer") {
		atomic.AddInt64(&errorsBatch, 1)
	}
}

// IncrementStreamRead records one batch read from the streaming channel.
func IncrementStreamRead(size int) {
	atomic.AddInt64(&streamReads, 1)
	recordChannel("stream_read", size)
}

// IncrementObjectWrite records one object-store write.
func IncrementObjectWrite(size int64) {
	atomic.AddInt64(&objectWrites, 1)
	recordChannel("object_write", int(size))
}

func recordChannel(name string, size int) {
	v, _ := channels.LoadOrStore(name, &channelStat{})
	cs := v.(*channelStat)
	atomic.AddInt64(&cs.messages, 1)
	atomic.AddInt64(&cs.bytes, int64(size))
}

// StartReport begins periodic logging of system and pipeline statistics
// until the context is cancelled.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")
	netStats, _ := gnet.IOCounters(false)
	channelData := map[string]map[string]int64{}
	channels.Range(func(k, v any) bool {
		name := k.(string)
		cs := v.(*channelStat)
		channelData[name] = map[string]int64{
			"messages": atomic.LoadInt64(&cs.messages),
			"bytes":    atomic.LoadInt64(&cs.bytes),
		}
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	bytesSent := uint64(0)
	bytesRecv := uint64(0)
	if len(netStats) > 0 {
		bytesSent = netStats[0].BytesSent
		bytesRecv = netStats[0].BytesRecv
	}

	fields := Fields{
		"errors_generator": atomic.LoadInt64(&errorsGenerator),
		"errors_enricher":  atomic.LoadInt64(&errorsEnricher),
		"errors_batch":     atomic.LoadInt64(&errorsBatch),
		"warns_generator":  atomic.LoadInt64(&warnsGenerator),
		"warns_enricher":   atomic.LoadInt64(&warnsEnricher),
		"warns_batch":      atomic.LoadInt64(&warnsBatch),
		"stream_reads":     atomic.LoadInt64(&streamReads),
		"object_writes":    atomic.LoadInt64(&objectWrites),
		"goroutines":       runtime.NumGoroutine(),
		"cpu_percent":      cpuPct,
		"memory_mb":        int64(memStats.Used) / 1024 / 1024,
		"disk_mb":          int64(diskStats.Used) / 1024 / 1024,
		"channels":         channelData,
		"net_bytes_sent":   int64(bytesSent),
		"net_bytes_recv":   int64(bytesRecv),
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	var data []cwtypes.MetricDatum
	data = append(data,
		cwtypes.MetricDatum{MetricName: aws.String("OrderFlow-CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		cwtypes.MetricDatum{MetricName: aws.String("OrderFlow-MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("OrderFlow-DiskMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(diskStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("OrderFlow-ErrorsGenerator"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_generator"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("OrderFlow-ErrorsEnricher"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_enricher"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("OrderFlow-ErrorsBatch"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_batch"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("OrderFlow-WarnsGenerator"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["warns_generator"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("OrderFlow-WarnsEnricher"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["warns_enricher"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("OrderFlow-WarnsBatch"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["warns_batch"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("OrderFlow-StreamReads"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["stream_reads"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("OrderFlow-ObjectWrites"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["object_writes"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("OrderFlow-NetBytesSent"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesSent))},
		cwtypes.MetricDatum{MetricName: aws.String("OrderFlow-NetBytesRecv"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesRecv))},
	)

	for name, stats := range channelData {
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("OrderFlow-ChannelMessages"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Channel"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["messages"])),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("OrderFlow-ChannelBytes"),
				Unit:       cwtypes.StandardUnitBytes,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Channel"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["bytes"])),
			},
		)
	}

	publishMetrics(ctx, data)
}
