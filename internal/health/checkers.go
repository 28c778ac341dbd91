package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// SystemChecker reports runtime resource usage. It turns degraded when the
// goroutine count passes MaxGoroutines, which points at leaked streams.
type SystemChecker struct {
	MaxGoroutines int
}

func (c *SystemChecker) Name() string {
	return "system"
}

func (c *SystemChecker) Check(ctx context.Context) Check {
	check := Check{
		Name:      c.Name(),
		Timestamp: time.Now(),
		Details:   make(map[string]interface{}),
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	goroutines := runtime.NumGoroutine()

	check.Details["goroutines"] = goroutines
	check.Details["heap_alloc_bytes"] = mem.HeapAlloc
	check.Details["num_gc"] = mem.NumGC

	if c.MaxGoroutines > 0 && goroutines > c.MaxGoroutines {
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("%d goroutines running (limit %d)", goroutines, c.MaxGoroutines)
		return check
	}

	check.Status = StatusHealthy
	check.Message = "System resources OK"
	return check
}

// Pinger is implemented by the state manager
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseChecker checks database connectivity
type DatabaseChecker struct {
	db Pinger
}

func NewDatabaseChecker(db Pinger) *DatabaseChecker {
	return &DatabaseChecker{db: db}
}

func (c *DatabaseChecker) Name() string {
	return "database"
}

func (c *DatabaseChecker) Check(ctx context.Context) Check {
	check := Check{
		Name:      c.Name(),
		Timestamp: time.Now(),
	}

	if c.db == nil {
		check.Status = StatusUnhealthy
		check.Message = "Database not configured"
		return check
	}

	if err := c.db.Ping(ctx); err != nil {
		check.Status = StatusUnhealthy
		check.Message = fmt.Sprintf("Database ping failed: %v", err)
		return check
	}

	check.Status = StatusHealthy
	check.Message = "Database connection OK"
	return check
}

// ReadinessProber is implemented by the inference client
type ReadinessProber interface {
	HealthCheck(ctx context.Context) error
}

// InferenceChecker checks the model-serving service. Streams keep running
// without it, so failure only degrades the report.
type InferenceChecker struct {
	client     ReadinessProber
	serviceURL string
}

func NewInferenceChecker(client ReadinessProber, serviceURL string) *InferenceChecker {
	return &InferenceChecker{client: client, serviceURL: serviceURL}
}

func (c *InferenceChecker) Name() string {
	return "inference_service"
}

func (c *InferenceChecker) Check(ctx context.Context) Check {
	check := Check{
		Name:      c.Name(),
		Timestamp: time.Now(),
		Details:   map[string]interface{}{"url": c.serviceURL},
	}

	if c.client == nil {
		check.Status = StatusDegraded
		check.Message = "Inference service not configured"
		return check
	}

	if err := c.client.HealthCheck(ctx); err != nil {
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("Inference service unreachable: %v", err)
		return check
	}

	check.Status = StatusHealthy
	check.Message = "Inference service is ready"
	return check
}

// StorageChecker checks that the data directory holding the database is
// writable and that its filesystem is not close to full
type StorageChecker struct {
	dataDir         string
	maxUsagePercent float64
}

// NewStorageChecker creates the checker. A maxUsagePercent of zero skips
// the usage threshold.
func NewStorageChecker(dataDir string, maxUsagePercent float64) *StorageChecker {
	return &StorageChecker{dataDir: dataDir, maxUsagePercent: maxUsagePercent}
}

func (c *StorageChecker) Name() string {
	return "storage"
}

func (c *StorageChecker) Check(ctx context.Context) Check {
	check := Check{
		Name:      c.Name(),
		Timestamp: time.Now(),
		Details:   map[string]interface{}{"data_dir": c.dataDir},
	}

	probe, err := os.CreateTemp(c.dataDir, ".health-*")
	if err != nil {
		check.Status = StatusUnhealthy
		check.Message = fmt.Sprintf("Data directory not writable: %v", err)
		return check
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)

	usage, err := diskUsage(c.dataDir)
	if err != nil {
		check.Status = StatusDegraded
		check.Message = err.Error()
		return check
	}
	check.Details["total_bytes"] = usage.TotalBytes
	check.Details["available_bytes"] = usage.AvailableBytes
	check.Details["usage_percent"] = usage.UsagePercent

	if c.maxUsagePercent > 0 && usage.UsagePercent >= c.maxUsagePercent {
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("Disk usage %.1f%% exceeds %.1f%%", usage.UsagePercent, c.maxUsagePercent)
		return check
	}

	check.Status = StatusHealthy
	check.Message = fmt.Sprintf("%s is writable", filepath.Clean(c.dataDir))
	return check
}
