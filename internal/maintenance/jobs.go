package maintenance

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/glossahq/glossa/pkg/protocol"
)

const (
	sweepSchedule = "*/5 * * * *"
	probeSchedule = "*/5 * * * *"

	// defaultSweepIdle is how long a decrypted secret may sit unused in the
	// vault cache before the sweep evicts it.
	defaultSweepIdle = 15 * time.Minute

	probeTimeout = 10 * time.Second
)

// SecretCache is the slice of the vault the sweep job needs. Declared here
// to keep this package off the secret package.
type SecretCache interface {
	SweepCache(idle time.Duration) int
}

// SweepJob evicts decrypted secrets that have gone unused for maxIdle, so a
// long-running daemon does not hold plaintext keys in memory indefinitely.
type SweepJob struct {
	cache   SecretCache
	maxIdle time.Duration
	logger  *slog.Logger
}

// NewSweepJob creates the sweep job. A maxIdle of zero or less falls back
// to the default.
func NewSweepJob(cache SecretCache, maxIdle time.Duration, logger *slog.Logger) *SweepJob {
	if maxIdle <= 0 {
		maxIdle = defaultSweepIdle
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SweepJob{cache: cache, maxIdle: maxIdle, logger: logger}
}

func (j *SweepJob) Name() string { return "secret-sweep" }

func (j *SweepJob) Schedule() string { return sweepSchedule }

func (j *SweepJob) Run(context.Context) error {
	if n := j.cache.SweepCache(j.maxIdle); n > 0 {
		j.logger.Info("maintenance: evicted idle secrets", "count", n)
	}
	return nil
}

// Dispatcher is the router entry the probe drives. Going through the normal
// dispatch path means the probe resolves the provider exactly the way
// session traffic does.
type Dispatcher interface {
	Dispatch(ctx context.Context, clientID string, env protocol.Envelope) protocol.Response
}

// ProbeJob periodically runs a connection test against the configured
// provider and keeps the latest result for the status endpoint.
type ProbeJob struct {
	dispatcher Dispatcher
	logger     *slog.Logger

	mu     sync.Mutex
	lastOK bool
	lastAt time.Time
}

// NewProbeJob creates the probe job.
func NewProbeJob(dispatcher Dispatcher, logger *slog.Logger) *ProbeJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProbeJob{dispatcher: dispatcher, logger: logger}
}

func (j *ProbeJob) Name() string { return "provider-probe" }

func (j *ProbeJob) Schedule() string { return probeSchedule }

func (j *ProbeJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	env, err := protocol.NewEnvelope(protocol.TypeTestConnection, "probe", nil)
	if err != nil {
		return err
	}
	resp := j.dispatcher.Dispatch(ctx, "", env)

	j.mu.Lock()
	j.lastOK = resp.Success
	j.lastAt = time.Now()
	j.mu.Unlock()

	if !resp.Success && resp.Error != nil {
		j.logger.Warn("maintenance: provider probe failed",
			"code", resp.Error.Code, "error", resp.Error.Message)
	}
	return nil
}

// LastProbe reports the most recent probe outcome. A zero time means no
// probe has completed yet.
func (j *ProbeJob) LastProbe() (bool, time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastOK, j.lastAt
}

var (
	_ Job = (*SweepJob)(nil)
	_ Job = (*ProbeJob)(nil)
)
