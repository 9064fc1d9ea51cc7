package metrics

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

const pushJobName = "relayplan_plan_rebuild"

// Pusher sends the process registry to a Prometheus Pushgateway once a run ends.
// The run never listens on a port.
type Pusher struct {
	url      string
	gatherer prometheus.Gatherer
	log      *zap.Logger
}

func NewPusher(cfg Config, log *zap.Logger) *Pusher {
	return newPusher(cfg.PushgatewayURL, prometheus.DefaultGatherer, log)
}

func newPusher(url string, gatherer prometheus.Gatherer, log *zap.Logger) *Pusher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pusher{
		url:      strings.TrimSpace(url),
		gatherer: gatherer,
		log:      log.Named("metrics.push"),
	}
}

func (p *Pusher) Enabled() bool {
	return p != nil && p.url != ""
}

// Push replaces the job's metric group on the gateway. It is a no-op without a URL.
func (p *Pusher) Push(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	err := push.New(p.url, pushJobName).
		Gatherer(p.gatherer).
		PushContext(ctx)
	if err != nil {
		return err
	}
	p.log.Debug("metrics pushed", zap.String("url", p.url))
	return nil
}
