package clock

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/temoto/alive/v2"
	"github.com/tsclock/tsclock/helpers/atomic_clock"
	"github.com/tsclock/tsclock/log2"
	"github.com/tsclock/tsclock/telemetry"
)

const (
	DropDecode     = "decode"
	DropUnroutable = "unroutable"
	DropStaleDwell = "stale-dwell"
)

// Stat counts what the clock loop did with messages.
type Stat struct {
	Messages *prometheus.CounterVec
	Dropped  *prometheus.CounterVec
	Frames   *prometheus.CounterVec
	last     *atomic_clock.Clock
}

func NewStat(reg prometheus.Registerer) (*Stat, error) {
	s := &Stat{
		Messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "tsclock_messages_total", Help: "Telemetry messages applied"},
			[]string{"channel"}),
		Dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "tsclock_dropped_total", Help: "Messages or timer events ignored"},
			[]string{"reason"}),
		Frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "tsclock_frames_total", Help: "Full frames drawn"},
			[]string{"frame"}),
		last: atomic_clock.New(0),
	}
	lastGauge := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Name: "tsclock_last_message_timestamp_seconds", Help: "Unix time of last applied message, 0 if none"},
		func() float64 {
			if s.last.IsZero() {
				return 0
			}
			return float64(s.last.UnixNano()) / float64(time.Second)
		})
	for _, c := range []prometheus.Collector{s.Messages, s.Dropped, s.Frames, lastGauge} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Annotate(err, "stat register")
		}
	}
	for _, ch := range telemetry.Channels() {
		s.Messages.WithLabelValues(ch.String())
	}
	return s, nil
}

// LastMessage returns zero time before first message.
func (s *Stat) LastMessage() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.last.Time()
}

func (s *Stat) applied(ch telemetry.Channel) {
	if s == nil {
		return
	}
	s.Messages.WithLabelValues(ch.String()).Inc()
	s.last.SetNow()
}

func (s *Stat) dropped(reason string) {
	if s != nil {
		s.Dropped.WithLabelValues(reason).Inc()
	}
}

func (s *Stat) frame(name string) {
	if s != nil {
		s.Frames.WithLabelValues(name).Inc()
	}
}

// ServeMetrics exposes g on http://addr/metrics until a is stopped.
func ServeMetrics(a *alive.Alive, log *log2.Log, addr string, g prometheus.Gatherer) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Annotatef(err, "metrics listen=%s", addr)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	if !a.Add(2) {
		_ = ln.Close()
		return nil, errors.Errorf("metrics: alive stopped")
	}
	go func() {
		defer a.Done()
		<-a.StopChan()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()
	go func() {
		defer a.Done()
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Errorf("metrics serve err=%v", err)
		}
	}()
	log.Infof("metrics listen=%s", ln.Addr())
	return ln.Addr(), nil
}
