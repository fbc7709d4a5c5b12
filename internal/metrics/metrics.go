package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nurpe/waste-dispatch/internal/model"
)

const (
	namespace = "waste"
	subsystem = "dispatch"
)

// Collectors counts report submissions, dispatch activity and redemptions.
type Collectors struct {
	ReportsSubmitted    *prometheus.CounterVec
	DispatchesCreated   *prometheus.CounterVec
	DispatchTransitions *prometheus.CounterVec
	Redemptions         *prometheus.CounterVec
}

// New builds the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		ReportsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reports_submitted_total",
			Help:      "Total number of submitted waste reports, labeled by resulting report status.",
		}, []string{"status"}),
		DispatchesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dispatch_created_total",
			Help:      "Total number of dispatches created, labeled by assignment mode.",
		}, []string{"mode"}),
		DispatchTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dispatch_transitions_total",
			Help:      "Total number of dispatch status transitions, labeled by target status.",
		}, []string{"to"}),
		Redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "redemptions_total",
			Help:      "Total number of product redemption attempts, labeled by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(c.ReportsSubmitted, c.DispatchesCreated, c.DispatchTransitions, c.Redemptions)
	return c
}

func (c *Collectors) ReportSubmitted(status model.ReportStatus) {
	c.ReportsSubmitted.WithLabelValues(string(status)).Inc()
}

func (c *Collectors) DispatchCreated(mode model.DispatchMode) {
	c.DispatchesCreated.WithLabelValues(string(mode)).Inc()
}

func (c *Collectors) DispatchTransitioned(to model.DispatchStatus) {
	c.DispatchTransitions.WithLabelValues(string(to)).Inc()
}

func (c *Collectors) Redemption(result string) {
	c.Redemptions.WithLabelValues(result).Inc()
}

// Discard satisfies the metrics interface without recording anything.
type Discard struct{}

func (Discard) ReportSubmitted(model.ReportStatus)        {}
func (Discard) DispatchCreated(model.DispatchMode)        {}
func (Discard) DispatchTransitioned(model.DispatchStatus) {}
func (Discard) Redemption(string)                         {}
