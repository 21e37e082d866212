// Package metrics renders audit results in the Prometheus text format, for
// the node_exporter textfile collector.
package metrics

import (
	"bytes"

	"github.com/girste/containaudit/internal/audit"
	"github.com/girste/containaudit/internal/errors"
	"github.com/girste/containaudit/internal/verdict"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "containaudit"

var verdicts = []verdict.Verdict{verdict.OK, verdict.Warn, verdict.Error, verdict.Info}

// FromReport builds a registry holding the metric families of one audit run.
func FromReport(report *audit.Report) *prometheus.Registry {
	reg := prometheus.NewRegistry()

	check := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "check",
		Help:      "Verdict of one audit check (1 for the reported verdict)",
	}, []string{"section", "check", "verdict"})
	checks := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "checks",
		Help:      "Number of checks per verdict",
	}, []string{"verdict"})
	duration := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_duration_seconds",
		Help:      "Wall-clock duration of the audit run",
	})
	timestamp := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_timestamp_seconds",
		Help:      "Start of the audit run as a Unix timestamp",
	})
	reg.MustRegister(check, checks, duration, timestamp)

	for _, v := range verdicts {
		checks.WithLabelValues(string(v))
	}
	for _, section := range report.Sections {
		for _, res := range section.Results {
			check.WithLabelValues(section.Name, res.Name, string(res.Verdict)).Set(1)
			checks.WithLabelValues(string(res.Verdict)).Inc()
		}
	}

	duration.Set(float64(report.DurationMs) / 1000)
	timestamp.Set(float64(report.Timestamp.Unix()))

	// A partial scan has no meaningful port count.
	if report.Network != nil && report.Network.ScanComplete {
		openPorts := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_ports",
			Help:      "Listening TCP ports found by the local port scan",
		})
		openPorts.Set(float64(len(report.Network.OpenPorts)))
		reg.MustRegister(openPorts)
	}

	return reg
}

// Export encodes every family the gatherer holds in the text exposition
// format.
func Export(g prometheus.Gatherer) ([]byte, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, errors.Wrap(err, "gather metrics")
	}

	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return nil, errors.Wrap(err, "encode metric family %s", mf.GetName())
		}
	}
	return buf.Bytes(), nil
}

// WriteTextfile writes the report's metrics to path through a temporary
// file and a rename, so the textfile collector never reads a partial file.
func WriteTextfile(path string, report *audit.Report) error {
	if err := prometheus.WriteToTextfile(path, FromReport(report)); err != nil {
		return errors.Wrap(err, "write metrics textfile")
	}
	return nil
}
