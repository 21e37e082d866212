package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/girste/containaudit/internal/audit"
	"github.com/girste/containaudit/internal/collectors"
	"github.com/girste/containaudit/internal/verdict"
)

func testReport(scanComplete bool) *audit.Report {
	return &audit.Report{
		Timestamp:  time.Unix(1700000000, 0).UTC(),
		DurationMs: 1500,
		Network:    &collectors.NetworkProfile{OpenPorts: []int{22, 80}, ScanComplete: scanComplete},
		Sections: []audit.Section{
			{Name: audit.SectionIsolation, Results: []verdict.CheckResult{
				{Name: "namespace.net", Verdict: verdict.OK},
				{Name: "cgroup.pids", Verdict: verdict.Warn},
			}},
			{Name: audit.SectionNetwork, Results: []verdict.CheckResult{
				{Name: "network.open_ports", Verdict: verdict.Warn},
				{Name: `network.we"ird\`, Verdict: verdict.Info},
			}},
		},
	}
}

func TestFromReport(t *testing.T) {
	report := testReport(true)

	data, err := Export(FromReport(report))
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	out := string(data)
	for _, want := range []string{
		"# HELP containaudit_check Verdict of one audit check (1 for the reported verdict)",
		"# TYPE containaudit_check gauge",
		`containaudit_check{check="namespace.net",section="Isolation",verdict="OK"} 1`,
		`containaudit_check{check="network.we\"ird\\",section="Network",verdict="INFO"} 1`,
		`containaudit_checks{verdict="WARN"} 2`,
		`containaudit_checks{verdict="ERROR"} 0`,
		`containaudit_audit_duration_seconds 1.5`,
		`containaudit_audit_timestamp_seconds 1.7e+09`,
		`containaudit_open_ports 2`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %q:\n%s", want, out)
		}
	}

	again, err := Export(FromReport(report))
	if err != nil {
		t.Fatal(err)
	}
	if string(again) != out {
		t.Error("export not deterministic")
	}
}

func TestFromReport_IncompleteScan(t *testing.T) {
	data, err := Export(FromReport(testReport(false)))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "containaudit_open_ports") {
		t.Errorf("open_ports exported for incomplete scan:\n%s", data)
	}
}

func TestFromReport_NoNetwork(t *testing.T) {
	report := testReport(true)
	report.Network = nil

	if _, err := Export(FromReport(report)); err != nil {
		t.Errorf("Export() error = %v", err)
	}
}

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "containaudit.prom")

	if err := WriteTextfile(path, testReport(true)); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `containaudit_checks{verdict="OK"} 1`) {
		t.Errorf("textfile content:\n%s", data)
	}
}

func TestWriteTextfile_MissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "containaudit.prom")
	if err := WriteTextfile(path, testReport(true)); err == nil {
		t.Error("WriteTextfile() into missing directory succeeded")
	}
}
