package audit

import (
	"time"

	"github.com/girste/containaudit/internal/collectors"
	"github.com/girste/containaudit/internal/system"
	"github.com/girste/containaudit/internal/verdict"
)

// Section names, in report order
const (
	SectionIsolation = "Isolation"
	SectionPrivilege = "Privilege"
	SectionNetwork   = "Network"
)

// Section is the ordered list of check results of one collector.
type Section struct {
	Name    string                `json:"name" yaml:"name"`
	Results []verdict.CheckResult `json:"results" yaml:"results"`
}

// Report is the result of one audit run. It is assembled once and not
// modified afterwards.
type Report struct {
	RunID      string                       `json:"run_id" yaml:"runId"`
	Timestamp  time.Time                    `json:"timestamp" yaml:"timestamp"`
	Hostname   string                       `json:"hostname" yaml:"hostname"`
	OS         *system.OSInfo               `json:"os,omitempty" yaml:"os,omitempty"`
	DurationMs int64                        `json:"duration_ms" yaml:"durationMs"`
	Isolation  *collectors.IsolationFacts   `json:"isolation,omitempty" yaml:"isolation,omitempty"`
	Privilege  *collectors.PrivilegeProfile `json:"privilege,omitempty" yaml:"privilege,omitempty"`
	Network    *collectors.NetworkProfile   `json:"network,omitempty" yaml:"network,omitempty"`
	Sections   []Section                    `json:"sections" yaml:"sections"`
}

// Summary counts check results per verdict
type Summary struct {
	OK    int `json:"ok" yaml:"ok"`
	Warn  int `json:"warn" yaml:"warn"`
	Error int `json:"error" yaml:"error"`
	Info  int `json:"info" yaml:"info"`
}

func (r *Report) Summary() Summary {
	var s Summary
	for _, section := range r.Sections {
		for _, res := range section.Results {
			switch res.Verdict {
			case verdict.OK:
				s.OK++
			case verdict.Warn:
				s.Warn++
			case verdict.Error:
				s.Error++
			default:
				s.Info++
			}
		}
	}
	return s
}

// Result looks up a check by name across all sections.
func (r *Report) Result(name string) (verdict.CheckResult, bool) {
	for _, section := range r.Sections {
		for _, res := range section.Results {
			if res.Name == name {
				return res, true
			}
		}
	}
	return verdict.CheckResult{}, false
}

// Section returns the section with the given name, or nil.
func (r *Report) Section(name string) *Section {
	for i := range r.Sections {
		if r.Sections[i].Name == name {
			return &r.Sections[i]
		}
	}
	return nil
}
