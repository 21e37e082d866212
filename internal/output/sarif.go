package output

import (
	"encoding/json"
	"strings"

	"github.com/girste/containaudit/internal/audit"
	"github.com/girste/containaudit/internal/util"
	"github.com/girste/containaudit/internal/verdict"
)

// SARIF 2.1.0 specification
// Spec: https://docs.oasis-open.org/sarif/sarif/v2.1.0/sarif-v2.1.0.html

type SARIFReport struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []SARIFRun `json:"runs"`
}

type SARIFRun struct {
	Tool    SARIFTool     `json:"tool"`
	Results []SARIFResult `json:"results"`
}

type SARIFTool struct {
	Driver SARIFDriver `json:"driver"`
}

type SARIFDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []SARIFRule `json:"rules"`
}

type SARIFRule struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	ShortDescription SARIFText `json:"shortDescription"`
}

type SARIFResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Kind      string          `json:"kind"`
	Message   SARIFMessage    `json:"message"`
	Locations []SARIFLocation `json:"locations,omitempty"`
}

type SARIFMessage struct {
	Text string `json:"text"`
}

type SARIFText struct {
	Text string `json:"text"`
}

type SARIFLocation struct {
	LogicalLocations []SARIFLogicalLocation `json:"logicalLocations"`
}

type SARIFLogicalLocation struct {
	Name               string `json:"name"`
	FullyQualifiedName string `json:"fullyQualifiedName"`
	Kind               string `json:"kind"`
}

// ConvertToSARIF converts the WARN and ERROR results of a report to SARIF
// 2.1.0. WARN is a failed check; ERROR is a check that could not run and is
// emitted for review.
func ConvertToSARIF(report *audit.Report) *SARIFReport {
	rules := []SARIFRule{}
	results := []SARIFResult{}
	seen := make(map[string]bool)

	for _, section := range report.Sections {
		for _, res := range section.Results {
			level, kind, ok := sarifLevel(res.Verdict)
			if !ok {
				continue
			}

			ruleID := ruleIDFor(res.Name)
			if !seen[ruleID] {
				seen[ruleID] = true
				rules = append(rules, SARIFRule{
					ID:               ruleID,
					Name:             res.Name,
					ShortDescription: SARIFText{Text: section.Name + " check " + res.Name},
				})
			}

			results = append(results, SARIFResult{
				RuleID:  ruleID,
				Level:   level,
				Kind:    kind,
				Message: SARIFMessage{Text: res.Name + ": " + Describe(res)},
				Locations: []SARIFLocation{{
					LogicalLocations: []SARIFLogicalLocation{{
						Name:               res.Name,
						FullyQualifiedName: report.Hostname + "/" + res.Name,
						Kind:               "resource",
					}},
				}},
			})
		}
	}

	return &SARIFReport{
		Version: "2.1.0",
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Runs: []SARIFRun{{
			Tool: SARIFTool{
				Driver: SARIFDriver{
					Name:           "containaudit",
					Version:        util.Version,
					InformationURI: "https://github.com/girste/containaudit",
					Rules:          rules,
				},
			},
			Results: results,
		}},
	}
}

func sarifLevel(v verdict.Verdict) (level, kind string, ok bool) {
	switch v {
	case verdict.Warn:
		return "warning", "fail", true
	case verdict.Error:
		return "none", "review", true
	default:
		return "", "", false
	}
}

// ruleIDFor turns a check name into a stable rule id, e.g.
// namespace.net -> CA-NAMESPACE-NET
func ruleIDFor(name string) string {
	r := strings.NewReplacer(".", "-", "_", "-")
	return "CA-" + strings.ToUpper(r.Replace(name))
}

// ToJSON outputs SARIF report as JSON
func (s *SARIFReport) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
