package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/girste/containaudit/internal/audit"
	"github.com/girste/containaudit/internal/errors"
	"github.com/girste/containaudit/internal/metrics"
	"github.com/girste/containaudit/internal/verdict"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"
)

// Format types
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatSARIF = "sarif"
	FormatProm  = "prometheus"
)

// Color modes
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiBlue   = "\033[34m"
)

const (
	ruleHeavy = "═══════════════════════════════════════════════════════════════\n"
	ruleLight = "───────────────────────────────────────────────────────────────\n"
)

// Formatter renders an audit report
type Formatter struct {
	format string
	color  bool
}

// NewFormatter creates a new formatter. color only affects the text format.
func NewFormatter(format string, color bool) (*Formatter, error) {
	switch format {
	case FormatText, FormatJSON, FormatYAML, FormatSARIF, FormatProm:
	default:
		return nil, errors.Wrap(errors.ErrInvalidConfig, "unknown format %q (want one of %v)", format, Formats())
	}
	return &Formatter{format: format, color: color}, nil
}

// UseColor resolves a color mode for the given output. In auto mode color is
// used only on a terminal and when NO_COLOR is unset.
func UseColor(mode string, out *os.File) (bool, error) {
	switch mode {
	case ColorAlways:
		return true, nil
	case ColorNever:
		return false, nil
	case ColorAuto, "":
		if _, set := os.LookupEnv("NO_COLOR"); set || out == nil {
			return false, nil
		}
		fd := out.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd), nil
	default:
		return false, errors.Wrap(errors.ErrInvalidConfig, "unknown color mode %q (want auto, always or never)", mode)
	}
}

// Render returns the report in the formatter's format
func (f *Formatter) Render(report *audit.Report) ([]byte, error) {
	switch f.format {
	case FormatJSON:
		return ToJSON(report)
	case FormatYAML:
		return ToYAML(report)
	case FormatSARIF:
		return ConvertToSARIF(report).ToJSON()
	case FormatProm:
		return metrics.Export(metrics.FromReport(report))
	default:
		return []byte(f.ToText(report)), nil
	}
}

// Write renders the report to w
func (f *Formatter) Write(w io.Writer, report *audit.Report) error {
	data, err := f.Render(report)
	if err != nil {
		return errors.Wrap(err, "render %s report", f.format)
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "write report")
	}
	return nil
}

// ToJSON outputs the report as indented JSON
func ToJSON(report *audit.Report) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// ToYAML outputs the report as YAML
func ToYAML(report *audit.Report) ([]byte, error) {
	return yaml.Marshal(report)
}

// ToText outputs the report as formatted text
func (f *Formatter) ToText(report *audit.Report) string {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(ruleHeavy)
	sb.WriteString(fmt.Sprintf("  %s  -  %s\n", f.paint(ansiBold, "CONTAINER AUDIT"), report.Hostname))
	sb.WriteString(ruleHeavy)
	sb.WriteString(fmt.Sprintf("  Run:    %s\n", report.RunID))
	sb.WriteString(fmt.Sprintf("  Time:   %s\n", report.Timestamp.Format(time.RFC3339)))
	if report.OS != nil {
		sb.WriteString(fmt.Sprintf("  Image:  %s (kernel %s)\n", report.OS.Distro, orDash(report.OS.Kernel)))
	}
	sb.WriteString("\n")

	for _, section := range report.Sections {
		sb.WriteString(ruleLight)
		sb.WriteString(fmt.Sprintf("  %s\n", strings.ToUpper(section.Name)))
		sb.WriteString(ruleLight)
		for _, res := range section.Results {
			sb.WriteString(fmt.Sprintf("  %s %-32s %s\n", f.label(res.Verdict), res.Name, Describe(res)))
		}
		sb.WriteString("\n")
	}

	s := report.Summary()
	sb.WriteString(ruleHeavy)
	sb.WriteString(fmt.Sprintf("  %s OK  %s WARN  %s ERROR  %d INFO  (%d ms)\n",
		f.paint(ansiGreen, strconv.Itoa(s.OK)),
		f.paint(ansiRed, strconv.Itoa(s.Warn)),
		f.paint(ansiYellow, strconv.Itoa(s.Error)),
		s.Info, report.DurationMs))
	sb.WriteString(ruleHeavy)

	return sb.String()
}

func (f *Formatter) label(v verdict.Verdict) string {
	text := fmt.Sprintf("[%-5s]", string(v))
	switch v {
	case verdict.OK:
		return f.paint(ansiGreen, text)
	case verdict.Warn:
		return f.paint(ansiRed, text)
	case verdict.Error:
		return f.paint(ansiYellow, text)
	default:
		return f.paint(ansiBlue, text)
	}
}

func (f *Formatter) paint(code, text string) string {
	if !f.color {
		return text
	}
	return code + text + ansiReset
}

// Describe renders the observed value of a check for humans.
func Describe(res verdict.CheckResult) string {
	var value string

	switch v := res.Observed.(type) {
	case verdict.Unavailable:
		return v.Reason
	case bool:
		value = describeBool(res.Name, v)
	case []string:
		value = joinOrNone(v)
	case []int:
		ports := make([]string, len(v))
		for i, p := range v {
			ports[i] = strconv.Itoa(p)
		}
		value = joinOrNone(ports)
	case string:
		value = v
	default:
		value = fmt.Sprint(v)
	}

	switch {
	case value == "" && res.Detail != "":
		return res.Detail
	case value == "":
		return "none"
	case res.Detail != "":
		return value + " (" + res.Detail + ")"
	}
	return value
}

func describeBool(name string, v bool) string {
	if name == verdict.CheckSudoGroup {
		if v {
			return "member"
		}
		return "not a member"
	}
	if v {
		return "activated"
	}
	return "not activated"
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Formats lists the supported output formats
func Formats() []string {
	formats := []string{FormatText, FormatJSON, FormatYAML, FormatSARIF, FormatProm}
	sort.Strings(formats)
	return formats
}
