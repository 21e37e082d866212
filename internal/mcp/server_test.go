package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/girste/containaudit/internal/audit"
	"github.com/girste/containaudit/internal/config"
	"github.com/girste/containaudit/internal/verdict"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

func testServer(t *testing.T, inContainer bool) (*Server, *int) {
	t.Helper()
	cfg := config.Default()
	sentinel := filepath.Join(t.TempDir(), ".dockerenv")
	if inContainer {
		if err := os.WriteFile(sentinel, nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	cfg.Sentinels = []string{sentinel}

	calls := 0
	s := NewServer(cfg, false)
	s.runAudit = func(ctx context.Context) *audit.Report {
		calls++
		return &audit.Report{
			RunID:     "run-1",
			Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Hostname:  "ctr",
			Sections: []audit.Section{{
				Name:    audit.SectionNetwork,
				Results: []verdict.CheckResult{{Name: "network.open_ports", Observed: []int{}, Verdict: verdict.OK}},
			}},
		}
	}
	return s, &calls
}

func request(name string, args map[string]interface{}) mcpgo.CallToolRequest {
	var req mcpgo.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcpgo.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	switch c := res.Content[0].(type) {
	case mcpgo.TextContent:
		return c.Text
	case *mcpgo.TextContent:
		return c.Text
	default:
		t.Fatalf("unexpected content type %T", c)
	}
	return ""
}

func TestHandleAudit(t *testing.T) {
	s, calls := testServer(t, true)

	res, err := s.handleAudit(context.Background(), request(ToolAudit, nil))
	if err != nil {
		t.Fatalf("handleAudit() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("handleAudit() returned tool error: %s", resultText(t, res))
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(resultText(t, res)), &decoded); err != nil {
		t.Fatalf("default format is not JSON: %v", err)
	}
	if decoded["run_id"] != "run-1" {
		t.Errorf("run_id = %v", decoded["run_id"])
	}
	if *calls != 1 {
		t.Errorf("audit ran %d times, want 1", *calls)
	}
}

func TestHandleAudit_TextFormat(t *testing.T) {
	s, _ := testServer(t, true)

	res, _ := s.handleAudit(context.Background(), request(ToolAudit, map[string]interface{}{"format": "text"}))
	if !strings.Contains(resultText(t, res), "CONTAINER AUDIT") {
		t.Errorf("text report missing header")
	}
}

func TestHandleAudit_Errors(t *testing.T) {
	t.Run("bad format", func(t *testing.T) {
		s, calls := testServer(t, true)
		res, _ := s.handleAudit(context.Background(), request(ToolAudit, map[string]interface{}{"format": "xml"}))
		if !res.IsError {
			t.Error("expected tool error for unknown format")
		}
		if *calls != 0 {
			t.Error("audit ran despite bad format")
		}
	})

	t.Run("outside container", func(t *testing.T) {
		s, calls := testServer(t, false)
		res, _ := s.handleAudit(context.Background(), request(ToolAudit, nil))
		if !res.IsError {
			t.Error("expected tool error outside a container")
		}
		if *calls != 0 {
			t.Error("audit ran outside a container")
		}
	})

	t.Run("outside container skipped", func(t *testing.T) {
		s, calls := testServer(t, false)
		s.skipPrecondition = true
		res, _ := s.handleAudit(context.Background(), request(ToolAudit, nil))
		if res.IsError || *calls != 1 {
			t.Errorf("IsError = %v, calls = %d", res.IsError, *calls)
		}
	})
}

func TestHandlePrecondition(t *testing.T) {
	tests := []struct {
		inContainer bool
		want        string
	}{
		{true, "inside container"},
		{false, "not inside a container"},
	}

	for _, tt := range tests {
		s, _ := testServer(t, tt.inContainer)
		res, err := s.handlePrecondition(context.Background(), request(ToolPrecondition, nil))
		if err != nil {
			t.Fatalf("handlePrecondition() error = %v", err)
		}
		if got := resultText(t, res); !strings.HasPrefix(got, tt.want) {
			t.Errorf("handlePrecondition() = %q, want prefix %q", got, tt.want)
		}
	}
}
