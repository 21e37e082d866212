package collectors

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/girste/containaudit/internal/config"
	"github.com/girste/containaudit/internal/errors"
	"github.com/girste/containaudit/internal/verdict"
)

const ipAddrOutput = `2: eth0@if7: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500 qdisc noqueue state UP group default  link-netnsid 0
    inet 172.17.0.2/16 brd 172.17.255.255 scope global eth0
       valid_lft forever preferred_lft forever
`

func TestReadNameserver(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content *string
		want    string
	}{
		{"first entry", strPtr("# generated\nsearch local\nnameserver 10.0.0.2\nnameserver 1.1.1.1\n"), "10.0.0.2"},
		{"no nameserver", strPtr("search local\noptions ndots:5\n"), ""},
		{"malformed line", strPtr("nameserver\n"), ""},
		{"missing file", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			if tt.content != nil {
				if err := os.WriteFile(path, []byte(*tt.content), 0644); err != nil {
					t.Fatal(err)
				}
			}
			if got := ReadNameserver(path); got != tt.want {
				t.Errorf("ReadNameserver() = %q, want %q", got, tt.want)
			}
		})
	}
}

func strPtr(s string) *string { return &s }

func TestParseInetAddress(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{"address", ipAddrOutput, "172.17.0.2"},
		{"no address", "3: tunl0@NONE: <NOARP> mtu 1480 qdisc noop state DOWN\n", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseInetAddress(tt.output); got != tt.want {
				t.Errorf("ParseInetAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProbeInternet(t *testing.T) {
	tests := []struct {
		name   string
		runner *fakeRunner
		want   Reachability
	}{
		{"reply", newFakeRunner().set("ping", 0, ""), Available},
		{"no reply", newFakeRunner().set("ping", 1, ""), Unreachable},
		{"ping error", newFakeRunner().set("ping", 2, ""), Unknown},
		{"busybox permission denied", newFakeRunner().set("ping", 1, "").stderr("ping", "ping: permission denied (are you root?)\n"), Unknown},
		{"socket not permitted", newFakeRunner().set("ping", 1, "").stderr("ping", "ping: socket: Operation not permitted\n"), Unknown},
		{"no reply with stderr", newFakeRunner().set("ping", 1, "").stderr("ping", "1 packets transmitted, 0 received\n"), Unreachable},
		{"timeout", newFakeRunner().fail("ping", errors.ErrTimeoutExceeded), Unreachable},
		{"ping absent", newFakeRunner(), Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &NetworkCollector{Runner: tt.runner, ProbeAddress: "8.8.8.8", ProbeTimeout: time.Second}
			if got := c.probeInternet(context.Background()); got != tt.want {
				t.Errorf("probeInternet() = %v, want %v", got, tt.want)
			}
		})
	}
}

// networkFixture returns a config whose paths point into a temp dir with
// two interfaces, a resolver file and no namespace handles.
func networkFixture(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()

	ifDir := filepath.Join(root, "net")
	if err := os.MkdirAll(ifDir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"lo", "ctaudit-test0"} {
		if err := os.WriteFile(filepath.Join(ifDir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	resolv := filepath.Join(root, "resolv.conf")
	if err := os.WriteFile(resolv, []byte("nameserver 10.0.0.2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Paths.InterfaceDir = ifDir
	cfg.Paths.ResolvConf = resolv
	cfg.Paths.NamespaceDir = filepath.Join(root, "ns")
	cfg.Paths.InitNetNS = filepath.Join(root, "init-net")
	cfg.Network.PortTimeoutMs = 200
	return cfg
}

func TestNetworkCollector(t *testing.T) {
	cfg := networkFixture(t)
	port := closedPort(t)
	cfg.Network.PortRangeStart, cfg.Network.PortRangeEnd = port, port

	runner := newFakeRunner().set("ping", 0, "").set("ip", 0, ipAddrOutput)
	profile := NewNetworkCollector(cfg, runner).Collect(context.Background())

	if profile.Internet != Available {
		t.Errorf("Internet = %v, want Available", profile.Internet)
	}
	if profile.DNSServer != "10.0.0.2" {
		t.Errorf("DNSServer = %q", profile.DNSServer)
	}
	if len(profile.Interfaces) != 2 || profile.Interfaces[0].Name != "ctaudit-test0" || profile.Interfaces[1].Name != "lo" {
		t.Fatalf("Interfaces = %v", profile.Interfaces)
	}
	if profile.Interfaces[0].IPv4 != "172.17.0.2" {
		t.Errorf("IPv4 = %q", profile.Interfaces[0].IPv4)
	}
	if !profile.ScanComplete || len(profile.OpenPorts) != 0 {
		t.Errorf("OpenPorts = %v complete=%v", profile.OpenPorts, profile.ScanComplete)
	}
	if profile.Namespace.Error == "" {
		t.Error("Namespace.Error empty with missing namespace handle")
	}

	got := verdicts(t, cfg.Baseline, profile.Observations())
	if got[verdict.CheckOpenPorts] != verdict.OK {
		t.Errorf("open_ports verdict = %v, want OK", got[verdict.CheckOpenPorts])
	}
	if got[verdict.CheckNetNS] != verdict.Error {
		t.Errorf("netns verdict = %v, want ERROR", got[verdict.CheckNetNS])
	}
	for _, name := range []string{verdict.CheckInternet, verdict.CheckDNS, "network.interface.lo"} {
		if got[name] != verdict.Info {
			t.Errorf("%s verdict = %v, want INFO", name, got[name])
		}
	}
}

func TestNetworkCollector_ResolverMissing(t *testing.T) {
	cfg := networkFixture(t)
	port := closedPort(t)
	cfg.Network.PortRangeStart, cfg.Network.PortRangeEnd = port, port
	cfg.Paths.ResolvConf = filepath.Join(t.TempDir(), "absent")

	profile := NewNetworkCollector(cfg, newFakeRunner()).Collect(context.Background())

	if profile.DNSServer != "" {
		t.Errorf("DNSServer = %q, want empty", profile.DNSServer)
	}
	if len(profile.Interfaces) != 2 {
		t.Errorf("Interfaces = %v, want 2 entries", profile.Interfaces)
	}
	if profile.Internet != Unknown {
		t.Errorf("Internet = %v, want Unknown without ping", profile.Internet)
	}

	var dns *Observation
	obs := profile.Observations()
	for i := range obs {
		if obs[i].Name == verdict.CheckDNS {
			dns = &obs[i]
		}
	}
	if dns == nil || dns.Observed != "" || dns.Detail == "" {
		t.Errorf("dns observation = %+v", dns)
	}
}

func TestNetworkCollector_NoAddressMarker(t *testing.T) {
	cfg := networkFixture(t)
	port := closedPort(t)
	cfg.Network.PortRangeStart, cfg.Network.PortRangeEnd = port, port

	// ip present but the interface has no inet line
	runner := newFakeRunner().set("ip", 0, "5: ctaudit-test0: <NOARP> mtu 1500\n")
	profile := NewNetworkCollector(cfg, runner).Collect(context.Background())

	for _, o := range profile.Observations() {
		if o.Name == verdict.PrefixInterface+"ctaudit-test0" && o.Observed != NoIPv4 {
			t.Errorf("interface observed = %v, want %q", o.Observed, NoIPv4)
		}
	}
}

func TestNetworkCollector_InterfaceRegistryMissing(t *testing.T) {
	cfg := networkFixture(t)
	port := closedPort(t)
	cfg.Network.PortRangeStart, cfg.Network.PortRangeEnd = port, port
	cfg.Paths.InterfaceDir = filepath.Join(t.TempDir(), "absent")

	profile := NewNetworkCollector(cfg, newFakeRunner()).Collect(context.Background())
	if profile.InterfacesError == "" {
		t.Fatal("InterfacesError empty with missing registry")
	}

	got := verdicts(t, cfg.Baseline, profile.Observations())
	if got[verdict.CheckInterfaces] != verdict.Error {
		t.Errorf("interfaces verdict = %v, want ERROR", got[verdict.CheckInterfaces])
	}
}

func TestNetworkObservations_IncompleteScan(t *testing.T) {
	p := &NetworkProfile{Internet: Unknown, OpenPorts: []int{}, ScanRange: "127.0.0.1:1-1023"}
	got := verdicts(t, config.Default().Baseline, p.Observations())
	if got[verdict.CheckOpenPorts] != verdict.Error {
		t.Errorf("open_ports verdict = %v, want ERROR", got[verdict.CheckOpenPorts])
	}
}

func TestNetworkObservations_NoInterfaces(t *testing.T) {
	p := &NetworkProfile{Internet: Unknown, Interfaces: []Interface{}, ScanComplete: true, OpenPorts: []int{}}
	got := verdicts(t, config.Default().Baseline, p.Observations())
	if v, ok := got[verdict.CheckInterfaces]; !ok || v != verdict.Info {
		t.Errorf("interfaces verdict = %v (present %v), want INFO", v, ok)
	}
}

func TestNetworkObservations_NetNSDetail(t *testing.T) {
	tests := []struct {
		shared bool
		want   string
	}{
		{true, "same netns as container init (PID 1)"},
		{false, "separate from container init (PID 1)"},
	}

	for _, tt := range tests {
		p := &NetworkProfile{Internet: Unknown, Namespace: NetNamespace{ID: "4026531992", SharedWithInit: tt.shared}}
		for _, o := range p.Observations() {
			if o.Name == verdict.CheckNetNS && o.Detail != tt.want {
				t.Errorf("netns detail = %q, want %q", o.Detail, tt.want)
			}
		}
	}
}

func TestPingSocketError(t *testing.T) {
	tests := []struct {
		stderr string
		denied bool
	}{
		{"ping: permission denied (are you root?)", true},
		{"ping: socket: Operation not permitted", true},
		{"", false},
		{"ping: sendto: Network is unreachable", false},
	}

	for _, tt := range tests {
		err := pingSocketError(tt.stderr)
		if got := errors.Is(err, errors.ErrPermissionDenied); got != tt.denied {
			t.Errorf("pingSocketError(%q) = %v, want permission denied %v", tt.stderr, err, tt.denied)
		}
	}
}
