package collectors

import (
	"bufio"
	"context"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/girste/containaudit/internal/config"
	"github.com/girste/containaudit/internal/errors"
	"github.com/girste/containaudit/internal/log"
	"github.com/girste/containaudit/internal/system"
	"github.com/girste/containaudit/internal/verdict"
	"github.com/vishvananda/netns"
)

// NetworkCollector gathers connectivity, resolver, interface and port facts.
type NetworkCollector struct {
	Runner         system.Runner
	CommandTimeout time.Duration
	ProbeAddress   string
	ProbeTimeout   time.Duration
	ResolvConf     string
	InterfaceDir   string
	SelfNetNS      string
	InitNetNS      string
	Scanner        *PortScanner
}

// NewNetworkCollector creates a network collector from the config
func NewNetworkCollector(cfg *config.Config, runner system.Runner) *NetworkCollector {
	return &NetworkCollector{
		Runner:         runner,
		CommandTimeout: cfg.CommandTimeout(),
		ProbeAddress:   cfg.Network.ProbeAddress,
		ProbeTimeout:   cfg.ProbeTimeout(),
		ResolvConf:     cfg.Paths.ResolvConf,
		InterfaceDir:   cfg.Paths.InterfaceDir,
		SelfNetNS:      filepath.Join(cfg.Paths.NamespaceDir, "net"),
		InitNetNS:      cfg.Paths.InitNetNS,
		Scanner: &PortScanner{
			Host:        cfg.Network.ScanHost,
			Start:       cfg.Network.PortRangeStart,
			End:         cfg.Network.PortRangeEnd,
			Timeout:     cfg.PortTimeout(),
			Concurrency: cfg.Network.ScanConcurrency,
		},
	}
}

func (c *NetworkCollector) Name() string { return "network" }

// Collect gathers the network profile
func (c *NetworkCollector) Collect(ctx context.Context) *NetworkProfile {
	profile := &NetworkProfile{
		Internet:   c.probeInternet(ctx),
		DNSServer:  ReadNameserver(c.ResolvConf),
		Interfaces: []Interface{},
		ScanRange:  c.Scanner.Range(),
		Namespace:  c.netNamespace(),
	}

	interfaces, err := c.interfaces(ctx)
	if err != nil {
		log.Degraded("interfaces", err)
		profile.InterfacesError = err.Error()
	} else {
		profile.Interfaces = interfaces
	}

	profile.OpenPorts, profile.ScanComplete = c.Scanner.Scan(ctx)
	if !profile.ScanComplete {
		log.Degraded("open_ports", ctx.Err())
	}

	return profile
}

// probeInternet sends one ICMP echo. ping exits 1 when no reply arrived and
// 2 on other errors (missing CAP_NET_RAW, no route), which says nothing about
// reachability. busybox ping exits 1 on a socket permission error too.
func (c *NetworkCollector) probeInternet(ctx context.Context) Reachability {
	if !c.Runner.Exists("ping") {
		return Unknown
	}

	wait := strconv.Itoa(int(c.ProbeTimeout / time.Second))
	result, err := c.Runner.Run(ctx, c.ProbeTimeout+time.Second, "ping", "-c", "1", "-W", wait, c.ProbeAddress)
	if err == nil && !result.Success {
		if denied := pingSocketError(result.Stderr); denied != nil {
			log.Degraded("internet", denied)
			return Unknown
		}
	}

	switch {
	case errors.Is(err, errors.ErrTimeoutExceeded):
		return Unreachable
	case err != nil:
		log.Degraded("internet", err)
		return Unknown
	case result.Success:
		return Available
	case result.ExitCode == 1:
		return Unreachable
	default:
		return Unknown
	}
}

// pingSocketError reports a ping that could not open its ICMP socket.
func pingSocketError(stderr string) error {
	msg := strings.ToLower(stderr)
	if strings.Contains(msg, "permission denied") || strings.Contains(msg, "operation not permitted") {
		return errors.Wrap(errors.ErrPermissionDenied, "ping socket: %s", strings.TrimSpace(stderr))
	}
	return nil
}

// ReadNameserver returns the first nameserver of a resolv.conf file, or ""
// when the file is missing or lists none.
func ReadNameserver(path string) string {
	file, err := os.Open(path)
	if err != nil {
		log.Degraded("dns", err)
		return ""
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[0] == "nameserver" {
			return fields[1]
		}
	}
	return ""
}

func (c *NetworkCollector) interfaces(ctx context.Context) ([]Interface, error) {
	entries, err := os.ReadDir(c.InterfaceDir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	useIP := c.Runner.Exists("ip")
	interfaces := make([]Interface, 0, len(names))
	for _, name := range names {
		var addr string
		if useIP {
			addr = c.addressFromIP(ctx, name)
		} else {
			addr = addressFromKernel(name)
		}
		interfaces = append(interfaces, Interface{Name: name, IPv4: addr})
	}
	return interfaces, nil
}

func (c *NetworkCollector) addressFromIP(ctx context.Context, name string) string {
	result, err := c.Runner.Run(ctx, c.CommandTimeout, "ip", "-4", "addr", "show", name)
	if err != nil || !result.Success {
		return ""
	}
	return ParseInetAddress(result.Stdout)
}

// ParseInetAddress returns the first IPv4 address of ip addr show output.
func ParseInetAddress(output string) string {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "inet ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			return strings.Split(fields[1], "/")[0]
		}
	}
	return ""
}

func addressFromKernel(name string) string {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return ""
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		if ipNet, ok := addr.(*net.IPNet); ok {
			if ip4 := ipNet.IP.To4(); ip4 != nil {
				return ip4.String()
			}
		}
	}
	return ""
}

func (c *NetworkCollector) netNamespace() NetNamespace {
	self, err := netns.GetFromPath(c.SelfNetNS)
	if err != nil {
		return NetNamespace{Error: err.Error()}
	}
	defer self.Close()

	ns := NetNamespace{ID: self.UniqueId()}

	initNS, err := netns.GetFromPath(c.InitNetNS)
	if err != nil {
		log.Degraded("netns", err)
		return ns
	}
	defer initNS.Close()

	ns.SharedWithInit = self.Equal(initNS)
	return ns
}

// Observations returns the network profile as raw check values
func (p *NetworkProfile) Observations() []Observation {
	obs := []Observation{
		{Name: verdict.CheckInternet, Observed: string(p.Internet)},
	}

	if p.DNSServer != "" {
		obs = append(obs, Observation{Name: verdict.CheckDNS, Observed: p.DNSServer})
	} else {
		obs = append(obs, Observation{Name: verdict.CheckDNS, Observed: "", Detail: "no nameserver configured"})
	}

	switch {
	case p.InterfacesError != "":
		obs = append(obs, Observation{
			Name:     verdict.CheckInterfaces,
			Observed: verdict.Unavailable{Reason: "interface registry unreadable: " + p.InterfacesError},
		})
	case len(p.Interfaces) == 0:
		obs = append(obs, Observation{Name: verdict.CheckInterfaces, Observed: "none", Detail: "no network interfaces"})
	}
	for _, iface := range p.Interfaces {
		addr := iface.IPv4
		if addr == "" {
			addr = NoIPv4
		}
		obs = append(obs, Observation{Name: verdict.PrefixInterface + iface.Name, Observed: addr})
	}

	if p.ScanComplete {
		obs = append(obs, Observation{Name: verdict.CheckOpenPorts, Observed: p.OpenPorts, Detail: p.ScanRange})
	} else {
		obs = append(obs, Observation{
			Name:     verdict.CheckOpenPorts,
			Observed: verdict.Unavailable{Reason: "port scan incomplete"},
			Detail:   p.ScanRange,
		})
	}

	if p.Namespace.Error != "" {
		obs = append(obs, Observation{
			Name:     verdict.CheckNetNS,
			Observed: verdict.Unavailable{Reason: p.Namespace.Error},
		})
	} else {
		detail := "separate from container init (PID 1)"
		if p.Namespace.SharedWithInit {
			detail = "same netns as container init (PID 1)"
		}
		obs = append(obs, Observation{Name: verdict.CheckNetNS, Observed: p.Namespace.ID, Detail: detail})
	}

	return obs
}
