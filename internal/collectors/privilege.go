package collectors

import (
	"bufio"
	"context"
	"os"
	"os/user"
	"strconv"
	"strings"
	"time"

	"github.com/girste/containaudit/internal/config"
	"github.com/girste/containaudit/internal/errors"
	"github.com/girste/containaudit/internal/log"
	"github.com/girste/containaudit/internal/system"
	"github.com/girste/containaudit/internal/verdict"
)

// PrivilegeProvider answers identity and sudo questions for the process.
type PrivilegeProvider interface {
	UserName(uid int) (string, error)
	Groups(ctx context.Context) ([]string, error)
	SudoGrants(ctx context.Context) ([]string, error)
}

// SystemPrivilegeProvider uses the user database and the sudo tool.
type SystemPrivilegeProvider struct {
	Runner  system.Runner
	Timeout time.Duration
}

func (p *SystemPrivilegeProvider) UserName(uid int) (string, error) {
	u, err := user.LookupId(strconv.Itoa(uid))
	if err != nil {
		return "", err
	}
	return u.Username, nil
}

// Groups resolves the group names of the current user, falling back to id -Gn
// when the user database lookup fails.
func (p *SystemPrivilegeProvider) Groups(ctx context.Context) ([]string, error) {
	if names, err := lookupGroups(); err == nil {
		return names, nil
	}

	result, err := p.Runner.Run(ctx, p.Timeout, "id", "-Gn")
	if err != nil {
		return nil, errors.Wrap(err, "group membership")
	}
	if !result.Success {
		return nil, errors.Wrap(errors.ErrCommandFailed, "id -Gn exited with %d", result.ExitCode)
	}
	return strings.Fields(result.Stdout), nil
}

func lookupGroups() ([]string, error) {
	u, err := user.Current()
	if err != nil {
		return nil, err
	}
	ids, err := u.GroupIds()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		g, err := user.LookupGroupId(id)
		if err != nil {
			return nil, err
		}
		names = append(names, g.Name)
	}
	return names, nil
}

// SudoGrants lists the rules from sudo -n -l. The -n flag keeps sudo from
// prompting for a password, which would otherwise block the run.
func (p *SystemPrivilegeProvider) SudoGrants(ctx context.Context) ([]string, error) {
	result, err := p.Runner.Run(ctx, p.Timeout, "sudo", "-n", "-l")
	if err != nil {
		return nil, errors.Wrap(err, "sudo")
	}
	if !result.Success {
		return nil, errors.Wrap(errors.ErrCommandFailed, "sudo -n -l exited with %d: %s",
			result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	return ParseSudoList(result.Stdout), nil
}

// ParseSudoList returns the rule lines listed under each "may run the
// following commands" header of sudo -l output, in order.
func ParseSudoList(output string) []string {
	grants := []string{}
	inRules := false

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		raw := scanner.Text()
		line := strings.TrimSpace(raw)

		if strings.Contains(line, "may run the following commands") {
			inRules = true
			continue
		}
		if !inRules || line == "" {
			continue
		}
		// Rules are indented; any other line closes the section
		if raw[0] != ' ' && raw[0] != '\t' {
			inRules = false
			continue
		}
		grants = append(grants, line)
	}
	return grants
}

// PrivilegeCollector reports the effective identity, privileged group
// membership and sudo grants.
type PrivilegeCollector struct {
	PrivilegedGroups []string
	Provider         PrivilegeProvider
}

// NewPrivilegeCollector creates a privilege collector from the config
func NewPrivilegeCollector(cfg *config.Config, provider PrivilegeProvider) *PrivilegeCollector {
	return &PrivilegeCollector{
		PrivilegedGroups: cfg.Baseline.PrivilegedGroups,
		Provider:         provider,
	}
}

func (c *PrivilegeCollector) Name() string { return "privilege" }

// Collect gathers the privilege profile. Sudo failures leave an empty grant
// list; they never fail the collector.
func (c *PrivilegeCollector) Collect(ctx context.Context) *PrivilegeProfile {
	profile := &PrivilegeProfile{
		UID:        os.Geteuid(),
		GID:        os.Getegid(),
		Groups:     []string{},
		SudoGrants: []string{},
	}

	if name, err := c.Provider.UserName(profile.UID); err == nil {
		profile.UserName = name
	}

	groups, err := c.Provider.Groups(ctx)
	if err != nil {
		log.Degraded("groups", err)
		profile.GroupsError = err.Error()
	} else {
		profile.Groups = groups
		profile.PrivilegedGroup = matchGroup(groups, c.PrivilegedGroups)
		profile.InSudoGroup = profile.PrivilegedGroup != ""
	}

	grants, err := c.Provider.SudoGrants(ctx)
	if err != nil {
		log.Degraded("sudo_grants", err)
		profile.SudoQueryError = err.Error()
	} else if grants != nil {
		profile.SudoGrants = grants
	}

	return profile
}

func matchGroup(groups, privileged []string) string {
	for _, want := range privileged {
		for _, g := range groups {
			if g == want {
				return g
			}
		}
	}
	return ""
}

// Observations returns the privilege profile as raw check values
func (p *PrivilegeProfile) Observations() []Observation {
	obs := []Observation{
		{Name: verdict.CheckUID, Observed: p.UID, Detail: p.UserName},
		{Name: verdict.CheckGID, Observed: p.GID},
	}

	if p.GroupsError != "" {
		obs = append(obs, Observation{
			Name:     verdict.CheckSudoGroup,
			Observed: verdict.Unavailable{Reason: "group membership unavailable: " + p.GroupsError},
		})
	} else {
		obs = append(obs, Observation{Name: verdict.CheckSudoGroup, Observed: p.InSudoGroup, Detail: p.PrivilegedGroup})
	}

	detail := ""
	if p.SudoQueryError != "" {
		detail = "sudo query failed: " + p.SudoQueryError
	}
	return append(obs, Observation{Name: verdict.CheckSudoGrants, Observed: p.SudoGrants, Detail: detail})
}
