// Package blockguard installs redirect rules for distracting sites during
// work sessions and reconciles tabs that are already open on those sites.
package blockguard

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/takaotokuno/focusguard/internal/apperr"
)

// RuleIDBase anchors the deterministic rule id scheme: the i-th configured
// domain always maps to RuleIDBase+i, so Disable can remove the full id set
// without reading back what is installed.
const RuleIDBase = 10100

// MainFrame is the only resource type the redirect rules apply to.
const MainFrame = "main_frame"

// Rule is a single redirect rule.
type Rule struct {
	ID            int      `json:"id"`
	Priority      int      `json:"priority"`
	RedirectPath  string   `json:"redirectPath"`
	URLFilter     string   `json:"urlFilter"`
	ResourceTypes []string `json:"resourceTypes"`
}

// Tab is an open page known to the host.
type Tab struct {
	ID     int
	URL    string
	Active bool
}

// ErrNoTab is returned by Tabs implementations when the referenced tab no
// longer exists. Such failures are ignored during reconciliation.
var ErrNoTab = errors.New("tab no longer exists")

// Rules manages the installed redirect rule set.
type Rules interface {
	Install(ctx context.Context, rules []Rule) error
	Remove(ctx context.Context, ids []int) error
}

// Tabs enumerates and controls open tabs. Which tabs fall under the block
// list is the guard's call, so Query returns everything.
type Tabs interface {
	Query(ctx context.Context) ([]Tab, error)
	// Active returns the active tab in the focused window, or nil.
	Active(ctx context.Context) (*Tab, error)
	Reload(ctx context.Context, id int) error
	Close(ctx context.Context, id int) error
}

// Guard owns the block list life cycle.
type Guard struct {
	rules        Rules
	tabs         Tabs
	domains      []string
	redirectPath string
}

// New returns a Guard for the given ordered domain list.
func New(rules Rules, tabs Tabs, domains []string, redirectPath string) *Guard {
	return &Guard{
		rules:        rules,
		tabs:         tabs,
		domains:      domains,
		redirectPath: redirectPath,
	}
}

// RuleSet builds the full redirect rule set with deterministic ids.
func (g *Guard) RuleSet() []Rule {
	rules := make([]Rule, len(g.domains))

	for i, domain := range g.domains {
		rules[i] = Rule{
			ID:            RuleIDBase + i,
			Priority:      1,
			RedirectPath:  g.redirectPath,
			URLFilter:     "||" + domain + "^",
			ResourceTypes: []string{MainFrame},
		}
	}

	return rules
}

func (g *Guard) ruleIDs() []int {
	ids := make([]int, len(g.domains))
	for i := range g.domains {
		ids[i] = RuleIDBase + i
	}

	return ids
}

// Enable installs the redirect rules and then reconciles open tabs: the
// active matching tab is reloaded so the user lands on the block page, every
// other matching tab is closed. Rule installation failure is fatal; per-tab
// failures are aggregated into a warning.
func (g *Guard) Enable(ctx context.Context) error {
	if err := g.rules.Install(ctx, g.RuleSet()); err != nil {
		return apperr.Wrap(
			apperr.RuleInstall,
			apperr.Fatal,
			"installing block rules",
			err,
		)
	}

	return g.reconcileTabs(ctx)
}

// Disable removes the known rule id set. Open tabs are left alone.
func (g *Guard) Disable(ctx context.Context) error {
	if err := g.rules.Remove(ctx, g.ruleIDs()); err != nil {
		return apperr.Wrap(
			apperr.RuleInstall,
			apperr.Fatal,
			"removing block rules",
			err,
		)
	}

	return nil
}

func (g *Guard) reconcileTabs(ctx context.Context) error {
	open, err := g.tabs.Query(ctx)
	if err != nil {
		return apperr.Wrap(
			apperr.TabReconcile,
			apperr.Warning,
			"querying open tabs",
			err,
		)
	}

	matched := g.matchingTabs(open)
	if len(matched) == 0 {
		return nil
	}

	active, err := g.tabs.Active(ctx)
	if err != nil {
		return apperr.Wrap(
			apperr.TabReconcile,
			apperr.Warning,
			"querying active tab",
			err,
		)
	}

	var failed int

	for _, tab := range matched {
		var terr error

		if active != nil && tab.ID == active.ID {
			terr = g.tabs.Reload(ctx, tab.ID)
		} else {
			terr = g.tabs.Close(ctx, tab.ID)
		}

		if terr != nil && !errors.Is(terr, ErrNoTab) {
			failed++
		}
	}

	if failed > 0 {
		return apperr.New(
			apperr.TabReconcile,
			apperr.Warning,
			fmt.Sprintf("tab reconciliation failed %d of %d", failed, len(matched)),
		)
	}

	return nil
}

// matchingTabs filters open tabs down to the ones on a blocked domain.
func (g *Guard) matchingTabs(open []Tab) []Tab {
	var matched []Tab

	for _, tab := range open {
		for _, domain := range g.domains {
			if MatchesDomain(tab.URL, domain) {
				matched = append(matched, tab)
				break
			}
		}
	}

	return matched
}

// MatchesDomain reports whether rawURL belongs to domain, counting
// subdomains. A domain may carry a path prefix (e.g. example.com/books), in
// which case the URL path must also match.
func MatchesDomain(rawURL, domain string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}

	host := strings.ToLower(u.Hostname())

	domainHost := domain
	domainPath := ""

	if i := strings.IndexByte(domain, '/'); i >= 0 {
		domainHost = domain[:i]
		domainPath = domain[i:]
	}

	if host != domainHost && !strings.HasSuffix(host, "."+domainHost) {
		return false
	}

	return domainPath == "" || strings.HasPrefix(u.Path, domainPath)
}
