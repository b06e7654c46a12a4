package blockguard

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/renameio/v2"
)

const (
	hostsBeginMarker = "# focusguard:begin"
	hostsEndMarker   = "# focusguard:end"
	hostsRedirectIP  = "0.0.0.0"
)

// HostsFile implements Rules by maintaining a managed block inside an
// /etc/hosts-style file. It is the headless counterpart of the browser
// redirect rules: matching domains resolve to an unroutable address instead.
// Rewrites go through renameio so a crash never leaves a torn hosts file.
type HostsFile struct {
	path string
}

// NewHostsFile returns a HostsFile adapter for the given file.
func NewHostsFile(path string) *HostsFile {
	return &HostsFile{path: path}
}

// Install replaces the managed block with entries for each rule's domain.
// Domains carrying a path prefix are skipped: hosts entries cannot express
// paths.
func (h *HostsFile) Install(_ context.Context, rules []Rule) error {
	var block strings.Builder

	block.WriteString(hostsBeginMarker + "\n")

	for _, r := range rules {
		domain := domainFromFilter(r.URLFilter)
		if domain == "" || strings.ContainsRune(domain, '/') {
			continue
		}

		fmt.Fprintf(&block, "%s %s # rule %d\n", hostsRedirectIP, domain, r.ID)
		fmt.Fprintf(&block, "%s www.%s # rule %d\n", hostsRedirectIP, domain, r.ID)
	}

	block.WriteString(hostsEndMarker + "\n")

	return h.rewrite(block.String())
}

// Remove deletes the managed block entirely.
func (h *HostsFile) Remove(_ context.Context, _ []int) error {
	return h.rewrite("")
}

func (h *HostsFile) rewrite(managed string) error {
	existing, err := os.ReadFile(h.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	kept := stripManagedBlock(string(existing))

	content := kept
	if managed != "" {
		if content != "" && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}

		content += managed
	}

	return renameio.WriteFile(h.path, []byte(content), 0o644)
}

// stripManagedBlock removes the section between the focusguard markers,
// leaving the rest of the file byte-for-byte intact.
func stripManagedBlock(content string) string {
	lines := strings.Split(content, "\n")
	kept := make([]string, 0, len(lines))

	inBlock := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == hostsBeginMarker:
			inBlock = true
		case trimmed == hostsEndMarker:
			inBlock = false
		case !inBlock:
			kept = append(kept, line)
		}
	}

	out := strings.Join(kept, "\n")

	return strings.TrimRight(out, "\n") + suffixNewline(out)
}

func suffixNewline(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}

	return "\n"
}

// domainFromFilter extracts the domain from a ||domain^ url filter.
func domainFromFilter(filter string) string {
	domain := strings.TrimPrefix(filter, "||")

	return strings.TrimSuffix(domain, "^")
}

// NoTabs is a Tabs implementation for environments without enumerable tabs,
// such as the headless daemon. Queries find nothing and per-tab operations
// report the tab as gone.
type NoTabs struct{}

func (NoTabs) Query(context.Context) ([]Tab, error) { return nil, nil }
func (NoTabs) Active(context.Context) (*Tab, error) { return nil, nil }
func (NoTabs) Reload(context.Context, int) error    { return ErrNoTab }
func (NoTabs) Close(context.Context, int) error     { return ErrNoTab }
