package blockguard_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/takaotokuno/focusguard/blockguard"
	"github.com/takaotokuno/focusguard/internal/apperr"
)

type fakeRules struct {
	installed  []blockguard.Rule
	removed    []int
	installErr error
	removeErr  error
}

func (f *fakeRules) Install(_ context.Context, rules []blockguard.Rule) error {
	if f.installErr != nil {
		return f.installErr
	}

	f.installed = rules

	return nil
}

func (f *fakeRules) Remove(_ context.Context, ids []int) error {
	if f.removeErr != nil {
		return f.removeErr
	}

	f.removed = ids
	f.installed = nil

	return nil
}

type fakeTabs struct {
	tabs      []blockguard.Tab
	queryErr  error
	activeErr error
	reloadErr map[int]error
	closeErr  map[int]error

	reloaded []int
	closed   []int
}

func (f *fakeTabs) Query(_ context.Context) ([]blockguard.Tab, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}

	return f.tabs, nil
}

func (f *fakeTabs) Active(_ context.Context) (*blockguard.Tab, error) {
	if f.activeErr != nil {
		return nil, f.activeErr
	}

	for i := range f.tabs {
		if f.tabs[i].Active {
			return &f.tabs[i], nil
		}
	}

	return nil, nil
}

func (f *fakeTabs) Reload(_ context.Context, id int) error {
	if err := f.reloadErr[id]; err != nil {
		return err
	}

	f.reloaded = append(f.reloaded, id)

	return nil
}

func (f *fakeTabs) Close(_ context.Context, id int) error {
	if err := f.closeErr[id]; err != nil {
		return err
	}

	f.closed = append(f.closed, id)

	return nil
}

var testDomains = []string{"x.com", "youtube.com", "read.amazon.co.jp/manga"}

func newGuard(
	rules *fakeRules,
	tabs *fakeTabs,
) *blockguard.Guard {
	return blockguard.New(rules, tabs, testDomains, "/blocked.html")
}

func TestRuleSetIsDeterministic(t *testing.T) {
	g := newGuard(&fakeRules{}, &fakeTabs{})

	rules := g.RuleSet()
	require.Len(t, rules, len(testDomains))

	for i, r := range rules {
		require.Equal(t, blockguard.RuleIDBase+i, r.ID)
		require.Equal(t, 1, r.Priority)
		require.Equal(t, "||"+testDomains[i]+"^", r.URLFilter)
		require.Equal(t, []string{blockguard.MainFrame}, r.ResourceTypes)
		require.Equal(t, "/blocked.html", r.RedirectPath)
	}
}

func TestEnableInstallsRulesAndReconcilesTabs(t *testing.T) {
	rules := &fakeRules{}
	tabs := &fakeTabs{
		tabs: []blockguard.Tab{
			{ID: 1, URL: "https://x.com/home", Active: true},
			{ID: 2, URL: "https://www.youtube.com/watch?v=abc"},
			{ID: 3, URL: "https://example.com/"},
		},
	}

	g := newGuard(rules, tabs)

	require.NoError(t, g.Enable(context.Background()))

	require.Len(t, rules.installed, len(testDomains))
	require.Equal(t, []int{1}, tabs.reloaded, "active matching tab is reloaded")
	require.Equal(t, []int{2}, tabs.closed, "other matching tabs are closed")
}

func TestEnableFailsFatallyOnInstallError(t *testing.T) {
	rules := &fakeRules{installErr: errors.New("permission denied")}
	tabs := &fakeTabs{
		tabs: []blockguard.Tab{{ID: 1, URL: "https://x.com/", Active: true}},
	}

	g := newGuard(rules, tabs)

	err := g.Enable(context.Background())
	require.Error(t, err)
	require.Equal(t, apperr.RuleInstall, apperr.KindOf(err))
	require.True(t, apperr.IsFatal(err))
	require.Empty(t, tabs.reloaded, "tabs must not be touched when install fails")
	require.Empty(t, tabs.closed)
}

func TestEnableIgnoresGoneTabs(t *testing.T) {
	tabs := &fakeTabs{
		tabs: []blockguard.Tab{
			{ID: 1, URL: "https://x.com/", Active: true},
			{ID: 2, URL: "https://youtube.com/"},
		},
		closeErr: map[int]error{2: blockguard.ErrNoTab},
	}

	g := newGuard(&fakeRules{}, tabs)

	require.NoError(t, g.Enable(context.Background()))
}

func TestEnableAggregatesTabFailures(t *testing.T) {
	tabs := &fakeTabs{
		tabs: []blockguard.Tab{
			{ID: 1, URL: "https://x.com/", Active: true},
			{ID: 2, URL: "https://youtube.com/"},
			{ID: 3, URL: "https://m.youtube.com/"},
		},
		reloadErr: map[int]error{1: errors.New("reload failed")},
		closeErr:  map[int]error{2: errors.New("close failed")},
	}

	g := newGuard(&fakeRules{}, tabs)

	err := g.Enable(context.Background())
	require.Error(t, err)
	require.Equal(t, apperr.TabReconcile, apperr.KindOf(err))
	require.False(t, apperr.IsFatal(err), "rules are installed; only a warning")
	require.Contains(t, err.Error(), "failed 2 of 3")
	require.Equal(t, []int{3}, tabs.closed)
}

func TestEnableQueryFailureIsWarning(t *testing.T) {
	tabs := &fakeTabs{queryErr: errors.New("tabs unavailable")}

	g := newGuard(&fakeRules{}, tabs)

	err := g.Enable(context.Background())
	require.Error(t, err)
	require.False(t, apperr.IsFatal(err))
}

func TestDisableRemovesKnownIDs(t *testing.T) {
	rules := &fakeRules{}
	g := newGuard(rules, &fakeTabs{})

	require.NoError(t, g.Enable(context.Background()))
	require.NoError(t, g.Disable(context.Background()))

	want := []int{
		blockguard.RuleIDBase,
		blockguard.RuleIDBase + 1,
		blockguard.RuleIDBase + 2,
	}
	require.Equal(t, want, rules.removed)
}

func TestMatchesDomain(t *testing.T) {
	cases := []struct {
		name   string
		rawURL string
		domain string
		want   bool
	}{
		{"exact host", "https://x.com/home", "x.com", true},
		{"subdomain", "https://www.youtube.com/watch", "youtube.com", true},
		{"deep subdomain", "https://m.news.yahoo.co.jp/", "news.yahoo.co.jp", true},
		{"unrelated host", "https://example.com/", "x.com", false},
		{"suffix is not subdomain", "https://notx.com/", "x.com", false},
		{
			"path prefix matches",
			"https://read.amazon.co.jp/manga/store",
			"read.amazon.co.jp/manga",
			true,
		},
		{
			"path prefix mismatch",
			"https://read.amazon.co.jp/kindle",
			"read.amazon.co.jp/manga",
			false,
		},
		{"not a url", "::not a url::", "x.com", false},
		{"schemeless", "x.com/home", "x.com", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, blockguard.MatchesDomain(tc.rawURL, tc.domain))
		})
	}
}

func TestHostsFileInstallAndRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts")

	original := "127.0.0.1 localhost\n"
	require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

	h := blockguard.NewHostsFile(path)
	g := blockguard.New(h, blockguard.NoTabs{}, testDomains, "/blocked.html")

	require.NoError(t, g.Enable(context.Background()))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	require.Contains(t, string(content), "127.0.0.1 localhost")
	require.Contains(t, string(content), "0.0.0.0 x.com")
	require.Contains(t, string(content), "0.0.0.0 www.youtube.com")
	require.NotContains(t, string(content), "read.amazon.co.jp/manga",
		"hosts entries cannot carry paths")

	require.NoError(t, g.Disable(context.Background()))

	content, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, original, string(content))
}

func TestHostsFileInstallIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts")

	h := blockguard.NewHostsFile(path)
	g := blockguard.New(h, blockguard.NoTabs{}, []string{"x.com"}, "/blocked.html")

	require.NoError(t, g.Enable(context.Background()))
	require.NoError(t, g.Enable(context.Background()))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	require.Equal(t, 1, strings.Count(string(content), "0.0.0.0 x.com #"))
}
