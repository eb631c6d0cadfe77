package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"brdwizard/internal/config"
	"brdwizard/internal/records"
	"brdwizard/internal/remote/memory"
	"brdwizard/internal/schema"
	"brdwizard/internal/ux"
)

const testConfig = `
local:
  driver: sqlite-purego
  path: brd.db
export:
  sink: fs
  format: txt
  dir: exports
  page_lines: 40
  workers: 2
`

func newDataDir(t *testing.T) string {
	t.Helper()
	t.Setenv("BRD_DATA_DIR", "")
	t.Setenv("BRD_REMOTE_DSN", "")
	t.Setenv("BRD_EXPORT_SINK", "")
	t.Setenv("BRD_EXPORT_DIR", "")
	t.Setenv("BRD_LOCAL_PATH", "")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(testConfig), 0644))
	return dir
}

func runCLI(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append([]string{"--data-dir", dataDir}, args...))
	err := root.Execute()
	return buf.String(), err
}

func completeDocument(title string) []string {
	values := map[string]string{
		"title":                  title,
		"businessOwner":          "Kim Lee",
		"summary":                "Replace the legacy billing engine with a hosted service.",
		"problemStatement":       "Invoices are late and error prone every month end.",
		"objectives":             "Cut invoice errors by half.",
		"inScope":                "Invoice generation and delivery.",
		"sponsor":                "CFO",
		"stakeholders":           "Finance, Support",
		"functionalRequirements": "Generate invoices nightly from usage records.",
		"startDate":              "2026-11-01",
		"endDate":                "2027-03-31",
	}
	args := []string{"fill"}
	for k, v := range values {
		args = append(args, "--set", k+"="+v)
	}
	return args
}

func TestFillIncompleteKeepsDraft(t *testing.T) {
	dir := newDataDir(t)

	out, err := runCLI(t, dir, "fill", "--set", "title=Billing", "--set", "priority=High", "--set", "sponsor=CFO")
	require.Error(t, err)
	assert.Contains(t, out, "Section 1 of 7 (Project Overview) is incomplete")
	assert.Contains(t, out, "businessOwner:")
	assert.Contains(t, out, "summary:")

	out, err = runCLI(t, dir, "draft", "show")
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "Billing"`)
	assert.Contains(t, out, `"priority": "High"`, "answers for later sections are kept")
	assert.Contains(t, out, `"sponsor": "CFO"`)

	_, err = runCLI(t, dir, "draft", "clear")
	require.NoError(t, err)
	out, err = runCLI(t, dir, "draft", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "No draft")
}

func TestFillUnknownField(t *testing.T) {
	dir := newDataDir(t)
	_, err := runCLI(t, dir, "fill", "--set", "nope=1")
	assert.Error(t, err)
	_, err = runCLI(t, dir, "fill", "--set", "novalue")
	assert.Error(t, err)
}

func TestDocumentLifecycle(t *testing.T) {
	dir := newDataDir(t)

	out, err := runCLI(t, dir, completeDocument("Billing Revamp")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Saved ")

	out, err = runCLI(t, dir, completeDocument("Onboarding Flow")...)
	require.NoError(t, err, out)

	out, err = runCLI(t, dir, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Billing Revamp")
	assert.Contains(t, out, "Onboarding Flow")
	assert.Less(t, strings.Index(out, "Onboarding Flow"), strings.Index(out, "Billing Revamp"), "newest first")

	out, err = runCLI(t, dir, "show", "--raw", "0")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Onboarding Flow\n"), out)
	assert.Contains(t, out, "**Executive Sponsor:** CFO")

	out, err = runCLI(t, dir, "fill", "--edit", "1", "--set", "priority=High")
	require.NoError(t, err, out)

	out, err = runCLI(t, dir, "show", "--raw", "0")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Billing Revamp\n"), "edited record moves to the top")
	assert.Contains(t, out, "**Priority:** High")

	out, err = runCLI(t, dir, "export", "--all")
	require.NoError(t, err, out)
	for _, name := range []string{"billing_revamp.txt", "onboarding_flow.txt"} {
		data, err := os.ReadFile(filepath.Join(dir, "exports", name))
		require.NoError(t, err, name)
		assert.Contains(t, string(data), "Page 1 of")
	}

	out, err = runCLI(t, dir, "export", "--format", "md", "--out", filepath.Join(dir, "md"), "0")
	require.NoError(t, err, out)
	_, err = os.Stat(filepath.Join(dir, "md", "billing_revamp.md"))
	require.NoError(t, err)

	out, err = runCLI(t, dir, "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `Deleted "Onboarding Flow"`)

	_, err = runCLI(t, dir, "show", "1")
	assert.ErrorIs(t, err, records.ErrNotFound)

	out, err = runCLI(t, dir, "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")
	assert.Contains(t, out, "Mode: guest")
}

func TestExportArgs(t *testing.T) {
	dir := newDataDir(t)
	_, err := runCLI(t, dir, "export")
	assert.Error(t, err)
	_, err = runCLI(t, dir, "export", "--all", "0")
	assert.Error(t, err)

	out, err := runCLI(t, dir, "export", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to export")
}

func TestExportNotesIncompleteRecords(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Local.Driver = "memory"

	ctx := context.Background()
	a, err := openApp(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	_, err = a.records.Save(ctx, records.Record{Fields: records.Fields{"title": "Sketch", "sponsor": "CFO"}})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runExport(ctx, &out, a, &exportOptions{all: true}, nil))
	assert.Contains(t, out.String(), `Note: "Sketch" has`)
	assert.Contains(t, out.String(), "businessOwner")
	assert.NotContains(t, out.String(), "sponsor,")
	assert.Contains(t, out.String(), `Exported "Sketch"`)

	_, err = os.Stat(filepath.Join(cfg.DataDir, "exports", "sketch.txt"))
	assert.NoError(t, err)
}

func TestIncompleteNote(t *testing.T) {
	sc := schema.Default()
	complete := records.Fields{}
	args := completeDocument("Billing Revamp")
	values, err := parseAssignments(setValues(args))
	require.NoError(t, err)
	for k, v := range values {
		complete[k] = v
	}
	assert.Empty(t, incompleteNote(sc, records.Record{Fields: complete}))

	delete(complete, "endDate")
	assert.Equal(t, `Note: "Billing Revamp" has 1 incomplete field(s): endDate`,
		incompleteNote(sc, records.Record{Fields: complete}))
}

// setValues extracts the key=value pairs from a fill argument list.
func setValues(args []string) []string {
	var pairs []string
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "--set" {
			pairs = append(pairs, args[i+1])
		}
	}
	return pairs
}

func TestThemeCommand(t *testing.T) {
	dir := newDataDir(t)
	out, err := runCLI(t, dir, "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark\n", out)

	_, err = runCLI(t, dir, "theme", "toggle")
	require.NoError(t, err)
	out, err = runCLI(t, dir, "theme")
	require.NoError(t, err)
	assert.Equal(t, "light\n", out)

	_, err = runCLI(t, dir, "theme", "sepia")
	assert.Error(t, err)
}

func TestMigrateWithoutRemote(t *testing.T) {
	dir := newDataDir(t)
	_, err := runCLI(t, dir, "migrate")
	assert.ErrorContains(t, err, "signed-in user")
}

func TestAuthLoginLocalOnly(t *testing.T) {
	dir := newDataDir(t)
	out, err := runCLI(t, dir, "auth", "login", "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as alice")
	assert.Contains(t, out, "No remote configured")

	out, err = runCLI(t, dir, "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as alice")
	assert.Contains(t, out, "Mode: authenticated")

	_, err = runCLI(t, dir, "auth", "logout")
	require.NoError(t, err)
	out, err = runCLI(t, dir, "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Mode: guest")
}

func TestSignInMigratesLocalRecords(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Local.Driver = "memory"
	cfg.Remote.Enabled = true
	cfg.Remote.Driver = "memory"

	ctx := context.Background()
	a, err := openApp(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	_, err = a.records.Save(ctx, records.Record{Fields: records.Fields{"title": "Offline plan"}})
	require.NoError(t, err)
	a.afterLocalSave()
	assert.Equal(t, ux.ModeGuest, a.prefs.UserMode())
	assert.False(t, a.records.HasRemote())

	_, err = a.ids.SignIn("alice", "Alice")
	require.NoError(t, err)

	rep := a.lastReport()
	require.NoError(t, rep.Err)
	assert.Equal(t, ux.ModeAuthenticated, rep.Mode)
	assert.Equal(t, 1, rep.Migrated)
	assert.Equal(t, 1, rep.Loaded)
	assert.True(t, a.records.HasRemote())

	all, err := a.records.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "alice", all[0].OwnerID)

	require.NoError(t, a.ids.SignOut())
	assert.Equal(t, ux.ModeGuest, a.lastReport().Mode)
}

// rejectingRemote refuses upserts of records with the given title.
type rejectingRemote struct {
	*memory.Store
	title string
}

func (r *rejectingRemote) Upsert(ctx context.Context, owner string, rec records.Record) error {
	if rec.Title() == r.title {
		return errors.New("remote write rejected")
	}
	return r.Store.Upsert(ctx, owner, rec)
}

func TestSignInKeepsRecordsThatFailedToMigrate(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Local.Driver = "memory"

	ctx := context.Background()
	a, err := openApp(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	remote := &rejectingRemote{Store: memory.New(), title: "Rejected plan"}
	a.remote = remote
	a.records = records.New(a.kv, a.ids, remote, records.WithSchema(a.schema))

	for _, title := range []string{"Accepted plan", "Rejected plan"} {
		_, err := a.records.Save(ctx, records.Record{Fields: records.Fields{"title": title}})
		require.NoError(t, err)
	}

	_, err = a.ids.SignIn("alice", "")
	require.NoError(t, err)

	rep := a.lastReport()
	require.ErrorIs(t, rep.Err, records.ErrMigrationPartial)
	assert.Equal(t, 1, rep.Migrated)
	assert.Equal(t, 1, remote.Len("alice"))

	all, err := a.records.LoadAll(ctx)
	require.NoError(t, err)
	titles := make(map[string]string)
	for _, r := range all {
		titles[r.Title()] = r.OwnerID
	}
	require.Contains(t, titles, "Rejected plan")
	assert.Empty(t, titles["Rejected plan"])
	assert.Equal(t, "alice", titles["Accepted plan"])

	remote.title = ""
	n, err := a.records.MigrateToRemote(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, remote.Len("alice"))
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"a=1", "b=x=y", `c=line\nbreak`, "d="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "x=y", "c": "line\nbreak", "d": ""}, got)

	_, err = parseAssignments([]string{"=v"})
	assert.Error(t, err)
}

func TestDedupeName(t *testing.T) {
	assert.Equal(t, "plan_2.md", dedupeName("plan.md", 2))
	assert.Equal(t, "plan_3", dedupeName("plan", 3))
}
