package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Veraticus/dossier/internal/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const billingCSV = `Plan,Account,Payer,Invoice,Amount,Date
P1,200,Rui,INV-4,10.00,2024-01-08
P1,100,Ana,INV-1,10.00,2024-01-05
P2,100,Ana,INV-2,15.00,2024-01-06
P1,100,Ana,INV-3,20.00,2024-01-07
`

const letterTemplate = `{{.Account}} {{.Date}} {{.Services}} {{.Total}}
{{range .Rows}}{{.plan}};{{.payer}};{{.invoice}};{{.amount}};{{.date}}
{{end}}`

type testEnv struct {
	dir       string
	config    string
	outputDir string
	template  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "")

	dir := t.TempDir()
	env := &testEnv{
		dir:       dir,
		config:    filepath.Join(dir, "config.yaml"),
		outputDir: filepath.Join(dir, "out"),
		template:  filepath.Join(dir, "letter.txt"),
	}

	config := "database:\n  path: " + filepath.Join(dir, "dossier.db") + "\n" +
		"output:\n  dir: " + env.outputDir + "\n" +
		"logging:\n  level: error\n  file: " + filepath.Join(dir, "dossier.log") + "\n"
	require.NoError(t, os.WriteFile(env.config, []byte(config), 0o600))
	require.NoError(t, os.WriteFile(env.template, []byte(letterTemplate), 0o600))
	return env
}

func (e *testEnv) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.config, "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) load(t *testing.T) {
	t.Helper()
	out, err := e.run(t, "load", e.write(t, "billing.csv", billingCSV))
	require.NoError(t, err)
	require.Contains(t, out, "Loaded 4 records into 2 accounts")
}

func TestVersionCmd(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "dossier dev\n", out)
}

func TestLoadAndAccounts(t *testing.T) {
	env := newTestEnv(t)
	env.load(t)

	out, err := env.run(t, "accounts")
	require.NoError(t, err)
	assert.Contains(t, out, "100")
	assert.Contains(t, out, "45.00")
	assert.Contains(t, out, "200")

	out, err = env.run(t, "accounts", "--sort", "amount")
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "45.00"), strings.Index(out, "10.00"))

	out, err = env.run(t, "accounts", "--filter", "20")
	require.NoError(t, err)
	assert.Contains(t, out, "Rui")
	assert.NotContains(t, out, "Ana")
	assert.Contains(t, out, `1 of 2 accounts match "20"`)
}

func TestAccounts_InvalidSort(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "accounts", "--sort", "size")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid sort order")
}

func TestAccounts_EmptyRelation(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "accounts")
	require.NoError(t, err)
	assert.Contains(t, out, "No accounts to show")
}

func TestLoad_FailureKeepsPreviousRecords(t *testing.T) {
	env := newTestEnv(t)
	env.load(t)

	_, err := env.run(t, "load", env.write(t, "broken.csv", "Plan,Account,Payer\nP1,300,Zé\n"))
	var schemaErr *common.SchemaError
	require.ErrorAs(t, err, &schemaErr)

	_, err = env.run(t, "load", filepath.Join(env.dir, "missing.csv"))
	require.Error(t, err)

	out, err := env.run(t, "accounts")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana")
	assert.NotContains(t, out, "300")
}

func TestLoad_RequiresSource(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "load")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to load")
}

func TestDetails(t *testing.T) {
	env := newTestEnv(t)
	env.load(t)

	out, err := env.run(t, "details", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "Account 100")
	assert.Contains(t, out, "INV-1")
	assert.Contains(t, out, "05/01/2024")
	assert.NotContains(t, out, "INV-4")

	_, err = env.run(t, "details", "999")
	assert.ErrorIs(t, err, common.ErrUnknownAccount)
}

func TestExport(t *testing.T) {
	env := newTestEnv(t)
	env.load(t)

	out, err := env.run(t, "export", "--template", env.template, "--account", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "1 documents written to "+env.outputDir)

	content, err := os.ReadFile(filepath.Join(env.outputDir, "100.txt"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "100 "))
	assert.Contains(t, string(content), " 3 45.00\n")
	assert.Contains(t, string(content), "P1;Ana;INV-1;10.00;05/01/2024\n")
	assert.NoFileExists(t, filepath.Join(env.outputDir, "200.txt"))
}

func TestExport_AllAndFilter(t *testing.T) {
	env := newTestEnv(t)
	env.load(t)

	_, err := env.run(t, "export", "--template", env.template, "--all")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(env.outputDir, "100.txt"))
	assert.FileExists(t, filepath.Join(env.outputDir, "200.txt"))

	other := filepath.Join(env.dir, "filtered")
	_, err = env.run(t, "export", "--template", env.template, "--filter", "20", "--output", other)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(other, "200.txt"))
	assert.NoFileExists(t, filepath.Join(other, "100.txt"))
}

func TestExport_FilterWithoutMatches(t *testing.T) {
	env := newTestEnv(t)
	env.load(t)

	out, err := env.run(t, "export", "--template", env.template, "--filter", "zzz")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing selected")
}

func TestExport_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.load(t)

	_, err := env.run(t, "export", "--template", env.template)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to export")

	_, err = env.run(t, "export", "--all")
	var tmplErr *common.TemplateError
	require.ErrorAs(t, err, &tmplErr)

	bad := env.write(t, "bad.txt", "{{.Account}} only")
	_, err = env.run(t, "export", "--all", "--template", bad)
	require.ErrorAs(t, err, &tmplErr)
	assert.NoDirExists(t, env.outputDir)

	_, err = env.run(t, "export", "--template", env.template, "--account", "999")
	assert.ErrorIs(t, err, common.ErrUnknownAccount)
	assert.NoDirExists(t, env.outputDir)
}

func TestMigrateStatus(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Database at schema version 2")

	out, err = env.run(t, "migrate", "--status")
	require.NoError(t, err)
	assert.Contains(t, out, "Current version: 2")
	assert.Contains(t, out, "Latest version: 2")
}

func TestAuthSheets_RequiresCredentials(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "")
	t.Setenv("GOOGLE_SHEETS_CLIENT_SECRET", "")

	_, err := env.run(t, "auth", "sheets")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OAuth2 credentials not found")
}
