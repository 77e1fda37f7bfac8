package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/giygas/pharmacy-validator/config"
	"github.com/giygas/pharmacy-validator/entities"
	"github.com/giygas/pharmacy-validator/report"
	"github.com/giygas/pharmacy-validator/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	candidates map[string][]entities.Candidate
	calls      []string
}

func (s *stubFetcher) Fetch(_ context.Context, name string) ([]entities.Candidate, error) {
	s.calls = append(s.calls, name)
	return s.candidates[name], nil
}

func testConfig() *config.Config {
	return &config.Config{NameColumn: config.DefaultNameColumn}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunValidateWritesReport(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "clients.csv", "PharmacyName,Town\nABC Pharmacy,Durban\nXYZ Chemist,Paarl\n")
	out := filepath.Join(dir, "validated_clients.csv")

	fetcher := &stubFetcher{candidates: map[string][]entities.Candidate{
		"ABC Pharmacy": {{Name: "ABC Pharmacy", Status: "Active"}},
	}}

	summary, err := runValidate(context.Background(), testConfig(), validation.NewValidator(fetcher, 0), in, out)
	require.NoError(t, err)

	assert.Equal(t, []string{"ABC Pharmacy", "XYZ Chemist"}, fetcher.calls)
	assert.Equal(t, runSummary{OutPath: out, Rows: 2, Exact: 1, NoMatch: 1}, summary)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t,
		"PharmacyName,BestMatch,MatchScore,Status\n"+
			"ABC Pharmacy,ABC Pharmacy,100,Active\n"+
			"XYZ Chemist,None,9,No match\n",
		string(data))
}

func TestRunValidateXLSXOutput(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "clients.csv", "PharmacyName\nABC Pharmacy\n")
	out := filepath.Join(dir, "report.xlsx")

	_, err := runValidate(context.Background(), testConfig(), validation.NewValidator(&stubFetcher{}, 0), in, out)
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	records, err := report.ReadRecords(f, report.FormatXLSX, "PharmacyName")
	require.NoError(t, err)
	assert.Equal(t, []entities.InputRecord{{PharmacyName: "ABC Pharmacy"}}, records)
}

func TestRunValidateMissingColumnWritesNothing(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "clients.csv", "Name\nABC Pharmacy\n")
	out := filepath.Join(dir, "validated_clients.csv")
	fetcher := &stubFetcher{}

	_, err := runValidate(context.Background(), testConfig(), validation.NewValidator(fetcher, 0), in, out)

	require.Error(t, err)
	assert.True(t, report.IsSchemaError(err))
	assert.Empty(t, fetcher.calls)
	assert.NoFileExists(t, out)
}

func TestRunValidateRejectsUnknownExtensions(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "clients.csv", "PharmacyName\nABC\n")

	_, err := runValidate(context.Background(), testConfig(), validation.NewValidator(&stubFetcher{}, 0), in, filepath.Join(dir, "out.ods"))
	require.Error(t, err)

	_, err = runValidate(context.Background(), testConfig(), validation.NewValidator(&stubFetcher{}, 0), filepath.Join(dir, "clients.txt"), filepath.Join(dir, "out.csv"))
	require.Error(t, err)
}

func TestSummarize(t *testing.T) {
	summary := summarize([]entities.Result{
		{BestMatch: "ABC Pharmacy", MatchScore: 100},
		{BestMatch: "ABD Pharmacy", MatchScore: 92},
		{BestMatch: entities.NoMatchName, MatchScore: 13},
		{BestMatch: entities.ErrorName},
	})

	assert.Equal(t, runSummary{Rows: 4, Exact: 1, NoMatch: 1, Failed: 1}, summary)

	var buf bytes.Buffer
	printSummary(&buf, summary)
	assert.Contains(t, buf.String(), "Validation complete!")
	assert.Contains(t, buf.String(), "errors:        1")
}

func TestApplyFlags(t *testing.T) {
	cmd := newRootCmd()
	validate, _, err := cmd.Find([]string{"validate"})
	require.NoError(t, err)
	require.NoError(t, validate.ParseFlags([]string{
		"--in", "clients.csv",
		"--column", "Client",
		"--delay", "250ms",
		"--register-url", "http://localhost:9999/search",
	}))

	c := &config.Config{
		NameColumn:     config.DefaultNameColumn,
		FetchDelay:     config.DefaultFetchDelay,
		RequestTimeout: config.DefaultFetchTimeout,
		RegisterURL:    config.DefaultRegisterURL,
	}
	applyFlags(validate, c)

	assert.Equal(t, "Client", c.NameColumn)
	assert.Equal(t, 250*time.Millisecond, c.FetchDelay)
	assert.Equal(t, "http://localhost:9999/search", c.RegisterURL)
	assert.Equal(t, config.DefaultFetchTimeout, c.RequestTimeout, "unset flags keep the loaded value")
}

func TestRunClosesLogFileWhenCommandFails(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ENV", "test")
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))
	in := writeFile(t, dir, "clients.csv", "Name\nABC Pharmacy\n")
	out := filepath.Join(dir, "validated_clients.csv")

	err := run(context.Background(), []string{"validate", "--in", in, "--out", out})

	require.Error(t, err)
	assert.True(t, report.IsSchemaError(err))
	require.NotNil(t, loggingService, "logging should have been initialised")
	assert.False(t, loggingService.FileLogging(), "log file left open after a failed run")
	assert.NoFileExists(t, out)
}
