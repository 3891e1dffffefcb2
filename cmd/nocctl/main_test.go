package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/noc-incidents/internal/api/dto"
	"github.com/spec-kit/noc-incidents/internal/classifier"
	"github.com/spec-kit/noc-incidents/internal/pattern"
	"github.com/spec-kit/noc-incidents/internal/repository"
)

// execute runs the command tree with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DOCQA_ENDPOINT", "")
	t.Setenv("CLASSIFIER_RULES_PATH", "")
	t.Setenv("LOG_FILE", "")
	t.Setenv("TICKET_STORE_BACKEND", "file")
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// resetFlags restores every flag in the tree so one test's flags do not leak
// into the next.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// writeTelemetry writes hours of 15-minute samples from two devices. Errors
// follow a business-hours cycle, with a burst on router-01 at spikeHour when
// it is non-negative.
func writeTelemetry(t *testing.T, dir string, hours, spikeHour int) string {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var b strings.Builder
	b.WriteString("timestamp,error_code,source_device,log_message\n")
	for h := 0; h < hours; h++ {
		for q := 0; q < 4; q++ {
			ts := start.Add(time.Duration(h)*time.Hour + time.Duration(q)*15*time.Minute)
			for _, dev := range []string{"router-01", "switch-02"} {
				code := "OK00"
				hod := h % 24
				if hod >= 9 && hod <= 17 && q == 0 {
					code = "E001"
				}
				if h == spikeHour && dev == "router-01" {
					code = "E003"
				}
				fmt.Fprintf(&b, "%s,%s,%s,sample\n", ts.Format("2006-01-02 15:04:05"), code, dev)
			}
		}
	}
	path := filepath.Join(dir, "telemetry.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestAnalyzeWritesTicketsForSpike(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "tickets.json")
	file := writeTelemetry(t, dir, 72, 50)

	out, err := execute(t, "analyze", "--store", storePath, "--file", file, "--create-tickets")
	require.NoError(t, err, out)

	var resp dto.AnalysisResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 72*4*2, resp.Records)
	require.NotNil(t, resp.Decomposition)
	require.NotEmpty(t, resp.Windows)
	require.Len(t, resp.Tickets, len(resp.Windows))
	assert.Equal(t, "Network Failure", resp.Tickets[0].IssueType)

	store, err := repository.NewFileTicketStore(storePath, repository.FileTicketStoreOptions{})
	require.NoError(t, err)
	stored, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, len(resp.Tickets))
}

func TestAnalyzeWithoutTickets(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "tickets.json")
	file := writeTelemetry(t, dir, 72, 50)

	out, err := execute(t, "analyze", "--store", storePath, "--file", file, "--create-tickets=false")
	require.NoError(t, err, out)

	var resp dto.AnalysisResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.NotEmpty(t, resp.Windows)
	assert.Empty(t, resp.Tickets)
}

func TestAnalyzeInsufficientDataPrintsHeatmap(t *testing.T) {
	dir := t.TempDir()
	file := writeTelemetry(t, dir, 24, -1)

	out, err := execute(t, "analyze", "--store", filepath.Join(dir, "tickets.json"), "--file", file)
	var insufficient *pattern.InsufficientDataError
	require.True(t, errors.As(err, &insufficient), "got %v", err)
	assert.Equal(t, 24, insufficient.Bins)

	var resp dto.AnalysisResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Nil(t, resp.Decomposition)
	assert.NotEmpty(t, resp.Heatmap)
}

func TestAnalyzeRejectsShortPeriod(t *testing.T) {
	dir := t.TempDir()
	file := writeTelemetry(t, dir, 72, -1)

	_, err := execute(t, "analyze", "--store", filepath.Join(dir, "tickets.json"), "--file", file, "--period", "1")
	assert.ErrorContains(t, err, "--period")
}

func TestAnalyzeRequiresFile(t *testing.T) {
	_, err := execute(t, "analyze", "--store", filepath.Join(t.TempDir(), "tickets.json"))
	assert.Error(t, err)
}

func seedTicket(t *testing.T, storePath string) string {
	t.Helper()
	store, err := repository.NewFileTicketStore(storePath, repository.FileTicketStoreOptions{})
	require.NoError(t, err)
	ticket, err := store.Create(context.Background(), classifier.New(nil).Classify("E003", "firewall-03"))
	require.NoError(t, err)
	return ticket.TicketID
}

func TestTicketsListAndGet(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "tickets.json")

	out, err := execute(t, "tickets", "list", "--store", storePath)
	require.NoError(t, err)
	assert.Contains(t, out, "0 ticket(s)")

	id := seedTicket(t, storePath)

	out, err = execute(t, "tickets", "list", "--store", storePath)
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "1 ticket(s)")

	out, err = execute(t, "tickets", "list", "--store", storePath, "--json")
	require.NoError(t, err)
	var listed []dto.TicketResponse
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, id, listed[0].TicketID)

	out, err = execute(t, "tickets", "get", id, "--store", storePath)
	require.NoError(t, err)
	var got dto.TicketResponse
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, id, got.TicketID)
	assert.Equal(t, "red", got.Color)

	_, err = execute(t, "tickets", "get", "0000000000000000", "--store", storePath)
	assert.ErrorContains(t, err, "not found")
}

func TestAskRoutesTicketLookup(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "tickets.json")
	id := seedTicket(t, storePath)

	out, err := execute(t, "ask", "--store", storePath, "what", "about", "ticket", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Ticket "+id)
}

func TestAskWithoutDocumentCapability(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "tickets.json")

	out, err := execute(t, "ask", "--store", storePath, "--json", "document https://example.com/invoice.png")
	require.NoError(t, err)

	var resp struct {
		Intent string `json:"intent"`
		Text   string `json:"text"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "document_query", resp.Intent)
	assert.Contains(t, resp.Text, "could not process")
}
