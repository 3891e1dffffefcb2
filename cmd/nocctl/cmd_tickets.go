package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/noc-incidents/internal/api/dto"
	"github.com/spec-kit/noc-incidents/internal/repository"
)

var ticketsFlags struct {
	json bool
}

var ticketsCmd = &cobra.Command{
	Use:   "tickets",
	Short: "Browse stored incident tickets",
}

var ticketsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tickets in creation order",
	Args:  cobra.NoArgs,
	RunE:  runTicketsList,
}

var ticketsGetCmd = &cobra.Command{
	Use:   "get <ticket-id>",
	Short: "Show one ticket",
	Args:  cobra.ExactArgs(1),
	RunE:  runTicketsGet,
}

func init() {
	ticketsListCmd.Flags().BoolVar(&ticketsFlags.json, "json", false, "print JSON instead of a table")
	ticketsCmd.AddCommand(ticketsListCmd)
	ticketsCmd.AddCommand(ticketsGetCmd)
}

func runTicketsList(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.close()

	tickets, err := e.store.List(cmd.Context())
	if err != nil {
		return err
	}
	if ticketsFlags.json {
		return writeJSON(cmd.OutOrStdout(), dto.NewTicketResponses(tickets))
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tPriority\tSeverity\tIssue\tCreated\n")
	fmt.Fprintf(w, "--\t--------\t--------\t-----\t-------\n")
	for _, t := range tickets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.TicketID, t.Priority, t.Severity, t.IssueType, t.Timestamp.Format(time.RFC3339))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d ticket(s)\n", len(tickets))
	return nil
}

func runTicketsGet(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.close()

	t, err := e.store.Find(cmd.Context(), args[0])
	if errors.Is(err, repository.ErrTicketNotFound) {
		return fmt.Errorf("ticket %s not found", args[0])
	}
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), dto.NewTicketResponse(t))
}
