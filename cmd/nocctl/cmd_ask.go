package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spec-kit/noc-incidents/internal/docqa"
	"github.com/spec-kit/noc-incidents/internal/router"
)

var askFlags struct {
	json bool
}

var askCmd = &cobra.Command{
	Use:   "ask <query>",
	Short: "Ask the support router about a ticket or a document image",
	Long: "Route one query: \"ticket <id>\" looks a ticket up, " +
		"\"document <image url> <question>\" asks about an image.",
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askFlags.json, "json", false, "print the full response as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.close()

	var qa router.DocumentQA
	if e.cfg.DocQA.Endpoint != "" {
		qa = docqa.NewClient(e.cfg.DocQA.Endpoint, docqa.Options{
			Timeout:              e.cfg.DocQA.Timeout(),
			MaxImageBytes:        int64(e.cfg.DocQA.MaxImageMB) << 20,
			AllowedImageHosts:    e.cfg.DocQA.ImageHosts,
			AllowPrivateNetworks: e.cfg.DocQA.AllowPrivateHosts,
		})
	}
	r := router.New(e.store, qa, router.Options{
		QATimeout:       e.cfg.DocQA.Timeout(),
		DefaultQuestion: e.cfg.DocQA.DefaultQuestion,
		Logger:          e.logger,
	})

	resp := r.Route(cmd.Context(), strings.Join(args, " "))
	if askFlags.json {
		return writeJSON(cmd.OutOrStdout(), resp)
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.Text)
	return nil
}
