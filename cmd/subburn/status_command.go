package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"subburn/internal/pipeline"
	"subburn/internal/preflight"
	"subburn/internal/services"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check binaries, directories and LLM reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			// Validate already rejected unknown providers.
			client, _ := pipeline.NewCompleter(cfg.GetLLM())
			results := preflight.RunAll(cmd.Context(), cfg, client)

			lines := renderSectionHeader("Configuration", colorize)
			configDetail := ctx.configPath
			if configDetail == "" {
				configDetail = "defaults"
			}
			lines = append(lines,
				renderStatusLine("Config", statusInfo, configDetail, colorize),
				renderStatusLine("Languages", statusInfo, cfg.Translation.SourceLanguage+" → "+cfg.Translation.TargetLanguage, colorize),
				renderStatusLine("Model", statusInfo, cfg.LLM.Provider+"/"+cfg.LLM.Model, colorize),
				"",
			)
			lines = append(lines, renderSectionHeader("Checks", colorize)...)
			lines = append(lines, preflightLines(results, colorize)...)
			fmt.Fprintln(out, strings.Join(lines, "\n"))

			if !preflight.AllPassed(results) {
				return services.Wrap(services.ErrValidation, "cli", "status", "", errors.New("one or more checks failed"))
			}
			return nil
		},
	}
}
