package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subburn/internal/pipeline"
	"subburn/internal/services"
)

type jobFlags struct {
	outputSubtitle string
	outputVideo    string
	sourceLang     string
	targetLang     string
	batchSize      int
	maxRetries     int
	skipBurn       bool
	overwrite      bool
	noCache        bool
}

func (f *jobFlags) registerTranslation(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.outputSubtitle, "output-subtitle", "", "Translated subtitle path (default <subtitle>_translated.<ext>)")
	cmd.Flags().StringVar(&f.sourceLang, "source-lang", "", "Source language (default translation.source_language)")
	cmd.Flags().StringVar(&f.targetLang, "target-lang", "", "Target language (default translation.target_language)")
	cmd.Flags().IntVar(&f.batchSize, "batch-size", 0, "Lines per LLM request (default translation.batch_size)")
	cmd.Flags().IntVar(&f.maxRetries, "max-retries", 0, "Attempts per batch before keeping source text (default translation.max_retries)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "Bypass the translation memory")
}

func (f *jobFlags) registerBurn(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.outputVideo, "output-video", "", "Burned video path (default <video>_with_subtitles.<ext>)")
	cmd.Flags().BoolVar(&f.overwrite, "overwrite", false, "Replace an existing output video")
}

func (f *jobFlags) request(video, subtitle string) pipeline.Request {
	return pipeline.Request{
		VideoPath:      video,
		SubtitlePath:   subtitle,
		OutputSubtitle: f.outputSubtitle,
		OutputVideo:    f.outputVideo,
		SourceLanguage: f.sourceLang,
		TargetLanguage: f.targetLang,
		BatchSize:      f.batchSize,
		MaxRetries:     f.maxRetries,
		SkipBurn:       f.skipBurn,
		Overwrite:      f.overwrite,
		NoCache:        f.noCache,
	}
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	flags := &jobFlags{}
	cmd := &cobra.Command{
		Use:   "run <video> <subtitle>",
		Short: "Translate a subtitle file and burn it into a video",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd, ctx, flags.request(args[0], args[1]), true)
		},
	}
	flags.registerTranslation(cmd)
	flags.registerBurn(cmd)
	cmd.Flags().BoolVar(&flags.skipBurn, "skip-burn", false, "Only translate; do not run ffmpeg")
	return cmd
}

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	flags := &jobFlags{skipBurn: true}
	cmd := &cobra.Command{
		Use:   "translate <subtitle>",
		Short: "Translate a subtitle file without burning",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd, ctx, flags.request("", args[0]), true)
		},
	}
	flags.registerTranslation(cmd)
	return cmd
}

func newBurnCommand(ctx *commandContext) *cobra.Command {
	flags := &jobFlags{}
	cmd := &cobra.Command{
		Use:   "burn <video> <subtitle>",
		Short: "Burn an existing subtitle file into a video",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd, ctx, flags.request(args[0], args[1]), false)
		},
	}
	flags.registerBurn(cmd)
	return cmd
}

func runJob(cmd *cobra.Command, ctx *commandContext, req pipeline.Request, translate bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if translate {
		if err := cfg.RequireAPIKey(); err != nil {
			return services.Wrap(services.ErrConfiguration, "cli", "api key", "", err)
		}
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	runner, err := pipeline.NewRunner(cfg, logger)
	if err != nil {
		return err
	}

	var result pipeline.Result
	if translate {
		result, err = runner.Run(cmd.Context(), req)
	} else {
		result, err = runner.Burn(cmd.Context(), req)
	}
	out := cmd.OutOrStdout()
	if result.SubtitlePath != "" || result.Burned {
		fmt.Fprintln(out, renderRunSummary(result, translate))
	}
	if err != nil && result.SubtitlePath != "" && translate {
		fmt.Fprintf(out, "Translated subtitles kept at %s\n", result.SubtitlePath)
	}
	return err
}
