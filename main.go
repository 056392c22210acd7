package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aktagon/content-pipeline/internal/cache"
	"github.com/aktagon/content-pipeline/internal/logger"
	"github.com/aktagon/content-pipeline/internal/store"
)

var (
	baseDir      string
	seedKey      string
	settingsPath string
	textAPIKey   string
	imageAPIKey  string
	metricsFile  string
	temperature  float64
	debugMode    bool
)

const defaultSourcesFile = "sources.yaml"

var rootCmd = &cobra.Command{
	Use:   "content-pipeline",
	Short: "Deterministic marketing content pipeline",
	Long: `Collects trend and competitor signals, drafts an article, renders a hero image
and scores the result. Every external service is optional: without network access
the pipeline falls back to deterministic local output.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run [sources-file]",
	Short: "Run the full pipeline",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProcessor(cmd.Context(), func(ctx context.Context, p *PipelineProcessor) error {
			sources, err := loadSources(sourcesFile(args))
			if err != nil {
				return err
			}
			summary, err := p.RunFull(ctx, sources)
			if err != nil {
				return fmt.Errorf("run %s failed: %w", summary.RunID, err)
			}
			fmt.Printf("✓ Article: %q (%d words, %s)\n", summary.Title, summary.WordCount, summary.GeneratedBy)
			fmt.Printf("✓ Hero: variant %s, score %d\n", summary.Chosen, summary.Score)
			fmt.Printf("✓ QA: readability %.1f, originality %d\n", summary.Readability, summary.Originality)
			if len(summary.Fallbacks) > 0 {
				fmt.Printf("→ Fallbacks used: %s\n", strings.Join(summary.Fallbacks, ", "))
			}
			return nil
		})
	},
}

var collectCmd = &cobra.Command{
	Use:   "collect [sources-file]",
	Short: "Collect trend and competitor signals",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProcessor(cmd.Context(), func(ctx context.Context, p *PipelineProcessor) error {
			sources, err := loadSources(sourcesFile(args))
			if err != nil {
				return err
			}
			result, err := p.Collect(ctx, sources)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Trends: %d bullets (%s)\n", len(result.Trends.TrendSummary), result.Trends.Source)
			fmt.Printf("✓ Competitors: %d items (%s)\n", len(result.Feeds.Items), result.Feeds.Source)
			return nil
		})
	},
}

var articleCmd = &cobra.Command{
	Use:   "article",
	Short: "Generate the article from collected signals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProcessor(cmd.Context(), func(ctx context.Context, p *PipelineProcessor) error {
			if cmd.Flags().Changed("temperature") {
				p.SetTemperature(temperature)
			}
			result, err := p.Article(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Article: %q (%d words, %s)\n", result.Title, result.WordCount, result.GeneratedBy)
			return nil
		})
	},
}

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Generate hero image variants",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProcessor(cmd.Context(), func(ctx context.Context, p *PipelineProcessor) error {
			result, err := p.Image(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Hero: variant %s (%d variants, %d placeholders)\n", result.Chosen, len(result.Variants), len(result.Fallbacks))
			return nil
		})
	},
}

var qaCmd = &cobra.Command{
	Use:   "qa",
	Short: "Score the article and hero image",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProcessor(cmd.Context(), func(ctx context.Context, p *PipelineProcessor) error {
			result, err := p.QA()
			if err != nil {
				return err
			}
			fmt.Printf("✓ QA: %d words, readability %.1f, originality %d\n",
				result.Article.WordCount, result.Article.Readability, result.Article.Originality)
			fmt.Printf("✓ Ranking: %s\n", result.Ranking.Explanation)
			return nil
		})
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the outputs directory for missing or inconsistent artifacts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProcessor(cmd.Context(), func(ctx context.Context, p *PipelineProcessor) error {
			report := p.Verify()
			if report.OK() {
				fmt.Printf("✓ %d artifacts verified\n", len(report.Checked))
				return nil
			}
			for _, problem := range report.Problems {
				fmt.Printf("✗ %s\n", problem)
			}
			return fmt.Errorf("%d problems found", len(report.Problems))
		})
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&baseDir, "base-dir", ".", "Base directory holding outputs/")
	flags.StringVar(&seedKey, "seed", "", "Seed key for deterministic choices (default from settings)")
	flags.StringVar(&settingsPath, "settings", "", "Path to settings file (default .content-pipeline/settings.yaml)")
	flags.StringVar(&textAPIKey, "text-api-key", "", "Anthropic API key for article generation")
	flags.StringVar(&imageAPIKey, "image-api-key", "", "API key for image generation")
	flags.StringVar(&metricsFile, "metrics-file", "", "Write run metrics to this file in Prometheus text format")
	flags.BoolVar(&debugMode, "debug", false, "Enable debug logging")

	articleCmd.Flags().Float64Var(&temperature, "temperature", 0.6, "Sampling temperature for article generation")

	rootCmd.AddCommand(runCmd, collectCmd, articleCmd, imageCmd, qaCmd, verifyCmd)
}

// sourcesFile returns the sources path and whether the operator named it.
func sourcesFile(args []string) (string, bool) {
	if len(args) > 0 {
		return args[0], true
	}
	return defaultSourcesFile, false
}

func configOverrides() *ConfigOverrides {
	overrides := &ConfigOverrides{
		TextAPIKey:  &textAPIKey,
		ImageAPIKey: &imageAPIKey,
		SeedKey:     &seedKey,
		Debug:       debugMode,
	}
	if settingsPath != "" {
		overrides.SettingsPath = &settingsPath
	}
	return overrides
}

// withProcessor builds the processor for the current flags, runs fn and exports
// metrics when requested.
func withProcessor(ctx context.Context, fn func(context.Context, *PipelineProcessor) error) error {
	if err := ensureConfigExists(); err != nil {
		return fmt.Errorf("ensuring config files exist: %w", err)
	}

	settings, err := LoadSettings(configOverrides())
	if err != nil {
		return err
	}

	log := logger.New(settings.Log.Level, settings.Log.Format)
	defer func() { _ = log.Sync() }()

	responseCache, err := cache.New(settings.CacheSettings())
	if err != nil {
		return err
	}

	s, err := store.Open(baseDir)
	if err != nil {
		return err
	}

	processor, err := NewPipelineProcessor(s, settings, NewCollaborators(settings, responseCache), log)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	runErr := fn(ctx, processor)

	if metricsFile != "" {
		if err := processor.Recorder().WriteTextfile(metricsFile); err != nil {
			log.Warn("writing metrics failed", zap.String("path", metricsFile), zap.Error(err))
		}
	}
	return runErr
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
