package cli

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/rohmanhakim/site-auditor/internal/build"
	"github.com/rohmanhakim/site-auditor/internal/config"
	"github.com/rohmanhakim/site-auditor/internal/engine"
	"github.com/rohmanhakim/site-auditor/internal/export"
	"github.com/rohmanhakim/site-auditor/internal/metadata"
	"github.com/rohmanhakim/site-auditor/internal/report"
	"github.com/rohmanhakim/site-auditor/internal/store"
	"github.com/spf13/cobra"
)

var (
	cfgFile            string
	seedURL            string
	workers            int
	perHostConcurrency int
	maxReqPerSec       float64
	requestTimeoutSec  int
	maxDepth           int
	maxUrls            int
	maxBodyBytes       int64
	userAgent          string
	acceptEncoding     string
	includeRegex       []string
	excludeRegex       []string
	allowedHosts       []string
	allowedStaticHosts []string
	respectRobots      bool
	maxRetries         int
	analyzerFilter     string
	maxHeadingLevel    int
	outputDir          string
	exportMarkdown     bool
	logLevel           string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "site-auditor",
	Short: "A site auditing crawler.",
	Long: `site-auditor crawls a website breadth-first from a seed URL, fetches
every discovered resource, and feeds each response through a set of
analyzers covering SEO, accessibility, security headers, caching,
redirects, broken links, performance, TLS, and DNS.

The crawl produces a structured audit: a summary health record, detail
tables, and JSON/Markdown/HTML report files in the output directory,
plus an optional Markdown export of the crawled pages.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildConfig(cmd)
		if err != nil {
			return err
		}

		recorder := metadata.NewRecorder(os.Stderr, cfg.LogLevel())
		st, err := store.New(cfg.BodyMemoryBudget(), os.TempDir())
		if err != nil {
			return fmt.Errorf("cannot initialize result store: %w", err)
		}
		defer st.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		// after the first signal, restore default handling so a second
		// SIGINT terminates the process immediately
		go func() {
			<-ctx.Done()
			stop()
		}()

		crawler := engine.New(cfg, st, &recorder)
		execution := crawler.Run(ctx)

		reporter := report.NewReporter(st, recorder.RunID(), crawler.ExtraColumns()...)
		if writeErr := reporter.Write(cfg.OutputDir()); writeErr != nil {
			return fmt.Errorf("cannot write report: %w", writeErr)
		}

		if cfg.ExportMarkdown() {
			exporter := export.NewMarkdownExporter(&recorder)
			exported := exporter.Export(st, cfg.OutputDir())
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d pages to %s\n", exported, cfg.OutputDir())
		}

		printSummary(cmd, st, execution)
		return nil
	},
}

// buildConfig overlays changed CLI flags on the optional config file.
func buildConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if cfgFile != "" {
		loaded, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	} else {
		if seedURL == "" {
			return config.Config{}, fmt.Errorf("--seed-url is required when no config file is given")
		}
		cfg = config.Default(url.URL{})
	}

	if seedURL != "" {
		parsed, err := url.Parse(seedURL)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return config.Config{}, fmt.Errorf("seed URL %q is not an absolute http(s) URL", seedURL)
		}
		cfg.SetSeedURL(*parsed)
	}

	// only flags the user actually set override the config file
	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.SetWorkers(workers)
	}
	if flags.Changed("per-host-concurrency") {
		cfg.SetPerHostConcurrency(perHostConcurrency)
	}
	if flags.Changed("max-req-per-sec") {
		cfg.SetMaxReqPerSec(maxReqPerSec)
	}
	if flags.Changed("request-timeout") {
		cfg.SetRequestTimeout(time.Duration(requestTimeoutSec) * time.Second)
	}
	if flags.Changed("max-depth") {
		cfg.SetMaxDepth(maxDepth)
	}
	if flags.Changed("max-urls") {
		cfg.SetMaxUrls(maxUrls)
	}
	if flags.Changed("max-body-bytes") {
		cfg.SetMaxBodyBytes(maxBodyBytes)
	}
	if flags.Changed("user-agent") {
		cfg.SetUserAgent(userAgent)
	}
	if flags.Changed("accept-encoding") {
		cfg.SetAcceptEncoding(acceptEncoding)
	}
	if flags.Changed("respect-robots") {
		cfg.SetRespectRobots(respectRobots)
	}
	if flags.Changed("max-retries") {
		cfg.SetMaxRetries(maxRetries)
	}
	if flags.Changed("max-heading-level") {
		cfg.SetMaxHeadingLevel(maxHeadingLevel)
	}
	if flags.Changed("output-dir") {
		cfg.SetOutputDir(outputDir)
	}
	if flags.Changed("export-markdown") {
		cfg.SetExportMarkdown(exportMarkdown)
	}
	if flags.Changed("log-level") {
		cfg.SetLogLevel(logLevel)
	}
	if len(allowedHosts) > 0 {
		cfg.SetAllowedHosts(allowedHosts)
	}
	if len(allowedStaticHosts) > 0 {
		cfg.SetAllowedStaticHosts(allowedStaticHosts)
	}
	if len(includeRegex) > 0 {
		if err := cfg.SetIncludeRegex(includeRegex); err != nil {
			return config.Config{}, err
		}
	}
	if len(excludeRegex) > 0 {
		if err := cfg.SetExcludeRegex(excludeRegex); err != nil {
			return config.Config{}, err
		}
	}
	if analyzerFilter != "" {
		re, err := regexp.Compile(analyzerFilter)
		if err != nil {
			return config.Config{}, fmt.Errorf("analyzer filter: %w", err)
		}
		cfg.SetAnalyzerFilter(re)
	}

	return cfg, cfg.Validate()
}

func printSummary(cmd *cobra.Command, st *store.Store, execution engine.CrawlExecution) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Crawled %d URLs in %v (%d errors, %d skipped)\n",
		execution.TotalURLs, execution.Duration.Round(time.Millisecond),
		execution.TotalErrors, execution.TotalSkipped)

	for _, item := range st.Summary() {
		fmt.Fprintf(out, "[%s] %s: %s\n", item.Status, item.Code, item.Message)
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = build.FullVersion()

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "JSON config file")
	rootCmd.Flags().StringVar(&seedURL, "seed-url", "", "starting URL (required unless --config is given)")
	rootCmd.Flags().IntVar(&workers, "workers", config.DefaultWorkers, "concurrent fetch workers")
	rootCmd.Flags().IntVar(&perHostConcurrency, "per-host-concurrency", config.DefaultPerHostConcurrency, "max parallel requests per host")
	rootCmd.Flags().Float64Var(&maxReqPerSec, "max-req-per-sec", 0, "global requests-per-second cap (0 = unlimited)")
	rootCmd.Flags().IntVar(&requestTimeoutSec, "request-timeout", config.DefaultRequestTimeoutSec, "per-request timeout in seconds")
	rootCmd.Flags().IntVar(&maxDepth, "max-depth", config.DefaultMaxDepth, "max link depth (0 = seed only, -1 = unlimited)")
	rootCmd.Flags().IntVar(&maxUrls, "max-urls", config.DefaultMaxUrls, "hard cap on reserved URLs")
	rootCmd.Flags().Int64Var(&maxBodyBytes, "max-body-bytes", config.DefaultMaxBodyBytes, "abort responses beyond this size")
	rootCmd.Flags().StringVar(&userAgent, "user-agent", config.DefaultUserAgent, "User-Agent header")
	rootCmd.Flags().StringVar(&acceptEncoding, "accept-encoding", config.DefaultAcceptEncoding, "Accept-Encoding list")
	rootCmd.Flags().StringSliceVar(&includeRegex, "include-regex", nil, "URL paths must match one of these")
	rootCmd.Flags().StringSliceVar(&excludeRegex, "exclude-regex", nil, "URL paths matching any of these are skipped")
	rootCmd.Flags().StringSliceVar(&allowedHosts, "allowed-hosts", nil, "external hosts to crawl (globs)")
	rootCmd.Flags().StringSliceVar(&allowedStaticHosts, "allowed-static-hosts", nil, "external hosts for static resources (globs)")
	rootCmd.Flags().BoolVar(&respectRobots, "respect-robots", true, "honor robots.txt")
	rootCmd.Flags().IntVar(&maxRetries, "max-retries", config.DefaultMaxRetries, "transient-failure retries")
	rootCmd.Flags().StringVar(&analyzerFilter, "analyzer-filter", "", "exclude analyzers whose name matches this regex")
	rootCmd.Flags().IntVar(&maxHeadingLevel, "max-heading-level", config.DefaultMaxHeadingLevel, "heading-tree depth, 1-6")
	rootCmd.Flags().StringVar(&outputDir, "output-dir", config.DefaultOutputDir, "report output directory")
	rootCmd.Flags().BoolVar(&exportMarkdown, "export-markdown", false, "write a Markdown mirror of crawled HTML")
	rootCmd.Flags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "debug, info, warn, or error")
}
