package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/moksha-hub/metabrainz-har/internal/config"
	"github.com/moksha-hub/metabrainz-har/internal/export"
	"github.com/moksha-hub/metabrainz-har/internal/filter"
	"github.com/moksha-hub/metabrainz-har/internal/loader"
	"github.com/moksha-hub/metabrainz-har/internal/logger"
	"github.com/moksha-hub/metabrainz-har/internal/printer"
	"github.com/moksha-hub/metabrainz-har/internal/storage"
	"github.com/moksha-hub/metabrainz-har/internal/web"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "metabrainz-har",
	Short: "Extract MetaBrainz traffic from browser HAR exports",
	Long: `metabrainz-har filters a browser-exported network capture (HAR) down to the
transactions that hit the MetaBrainz family of domains and normalizes them
into request/response records for further analysis.
`,
	SilenceUsage: true,
}

var urlsCmd = &cobra.Command{
	Use:   "urls <capture.har> [more.har...]",
	Short: "List domain-matched transactions as one-line summaries",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runURLs,
}

var pairsCmd = &cobra.Command{
	Use:   "pairs <capture.har>",
	Short: "Show normalized request/response pairs for matched transactions",
	Args:  cobra.ExactArgs(1),
	RunE:  runPairs,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previously recorded scans",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var serveCmd = &cobra.Command{
	Use:   "serve <capture.har>",
	Short: "Serve extracted results read-only over HTTP",
	Args:  cobra.ExactArgs(1),
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run:   showVersion,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().Bool("log-file-enable", false, "Enable file logging")
	rootCmd.PersistentFlags().String("log-file-path", "", "Log file path")
	rootCmd.PersistentFlags().StringSliceP("domain", "d", []string{}, "Domain allow-list entries (overrides the MetaBrainz defaults)")
	rootCmd.PersistentFlags().String("domains-file", "", "YAML file with additional allow-list domains")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output mode (console or json)")

	urlsCmd.Flags().Bool("save", false, "Record this scan in the history store")
	urlsCmd.Flags().String("export-format", "", "Write results to a file in this format (json or csv)")
	urlsCmd.Flags().String("export-out", "", "Export destination path (default <capture>.<format>)")

	historyCmd.Flags().Int("limit", 20, "Maximum number of scans to show")

	serveCmd.Flags().String("addr", "", "Listen address for the inspection server")

	bindFlags(rootCmd)

	rootCmd.AddCommand(urlsCmd, pairsCmd, historyCmd, serveCmd, versionCmd)
}

func bindFlags(cmd *cobra.Command) {
	viper.BindPFlag("log.level", cmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.file_logging.enable", cmd.PersistentFlags().Lookup("log-file-enable"))
	viper.BindPFlag("log.file_logging.path", cmd.PersistentFlags().Lookup("log-file-path"))
	viper.BindPFlag("filter.domains", cmd.PersistentFlags().Lookup("domain"))
	viper.BindPFlag("filter.domains_file", cmd.PersistentFlags().Lookup("domains-file"))
	viper.BindPFlag("output.mode", cmd.PersistentFlags().Lookup("output"))
}

// runtime bundles everything a subcommand needs after configuration.
type runtime struct {
	cfg    *config.Config
	log    logger.Logger
	loader *loader.Loader
	out    printer.Printer
}

func setup(cmd *cobra.Command) (*runtime, error) {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.LoadConfig(configPath, viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Command line flags have highest priority.
	if logLevel, err := cmd.Flags().GetString("log-level"); err == nil && logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if enable, err := cmd.Flags().GetBool("log-file-enable"); err == nil && cmd.Flags().Changed("log-file-enable") {
		cfg.Log.FileLogging.Enable = enable
	}
	if path, err := cmd.Flags().GetString("log-file-path"); err == nil && path != "" {
		cfg.Log.FileLogging.Path = path
	}
	if domains, err := cmd.Flags().GetStringSlice("domain"); err == nil && len(domains) > 0 {
		cfg.Filter.Domains = domains
	}
	if mode, err := cmd.Flags().GetString("output"); err == nil && mode != "" {
		cfg.Output.Mode = mode
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log := logger.NewLogger(&cfg.Log, cfg.Output.Mode)
	f := filter.New(cfg.Filter.Domains)

	return &runtime{
		cfg:    cfg,
		log:    log,
		loader: loader.New(f, log),
		out:    printer.New(strings.ToLower(cfg.Output.Mode), log),
	}, nil
}

func runURLs(cmd *cobra.Command, args []string) error {
	rt, err := setup(cmd)
	if err != nil {
		return err
	}

	details, err := rt.loader.URLDetailsAll(context.Background(), args)
	if err != nil {
		return err
	}

	source := strings.Join(args, ", ")
	if !rt.cfg.Output.Silence {
		if err := rt.out.PrintDetails(source, details); err != nil {
			return err
		}
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		store, err := storage.New(&rt.cfg.Storage, rt.log)
		if err != nil {
			return fmt.Errorf("open history store: %w", err)
		}
		defer store.Close()
		record, err := store.RecordScan(source, details)
		if err != nil {
			return fmt.Errorf("record scan: %w", err)
		}
		rt.log.Info("Scan recorded", "id", record.ID, "details", len(details))
	}

	if format, _ := cmd.Flags().GetString("export-format"); format != "" {
		payload, _, ext, err := export.URLDetails(details, format)
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("export-out")
		if out == "" {
			out = args[0] + "." + ext
		}
		if err := os.WriteFile(out, payload, 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		rt.log.Info("Results exported", "path", out, "format", ext)
	}

	return nil
}

func runPairs(cmd *cobra.Command, args []string) error {
	rt, err := setup(cmd)
	if err != nil {
		return err
	}

	pairs, err := rt.loader.Pairs(args[0])
	if err != nil {
		return err
	}
	if rt.cfg.Output.Silence {
		return nil
	}
	return rt.out.PrintPairs(args[0], pairs)
}

func runHistory(cmd *cobra.Command, args []string) error {
	rt, err := setup(cmd)
	if err != nil {
		return err
	}

	store, err := storage.New(&rt.cfg.Storage, rt.log)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	scans, err := store.ListScans(limit)
	if err != nil {
		return fmt.Errorf("list scans: %w", err)
	}
	if len(scans) == 0 {
		fmt.Println("no recorded scans")
		return nil
	}

	for _, scan := range scans {
		fmt.Printf("%s  %s  %s  (%d urls)\n",
			scan.ID,
			scan.CreatedAt.Format("2006-01-02 15:04:05"),
			scan.Source,
			len(scan.Details))
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := setup(cmd)
	if err != nil {
		return err
	}

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		rt.cfg.Web.Addr = addr
	}

	svc, err := web.NewService(&rt.cfg.Web, rt.log, rt.loader, args[0])
	if err != nil {
		return err
	}
	return svc.Start()
}

func showVersion(cmd *cobra.Command, args []string) {
	fmt.Printf("metabrainz-har version %s\n", version)
	fmt.Printf("Commit: %s\n", commit)
	fmt.Printf("Built: %s\n", buildDate)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
