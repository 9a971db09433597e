package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/civshow/civitai"
	"github.com/s0up4200/civshow/config"
	"github.com/s0up4200/civshow/filter"
	"github.com/s0up4200/civshow/slideshow"
)

var (
	cfgFile       string
	cfg           *config.Config
	logger        zerolog.Logger
	civitaiClient *civitai.Client
	filters       *filter.Manager

	// Command flags
	whereExpr string
	preset    string
	query     queryFlags
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "civshow",
	Short: "A slideshow for images and videos from Civitai",
	Long: `civshow plays a continuous slideshow of Civitai images and videos.
Media is fetched page by page from the public API using the configured
filters, and the next page is loaded before the current one runs out.`,
	PersistentPreRunE: initializeApp,
	SilenceUsage:      true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(updateCmd)
}

// initializeApp loads the configuration and creates the API client
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger = setupLogger(cfg.Logging)
	if cfg.File != "" {
		logger.Debug().Str("file", cfg.File).Msg("Loaded config")
	}

	civitaiClient, err = civitai.NewClient(cfg.Civitai.URL, logger,
		civitai.WithTimeout(cfg.Civitai.Timeout),
		civitai.WithPageSize(cfg.Civitai.PageSize),
		civitai.WithAPIKey(cfg.Civitai.APIKey),
		civitai.WithUserAgent("civshow/"+version),
	)
	if err != nil {
		return fmt.Errorf("failed to create Civitai client: %w", err)
	}

	filters = filter.NewManager()
	if err := filters.RegisterFilters(cfg.Filters); err != nil {
		return fmt.Errorf("invalid filter preset: %w", err)
	}

	return nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !isTerminal(os.Stderr),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// queryFlags mirrors the slideshow filters on the command line
type queryFlags struct {
	nsfw   bool
	kind   string
	search string
	sort   string
	period string
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&query.nsfw, "nsfw", false, "include NSFW media")
	cmd.Flags().StringVarP(&query.kind, "type", "t", "", "media type: all, image or video")
	cmd.Flags().StringVarP(&query.search, "search", "s", "", "search text")
	cmd.Flags().StringVar(&query.sort, "sort", "", `sort order: "Most Reactions", "Most Comments" or "Newest"`)
	cmd.Flags().StringVar(&query.period, "period", "", "time window: AllTime, Year, Month, Week or Day")
	cmd.Flags().StringVarP(&whereExpr, "where", "w", "", "view filter expression")
	cmd.Flags().StringVarP(&preset, "preset", "p", "", "use a view filter preset from config")
}

// filterSnapshot starts from the configured defaults and applies the flags
// that were set
func filterSnapshot(cmd *cobra.Command) (slideshow.FilterSnapshot, error) {
	f := cfg.Slideshow.Defaults

	flags := cmd.Flags()
	if flags.Changed("nsfw") {
		f.NSFW = query.nsfw
	}
	if flags.Changed("type") {
		f.Kind = civitai.MediaKind(query.kind)
	}
	if flags.Changed("search") {
		f.Search = query.search
	}
	if flags.Changed("sort") {
		f.Sort = civitai.SortMode(query.sort)
	}
	if flags.Changed("period") {
		f.Period = civitai.Period(query.period)
	}

	f, err := f.Normalize()
	if err != nil {
		return slideshow.FilterSnapshot{}, fmt.Errorf("invalid filter flags: %w", err)
	}
	return f, nil
}

// viewFilter resolves --where and --preset. A nil filter shows everything.
func viewFilter() (filter.CompiledFilter, error) {
	f, err := filters.Resolve(whereExpr, preset)
	if err != nil {
		return nil, fmt.Errorf("invalid view filter: %w", err)
	}
	if f != nil {
		logger.Debug().Str("filter", f.Expression()).Msg("Using view filter")
	}
	return f, nil
}
