package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vnmchuo/sauce-usage/config"
)

const envPrefix = "SAUCE_USAGE"

type options struct {
	user  string
	key   string
	start string
	end   string

	csv         string
	save        bool
	interactive bool

	keepGoing     bool
	noSubaccounts bool

	apiURL    string
	interval  time.Duration
	timeout   time.Duration
	redisAddr string
	quota     int

	logLevel      string
	traceExporter string
}

func newRootCmd(cfg *config.Config, stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "sauce-usage",
		Short: "reports monthly usage of an account and all of its sub-accounts",
		Long: `sauce-usage lists every sub-account below the given user, fetches the
daily usage of each one and prints it folded into months. Use --csv to
write the report as CSV to a file, to stdout ("-") or to s3://bucket/key.

Every flag can also be set with a SAUCE_USAGE_<FLAG> environment variable.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := SetFlagsFromEnv(cmd.Flags(), envPrefix); err != nil {
				return err
			}

			runID := uuid.NewString()
			logger, err := newLogger(opts.logLevel, stderr, runID)
			if err != nil {
				return err
			}

			a := &app{
				cfg:    cfg,
				opts:   opts,
				runID:  runID,
				logger: logger,
				stdin:  stdin,
				stdout: stdout,
				stderr: stderr,
				now:    time.Now,
			}
			return a.run(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.user, "user", "u", cfg.Username, "account to report on, together with its sub-accounts")
	flags.StringVarP(&opts.key, "key", "k", cfg.AccessKey, "access key of --user")
	flags.StringVarP(&opts.start, "start", "s", "", "first day to report, YYYY-MM-DD")
	flags.StringVarP(&opts.end, "end", "e", "", "last day to report, YYYY-MM-DD")
	flags.StringVar(&opts.csv, "csv", "", `write the report as CSV to a path, "-" for stdout, or s3://bucket/key`)
	flags.BoolVar(&opts.save, "save", false, "write the report as CSV to <user>-usage-<date>.csv")
	flags.BoolVar(&opts.interactive, "interactive", false, "prompt for missing values and whether to save the report")
	flags.BoolVar(&opts.keepGoing, "keep-going", false, "record failed accounts and continue instead of aborting")
	flags.BoolVar(&opts.noSubaccounts, "no-subaccounts", false, "report only --user")
	flags.StringVar(&opts.apiURL, "api-url", cfg.APIURL, "base URL of the REST v1 API")
	flags.DurationVar(&opts.interval, "interval", cfg.RequestInterval, "minimum time between API calls")
	flags.DurationVar(&opts.timeout, "timeout", cfg.HTTPTimeout, "timeout of a single API call, 0 for none")
	flags.StringVar(&opts.redisAddr, "redis-addr", cfg.RedisAddr, "share the API quota with other runs through this Redis")
	flags.IntVar(&opts.quota, "quota", cfg.QuotaPerSecond, "API calls per second shared through --redis-addr")
	flags.StringVar(&opts.logLevel, "log-level", cfg.LogLevel, "log level")
	flags.StringVar(&opts.traceExporter, "trace-exporter", cfg.OTELExporterType, "trace exporter: none, stdout or otlp")

	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd
}

func newLogger(logLevelStr string, out io.Writer, runID string) (log.FieldLogger, error) {
	base := log.New()
	base.Out = out
	base.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "01-02-2006 15:04:05",
	})

	logLevel, err := log.ParseLevel(logLevelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", logLevelStr, err)
	}
	base.Level = logLevel

	logger := base.WithFields(log.Fields{
		"app":    "sauce-usage",
		"run_id": runID,
	})
	logger.Debugf("setting log level to %s", logLevel.String())
	return logger, nil
}

// SetFlagsFromEnv sets every flag not given on the command line from the
// environment. Variables take the flag name in UPPERCASE with dashes replaced
// by underscores, prefixed by prefix and an underscore:
// prefix=PREFIX, some-flag => PREFIX_SOME_FLAG.
func SetFlagsFromEnv(fs *pflag.FlagSet, prefix string) (err error) {
	alreadySet := make(map[string]bool)
	fs.Visit(func(f *pflag.Flag) {
		alreadySet[f.Name] = true
	})
	fs.VisitAll(func(f *pflag.Flag) {
		if alreadySet[f.Name] {
			return
		}
		key := prefix + "_" + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		if val := os.Getenv(key); val != "" {
			if serr := fs.Set(f.Name, val); serr != nil && err == nil {
				err = fmt.Errorf("invalid value %q for %s: %w", val, key, serr)
			}
		}
	})
	return err
}
