package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"rawvec/infra/memory"
	"rawvec/infra/metrics"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "vecctl",
	Short: "Replay and measure rawvec container workloads",
	Long: `vecctl replays scripted vector workloads against counting probe elements
and reports copies, moves, destructions and allocator activity.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.vecctl/config.yaml)")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("log-format", "logfmt", "log format: logfmt or json")
	flags.Uint64("budget", 0, "allocator budget in bytes, 0 means unlimited")

	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log_format", flags.Lookup("log-format"))
	_ = viper.BindPFlag("budget", flags.Lookup("budget"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".vecctl"))
		}
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("vecctl")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
		fmt.Fprintf(os.Stderr, "vecctl: reading %s: %v\n", cfgFile, err)
	}
}

func newLogger(w io.Writer) (log.Logger, error) {
	var logger log.Logger
	switch f := viper.GetString("log_format"); f {
	case "", "logfmt":
		logger = log.NewLogfmtLogger(log.NewSyncWriter(w))
	case "json":
		logger = log.NewJSONLogger(log.NewSyncWriter(w))
	default:
		return nil, errors.Newf("unknown log format %q", f)
	}

	var allow level.Option
	switch l := viper.GetString("log_level"); l {
	case "debug":
		allow = level.AllowDebug()
	case "", "info":
		allow = level.AllowInfo()
	case "warn":
		allow = level.AllowWarn()
	case "error":
		allow = level.AllowError()
	default:
		return nil, errors.Newf("unknown log level %q", l)
	}
	logger = level.NewFilter(logger, allow)
	return log.With(logger, "ts", log.DefaultTimestampUTC), nil
}

// newAllocator builds the configured allocator and instruments it on reg.
func newAllocator(reg prometheus.Registerer) *metrics.Allocator {
	var base memory.Allocator = memory.System{}
	if budget := viper.GetUint64("budget"); budget > 0 {
		base = memory.NewLimited(budget)
	}
	return metrics.NewAllocator(base, reg)
}
