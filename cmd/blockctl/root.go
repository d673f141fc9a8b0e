package main

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-blocks/pkg/config"
	"github.com/ajitpratap0/nebula-blocks/pkg/logger"
	"github.com/ajitpratap0/nebula-blocks/pkg/observability"
	"github.com/ajitpratap0/nebula-blocks/pkg/page"
)

// app carries state shared by every subcommand.
type app struct {
	v        *viper.Viper
	out      io.Writer
	cfg      *config.Config
	shutdown observability.ShutdownFunc
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out}

	root := &cobra.Command{
		Use:   "blockctl",
		Short: "Generate and inspect columnar page streams",
		Long: `blockctl writes sample page streams and decodes existing ones.

Flags can also be set through BLOCKCTL_* environment variables, for example
BLOCKCTL_COMPRESSION=zstd or BLOCKCTL_LOG_LEVEL=debug.`,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.setup() },
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown(cmd.Context())
		},
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.String("config", "", "Path to a YAML configuration file")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("compression", "", "Page compression (none, gzip, snappy, lz4, zstd, s2, deflate)")
	flags.Bool("checksum", true, "Checksum page bodies")
	flags.Bool("tracing", false, "Export OpenTelemetry spans to stderr")

	a.v.SetEnvPrefix("BLOCKCTL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	_ = a.v.BindPFlags(flags)

	root.AddCommand(
		newVersionCmd(),
		newEncodingsCmd(a),
		newGenerateCmd(a),
		newInspectCmd(a),
	)
	return root
}

// setup loads the configuration file, applies flag and environment
// overrides, and installs the logger and tracer.
func (a *app) setup() error {
	cfg := config.Default()
	cfg.Logging.Level = "warn"
	if path := a.v.GetString("config"); path != "" {
		if err := config.Load(path, cfg); err != nil {
			return err
		}
	}
	if lvl := a.v.GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if alg := a.v.GetString("compression"); alg != "" {
		cfg.Page.Compression = alg
	}
	if a.v.IsSet("checksum") {
		cfg.Page.Checksum = a.v.GetBool("checksum")
	}
	if a.v.IsSet("tracing") {
		cfg.Observability.EnableTracing = a.v.GetBool("tracing")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.Init(cfg.Logging.LoggerConfig()); err != nil {
		return err
	}

	tc := observability.DefaultTracingConfig()
	tc.Enabled = cfg.Observability.EnableTracing
	tc.ServiceName = cfg.Observability.ServiceName
	tc.ServiceVersion = version
	tc.SamplingRate = cfg.Observability.TracingSampleRate
	shutdown, err := observability.InitTracing(tc)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.shutdown = shutdown
	logger.Get().Debug("configuration loaded",
		zap.String("compression", cfg.Page.Compression),
		zap.Bool("checksum", cfg.Page.Checksum),
		zap.Bool("tracing", cfg.Observability.EnableTracing))
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if a.shutdown != nil {
		if err := a.shutdown(ctx); err != nil {
			return err
		}
	}
	_ = logger.Sync()
	return nil
}

func (a *app) codec() (*page.Codec, error) {
	return page.NewCodecFromConfig(a.cfg)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "blockctl v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newEncodingsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "encodings",
		Short: "List registered block encodings",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.codec()
			if err != nil {
				return err
			}
			for _, tag := range c.Serde().Encodings() {
				fmt.Fprintln(a.out, tag)
			}
			return nil
		},
	}
}
