package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/light-bringer/storefront-catalog/internal/config"
	"github.com/light-bringer/storefront-catalog/internal/obs"
	"github.com/light-bringer/storefront-catalog/internal/services"
)

// cli carries state shared by the subcommands of one invocation.
type cli struct {
	out     io.Writer
	vip     *viper.Viper
	envFile string
	svc     *services.ServiceOptions
}

// persistent flags and the config keys they override.
var boundFlags = []struct {
	flag, key, usage string
}{
	{"metadata-backend", "METADATA_BACKEND", "metadata store: memory, spanner, redis, bolt or nats"},
	{"asset-backend", "ASSET_BACKEND", "asset store: memory or minio"},
	{"spanner-database", "SPANNER_DATABASE", "Spanner database path"},
	{"redis-addr", "REDIS_ADDR", "Redis address"},
	{"bolt-path", "BOLT_PATH", "bbolt database file"},
	{"nats-url", "NATS_URL", "NATS server URL"},
	{"s3-endpoint", "S3_ENDPOINT", "S3-compatible endpoint"},
	{"log-level", "LOG_LEVEL", "log level"},
}

// execute runs one invocation and releases the stores afterwards, including
// when the command failed.
func execute(ctx context.Context, out io.Writer, args []string) error {
	c := &cli{out: out}
	defer c.close()

	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetOut(out)
	return root.ExecuteContext(ctx)
}

func newRootCmd(c *cli) *cobra.Command {

	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Inspect and edit the storefront catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.open(cmd)
		},
	}

	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before the environment")
	for _, f := range boundFlags {
		root.PersistentFlags().String(f.flag, "", f.usage)
	}

	root.AddCommand(
		newListCmd(c),
		newGetCmd(c),
		newSetCmd(c),
		newDeleteCmd(c),
		newUploadCmd(c),
		newOrphansCmd(c),
		newStatsCmd(c),
	)
	return root
}

// open loads configuration (flags over environment over .env over
// defaults) and wires the stores.
func (c *cli) open(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(c.envFile); err != nil {
		return err
	}
	c.vip = config.New()
	for _, f := range boundFlags {
		if fl := cmd.Flags().Lookup(f.flag); fl != nil && fl.Changed {
			c.vip.Set(f.key, fl.Value.String())
		}
	}
	// A one-shot command must not broadcast to other replicas.
	c.vip.Set("NATS_RELAY", false)

	cfg, err := config.FromViper(c.vip)
	if err != nil {
		return err
	}
	logger, err := obs.NewLogger(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return err
	}
	c.svc, err = services.NewServiceOptions(cmd.Context(), cfg, logger)
	return err
}

func (c *cli) close() {
	if c.svc != nil {
		c.svc.Close()
		_ = c.svc.Log.Sync()
		c.svc = nil
	}
}

func (c *cli) print(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
