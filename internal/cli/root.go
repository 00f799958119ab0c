// Package cli implements the docpatch CLI commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hkloudou/docpatch"
	"github.com/hkloudou/docpatch/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// defaultTimeout bounds one command, retries included.
const defaultTimeout = 5 * time.Minute

// globals holds the state shared by all subcommands of one invocation.
type globals struct {
	v         *viper.Viper
	cfgFile   string
	fromRedis string
	verbose   bool
	timeout   time.Duration
}

// configKeys are the viper keys of config.Config, in mapstructure form.
var configKeys = []string{
	"name", "store", "base_path", "redis_url", "endpoint", "bucket",
	"access_key", "secret_key", "aes_pwd", "internal", "database",
	"connection_string", "partition_key_path", "max_retries",
	"rate_limit", "rate_burst", "array_policy", "object_policy", "null_policy",
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	g := &globals{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "docpatch",
		Short: "Apply partial updates to JSON documents",
		Long: `docpatch merges a JSON or YAML patch into documents held in a document store
(memory, file, redis, oss or cosmos).

The patch is merged into the document root, or into the first nested object
whose filter property matches, using the selected array and object policies.
Rate-limited store calls are retried with back-off.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.initConfig()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&g.cfgFile, "config", "", "config file (default is $HOME/.docpatch/config.yaml)")
	flags.StringVar(&g.fromRedis, "from-redis", "", "load shared settings from Redis (redis:// URL)")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "debug logging on stderr")
	flags.DurationVar(&g.timeout, "timeout", defaultTimeout, "deadline for the whole command")
	flags.String("store", "memory", "store type (memory, file, redis, oss, cosmos)")
	flags.String("base-path", "", "root directory of the file store")
	flags.String("redis-url", "", "redis:// URL of the redis store")
	flags.String("partition-key-path", "", "partition key path inside documents (default is the id)")

	// Bind to viper
	_ = g.v.BindPFlag("store", flags.Lookup("store"))
	_ = g.v.BindPFlag("base_path", flags.Lookup("base-path"))
	_ = g.v.BindPFlag("redis_url", flags.Lookup("redis-url"))
	_ = g.v.BindPFlag("partition_key_path", flags.Lookup("partition-key-path"))
	g.v.SetEnvPrefix("DOCPATCH")
	g.v.AutomaticEnv()

	defaults := config.DefaultConfig()
	g.v.SetDefault("name", defaults.Name)
	g.v.SetDefault("max_retries", defaults.MaxRetries)
	g.v.SetDefault("array_policy", defaults.ArrayPolicy)
	g.v.SetDefault("object_policy", defaults.ObjectPolicy)
	g.v.SetDefault("null_policy", defaults.NullPolicy)
	for _, key := range configKeys {
		// AutomaticEnv only reaches keys viper already knows
		_ = g.v.BindEnv(key)
	}

	cmd.AddCommand(newUpdateCmd(g))
	cmd.AddCommand(newGetCmd(g))
	cmd.AddCommand(newPutCmd(g))
	cmd.AddCommand(newDeleteCmd(g))
	cmd.AddCommand(newConfigCmd(g))

	return cmd
}

func (g *globals) initConfig() error {
	if g.cfgFile != "" {
		g.v.SetConfigFile(g.cfgFile)
		if err := g.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		return nil
	}

	// Search for config in home directory
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	g.v.AddConfigPath(filepath.Join(home, ".docpatch"))
	g.v.SetConfigName("config")
	g.v.SetConfigType("yaml")

	var notFound viper.ConfigFileNotFoundError
	if err := g.v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// loadConfig returns the effective configuration: shared Redis settings
// when --from-redis is given, otherwise file, env and flags.
func (g *globals) loadConfig(ctx context.Context) (*config.Config, error) {
	if g.fromRedis != "" {
		opt, err := redis.ParseURL(g.fromRedis)
		if err != nil {
			return nil, fmt.Errorf("failed to parse --from-redis: %w", err)
		}
		rdb := redis.NewClient(opt)
		defer rdb.Close()
		return config.NewManager(rdb).Load(ctx)
	}

	cfg := config.DefaultConfig()
	if err := g.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

func (g *globals) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// client builds a docpatch client from the effective configuration.
// maxRetries overrides the configured budget when non-negative.
func (g *globals) client(ctx context.Context, cmd *cobra.Command, maxRetries int) (*docpatch.Client, *config.Config, error) {
	cfg, err := g.loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	if maxRetries >= 0 {
		cfg.MaxRetries = maxRetries
	}
	client, err := docpatch.NewFromConfig(cfg, docpatch.WithLogger(g.logger(cmd)))
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}

func (g *globals) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout := g.timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(cmd.Context(), timeout)
}

// requireFlags reports every missing required string flag at once.
func requireFlags(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, "--"+pairs[i])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required flag(s) %s not set", strings.Join(missing, ", "))
	}
	return nil
}
