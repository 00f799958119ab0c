package cli

import (
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/hkloudou/docpatch/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func newConfigCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and share the effective configuration",
	}

	cmd.AddCommand(newConfigShowCmd(g))
	cmd.AddCommand(newConfigSaveRedisCmd(g))

	return cmd
}

func newConfigShowCmd(g *globals) *cobra.Command {
	var showSecrets bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := g.context(cmd)
			defer cancel()
			cfg, err := g.loadConfig(ctx)
			if err != nil {
				return err
			}
			if !showSecrets {
				cfg = masked(cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal YAML: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "print keys and passwords in clear")

	return cmd
}

func newConfigSaveRedisCmd(g *globals) *cobra.Command {
	var redisURL string

	cmd := &cobra.Command{
		Use:   "save-redis",
		Short: "Store the effective configuration in Redis for --from-redis",
		Long: `Store the effective configuration as JSON in Redis under "docpatch.setting",
where other hosts pick it up with --from-redis.

Example:
  docpatch --store oss --config oss.yaml config save-redis --redis-url redis://meta:6379/2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags("redis-url", redisURL); err != nil {
				return err
			}
			ctx, cancel := g.context(cmd)
			defer cancel()
			cfg, err := g.loadConfig(ctx)
			if err != nil {
				return err
			}

			opt, err := redis.ParseURL(redisURL)
			if err != nil {
				return fmt.Errorf("failed to parse --redis-url: %w", err)
			}
			rdb := redis.NewClient(opt)
			defer rdb.Close()

			if err := config.NewManager(rdb).Save(ctx, cfg); err != nil {
				return err
			}
			status(cmd, okColor, "saved %s to %s", config.SettingKey, opt.Addr)
			return nil
		},
	}

	cmd.Flags().StringVar(&redisURL, "redis-url", "", "redis:// URL to save to (required)")

	return cmd
}

// masked returns a copy of cfg with credentials hidden.
func masked(cfg *config.Config) *config.Config {
	out := *cfg
	for _, s := range []*string{&out.AccessKey, &out.SecretKey, &out.AESPwd, &out.ConnectionString} {
		if *s != "" {
			*s = "<sensitive>"
		}
	}
	return &out
}
