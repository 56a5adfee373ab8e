package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"reviewsync/internal/config"
)

type commandContext struct {
	configPath *string
	cfg        *config.Config
	logger     zerolog.Logger
}

func (c *commandContext) ensureConfig(cmd *cobra.Command) (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(*c.configPath)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	c.logger = setupLogger(cfg.Logging, cmd.ErrOrStderr())
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := &commandContext{configPath: &configFlag, logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:           "reviewsync",
		Short:         "Synchronised multi-camera recording review",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig(cmd)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newScanCommand(ctx))
	rootCmd.AddCommand(newSegmentsCommand(ctx))

	return rootCmd
}
