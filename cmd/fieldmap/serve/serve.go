// Package servecmder provides the `fieldmap serve` CLI command.
package servecmder

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clinforge/fieldmap/api"
	"github.com/clinforge/fieldmap/pkg/config"
	"github.com/clinforge/fieldmap/pkg/engine"
	"github.com/clinforge/fieldmap/pkg/logger"
)

type serveCommander struct {
	listen          string
	artifactsDir    string
	embeddingTarget string
	embeddingModel  string
	topK            int
	debug           bool
	logger          *zap.Logger
}

const serveLongDesc string = `Run the fieldmap HTTP API server exposing train, predict, and feedback.

The server loads the persisted artifact snapshot at startup; a first run
with no prior state starts empty and serves training requests.`

const serveShortDesc string = "Run the fieldmap API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}
	fs := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, fs, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, fs, config.FlagArtifactsDir, &cmder.artifactsDir)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingTarget, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddIntFlag(cmd, fs, config.FlagTopK, &cmder.topK)

	return cmd
}

func (c *serveCommander) run(cmd *cobra.Command) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	v, err := config.InitViper("")
	if err != nil {
		return err
	}
	fs := config.DefaultFlagSet()
	if err := config.BindRegisteredFlags(v, cmd, fs,
		config.FlagAPIListen,
		config.FlagArtifactsDir,
		config.FlagEmbeddingTarget,
		config.FlagEmbeddingModel,
		config.FlagTopK,
	); err != nil {
		return err
	}
	cfg := config.FromViper(v)

	svc, err := engine.FromConfig(cfg, c.logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.Open(cmd.Context()); err != nil {
		return err
	}

	server := api.NewServer(api.Config{
		ListenAddr: cfg.API.Listen,
	}, svc, c.logger)

	c.logger.Info("starting API server",
		zap.String("listen", cfg.API.Listen),
		zap.String("artifacts", cfg.Artifacts.Dir),
	)

	return server.Run()
}
