// Package feedbackcmder provides the `fieldmap feedback` CLI command.
package feedbackcmder

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clinforge/fieldmap/pkg/cliui"
	"github.com/clinforge/fieldmap/pkg/config"
	"github.com/clinforge/fieldmap/pkg/engine"
	"github.com/clinforge/fieldmap/pkg/logger"
	"github.com/clinforge/fieldmap/pkg/utils"
)

type feedbackCommander struct {
	artifactsDir    string
	embeddingTarget string
	embeddingModel  string
	debug           bool
	logger          *zap.Logger
}

const feedbackLongDesc string = `Record a reviewer's canonical label for a source event.

The mapping document gains the visit association, and a label new to the
vocabulary is appended with the full vocabulary re-embedded so the
snapshot stays consistent. Repeating the same correction is harmless.

Examples:
  fieldmap feedback VISIT1 WEIGHT`

const feedbackShortDesc string = "Record a reviewer correction"

func NewFeedbackCmd() *cobra.Command {
	cmder := &feedbackCommander{}
	fs := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "feedback <event-oid> <label>",
		Short: feedbackShortDesc,
		Long:  feedbackLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			return cmder.run(cmd, args[0], args[1])
		},
	}

	config.AddStringFlag(cmd, fs, config.FlagArtifactsDir, &cmder.artifactsDir)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingTarget, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingModel, &cmder.embeddingModel)

	return cmd
}

func (c *feedbackCommander) run(cmd *cobra.Command, eventOID, label string) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	v, err := config.InitViper("")
	if err != nil {
		return err
	}
	fs := config.DefaultFlagSet()
	if err := config.BindRegisteredFlags(v, cmd, fs,
		config.FlagArtifactsDir,
		config.FlagEmbeddingTarget,
		config.FlagEmbeddingModel,
	); err != nil {
		return err
	}
	cfg := config.FromViper(v)

	svc, err := engine.FromConfig(cfg, c.logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx := cmd.Context()
	if err := svc.Open(ctx); err != nil {
		return err
	}

	msg := fmt.Sprintf("Recording %s for %s", utils.Truncate(label, 40), eventOID)
	if err := cliui.Step(os.Stdout, msg, func() error {
		return svc.SubmitFeedback(ctx, eventOID, label)
	}); err != nil {
		return err
	}

	return nil
}
