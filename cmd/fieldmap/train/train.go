// Package traincmder provides the `fieldmap train` CLI command.
package traincmder

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clinforge/fieldmap/pkg/cliui"
	"github.com/clinforge/fieldmap/pkg/config"
	"github.com/clinforge/fieldmap/pkg/engine"
	"github.com/clinforge/fieldmap/pkg/logger"
	"github.com/clinforge/fieldmap/pkg/trainer"
)

type trainCommander struct {
	artifactsDir    string
	embeddingTarget string
	embeddingModel  string
	topK            int
	debug           bool
	logger          *zap.Logger
}

const trainLongDesc string = `Learn the target vocabulary and scoring model from a ground-truth
ViewMapping document plus a StudyData export.

Training builds the vocabulary from the mapping's attribute identifiers,
embeds it, indexes it, labels the retrieval candidates of every source
event, and fits the reranker. All artifacts are committed atomically
under the artifacts directory.

Examples:
  fieldmap train StudyData.xml ViewMapping.xml
  fieldmap train StudyData.xml ViewMapping.xml -a ./study42-artifacts`

const trainShortDesc string = "Train the vocabulary and scoring model"

func NewTrainCmd() *cobra.Command {
	cmder := &trainCommander{}
	fs := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "train <StudyData.xml> <ViewMapping.xml>",
		Short: trainShortDesc,
		Long:  trainLongDesc,
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
	config.AddIntFlag(cmd, fs, config.FlagTopK, &cmder.topK)

	return cmd
}

func (c *trainCommander) run(cmd *cobra.Command, sourcePath, mappingPath string) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	source, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("reading source document: %w", err)
	}
	mapping, err := os.ReadFile(mappingPath)
	if err != nil {
		return fmt.Errorf("reading mapping document: %w", err)
	}

	svc, err := engine.FromConfig(cfg, c.logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx := cmd.Context()
	if err := svc.Open(ctx); err != nil {
		return err
	}

	var stats trainer.Stats
	if err := cliui.Step(os.Stdout, "Training vocabulary and reranker", func() error {
		var trainErr error
		stats, trainErr = svc.Train(ctx, source, mapping)
		return trainErr
	}); err != nil {
		return err
	}

	fmt.Printf("\n  %s Trained on %d samples (%d positive)\n",
		cliui.SuccessMark, stats.Samples, stats.Positives)
	fmt.Printf("  %s %s\n\n",
		cliui.KeyStyle.Render("Artifacts:"),
		cliui.DimStyle.Render(cfg.Artifacts.Dir),
	)
	return nil
}

// resolveConfig resolves the effective configuration with explicit flags
// taking precedence over env vars and the config file.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	v, err := config.InitViper("")
	if err != nil {
		return nil, err
	}

	fs := config.DefaultFlagSet()
	if err := config.BindRegisteredFlags(v, cmd, fs,
		config.FlagArtifactsDir,
		config.FlagEmbeddingTarget,
		config.FlagEmbeddingModel,
		config.FlagTopK,
	); err != nil {
		return nil, err
	}

	return config.FromViper(v), nil
}
