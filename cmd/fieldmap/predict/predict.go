// Package predictcmder provides the `fieldmap predict` CLI command.
package predictcmder

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clinforge/fieldmap/pkg/cliui"
	"github.com/clinforge/fieldmap/pkg/config"
	"github.com/clinforge/fieldmap/pkg/engine"
	"github.com/clinforge/fieldmap/pkg/logger"
	"github.com/clinforge/fieldmap/pkg/match"
)

type predictCommander struct {
	artifactsDir    string
	embeddingTarget string
	embeddingModel  string
	topK            int
	suggest         bool
	asJSON          bool
	debug           bool
	logger          *zap.Logger
}

const predictLongDesc string = `Classify every field of a StudyData export against the trained
vocabulary. Fields whose identifiers appear verbatim in the vocabulary
map with confidence 1.0; events with no such field are flagged for
human review.

With --suggest, review events also list ranked advisory candidates from
the retrieval and reranking pipeline.

Examples:
  fieldmap predict StudyData.xml
  fieldmap predict StudyData.xml --suggest
  fieldmap predict StudyData.xml --json`

const predictShortDesc string = "Classify a StudyData export"

func NewPredictCmd() *cobra.Command {
	cmder := &predictCommander{}
	fs := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "predict <StudyData.xml>",
		Short: predictShortDesc,
		Long:  predictLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			return cmder.run(cmd, args[0])
		},
	}

	config.AddStringFlag(cmd, fs, config.FlagArtifactsDir, &cmder.artifactsDir)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingTarget, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddIntFlag(cmd, fs, config.FlagTopK, &cmder.topK)
	cmd.Flags().BoolVar(&cmder.suggest, "suggest", false, "Rank advisory candidates for review events")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Emit results as JSON")

	return cmd
}

type predictOutput struct {
	Results     []match.EventResult           `json:"results"`
	Suggestions map[string][]match.Suggestion `json:"suggestions,omitempty"`
}

func (c *predictCommander) run(cmd *cobra.Command, sourcePath string) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	cfg, err := c.resolveConfig(cmd)
	if err != nil {
		return err
	}

	source, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("reading source document: %w", err)
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

	out := predictOutput{}
	out.Results, err = svc.Predict(ctx, source)
	if err != nil {
		return err
	}
	if c.suggest {
		out.Suggestions, err = svc.Suggest(ctx, source)
		if err != nil {
			return err
		}
	}

	if c.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	c.render(out)
	return nil
}

func (c *predictCommander) render(out predictOutput) {
	for _, result := range out.Results {
		if result.NeedsReview {
			fmt.Printf("  %s %s needs review\n", cliui.WarnMark, result.StudyEventOID)
			for _, s := range out.Suggestions[result.StudyEventOID] {
				fmt.Printf("      %s %s\n",
					cliui.DimStyle.Render(fmt.Sprintf("%.3f", s.Score)),
					s.Target,
				)
			}
			continue
		}

		fmt.Printf("  %s %s\n", cliui.SuccessMark, result.StudyEventOID)
		for _, m := range result.Matches {
			fmt.Printf("      %s %s\n", m.ItemOID, cliui.DimStyle.Render("→ "+m.Target))
		}
	}
}

func (c *predictCommander) resolveConfig(cmd *cobra.Command) (*config.Config, error) {
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
