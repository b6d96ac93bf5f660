// Package fieldmapcmder
package fieldmapcmder

import (
	"github.com/spf13/cobra"

	feedbackcmder "github.com/clinforge/fieldmap/cmd/fieldmap/feedback"
	initcmder "github.com/clinforge/fieldmap/cmd/fieldmap/init"
	predictcmder "github.com/clinforge/fieldmap/cmd/fieldmap/predict"
	servecmder "github.com/clinforge/fieldmap/cmd/fieldmap/serve"
	traincmder "github.com/clinforge/fieldmap/cmd/fieldmap/train"
	versioncmder "github.com/clinforge/fieldmap/cmd/version"
)

const fieldmapLongDesc string = `Fieldmap maps EDC study fields onto a canonical attribute vocabulary.

Train from a ground-truth mapping, classify new exports, and fold
reviewer corrections back into the vocabulary:
  fieldmap train      Learn the vocabulary and scoring model
  fieldmap predict    Classify a StudyData export
  fieldmap feedback   Record a reviewer correction
  fieldmap serve      Run the HTTP API server`

const fieldmapShortDesc string = "Fieldmap - EDC field mapping engine"

func NewFieldmapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fieldmap",
		Short: fieldmapShortDesc,
		Long:  fieldmapLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(traincmder.NewTrainCmd())
	cmd.AddCommand(predictcmder.NewPredictCmd())
	cmd.AddCommand(feedbackcmder.NewFeedbackCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
