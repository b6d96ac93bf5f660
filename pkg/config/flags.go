package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g.,
// --artifacts-dir on "fieldmap train", "fieldmap predict" and "fieldmap serve").
type Flag struct {
	// Name is the long flag name (e.g. "artifacts-dir").
	Name string

	// Shorthand is the one-letter short flag (e.g. "a"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "artifacts.dir").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
const (
	FlagArtifactsDir    = "artifacts-dir"
	FlagAPIListen       = "api-listen"
	FlagEmbeddingTarget = "embedding-target"
	FlagEmbeddingModel  = "embedding-model"
	FlagTopK            = "top-k"
)

// DefaultFlagSet returns the registry of flags shared by fieldmap commands.
func DefaultFlagSet() FlagSet {
	return FlagSet{
		FlagArtifactsDir: {
			Name:        "artifacts-dir",
			Shorthand:   "a",
			ViperKey:    "artifacts.dir",
			Description: "Directory holding the vocabulary, embeddings, index, reranker and mapping artifacts",
		},
		FlagAPIListen: {
			Name:        "listen",
			Shorthand:   "l",
			ViperKey:    "api.listen",
			Description: "Address for the API server to listen on",
		},
		FlagEmbeddingTarget: {
			Name:        "embedding-target",
			ViperKey:    "embedding.target",
			Description: "Embedding provider URL",
		},
		FlagEmbeddingModel: {
			Name:        "embedding-model",
			ViperKey:    "embedding.model",
			Description: "Embedding model name",
		},
		FlagTopK: {
			Name:        "top-k",
			Shorthand:   "k",
			ViperKey:    "match.top_k",
			Description: "Number of nearest vocabulary candidates to retrieve",
		},
	}
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, key string, target *int) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds each named flag on cmd to its viper key so
// explicitly-set flags take precedence over env vars and file values.
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, keys ...string) error {
	for _, key := range keys {
		def, ok := fs[key]
		if !ok {
			continue
		}
		if f := cmd.Flags().Lookup(def.Name); f != nil && f.Changed {
			if err := v.BindPFlag(def.ViperKey, f); err != nil {
				return err
			}
		}
	}
	return nil
}

func defaultString(viperKey string) string {
	d := NewDefaultConfig()
	switch viperKey {
	case "artifacts.dir":
		return d.Artifacts.Dir
	case "api.listen":
		return d.API.Listen
	case "embedding.target":
		return d.Embedding.Target
	case "embedding.model":
		return d.Embedding.Model
	default:
		return ""
	}
}

func defaultInt(viperKey string) int {
	d := NewDefaultConfig()
	switch viperKey {
	case "match.top_k":
		return d.Match.TopK
	case "reranker.estimators":
		return d.Reranker.Estimators
	default:
		return 0
	}
}
