// Package reranker trains and scores the binary classifier that rescorses
// retrieval candidates from their heuristic feature vectors. The model is
// a gradient-boosted ensemble of depth-1 regression trees with logistic
// loss, persisted as a small JSON artifact so it reloads independently of
// training.
package reranker

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// Params are the training hyperparameters.
type Params struct {
	// Estimators is the number of boosting rounds.
	Estimators int

	// LearningRate shrinks each round's contribution.
	LearningRate float64
}

// DefaultParams returns the default hyperparameters.
func DefaultParams() Params {
	return Params{Estimators: 200, LearningRate: 0.1}
}

// stump is one depth-1 regression tree. Leaf values are already scaled by
// the learning rate at training time.
type stump struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      float64 `json:"left"`
	Right     float64 `json:"right"`
}

func (s stump) predict(row []float64) float64 {
	if row[s.Feature] <= s.Threshold {
		return s.Left
	}
	return s.Right
}

// model is the persisted artifact layout.
type model struct {
	Version      int     `json:"version"`
	LearningRate float64 `json:"learning_rate"`
	Base         float64 `json:"base"`
	Stumps       []stump `json:"stumps"`
}

// Reranker scores (source, candidate) feature vectors with the probability
// of the candidate being the correct target.
type Reranker struct {
	path   string
	logger *zap.Logger
	model  *model
}

// New creates a reranker persisted at path. The model is not loaded until
// Train or Load.
func New(path string, logger *zap.Logger) *Reranker {
	return &Reranker{path: path, logger: logger}
}

// Loaded reports whether a model is available for scoring.
func (r *Reranker) Loaded() bool {
	return r.model != nil
}

// Train fits the classifier on the labeled feature matrix and persists the
// resulting artifact.
func (r *Reranker) Train(X [][]float64, y []int, p Params) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("%w: %d samples, %d labels", ErrNoTrainingData, len(X), len(y))
	}
	if p.Estimators <= 0 {
		p.Estimators = DefaultParams().Estimators
	}
	if p.LearningRate <= 0 {
		p.LearningRate = DefaultParams().LearningRate
	}

	ys := make([]float64, len(y))
	for i, label := range y {
		ys[i] = float64(label)
	}

	// Initial prediction is the log-odds of the positive rate, clamped so
	// single-class datasets stay finite.
	prior := stat.Mean(ys, nil)
	const eps = 1e-6
	prior = math.Min(math.Max(prior, eps), 1-eps)
	base := math.Log(prior / (1 - prior))

	m := &model{
		Version:      1,
		LearningRate: p.LearningRate,
		Base:         base,
	}

	// Raw scores per sample, updated after each boosting round.
	scores := make([]float64, len(X))
	for i := range scores {
		scores[i] = base
	}

	grad := make([]float64, len(X))
	hess := make([]float64, len(X))
	for round := 0; round < p.Estimators; round++ {
		for i, s := range scores {
			pHat := sigmoid(s)
			grad[i] = ys[i] - pHat
			hess[i] = pHat * (1 - pHat)
		}

		st, ok := fitStump(X, grad, hess)
		if !ok {
			break
		}
		st.Left *= p.LearningRate
		st.Right *= p.LearningRate

		m.Stumps = append(m.Stumps, st)
		for i, row := range X {
			scores[i] += st.predict(row)
		}
	}

	r.model = m
	if err := r.save(); err != nil {
		return err
	}

	r.logger.Info("trained reranker",
		zap.Int("samples", len(X)),
		zap.Int("rounds", len(m.Stumps)),
		zap.String("path", r.path),
	)
	return nil
}

// Load reads the persisted artifact. It is best-effort: a missing or
// undecodable artifact yields false rather than an error.
func (r *Reranker) Load() bool {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("reading reranker artifact", zap.Error(err))
		}
		return false
	}

	var m model
	if err := json.Unmarshal(data, &m); err != nil {
		r.logger.Warn("decoding reranker artifact", zap.Error(err))
		return false
	}

	r.model = &m
	return true
}

// PredictProba returns the positive-class probability for each feature
// row. It fails with ErrNotLoaded before Train or a successful Load.
func (r *Reranker) PredictProba(X [][]float64) ([]float64, error) {
	if r.model == nil {
		return nil, ErrNotLoaded
	}

	out := make([]float64, len(X))
	for i, row := range X {
		score := r.model.Base
		for _, st := range r.model.Stumps {
			score += st.predict(row)
		}
		out[i] = sigmoid(score)
	}
	return out, nil
}

func (r *Reranker) save() error {
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating reranker dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(r.model, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding reranker: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing temp reranker: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("renaming reranker: %w", err)
	}
	return nil
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
