package model

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Params controls ensemble fitting
type Params struct {
	Trees          int   `json:"trees"`
	MaxDepth       int   `json:"max_depth"`
	MinSamplesLeaf int   `json:"min_samples_leaf"`
	Seed           int64 `json:"seed"`
}

// DefaultParams mirrors the configuration defaults
func DefaultParams() Params {
	return Params{Trees: 100, MinSamplesLeaf: 1, Seed: 42}
}

// Forest is a bootstrap-aggregated ensemble of regression trees
type Forest struct {
	Features int     `json:"features"`
	Trees    []*Tree `json:"trees"`
}

// fitForest grows p.Trees trees, each on a bootstrap sample drawn from a
// single seeded source, and returns the ensemble with its normalised
// impurity-decrease importances
func fitForest(x *mat.Dense, y []float64, p Params) (*Forest, []float64) {
	n, nFeatures := x.Dims()
	cols := featureColumns(x)
	trees := p.Trees
	if trees < 1 {
		trees = 1
	}

	rng := rand.New(rand.NewSource(p.Seed))
	forest := &Forest{Features: nFeatures, Trees: make([]*Tree, 0, trees)}
	total := make([]float64, nFeatures)

	sample := make([]int, n)
	for t := 0; t < trees; t++ {
		for i := range sample {
			sample[i] = rng.Intn(n)
		}
		tree, gain := growTree(cols, y, sample, p.MaxDepth, p.MinSamplesLeaf)
		forest.Trees = append(forest.Trees, tree)

		var sum float64
		for _, g := range gain {
			sum += g
		}
		if sum <= 0 {
			continue
		}
		for f, g := range gain {
			total[f] += g / sum
		}
	}

	return forest, normalise(total)
}

// normalise scales v to sum to 1; an all-zero vector becomes uniform
func normalise(v []float64) []float64 {
	out := make([]float64, len(v))
	var sum float64
	for _, x := range v {
		sum += x
	}
	for i, x := range v {
		if sum > 0 {
			out[i] = x / sum
		} else {
			out[i] = 1 / float64(len(v))
		}
	}
	return out
}

// Predict averages the trees' predictions for one feature vector
func (f *Forest) Predict(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	var sum float64
	for _, t := range f.Trees {
		sum += t.Predict(x)
	}
	return sum / float64(len(f.Trees))
}
