package models

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"slices"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ForestParams configures a regression forest.
type ForestParams struct {
	// Trees is the number of bagged trees.
	Trees int `json:"trees"`
	// MaxDepth limits tree depth. 0 means unlimited.
	MaxDepth int `json:"maxDepth"`
	// MinSamplesLeaf is the minimum number of samples in each leaf.
	MinSamplesLeaf int `json:"minSamplesLeaf"`
	// MaxFeatures is how many features each split considers. 0 means all.
	MaxFeatures int `json:"maxFeatures"`
	// MaxBins caps the candidate thresholds per feature.
	MaxBins int `json:"maxBins"`
	// Seed drives bootstrap sampling and feature subsampling.
	Seed uint64 `json:"seed"`
	// Jobs is the number of trees built concurrently. 0 means GOMAXPROCS.
	// It does not affect the fitted forest.
	Jobs int `json:"-"`
}

// DefaultForestParams returns the baseline hyperparameters.
func DefaultForestParams() ForestParams {
	return ForestParams{
		Trees:          100,
		MaxDepth:       0,
		MinSamplesLeaf: 1,
		MaxFeatures:    0,
		MaxBins:        255,
		Seed:           42,
	}
}

func (p ForestParams) validate() error {
	switch {
	case p.Trees <= 0:
		return fmt.Errorf("forest: trees must be positive, got %d", p.Trees)
	case p.MaxDepth < 0:
		return fmt.Errorf("forest: max depth must be >= 0, got %d", p.MaxDepth)
	case p.MinSamplesLeaf <= 0:
		return fmt.Errorf("forest: min samples leaf must be positive, got %d", p.MinSamplesLeaf)
	case p.MaxFeatures < 0:
		return fmt.Errorf("forest: max features must be >= 0, got %d", p.MaxFeatures)
	case p.MaxBins < 2 || p.MaxBins > math.MaxUint16:
		return fmt.Errorf("forest: max bins must be in [2, %d], got %d", math.MaxUint16, p.MaxBins)
	}
	return nil
}

// Forest is a bagged ensemble of regression trees. Its prediction is the
// mean of the tree predictions.
type Forest struct {
	Trees []Tree `json:"trees"`
}

// Tree is a regression tree stored as a flat node list rooted at index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Node is either a split (Feature >= 0) or a leaf (Feature == -1).
// Samples with x[Feature] <= Threshold go Left; NaN goes Right.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Value     float64 `json:"v"`
}

func (f *Forest) Name() string { return RegressorForest }

// Predict averages the trees' predictions for one feature vector.
func (f *Forest) Predict(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].Predict(x)
	}
	return sum / float64(len(f.Trees))
}

// Predict walks the tree for one feature vector.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// FitForest trains a forest on the rows of X against y. Trees are built
// concurrently; each one draws from its own random stream seeded by
// (Seed, tree index), so the result does not depend on Jobs.
func FitForest(ctx context.Context, X [][]float64, y []float64, p ForestParams) (*Forest, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("forest: need matching non-empty X and y, got %d and %d", len(X), len(y))
	}

	bins := newBinnedMatrix(X, p.MaxBins)

	jobs := p.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	forest := &Forest{Trees: make([]Tree, p.Trees)}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for i := range p.Trees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(p.Seed, uint64(i)))
			forest.Trees[i] = buildTree(bins, y, p, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return forest, nil
}

// binnedMatrix holds, per feature, the candidate thresholds and the bin of
// every sample. Bin b of feature f holds values x with
// thresholds[f][b-1] < x <= thresholds[f][b]; NaN lands in the last bin.
type binnedMatrix struct {
	thresholds [][]float64
	bins       [][]uint16 // [feature][sample]
	n          int
}

func newBinnedMatrix(X [][]float64, maxBins int) *binnedMatrix {
	n, width := len(X), len(X[0])
	m := &binnedMatrix{
		thresholds: make([][]float64, width),
		bins:       make([][]uint16, width),
		n:          n,
	}

	col := make([]float64, 0, n)
	for f := 0; f < width; f++ {
		col = col[:0]
		for i := 0; i < n; i++ {
			if v := X[i][f]; !math.IsNaN(v) {
				col = append(col, v)
			}
		}
		slices.Sort(col)
		thr := thresholdsFor(slices.Compact(col), maxBins)
		m.thresholds[f] = thr

		b := make([]uint16, n)
		for i := 0; i < n; i++ {
			b[i] = uint16(binOf(thr, X[i][f]))
		}
		m.bins[f] = b
	}
	return m
}

// midpoint returns a threshold with a <= t < b without overflowing near
// the float64 limits.
func midpoint(a, b float64) float64 {
	m := a/2 + b/2
	if m < a || m >= b {
		return a
	}
	return m
}

// thresholdsFor picks split points from sorted distinct values: midpoints
// when they fit in maxBins, quantile values otherwise.
func thresholdsFor(distinct []float64, maxBins int) []float64 {
	if len(distinct) <= 1 {
		return nil
	}
	if len(distinct) <= maxBins {
		thr := make([]float64, len(distinct)-1)
		for i := range thr {
			thr[i] = midpoint(distinct[i], distinct[i+1])
		}
		return thr
	}
	thr := make([]float64, 0, maxBins-1)
	for k := 1; k < maxBins; k++ {
		v := distinct[k*len(distinct)/maxBins-1]
		if len(thr) == 0 || v > thr[len(thr)-1] {
			thr = append(thr, v)
		}
	}
	return thr
}

func binOf(thr []float64, x float64) int {
	if math.IsNaN(x) {
		return len(thr)
	}
	return sort.SearchFloat64s(thr, x)
}

// treeBuilder holds per-tree scratch space.
type treeBuilder struct {
	bins  *binnedMatrix
	y     []float64
	p     ForestParams
	rng   *rand.Rand
	nodes []Node
	sums  []float64
	cnts  []int
	feats []int
}

func buildTree(bins *binnedMatrix, y []float64, p ForestParams, rng *rand.Rand) Tree {
	n := bins.n
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.IntN(n)
	}

	feats := make([]int, len(bins.thresholds))
	for f := range feats {
		feats[f] = f
	}

	b := &treeBuilder{
		bins:  bins,
		y:     y,
		p:     p,
		rng:   rng,
		sums:  make([]float64, p.MaxBins+1),
		cnts:  make([]int, p.MaxBins+1),
		feats: feats,
	}
	b.grow(idx, 0)
	return Tree{Nodes: b.nodes}
}

// grow appends the subtree for idx and returns its root index.
func (b *treeBuilder) grow(idx []int, depth int) int {
	var sum, sumSq float64
	for _, i := range idx {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	count := float64(len(idx))
	mean := sum / count

	self := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1, Value: mean})

	pure := sumSq-sum*sum/count <= 1e-9*math.Max(1, sumSq)
	if pure || len(idx) < 2*b.p.MinSamplesLeaf || (b.p.MaxDepth > 0 && depth >= b.p.MaxDepth) {
		return self
	}

	feature, bin, ok := b.bestSplit(idx, sum)
	if !ok {
		return self
	}

	col := b.bins.bins[feature]
	k := 0
	for j, i := range idx {
		if int(col[i]) <= bin {
			idx[k], idx[j] = idx[j], idx[k]
			k++
		}
	}

	left := b.grow(idx[:k], depth+1)
	right := b.grow(idx[k:], depth+1)
	b.nodes[self] = Node{
		Feature:   feature,
		Threshold: b.bins.thresholds[feature][bin],
		Left:      left,
		Right:     right,
		Value:     mean,
	}
	return self
}

// bestSplit finds the split maximising the reduction in squared error,
// expressed as sumL²/nL + sumR²/nR.
func (b *treeBuilder) bestSplit(idx []int, total float64) (feature, bin int, ok bool) {
	n := len(idx)
	minLeaf := b.p.MinSamplesLeaf
	parent := total * total / float64(n)
	best := parent + 1e-9*math.Max(1, math.Abs(parent))

	candidates := b.feats
	if k := b.p.MaxFeatures; k > 0 && k < len(b.feats) {
		b.rng.Shuffle(len(b.feats), func(i, j int) { b.feats[i], b.feats[j] = b.feats[j], b.feats[i] })
		candidates = b.feats[:k]
	}

	for _, f := range candidates {
		thr := b.bins.thresholds[f]
		if len(thr) == 0 {
			continue
		}
		nb := len(thr) + 1
		sums, cnts := b.sums[:nb], b.cnts[:nb]
		clear(sums)
		clear(cnts)

		col := b.bins.bins[f]
		for _, i := range idx {
			sums[col[i]] += b.y[i]
			cnts[col[i]]++
		}

		var sumL float64
		var nL int
		for j := 0; j < nb-1; j++ {
			sumL += sums[j]
			nL += cnts[j]
			nR := n - nL
			if nL < minLeaf {
				continue
			}
			if nR < minLeaf {
				break
			}
			if cnts[j] == 0 {
				continue
			}
			sumR := total - sumL
			score := sumL*sumL/float64(nL) + sumR*sumR/float64(nR)
			if score > best {
				best, feature, bin, ok = score, f, j, true
			}
		}
	}
	return feature, bin, ok
}
