package severity

import (
	"encoding/json"
	"fmt"
	"os"
)

// Forest is a trained tree-ensemble classifier exported to JSON. It is
// consumed as-is: roadcast never trains or updates it. The artifact also
// carries the exact feature-name ordering the trees were fit against.
type Forest struct {
	FeatureNames []string `json:"feature_names"`
	Classes      int      `json:"classes"`
	Trees        []Tree   `json:"trees"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Node is either a split (Leaf nil: go Left if feature <= threshold,
// else Right) or a leaf holding a class distribution.
type Node struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t"`
	Left      int       `json:"l"`
	Right     int       `json:"r"`
	Leaf      []float64 `json:"leaf,omitempty"`
}

// LoadForest reads and validates a model artifact.
func LoadForest(path string) (*Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var f Forest
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}
	if f.Classes != 3 {
		return nil, fmt.Errorf("model has %d classes, want 3", f.Classes)
	}
	if len(f.Trees) == 0 {
		return nil, fmt.Errorf("model has no trees")
	}
	if len(f.FeatureNames) == 0 {
		return nil, fmt.Errorf("model has no feature names")
	}
	for i, tree := range f.Trees {
		if len(tree.Nodes) == 0 {
			return nil, fmt.Errorf("tree %d has no nodes", i)
		}
		for j, n := range tree.Nodes {
			if n.Leaf != nil && len(n.Leaf) != f.Classes {
				return nil, fmt.Errorf("tree %d node %d: leaf has %d classes", i, j, len(n.Leaf))
			}
			if n.Leaf == nil {
				if n.Feature < 0 || n.Feature >= len(f.FeatureNames) {
					return nil, fmt.Errorf("tree %d node %d: feature index %d out of range", i, j, n.Feature)
				}
				if n.Left < 0 || n.Left >= len(tree.Nodes) || n.Right < 0 || n.Right >= len(tree.Nodes) {
					return nil, fmt.Errorf("tree %d node %d: child index out of range", i, j)
				}
			}
		}
	}
	return &f, nil
}

// Score averages the leaf distributions across all trees.
func (f *Forest) Score(features []float64) [3]float64 {
	var sum [3]float64
	for _, tree := range f.Trees {
		leaf := tree.walk(features)
		for c := 0; c < 3; c++ {
			sum[c] += leaf[c]
		}
	}
	n := float64(len(f.Trees))
	for c := 0; c < 3; c++ {
		sum[c] /= n
	}
	return sum
}

func (t Tree) walk(features []float64) []float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf != nil {
			return n.Leaf
		}
		if features[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}
