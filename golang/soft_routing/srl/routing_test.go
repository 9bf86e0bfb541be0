package srl

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

//identitySelector pins the feature subset to the first numFeaturesPerNode features
//so that expected probabilities can be computed by hand.
type identitySelector struct{}

func (identitySelector) Select(_, _, _, numFeatures, numFeaturesPerNode int) []int {
	features := make([]int, numFeaturesPerNode)
	for p := range features {
		features[p] = p % numFeatures
	}
	return features
}

func TestRootSplitScenario(t *testing.T) {
	tree, err := NewRoutingTree(
		RoutingConfig{LayerNum: 0, MaxNodes: 3, NumFeaturesPerNode: 2, RandomSeed: 17},
		mat.NewDense(1, 2, []float64{0.5, -0.5}),
		[]float64{0.0},
	)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	tree.Selector = identitySelector{}

	inputData := mat.NewDense(1, 2, []float64{1.0, 0.0})
	probs, err := tree.RouteProbabilities(inputData, 1)
	if err != nil {
		t.Fatalf("route: %v", err)
	}

	leftProb := Sigmoid(0.5)
	expected := []float64{1.0, leftProb, 1.0 - leftProb}
	for q, want := range expected {
		if math.Abs(probs.At(0, q)-want) > 1e-12 {
			t.Fatalf("probs[0][%d] = %.12f, want %.12f", q, probs.At(0, q), want)
		}
	}
}

func TestTwoRowsThreeLevels(t *testing.T) {
	parameters := mat.NewDense(3, 2, []float64{
		1.0, 0.5,
		-0.3, 0.8,
		0.2, -0.7,
	})
	tree, err := NewRoutingTree(
		RoutingConfig{LayerNum: 1, MaxNodes: 7, NumFeaturesPerNode: 2, RandomSeed: 5},
		parameters,
		[]float64{0.1, -0.2, 0.3},
	)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	tree.Selector = identitySelector{}

	inputData := mat.NewDense(2, 4, []float64{
		1.0, 0.0, 2.0, -1.0,
		0.0, 1.0, -2.0, 1.0,
	})
	probs, err := tree.RouteProbabilities(inputData, 1)
	if err != nil {
		t.Fatalf("route: %v", err)
	}

	for p := 0; p < 2; p++ {
		if probs.At(p, 0) != 1.0 {
			t.Fatalf("root probability of row %d = %v, want exactly 1", p, probs.At(p, 0))
		}
		for j := 0; j < 3; j++ {
			sum := probs.At(p, 2*j+1) + probs.At(p, 2*j+2)
			if math.Abs(sum-probs.At(p, j)) > 1e-9 {
				t.Fatalf("row %d node %d: children sum %.12f, parent %.12f", p, j, sum, probs.At(p, j))
			}
		}
		for q := 0; q < 7; q++ {
			if probs.At(p, q) < 0 || probs.At(p, q) > 1 {
				t.Fatalf("probs[%d][%d] = %v out of [0, 1]", p, q, probs.At(p, q))
			}
		}
	}

	// Same weights and biases for both rows; the split at the root is driven by
	// the features alone. Row 0 dot = 1.0, row 1 dot = 0.5.
	if probs.At(0, 1) == probs.At(1, 1) {
		t.Fatal("rows with different features got an identical root split")
	}
}

func buildWideTree(t *testing.T) *RoutingTree {
	t.Helper()
	internal := 7
	raw := make([]float64, internal*3)
	for p := range raw {
		raw[p] = math.Sin(float64(p)*1.7) * 0.9
	}
	biases := make([]float64, internal)
	for p := range biases {
		biases[p] = math.Cos(float64(p)) * 0.4
	}
	tree, err := NewRoutingTree(
		RoutingConfig{LayerNum: 2, MaxNodes: 15, NumFeaturesPerNode: 3, RandomSeed: 42},
		mat.NewDense(internal, 3, raw),
		biases,
	)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	return tree
}

func buildWideBatch(rows, cols int) *mat.Dense {
	raw := make([]float64, rows*cols)
	for p := range raw {
		raw[p] = math.Sin(float64(p)*0.37) * 2.0
	}
	return mat.NewDense(rows, cols, raw)
}

func TestDefaultSelectorProperties(t *testing.T) {
	tree := buildWideTree(t)
	inputData := buildWideBatch(5, 6)

	probs, err := tree.RouteProbabilities(inputData, 1)
	if err != nil {
		t.Fatalf("route: %v", err)
	}

	for p := 0; p < 5; p++ {
		if probs.At(p, 0) != 1.0 {
			t.Fatalf("root probability of row %d = %v, want exactly 1", p, probs.At(p, 0))
		}
		for j := 0; j < 7; j++ {
			sum := probs.At(p, 2*j+1) + probs.At(p, 2*j+2)
			if math.Abs(sum-probs.At(p, j)) > 1e-9 {
				t.Fatalf("row %d node %d: children sum %.12f, parent %.12f", p, j, sum, probs.At(p, j))
			}
		}
		for q := 0; q < 15; q++ {
			if probs.At(p, q) < 0 || probs.At(p, q) > 1 {
				t.Fatalf("probs[%d][%d] = %v out of [0, 1]", p, q, probs.At(p, q))
			}
		}
	}
}

func TestRoutingIsDeterministic(t *testing.T) {
	tree := buildWideTree(t)
	inputData := buildWideBatch(9, 6)

	first, err := tree.RouteProbabilities(inputData, 1)
	if err != nil {
		t.Fatalf("first route: %v", err)
	}
	second, err := tree.RouteProbabilities(inputData, 1)
	if err != nil {
		t.Fatalf("second route: %v", err)
	}

	h, w := first.Dims()
	for p := 0; p < h; p++ {
		for q := 0; q < w; q++ {
			if first.At(p, q) != second.At(p, q) {
				t.Fatalf("probs[%d][%d] differ between runs: %v vs %v", p, q, first.At(p, q), second.At(p, q))
			}
		}
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	tree := buildWideTree(t)
	inputData := buildWideBatch(37, 6)

	sequential, err := tree.RouteProbabilities(inputData, 1)
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	parallel, err := tree.RouteProbabilities(inputData, 4)
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}

	h, w := sequential.Dims()
	for p := 0; p < h; p++ {
		for q := 0; q < w; q++ {
			if sequential.At(p, q) != parallel.At(p, q) {
				t.Fatalf("probs[%d][%d] differ: sequential %v, parallel %v", p, q, sequential.At(p, q), parallel.At(p, q))
			}
		}
	}
}

func TestEmptyBatch(t *testing.T) {
	tree := buildWideTree(t)

	probs, err := tree.RouteProbabilities(&mat.Dense{}, 1)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	h, w := probs.Dims()
	if h != 0 || w != 0 {
		t.Fatalf("empty batch produced a %dx%d map", h, w)
	}
}

func TestConfigValidation(t *testing.T) {
	parameters := mat.NewDense(3, 2, nil)
	biases := []float64{0, 0, 0}

	if _, err := NewRoutingTree(RoutingConfig{MaxNodes: 6, NumFeaturesPerNode: 2}, parameters, biases); err == nil {
		t.Fatal("max_nodes 6 is not a complete binary tree capacity, expected an error")
	}
	if _, err := NewRoutingTree(RoutingConfig{MaxNodes: 7, NumFeaturesPerNode: 0}, parameters, biases); err == nil {
		t.Fatal("zero features per node, expected an error")
	}
	if _, err := NewRoutingTree(RoutingConfig{MaxNodes: 7, NumFeaturesPerNode: 3}, parameters, biases); err == nil {
		t.Fatal("parameter width 2 against num_features_per_node 3, expected an error")
	}
	if _, err := NewRoutingTree(RoutingConfig{MaxNodes: 7, NumFeaturesPerNode: 2}, parameters, []float64{0}); err == nil {
		t.Fatal("one bias for three internal nodes, expected an error")
	}
	if _, err := NewRoutingTree(RoutingConfig{MaxNodes: 7, NumFeaturesPerNode: 2}, mat.NewDense(2, 2, nil), biases); err == nil {
		t.Fatal("two parameter rows for three internal nodes, expected an error")
	}
}

func TestSingleNodeTree(t *testing.T) {
	tree, err := NewRoutingTree(
		RoutingConfig{MaxNodes: 1, NumFeaturesPerNode: 1, RandomSeed: 3},
		mat.NewDense(1, 1, []float64{1.0}),
		[]float64{0.0},
	)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}

	probs, err := tree.RouteProbabilities(mat.NewDense(2, 1, []float64{1, 2}), 1)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	for p := 0; p < 2; p++ {
		if probs.At(p, 0) != 1.0 {
			t.Fatalf("row %d root = %v, want exactly 1", p, probs.At(p, 0))
		}
	}
}
