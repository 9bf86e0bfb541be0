package srl

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

//RoutingConfig fixes the shape of one soft decision tree. LayerNum identifies the
//position of the tree in a layered cascade and only enters the feature subset seed.
//MaxNodes is the capacity of the complete binary tree including leaf slots, so it
//has to be 2^depth - 1. RandomSeed is the base seed for feature selection.
type RoutingConfig struct {
	LayerNum           int `json:"layer_num"`
	MaxNodes           int `json:"max_nodes"`
	NumFeaturesPerNode int `json:"num_features_per_node"`
	RandomSeed         int `json:"random_seed"`
}

//Validate checks that the configuration describes a complete binary tree before any
//output is allocated.
func (config RoutingConfig) Validate() error {
	if config.MaxNodes < 1 {
		return fmt.Errorf("max_nodes must be positive, got %d", config.MaxNodes)
	}
	if config.MaxNodes&(config.MaxNodes+1) != 0 {
		return fmt.Errorf("max_nodes must be a complete binary tree capacity 2^d-1, got %d", config.MaxNodes)
	}
	if config.NumFeaturesPerNode < 1 {
		return fmt.Errorf("num_features_per_node must be positive, got %d", config.NumFeaturesPerNode)
	}
	return nil
}

//InternalNodes returns the number of decision nodes, the first half of the capacity.
func (config RoutingConfig) InternalNodes() int {
	return config.MaxNodes / 2
}

//RoutingTree holds the logistic parameters of one soft decision tree. Parameters has
//one weight row of length NumFeaturesPerNode per internal node and Biases one scalar
//per internal node. Selector and Split may be replaced before routing; when nil the
//defaults KFeatureSelector and LeftProbabilityK are used.
type RoutingTree struct {
	Config     RoutingConfig
	Parameters *mat.Dense
	Biases     []float64

	Selector FeatureSelector
	Split    SplitProbabilityFunc
}

//NewRoutingTree builds a routing tree and validates the parameter dimensions against
//the configuration.
func NewRoutingTree(config RoutingConfig, parameters *mat.Dense, biases []float64) (*RoutingTree, error) {
	tree := &RoutingTree{Config: config, Parameters: parameters, Biases: biases}
	if err := tree.validate(); err != nil {
		return nil, err
	}
	return tree, nil
}

func (tree *RoutingTree) validate() error {
	if err := tree.Config.Validate(); err != nil {
		return err
	}
	if tree.Parameters == nil {
		return fmt.Errorf("nil tree parameters")
	}
	paramH, paramW := tree.Parameters.Dims()
	if paramH < tree.Config.InternalNodes() {
		return fmt.Errorf("tree parameters have %d rows, need at least %d internal nodes", paramH, tree.Config.InternalNodes())
	}
	if paramW != tree.Config.NumFeaturesPerNode {
		return fmt.Errorf("tree parameters have %d columns, want num_features_per_node %d", paramW, tree.Config.NumFeaturesPerNode)
	}
	if len(tree.Biases) < tree.Config.InternalNodes() {
		return fmt.Errorf("tree biases have %d entries, need at least %d internal nodes", len(tree.Biases), tree.Config.InternalNodes())
	}
	return nil
}

func (tree *RoutingTree) selector() FeatureSelector {
	if tree.Selector != nil {
		return tree.Selector
	}
	return KFeatureSelector{}
}

func (tree *RoutingTree) split() SplitProbabilityFunc {
	if tree.Split != nil {
		return tree.Split
	}
	return LeftProbabilityK
}

//RouteProbabilities computes, for every input row, the probability of reaching every
//node of the tree. The result has one row per input row and MaxNodes columns; column
//0 is always exactly 1 and for every internal node j the children columns 2j+1 and
//2j+2 sum to column j. An empty batch yields an empty matrix. With threadsNum above
//one the rows are routed by a worker pool; rows are independent, so the outcome does
//not depend on threadsNum.
func (tree *RoutingTree) RouteProbabilities(inputData *mat.Dense, threadsNum int) (*mat.Dense, error) {
	if err := tree.validate(); err != nil {
		return nil, err
	}
	if inputData == nil {
		return nil, fmt.Errorf("nil input data")
	}

	numData, numFeatures := inputData.Dims()
	if numData == 0 {
		return &mat.Dense{}, nil
	}
	if numFeatures == 0 {
		return nil, fmt.Errorf("input data has no feature columns")
	}

	outProbs := mat.NewDense(numData, tree.Config.MaxNodes, nil)

	if threadsNum <= 1 {
		for i := 0; i < numData; i++ {
			tree.routeRow(inputData, outProbs, i, numFeatures)
		}
		return outProbs, nil
	}

	taskPool := NewPool(threadsNum)
	chunk := (numData + threadsNum - 1) / threadsNum
	for begin := 0; begin < numData; begin += chunk {
		end := begin + chunk
		if end > numData {
			end = numData
		}
		taskPool.AddTask(&TaskRouteRows{tree, inputData, outProbs, begin, end, numFeatures})
	}
	taskPool.Close()
	taskPool.WaitAll()

	return outProbs, nil
}

//routeRow propagates the routing probability of one row from the root down the tree.
//Decision nodes are visited in increasing index order, so a parent value is final
//before its children are written.
func (tree *RoutingTree) routeRow(inputData, outProbs *mat.Dense, row, numFeatures int) {
	point := inputData.RawRowView(row)
	probs := outProbs.RawRowView(row)
	selector := tree.selector()
	split := tree.split()

	probs[0] = 1.0

	for j := 0; j < tree.Config.InternalNodes(); j++ {
		// The subset is reselected on every node visit but seeded with the row
		// index, so all nodes of a row share one subset. Seeding with the node
		// index instead would break reproduction of existing model outputs.
		featureSet := selector.Select(tree.Config.LayerNum, row, tree.Config.RandomSeed, numFeatures, tree.Config.NumFeaturesPerNode)

		leftChild := 2*j + 1
		rightChild := leftChild + 1

		leftProb := split(point, featureSet, tree.Parameters.RawRowView(j), tree.Biases[j], numFeatures, tree.Config.NumFeaturesPerNode)

		probs[leftChild] = probs[j] * leftProb
		probs[rightChild] = probs[j] * (1.0 - leftProb)
	}
}
