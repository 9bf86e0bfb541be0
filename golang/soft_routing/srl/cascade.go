package srl

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"gonum.org/v1/gonum/mat"
)

//Cascade is a stack of routing trees, one per layer of a layered soft forest.
//Every tree keeps its own LayerNum, parameters and biases; the trees of one
//cascade are expected to share MaxNodes and NumFeaturesPerNode.
type Cascade struct {
	Trees []*RoutingTree
}

//Route computes the per-node probability map of every layer. The result holds one
//matrix per tree, in layer order.
func (cascade Cascade) Route(inputData *mat.Dense, threadsNum int) ([]*mat.Dense, error) {
	if len(cascade.Trees) == 0 {
		return nil, fmt.Errorf("empty cascade")
	}
	allProbs := make([]*mat.Dense, len(cascade.Trees))
	for treeInd, currentTree := range cascade.Trees {
		probs, err := currentTree.RouteProbabilities(inputData, threadsNum)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", treeInd, err)
		}
		allProbs[treeInd] = probs
	}
	return allProbs, nil
}

//LeafProbabilities averages the leaf slot probabilities over all layers. Leaf slots
//are the columns from MaxNodes/2 onward; the result has one row per input row and
//MaxNodes - MaxNodes/2 columns.
func (cascade Cascade) LeafProbabilities(inputData *mat.Dense, threadsNum int) (*mat.Dense, error) {
	allProbs, err := cascade.Route(inputData, threadsNum)
	if err != nil {
		return nil, err
	}

	numData := Height(inputData)
	if numData == 0 {
		return &mat.Dense{}, nil
	}

	maxNodes := cascade.Trees[0].Config.MaxNodes
	leafBegin := cascade.Trees[0].Config.InternalNodes()
	numLeaves := maxNodes - leafBegin

	leafProbs := mat.NewDense(numData, numLeaves, nil)
	for treeInd, probs := range allProbs {
		if w := cascade.Trees[treeInd].Config.MaxNodes; w != maxNodes {
			return nil, fmt.Errorf("layer %d has max_nodes %d, cascade expects %d", treeInd, w, maxNodes)
		}
		for p := 0; p < numData; p++ {
			for q := 0; q < numLeaves; q++ {
				leafProbs.Set(p, q, leafProbs.At(p, q)+probs.At(p, leafBegin+q))
			}
		}
	}
	leafProbs.Scale(1.0/float64(len(allProbs)), leafProbs)

	return leafProbs, nil
}

//treeModel is the serialized form of one routing tree.
type treeModel struct {
	Config     RoutingConfig `json:"config"`
	Parameters [][]float64   `json:"parameters"`
	Biases     []float64     `json:"biases"`
}

//cascadeModel is the serialized form of a cascade.
type cascadeModel struct {
	Trees []treeModel `json:"trees"`
}

func (tree *RoutingTree) toModel() treeModel {
	paramH, paramW := tree.Parameters.Dims()
	parameters := make([][]float64, paramH)
	for p := 0; p < paramH; p++ {
		row := make([]float64, paramW)
		copy(row, tree.Parameters.RawRowView(p))
		parameters[p] = row
	}
	biases := make([]float64, len(tree.Biases))
	copy(biases, tree.Biases)
	return treeModel{Config: tree.Config, Parameters: parameters, Biases: biases}
}

func treeFromModel(model treeModel) (*RoutingTree, error) {
	if len(model.Parameters) == 0 {
		return nil, fmt.Errorf("tree model without parameters")
	}
	paramW := len(model.Parameters[0])
	raw := make([]float64, 0, len(model.Parameters)*paramW)
	for p, row := range model.Parameters {
		if len(row) != paramW {
			return nil, fmt.Errorf("parameter row %d has %d entries, want %d", p, len(row), paramW)
		}
		raw = append(raw, row...)
	}
	return NewRoutingTree(model.Config, mat.NewDense(len(model.Parameters), paramW, raw), model.Biases)
}

//Save dumps the cascade into a JSON model file.
func (cascade Cascade) Save(filename string) {
	dest, err := os.Create(filename)
	if err != nil {
		log.Print("can't open file ", filename, " to write")
	}
	HandleError(err)
	defer func() { HandleError(dest.Close()) }()

	var model cascadeModel
	for _, currentTree := range cascade.Trees {
		model.Trees = append(model.Trees, currentTree.toModel())
	}

	modelByteRepr, err := json.MarshalIndent(model, "", "  ")
	HandleError(err)

	_, err = dest.Write(modelByteRepr)
	HandleError(err)
}

//LoadCascade reads a cascade back from a JSON model file.
func LoadCascade(filename string) (cascade Cascade) {
	source, err := os.Open(filename)
	HandleError(err)
	defer func() { HandleError(source.Close()) }()

	var model cascadeModel
	decoder := json.NewDecoder(source)
	HandleError(decoder.Decode(&model))

	for _, currentModel := range model.Trees {
		currentTree, err := treeFromModel(currentModel)
		HandleError(err)
		cascade.Trees = append(cascade.Trees, currentTree)
	}
	return
}
