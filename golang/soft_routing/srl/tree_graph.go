package srl

import (
	"fmt"
	"path"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"gonum.org/v1/gonum/mat"
)

//NodeDescription returns the label of one tree node for rendering. meanProbs may be
//nil when no batch statistics are available.
func (tree *RoutingTree) NodeDescription(nodeNumber int, meanProbs []float64) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintln("id: ", nodeNumber))
	if nodeNumber < tree.Config.InternalNodes() {
		sb.WriteString("w = [")
		for _, val := range tree.Parameters.RawRowView(nodeNumber) {
			sb.WriteString(fmt.Sprintf(" %6.3f", val))
		}
		sb.WriteString(" ]\n")
		sb.WriteString(fmt.Sprintf("b = %6.3f\n", tree.Biases[nodeNumber]))
	}
	if meanProbs != nil {
		sb.WriteString(fmt.Sprintf("mean p = %6.4f", meanProbs[nodeNumber]))
	}
	return sb.String()
}

func recurrentDraw(g *cgraph.Graph, tree *RoutingTree, nodeNumber int, parentNode *cgraph.Node, meanProbs []float64) {
	currentNode, err := g.CreateNode(fmt.Sprint(nodeNumber))
	HandleError(err)

	if parentNode != nil {
		_, err = g.CreateEdge("", parentNode, currentNode)
		HandleError(err)
	}

	currentNode.Set("label", tree.NodeDescription(nodeNumber, meanProbs))

	leftChild := 2*nodeNumber + 1
	if leftChild >= tree.Config.MaxNodes {
		currentNode.Set("shape", "box")
		return
	}
	recurrentDraw(g, tree, leftChild, currentNode, meanProbs)
	recurrentDraw(g, tree, leftChild+1, currentNode, meanProbs)
}

//DrawGraph renders the complete binary tree of the receiver. meanProbs, when not
//nil, holds one mean routing probability per node and is shown on every label.
func (tree *RoutingTree) DrawGraph(meanProbs []float64) (*graphviz.Graphviz, *cgraph.Graph) {
	graphViz := graphviz.New()
	graph, err := graphViz.Graph()
	HandleError(err)

	recurrentDraw(graph, tree, 0, nil, meanProbs)

	return graphViz, graph
}

//RenderTrees dumps one figure per cascade layer.
func (cascade Cascade) RenderTrees(dumpPrefix, figureType, picturesDirectory string, meanProbs [][]float64) {
	graphvizType := map[string]graphviz.Format{
		"png": graphviz.PNG,
		"svg": graphviz.SVG,
		"jpg": graphviz.JPG,
	}[figureType]

	for graphInd, currentTree := range cascade.Trees {
		var currentMeans []float64
		if meanProbs != nil {
			currentMeans = meanProbs[graphInd]
		}
		filename := fmt.Sprintf("%s_%05d.%s", dumpPrefix, graphInd, figureType)
		graphViz, graph := currentTree.DrawGraph(currentMeans)
		HandleError(graphViz.RenderFilename(graph, graphvizType, path.Join(picturesDirectory, filename)))
	}
}

//MeanNodeProbabilities averages a probability map over its rows, giving one mean
//reach probability per tree node.
func MeanNodeProbabilities(probs *mat.Dense) []float64 {
	h, w := probs.Dims()
	if h == 0 {
		return nil
	}
	means := make([]float64, w)
	for q := 0; q < w; q++ {
		s := 0.0
		for p := 0; p < h; p++ {
			s += probs.At(p, q)
		}
		means[q] = s / float64(h)
	}
	return means
}
