package srl

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

//DenseFromTensor converts a batch tensor into a dense matrix for routing. The batch
//must be rank-2 float64; an empty batch (zero leading dimension) is accepted with
//any rank and yields an empty matrix. The returned matrix shares the tensor's
//backing data, the caller must not mutate the tensor while routing.
func DenseFromTensor(batch *tensor.Dense) (*mat.Dense, error) {
	if batch == nil {
		return nil, fmt.Errorf("nil input tensor")
	}

	shape := batch.Shape()
	if len(shape) > 0 && shape[0] == 0 {
		return &mat.Dense{}, nil
	}
	if batch.Dims() != 2 {
		return nil, fmt.Errorf("input data should be two-dimensional, got rank %d", batch.Dims())
	}
	if batch.Dtype() != tensor.Float64 {
		return nil, fmt.Errorf("input data should be float64, got %v", batch.Dtype())
	}

	data, ok := batch.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("input data backing store is not []float64")
	}
	return mat.NewDense(shape[0], shape[1], data), nil
}

//RouteTensor validates the rank of a batch tensor and routes it through the tree.
func (tree *RoutingTree) RouteTensor(batch *tensor.Dense, threadsNum int) (*mat.Dense, error) {
	inputData, err := DenseFromTensor(batch)
	if err != nil {
		return nil, err
	}
	return tree.RouteProbabilities(inputData, threadsNum)
}
