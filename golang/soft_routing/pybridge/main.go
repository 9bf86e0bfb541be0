// SPDX-License-Identifier: Apache-2.0

package main

/*
#cgo CFLAGS: -I.
#include <stdlib.h>
*/
import "C"

import (
	"errors"
	"io"
	"log"
	"sync"
	"unsafe"

	srl "github.com/tarstars/soft_tree_routing/golang/soft_routing/srl"
	"gonum.org/v1/gonum/mat"
)

var (
	lastErrorMu sync.Mutex
	lastError   string

	logSilenceOnce sync.Once
)

func setLastError(err error) {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	if err != nil {
		lastError = err.Error()
	} else {
		lastError = ""
	}
}

func getLastError() string {
	lastErrorMu.Lock()
	defer lastErrorMu.Unlock()
	return lastError
}

func copyFloatSlice(ptr *C.double, length int) ([]float64, error) {
	if length < 0 {
		return nil, errors.New("negative length")
	}
	if length == 0 {
		return nil, nil
	}
	if ptr == nil {
		return nil, errors.New("null pointer for non-empty slice")
	}
	src := unsafe.Slice((*float64)(unsafe.Pointer(ptr)), length)
	dst := make([]float64, length)
	copy(dst, src)
	return dst, nil
}

func buildDense(ptr *C.double, rows, cols C.int) (*mat.Dense, error) {
	r := int(rows)
	c := int(cols)
	if r < 0 || c < 0 {
		return nil, errors.New("invalid matrix dimensions")
	}
	if r == 0 || c == 0 {
		return &mat.Dense{}, nil
	}
	data, err := copyFloatSlice(ptr, r*c)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(r, c, data), nil
}

//export RouteProbabilities
func RouteProbabilities(
	inputPtr *C.double,
	rows C.int,
	cols C.int,
	parametersPtr *C.double,
	paramRows C.int,
	paramCols C.int,
	biasesPtr *C.double,
	biasLen C.int,
	layerNum C.int,
	maxNodes C.int,
	numFeaturesPerNode C.int,
	randomSeed C.int,
	threadsNum C.int,
	outPtr *C.double,
) C.int {
	setLastError(nil)
	logSilenceOnce.Do(func() {
		log.SetOutput(io.Discard)
	})

	inputData, err := buildDense(inputPtr, rows, cols)
	if err != nil {
		setLastError(err)
		return 1
	}

	parameters, err := buildDense(parametersPtr, paramRows, paramCols)
	if err != nil {
		setLastError(err)
		return 2
	}

	biases, err := copyFloatSlice(biasesPtr, int(biasLen))
	if err != nil {
		setLastError(err)
		return 3
	}

	tree, err := srl.NewRoutingTree(srl.RoutingConfig{
		LayerNum:           int(layerNum),
		MaxNodes:           int(maxNodes),
		NumFeaturesPerNode: int(numFeaturesPerNode),
		RandomSeed:         int(randomSeed),
	}, parameters, biases)
	if err != nil {
		setLastError(err)
		return 4
	}

	probs, err := tree.RouteProbabilities(inputData, int(threadsNum))
	if err != nil {
		setLastError(err)
		return 5
	}

	numData := srl.Height(probs)
	if numData == 0 {
		return 0
	}
	if outPtr == nil {
		setLastError(errors.New("null output pointer for non-empty batch"))
		return 6
	}

	out := unsafe.Slice((*float64)(unsafe.Pointer(outPtr)), numData*int(maxNodes))
	for p := 0; p < numData; p++ {
		copy(out[p*int(maxNodes):(p+1)*int(maxNodes)], probs.RawRowView(p))
	}
	return 0
}

//export LastError
func LastError() *C.char {
	return C.CString(getLastError())
}

//export FreeCString
func FreeCString(ptr *C.char) {
	C.free(unsafe.Pointer(ptr))
}

func main() {}
