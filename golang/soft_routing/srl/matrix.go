package srl

import (
	"log"
	"os"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

//HandleError panics on any non-nil error. Library entry points return errors;
//this helper is for CLI and model dump paths where aborting is the right reaction.
func HandleError(err error) {
	if err != nil {
		log.Panic(err)
	}
}

//Height returns the number of rows of a matrix.
func Height(denseMat *mat.Dense) int {
	h, _ := denseMat.Dims()
	return h
}

//ReadNpy reads the content of an npy file into a dense matrix.
func ReadNpy(fileName string) (denseMat *mat.Dense) {
	f, err := os.Open(fileName)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { HandleError(f.Close()) }()

	r, err := npyio.NewReader(f)
	if err != nil {
		log.Fatal(err)
	}

	denseMat = &mat.Dense{}
	HandleError(r.Read(denseMat))
	return
}

//WriteNpy writes a dense matrix into an npy file.
func WriteNpy(fileName string, denseMat *mat.Dense) {
	dst, err := os.Create(fileName)
	HandleError(err)
	defer func() { HandleError(dst.Close()) }()

	HandleError(npyio.Write(dst, denseMat))
}

//ColumnVector flattens a single column or single row matrix into a slice. Bias
//files come in both orientations depending on how they were exported.
func ColumnVector(denseMat *mat.Dense) []float64 {
	h, w := denseMat.Dims()
	if w == 1 {
		values := make([]float64, h)
		for p := 0; p < h; p++ {
			values[p] = denseMat.At(p, 0)
		}
		return values
	}
	if h == 1 {
		values := make([]float64, w)
		for q := 0; q < w; q++ {
			values[q] = denseMat.At(0, q)
		}
		return values
	}
	log.Panicf("expected a vector shaped matrix, got %dx%d", h, w)
	return nil
}
