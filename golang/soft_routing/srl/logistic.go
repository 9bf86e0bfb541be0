package srl

import "math"

//SplitProbabilityFunc computes the probability that the decision at one node sends a
//row to the left child. rowFeatures holds the full feature vector of the row,
//featureSet the indices selected for this decision, nodeWeights one weight per
//selected feature. The result lies in [0, 1] for any finite input.
type SplitProbabilityFunc func(rowFeatures []float64, featureSet []int, nodeWeights []float64, nodeBias float64, numFeatures, numFeaturesPerNode int) float64

//Sigmoid is the logistic function, computed so that large negative arguments do not
//produce NaN through overflow of exp.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1.0 / (1.0 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1.0 + e)
}

//LeftProbabilityK is the default split probability: a logistic transform of the
//weighted sum over the selected feature subset. The bias enters with a negative
//sign, matching models trained against the historical kernel.
func LeftProbabilityK(rowFeatures []float64, featureSet []int, nodeWeights []float64, nodeBias float64, numFeatures, numFeaturesPerNode int) float64 {
	dot := 0.0
	for p := 0; p < numFeaturesPerNode; p++ {
		dot += nodeWeights[p] * rowFeatures[featureSet[p]]
	}
	return Sigmoid(dot - nodeBias)
}
