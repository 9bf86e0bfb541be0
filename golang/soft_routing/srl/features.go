package srl

import "math/rand"

//FeatureSelector picks the subset of input features a node decision is allowed to use.
//Implementations must be deterministic: identical arguments always yield an identical
//sequence of indices, each in [0, numFeatures).
type FeatureSelector interface {
	Select(layerNum, index, randomSeed, numFeatures, numFeaturesPerNode int) []int
}

//KFeatureSelector is the default deterministic selector. The subset is drawn from a
//generator seeded only by (layerNum, index, randomSeed), so repeated calls and
//repeated runs reproduce the same subset bit for bit.
type KFeatureSelector struct{}

//Select returns numFeaturesPerNode feature indices, drawn with replacement.
func (KFeatureSelector) Select(layerNum, index, randomSeed, numFeatures, numFeaturesPerNode int) []int {
	seed := int64(randomSeed)
	seed = seed*1000003 + int64(layerNum)
	seed = seed*1000003 + int64(index)
	rng := rand.New(rand.NewSource(seed))

	features := make([]int, numFeaturesPerNode)
	for p := range features {
		features[p] = rng.Intn(numFeatures)
	}
	return features
}
