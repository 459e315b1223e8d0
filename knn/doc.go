// Package knn runs leave-one-out k-nearest-neighbor classification
// experiments on precomputed distance or similarity matrices.
//
// It is used to measure whether a rescaled matrix, for example one produced
// by mutprox, classifies better than the original:
//
//	res, err := knn.Classify(d, labels, []int{1, 5, 10}, knn.WithSeed(1))
//	// res.PerK[0].Accuracy is the 1-NN accuracy
package knn
