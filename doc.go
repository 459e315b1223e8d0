// Package mutprox rescales distance and similarity matrices with Mutual
// Proximity (MP) to reduce hubness.
//
// In high-dimensional data a few points, the hubs, appear among the nearest
// neighbors of very many other points, while others never do. MP replaces
// every distance d(x, y) by the probability that y is farther from x than
// other points are, jointly with the same from y's point of view. The result
// is symmetric and can replace the input in any nearest-neighbor method.
//
// Basic usage:
//
//	cfg := mutprox.DefaultConfig()
//	cfg.Policy = mutprox.PolicyGaussian
//	dmp, err := mutprox.Rescale(ctx, d, cfg)
//
// For repeated calls, sparse matrices or memory-mapped matrices:
//
//	e, err := mutprox.New(cfg)
//	dmp, err := e.RescaleDense(ctx, d)
//	smp, err := e.RescaleSparse(ctx, csr)
//	out, err := e.RescaleDisk(ctx, diskMatrix)
//
// # Policies
//
// PolicyEmpirical counts neighbors exactly and costs O(n^3). The other
// policies model the distances of each point with a distribution:
//
//	mutprox.PolicyJointGaussian // bivariate normal per pair, dense only
//	mutprox.PolicyGaussian      // independent normal per point
//	mutprox.PolicyGamma         // independent Gamma per point
//
// # Parallelism
//
// Rows are split into Config.Workers contiguous batches of equal cost
// (PlanBatches). Each batch is rescaled by its own goroutine and the partial
// results are merged in completion order; the output does not depend on the
// number of workers.
//
// # Large matrices
//
// Distribution parameters are estimated in memory, from a row sample, or
// column by column, chosen from the matrix size and the free memory
// (Config.Estimation). DiskMatrix maps raw float64 files so that matrices
// larger than memory can be rescaled into a new mapped file.
package mutprox
