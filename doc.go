// Package gboost is a gradient boosting library for Go modelled on the
// XGBoost learner: a configurable objective, a pluggable booster (trees or a
// linear model) and a per-dataset prediction cache that lets every boosting
// round start from the previous round's margins.
//
// # Features
//
//   - Ordered key/value configuration replayed into freshly created components
//   - Prediction buffer shared by the training set and watched eval sets
//   - Multi-class training, one output group per class
//   - Interactive boost/remove mode for editing a trained model
//   - Binary model files that resume training bit-for-bit
//   - Structured logging via zerolog and stack-carrying errors via cockroachdb/errors
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/gboost/data"
//	    "github.com/YuminosukeSato/gboost/learner"
//	)
//
//	func main() {
//	    dtrain, err := data.Load("train.txt")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    lrn := learner.New()
//	    defer lrn.Close()
//	    _ = lrn.SetParam("objective", "binary:logistic")
//	    _ = lrn.SetParam("max_depth", "3")
//	    if err := lrn.SetCacheData([]*data.DMatrix{dtrain}); err != nil {
//	        log.Fatal(err)
//	    }
//	    if err := lrn.InitModel(); err != nil {
//	        log.Fatal(err)
//	    }
//	    for i := 0; i < 10; i++ {
//	        if err := lrn.UpdateOneIter(i, dtrain); err != nil {
//	            log.Fatal(err)
//	        }
//	        line, _ := lrn.EvalOneIter(i, []*data.DMatrix{dtrain}, []string{"train"})
//	        fmt.Println(line)
//	    }
//	    if err := lrn.SaveFile("0010.model"); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Packages
//
//   - learner: Learner orchestration, prediction cache, model header
//   - gbm: Boosters (gbtree, gblinear)
//   - objective: Loss functions producing gradient pairs
//   - metrics: Evaluation metrics and EvalSet
//   - data: Sparse DMatrix, LibSVM and binary loaders
//   - report: Learning curve recording and plotting
//   - core/model: Binary stream codec and file persistence
//   - core/parallel: Parallel processing utilities
//   - cmd/boost: Command line trainer (train, pred, eval, dump)
package gboost
