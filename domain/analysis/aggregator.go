// Package analysis folds inferred sample schemas into one.
package analysis

import (
	"github.com/tmdt-buw/plasma-sub002/domain/syntax"
	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

// DefaultThreshold is the number of samples after which an aggregation is
// considered representative.
const DefaultThreshold = 20

// Aggregator keeps the running merge of all samples added so far.
type Aggregator struct {
	result    syntax.Node
	count     int
	threshold int
}

// NewAggregator creates an aggregator. A non-positive threshold selects
// DefaultThreshold.
func NewAggregator(threshold int) *Aggregator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Aggregator{threshold: threshold}
}

// AddNode merges n into the running result. A failed merge leaves the result
// and the count unchanged. Nil nodes, inferred from null samples, are counted
// but change nothing.
func (a *Aggregator) AddNode(n syntax.Node) error {
	if n == nil {
		a.count++
		return nil
	}
	if a.result == nil {
		a.result = syntax.Copy(n)
		a.count++
		return nil
	}
	merged, err := syntax.Merge(a.result, n)
	if err != nil {
		return pkgerrors.Wrapf(err, "sample %d", a.count+1)
	}
	a.result = merged
	a.count++
	return nil
}

// AddSample infers a node from one JSON document and adds it.
func (a *Aggregator) AddSample(data []byte) error {
	n, err := syntax.InferJSON(data)
	if err != nil {
		return err
	}
	return a.AddNode(n)
}

// IsReady reports whether enough samples were folded
func (a *Aggregator) IsReady() bool {
	return a.count >= a.threshold
}

// Result returns the running merge, or nil if no sample carried data
func (a *Aggregator) Result() syntax.Node {
	return a.result
}

func (a *Aggregator) Count() int { return a.count }

func (a *Aggregator) Threshold() int { return a.threshold }

// SetThreshold changes the readiness threshold
func (a *Aggregator) SetThreshold(threshold int) {
	if threshold > 0 {
		a.threshold = threshold
	}
}

// Reset discards the running result
func (a *Aggregator) Reset() {
	a.result = nil
	a.count = 0
}
