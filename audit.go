package graphsnap

import (
	"fmt"
	"math"
)

// AuditReport summarizes the feature matrix of a tensor bundle.
type AuditReport struct {
	Rows         int
	BucketCounts [FeatureColumns]int
	// AllOther is set when every node landed in OtherBucket, which usually
	// means the node kinds didn't match KindBuckets.
	AllOther bool
}

// AuditBundle checks that b's feature matrix has FeatureColumns columns and
// that every row is one-hot, and counts the nodes per bucket.
func AuditBundle(b *TensorBundle) (*AuditReport, error) {
	if b == nil || b.X == nil {
		return nil, &ValidationError{MissingKeys: []string{"x"}}
	}
	x := b.X
	if x.Cols != FeatureColumns {
		return nil, &ValidationError{Detail: fmt.Sprintf("x has %d columns, must have %d", x.Cols, FeatureColumns)}
	}

	r := &AuditReport{Rows: x.Rows}
	var sums [FeatureColumns]float64
	for i := 0; i < x.Rows; i++ {
		var rowSum float64
		for j := 0; j < x.Cols; j++ {
			v := float64(x.At(i, j))
			rowSum += v
			sums[j] += v
		}
		if math.Abs(rowSum-1) > 1e-6 {
			return nil, &ValidationError{Detail: fmt.Sprintf("row %d sums to %g, rows must sum to 1", i, rowSum)}
		}
	}
	others := 0
	for j, s := range sums {
		r.BucketCounts[j] = int(s)
		if j != OtherBucket {
			others += int(s)
		}
	}
	r.AllOther = r.BucketCounts[OtherBucket] > 0 && others == 0
	return r, nil
}
