package tax

import (
	"fmt"
	"maps"
	"slices"

	"github.com/bookkeep/backend/internal/domain/shared/valueobject"
)

// ManualOverride is an operator-entered tax amount that replaces the computed one.
//
// Scalar covers the simple-tax case. PerBucket covers composites and may override
// only some buckets; the rest keep their computed amounts. Basis records the bucket
// ids the override was entered against; when the lines change so that the bucket
// set differs, the override no longer applies.
//
// Passing a nil or empty override to Aggregate clears it.
type ManualOverride struct {
	Scalar    *valueobject.Money
	PerBucket map[string]valueobject.Money
	Basis     []string
}

// NewScalarOverride creates a simple-tax override without a basis
func NewScalarOverride(amount valueobject.Money) *ManualOverride {
	return &ManualOverride{Scalar: &amount}
}

// IsEmpty reports whether the override carries no values
func (o *ManualOverride) IsEmpty() bool {
	return o == nil || (o.Scalar == nil && len(o.PerBucket) == 0)
}

// WithBucket returns a copy with one bucket overridden
func (o *ManualOverride) WithBucket(id string, amount valueobject.Money) *ManualOverride {
	next := o.clone()
	next.Scalar = nil
	next.PerBucket[id] = amount
	return next
}

// ClearBucket returns a copy without the override for one bucket
func (o *ManualOverride) ClearBucket(id string) *ManualOverride {
	next := o.clone()
	delete(next.PerBucket, id)
	return next
}

func (o *ManualOverride) clone() *ManualOverride {
	next := &ManualOverride{PerBucket: make(map[string]valueobject.Money)}
	if o == nil {
		return next
	}
	if o.Scalar != nil {
		v := *o.Scalar
		next.Scalar = &v
	}
	maps.Copy(next.PerBucket, o.PerBucket)
	next.Basis = slices.Clone(o.Basis)
	return next
}

// ScalarOverride builds an override of the whole tax amount anchored to this snapshot's buckets
func (s TotalsSnapshot) ScalarOverride(amount valueobject.Money) *ManualOverride {
	return &ManualOverride{Scalar: &amount, Basis: s.BucketIDs()}
}

// BucketOverride adds or replaces one bucket's override on top of prev, anchored to this snapshot
func (s TotalsSnapshot) BucketOverride(prev *ManualOverride, id string, amount valueobject.Money) *ManualOverride {
	next := prev.WithBucket(id, amount)
	next.Basis = s.BucketIDs()
	return next
}

// applyOverride reconciles an override against freshly computed buckets and
// sets TaxAmount/OverrideActive on the snapshot. It returns warnings for parts
// of the override that could not be applied.
func applyOverride(snap *TotalsSnapshot, o ManualOverride) []Issue {
	if len(o.Basis) > 0 && !sameIDs(o.Basis, snap.BucketIDs()) {
		return []Issue{newIssue(IssueStaleOverride, "",
			"tax lines changed since the override was entered; computed tax restored")}
	}

	if len(o.PerBucket) > 0 {
		return applyBucketOverride(snap, o.PerBucket)
	}

	if snap.HasComponentBuckets() {
		return []Issue{newIssue(IssueOverrideScope, "",
			"a single tax amount cannot override composite components; override each component instead")}
	}
	v, issue := checkOverrideAmount(*o.Scalar, snap.Currency, "")
	if issue != nil {
		return []Issue{*issue}
	}
	snap.TaxAmount = v
	snap.OverrideActive = true
	if len(snap.Buckets) == 1 {
		snap.Buckets[0].Override = &v
	}
	return nil
}

func applyBucketOverride(snap *TotalsSnapshot, perBucket map[string]valueobject.Money) []Issue {
	var issues []Issue
	applied := false
	for i := range snap.Buckets {
		raw, ok := perBucket[snap.Buckets[i].TaxCodeID]
		if !ok {
			continue
		}
		v, issue := checkOverrideAmount(raw, snap.Currency, snap.Buckets[i].TaxCodeID)
		if issue != nil {
			issues = append(issues, *issue)
			continue
		}
		snap.Buckets[i].Override = &v
		applied = true
	}

	for _, id := range slices.Sorted(maps.Keys(perBucket)) {
		if _, ok := snap.Bucket(id); !ok {
			issues = append(issues, newIssue(IssueStaleOverride, id,
				fmt.Sprintf("override for tax %s ignored; no line uses it", id)))
		}
	}

	if applied {
		snap.TaxAmount = sumBuckets(snap.Buckets, valueobject.Zero(snap.Currency), Bucket.EffectiveAmount)
		snap.OverrideActive = true
	}
	return issues
}

func checkOverrideAmount(v valueobject.Money, currency valueobject.Currency, taxCodeID string) (valueobject.Money, *Issue) {
	if v.Currency() != currency {
		issue := newIssue(IssueCurrencyMismatch, taxCodeID,
			fmt.Sprintf("override currency %q differs from transaction currency %s; ignored", v.Currency(), currency))
		return valueobject.Money{}, &issue
	}
	if v.IsNegative() {
		issue := newIssue(IssueInvalidAmount, taxCodeID,
			fmt.Sprintf("override amount %s is negative; ignored", v.StringFixed()))
		return valueobject.Money{}, &issue
	}
	return v.Round2(), nil
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	return slices.Equal(slices.Sorted(slices.Values(a)), slices.Sorted(slices.Values(b)))
}
