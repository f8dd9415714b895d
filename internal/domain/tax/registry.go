package tax

import (
	"fmt"
)

// Registry is a read-only lookup over the tax codes in scope for one transaction.
// It never fails on bad configuration; Validate reports problems instead.
// A nil *Registry behaves as an empty registry.
type Registry struct {
	codes      []TaxCode
	byID       map[string]int
	children   map[string][]int
	duplicates []string
}

// NewRegistry indexes codes. The first definition of a duplicated id wins.
func NewRegistry(codes []TaxCode) *Registry {
	r := &Registry{
		codes:    make([]TaxCode, 0, len(codes)),
		byID:     make(map[string]int, len(codes)),
		children: make(map[string][]int),
	}
	for _, c := range codes {
		if _, exists := r.byID[c.ID]; exists {
			r.duplicates = append(r.duplicates, c.ID)
			continue
		}
		r.byID[c.ID] = len(r.codes)
		r.codes = append(r.codes, c)
	}
	for i, c := range r.codes {
		if c.ParentID != nil {
			r.children[*c.ParentID] = append(r.children[*c.ParentID], i)
		}
	}
	return r
}

// Len returns the number of distinct codes
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.codes)
}

// GetByID looks up a code by id
func (r *Registry) GetByID(id string) (TaxCode, bool) {
	if r == nil {
		return TaxCode{}, false
	}
	i, ok := r.byID[id]
	if !ok {
		return TaxCode{}, false
	}
	return r.codes[i], true
}

// ComponentsOf returns every code whose parent is parentID, in registry order
func (r *Registry) ComponentsOf(parentID string) []TaxCode {
	if r == nil {
		return nil
	}
	idx := r.children[parentID]
	out := make([]TaxCode, 0, len(idx))
	for _, i := range idx {
		out = append(out, r.codes[i])
	}
	return out
}

// IsTopLevel reports whether code has no parent
func (r *Registry) IsTopLevel(code TaxCode) bool {
	return code.IsTopLevel()
}

// Validate reports configuration problems: duplicate ids, codes violating the
// kind invariant, components whose parent is missing or not composite, and
// composites without components.
func (r *Registry) Validate() []Issue {
	if r == nil {
		return nil
	}
	var issues []Issue
	for _, id := range r.duplicates {
		issues = append(issues, newIssue(IssueDuplicateTaxCode, id,
			fmt.Sprintf("tax code %s is defined more than once; first definition used", id)))
	}
	for _, c := range r.codes {
		if err := c.Validate(); err != nil {
			issues = append(issues, newIssue(IssueInvalidTaxCode, c.ID, err.Error()))
			continue
		}
		switch c.Kind() {
		case KindComponent:
			parent, ok := r.GetByID(*c.ParentID)
			if !ok || !parent.IsComposite {
				issues = append(issues, newIssue(IssueOrphanComponent, c.ID,
					fmt.Sprintf("component %s references %s which is not a composite tax code", c.ID, *c.ParentID)))
			}
		case KindComposite:
			if len(r.children[c.ID]) == 0 {
				issues = append(issues, newIssue(IssueEmptyComposite, c.ID,
					fmt.Sprintf("composite tax code %s has no components", c.ID)))
			}
		}
	}
	return issues
}
