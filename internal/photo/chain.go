package photo

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/sitewalk/planmark/pkg/core"
)

// Chain is a photo group ordered by sequence number. The head is the primary
// marker and every other link points at it.
type Chain []core.PhotoMarker

// sorted returns a sequence-ordered copy.
func (c Chain) sorted() Chain {
	out := slices.Clone(c)
	slices.SortStableFunc(out, func(a, b core.PhotoMarker) int { return cmp.Compare(a.Sequence, b.Sequence) })
	return out
}

// Without returns the sequence-ordered chain minus id.
func (c Chain) Without(id core.ID) Chain {
	return slices.DeleteFunc(c.sorted(), func(p core.PhotoMarker) bool { return p.ID == id })
}

// Rehead makes the lowest-sequence link the primary and points every other link
// at it. The result is validated before it is returned.
func (c Chain) Rehead() (Chain, error) {
	out := c.sorted()
	if len(out) == 0 {
		return out, nil
	}
	head := out[0].ID
	out[0].ParentID = nil
	for i := 1; i < len(out); i++ {
		out[i].ParentID = core.IDPtr(head)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// Head returns the primary marker.
func (c Chain) Head() (core.PhotoMarker, error) {
	if err := c.Validate(); err != nil {
		return core.PhotoMarker{}, err
	}
	if len(c) == 0 {
		return core.PhotoMarker{}, fmt.Errorf("%w: empty photo group", core.ErrNotFound)
	}
	for _, p := range c {
		if p.IsPrimary() {
			return p, nil
		}
	}
	return core.PhotoMarker{}, fmt.Errorf("%w: photo group has no primary", core.ErrValidation)
}

// Validate checks that the chain has exactly one primary, that every other link
// points at it and that sequence numbers strictly increase.
func (c Chain) Validate() error {
	if len(c) == 0 {
		return nil
	}
	var head *core.ID
	for i, p := range c {
		if i > 0 && p.Sequence <= c[i-1].Sequence {
			return fmt.Errorf("%w: photo group not ordered by sequence at %s", core.ErrValidation, p.ID)
		}
		if p.IsPrimary() {
			if head != nil {
				return fmt.Errorf("%w: photo group has more than one primary", core.ErrValidation)
			}
			head = core.IDPtr(p.ID)
		}
	}
	if head == nil {
		return fmt.Errorf("%w: photo group has no primary", core.ErrValidation)
	}
	for _, p := range c {
		if !p.IsPrimary() && *p.ParentID != *head {
			return fmt.Errorf("%w: photo %s points outside its group", core.ErrValidation, p.ID)
		}
	}
	return nil
}
