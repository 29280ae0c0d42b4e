package photo

import (
	"fmt"

	"github.com/sitewalk/planmark/pkg/core"
)

// Pager steps through the photos of one group.
type Pager struct {
	photos []core.PhotoMarker
	index  int
}

// NewPager pages over group, starting at the first photo.
func NewPager(group []core.PhotoMarker) *Pager {
	return &Pager{photos: group}
}

// Len returns the number of photos.
func (p *Pager) Len() int {
	return len(p.photos)
}

// Index returns the zero-based position of the current photo.
func (p *Pager) Index() int {
	return p.index
}

// Current returns the photo on display.
func (p *Pager) Current() (core.PhotoMarker, bool) {
	if len(p.photos) == 0 {
		return core.PhotoMarker{}, false
	}
	return p.photos[p.index], true
}

// Next moves forward; it reports false on the last photo.
func (p *Pager) Next() bool {
	if p.index+1 >= len(p.photos) {
		return false
	}
	p.index++
	return true
}

// Prev moves back; it reports false on the first photo.
func (p *Pager) Prev() bool {
	if p.index == 0 {
		return false
	}
	p.index--
	return true
}

// Label renders the position as "2 / 5".
func (p *Pager) Label() string {
	if len(p.photos) == 0 {
		return "0 / 0"
	}
	return fmt.Sprintf("%d / %d", p.index+1, len(p.photos))
}
