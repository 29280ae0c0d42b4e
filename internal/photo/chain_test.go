package photo

import (
	"testing"

	"github.com/sitewalk/planmark/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func link(seq int, parent *core.ID) core.PhotoMarker {
	return core.PhotoMarker{ID: core.NewID(), Sequence: seq, ParentID: parent}
}

func TestChain_Rehead(t *testing.T) {
	head := link(1, nil)
	b := link(4, core.IDPtr(head.ID))
	c := link(2, core.IDPtr(head.ID))

	rest, err := Chain{head, b, c}.Without(head.ID).Rehead()
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, c.ID, rest[0].ID, "lowest sequence becomes primary")
	assert.Nil(t, rest[0].ParentID)
	assert.Equal(t, c.ID, *rest[1].ParentID)
}

func TestChain_ReheadEmpty(t *testing.T) {
	head := link(1, nil)
	rest, err := Chain{head}.Without(head.ID).Rehead()
	require.NoError(t, err)
	assert.Empty(t, rest)
}

func TestChain_DoesNotMutateInput(t *testing.T) {
	head := link(1, nil)
	child := link(2, core.IDPtr(head.ID))
	in := Chain{child, head}

	_, err := in.Without(head.ID).Rehead()
	require.NoError(t, err)
	assert.Equal(t, head.ID, *in[0].ParentID)
}

func TestChain_Validate(t *testing.T) {
	head := link(1, nil)
	other := link(2, nil)

	tests := []struct {
		name  string
		chain Chain
		ok    bool
	}{
		{"empty", Chain{}, true},
		{"single primary", Chain{head}, true},
		{"child points at head", Chain{head, link(2, core.IDPtr(head.ID))}, true},
		{"two primaries", Chain{head, other}, false},
		{"no primary", Chain{link(1, core.IDPtr(head.ID))}, false},
		{"unordered", Chain{head, link(1, core.IDPtr(head.ID))}, false},
		{"foreign parent", Chain{head, link(3, core.IDPtr(other.ID))}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.chain.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, core.ErrValidation)
			}
		})
	}
}

func TestChain_Head(t *testing.T) {
	head := link(1, nil)
	got, err := Chain{head, link(2, core.IDPtr(head.ID))}.Head()
	require.NoError(t, err)
	assert.Equal(t, head.ID, got.ID)

	_, err = Chain{}.Head()
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestPager(t *testing.T) {
	group := []core.PhotoMarker{link(1, nil), link(2, nil), link(3, nil)}
	p := NewPager(group)

	assert.Equal(t, 3, p.Len())
	assert.Equal(t, "1 / 3", p.Label())
	assert.False(t, p.Prev())
	assert.True(t, p.Next())
	assert.True(t, p.Next())
	assert.False(t, p.Next())
	assert.Equal(t, 2, p.Index())
	cur, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, group[2].ID, cur.ID)
	assert.True(t, p.Prev())
	assert.Equal(t, "2 / 3", p.Label())

	empty := NewPager(nil)
	_, ok = empty.Current()
	assert.False(t, ok)
	assert.Equal(t, "0 / 0", empty.Label())
}
