package arena

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArena_InsertGet(t *testing.T) {
	a := New[string]()

	i1, err := a.Insert("a")
	require.NoError(t, err)
	i2, err := a.Insert("b")
	require.NoError(t, err)
	require.NotEqual(t, i1, i2)

	v1, err := a.Get(i1)
	require.NoError(t, err)
	require.Equal(t, "a", *v1)

	_, err = a.Get(Index(999))
	require.ErrorIs(t, err, ErrOutOfBoundsKey)
}

func TestArena_GetPair(t *testing.T) {
	a := New[int]()
	i1, _ := a.Insert(1)
	i2, _ := a.Insert(2)

	p1, p2, err := a.GetPair(i1, i2)
	require.NoError(t, err)
	*p1 = 10
	*p2 = 20

	v1, _ := a.Get(i1)
	v2, _ := a.Get(i2)
	require.Equal(t, 10, *v1)
	require.Equal(t, 20, *v2)

	_, _, err = a.GetPair(i1, i1)
	require.ErrorIs(t, err, ErrAliasingPairAccess)
}

func TestDedupArena_Interns(t *testing.T) {
	d := NewDedup[string]()

	i1, err := d.Insert("sig")
	require.NoError(t, err)
	i2, err := d.Insert("sig")
	require.NoError(t, err)
	require.Equal(t, i1, i2)
	require.Equal(t, 1, d.Len())

	i3, err := d.Insert("other")
	require.NoError(t, err)
	require.NotEqual(t, i1, i3)
}

func TestGuarded_MismatchYieldsAbsent(t *testing.T) {
	g := NewGuarded(uint32(7), Index(3))

	idx, ok := g.Index(7)
	require.True(t, ok)
	require.Equal(t, Index(3), idx)

	_, ok = g.Index(8)
	require.False(t, ok)
}
