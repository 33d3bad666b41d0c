package orderedlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveForward(t *testing.T) {
	seq := []string{"a", "b", "c", "d"}

	got, err := Move(seq, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a", "d"}, got)
	// original untouched
	assert.Equal(t, []string{"a", "b", "c", "d"}, seq)
}

func TestMoveBackward(t *testing.T) {
	seq := []string{"a", "b", "c", "d"}

	got, err := Move(seq, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d", "b", "c"}, got)
}

func TestMoveSameIndexIsNoop(t *testing.T) {
	seq := []int{1, 2, 3}

	got, err := Move(seq, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, seq, got)
}

func TestMoveInverseRestoresOriginal(t *testing.T) {
	seq := []int{10, 20, 30, 40, 50}

	for from := 0; from < len(seq); from++ {
		for to := 0; to < len(seq); to++ {
			moved, err := Move(seq, from, to)
			require.NoError(t, err)

			back, err := Move(moved, to, from)
			require.NoError(t, err)
			assert.Equal(t, seq, back, "move(%d,%d) then move(%d,%d)", from, to, to, from)
		}
	}
}

func TestMoveIsPermutation(t *testing.T) {
	seq := []int{1, 2, 3, 4, 5}

	got, err := Move(seq, 1, 4)
	require.NoError(t, err)
	assert.ElementsMatch(t, seq, got)

	// all elements other than the moved one keep their relative order
	assert.Equal(t, []int{1, 3, 4, 5, 2}, got)
}

func TestMoveIndexValidation(t *testing.T) {
	seq := []int{1, 2, 3}

	_, err := Move(seq, -1, 0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = Move(seq, 0, 3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = Move(seq, 5, 1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestSplitSubmitOrder(t *testing.T) {
	// UI list interleaves existing files (ids) and new uploads (temp ids)
	refs := []FileRef{
		{TempID: "tmp-1", Name: "new-first.pdf"},
		{ID: 7},
		{ID: 3},
		{TempID: "tmp-2", Name: "new-second.png"},
		{ID: 9},
	}

	retained, added := SplitSubmitOrder(refs)

	// retained ids in their final relative order
	assert.Equal(t, []int64{7, 3, 9}, retained)

	// new items keep their own relative order; interleaving is not preserved
	require.Len(t, added, 2)
	assert.Equal(t, "tmp-1", added[0].TempID)
	assert.Equal(t, "tmp-2", added[1].TempID)
}

func TestSplitSubmitOrderAfterMove(t *testing.T) {
	// Scenario: files [a,b,c] persisted as ids 1,2,3; move(0,2) gives [b,c,a],
	// then a freshly added file d appends after the retained set.
	refs := []FileRef{{ID: 1}, {ID: 2}, {ID: 3}}

	moved, err := Move(refs, 0, 2)
	require.NoError(t, err)

	moved = append(moved, FileRef{TempID: "tmp-d", Name: "d.pdf"})

	retained, added := SplitSubmitOrder(moved)
	assert.Equal(t, []int64{2, 3, 1}, retained)
	require.Len(t, added, 1)
	assert.Equal(t, "tmp-d", added[0].TempID)
}
