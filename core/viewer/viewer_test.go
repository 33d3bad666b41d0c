package viewer

import (
	"testing"
	"time"

	"ScoreRack/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mixedSequence() []model.ViewerItem {
	return []model.ViewerItem{
		{FileID: 1, Name: "page1.png", Kind: model.KindImage},
		{FileID: 2, Name: "score.pdf", Kind: model.KindDocument},
		{FileID: 3, Name: "guide.mp3", Kind: model.KindAudio},
	}
}

func openSession(t *testing.T) (*Manager, *Session) {
	t.Helper()
	m := NewManager(time.Minute)
	s, err := m.Open(1, mixedSequence(), 0)
	require.NoError(t, err)
	return m, s
}

func TestOpenRejectsEmptySequence(t *testing.T) {
	m := NewManager(time.Minute)

	_, err := m.Open(1, nil, 0)
	assert.ErrorIs(t, err, ErrEmptySequence)
}

func TestOpenRejectsBadStartIndex(t *testing.T) {
	m := NewManager(time.Minute)

	_, err := m.Open(1, mixedSequence(), 3)
	assert.ErrorIs(t, err, ErrStartIndexOutOfRange)

	_, err = m.Open(1, mixedSequence(), -1)
	assert.ErrorIs(t, err, ErrStartIndexOutOfRange)
}

func TestNextClampsAtEnd(t *testing.T) {
	_, s := openSession(t)

	// length-1 calls reach the last index
	s.Next()
	s.Next()
	assert.Equal(t, 2, s.Snapshot().Index)

	// further calls are no-ops
	s.Next()
	s.Next()
	assert.Equal(t, 2, s.Snapshot().Index)

	s.Previous()
	assert.Equal(t, 1, s.Snapshot().Index)
}

func TestPreviousClampsAtStart(t *testing.T) {
	_, s := openSession(t)

	s.Previous()
	assert.Equal(t, 0, s.Snapshot().Index)
}

func TestIndexChangeResetsTransform(t *testing.T) {
	_, s := openSession(t)

	// zoom 100 -> 200 on the image page
	for i := 0; i < 4; i++ {
		require.NoError(t, s.ZoomIn())
	}
	assert.Equal(t, 200, s.Snapshot().Transform.Zoom)

	s.Next()
	st := s.Snapshot()
	assert.Equal(t, 1, st.Index)
	assert.Equal(t, DefaultTransform(), st.Transform)
}

func TestTransformOnlyOnImages(t *testing.T) {
	_, s := openSession(t)

	s.Next() // pdf
	assert.ErrorIs(t, s.ZoomIn(), ErrNotTransformable)
	assert.ErrorIs(t, s.Rotate(), ErrNotTransformable)
	assert.ErrorIs(t, s.StartDrag(0, 0), ErrNotTransformable)

	s.Next() // audio
	assert.ErrorIs(t, s.ZoomIn(), ErrNotTransformable)
}

func TestZoomBounds(t *testing.T) {
	_, s := openSession(t)

	for i := 0; i < 30; i++ {
		require.NoError(t, s.ZoomIn())
	}
	assert.Equal(t, ZoomMax, s.Snapshot().Transform.Zoom)

	for i := 0; i < 30; i++ {
		require.NoError(t, s.ZoomOut())
	}
	assert.Equal(t, ZoomMin, s.Snapshot().Transform.Zoom)
}

func TestRotationWrapsAround(t *testing.T) {
	_, s := openSession(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Rotate())
	}
	assert.Equal(t, 270, s.Snapshot().Transform.Rotation)

	require.NoError(t, s.Rotate())
	assert.Equal(t, 0, s.Snapshot().Transform.Rotation)
}

func TestPanGatedOnZoom(t *testing.T) {
	_, s := openSession(t)

	// at 100% a drag must not move the pan offset
	require.NoError(t, s.StartDrag(10, 10))
	s.DragMove(50, 60)
	assert.Equal(t, Pan{}, s.Snapshot().Transform.Pan)
	s.EndDrag()

	// zoom in, then drag: offset = pointer - anchor + offsetAtDragStart
	require.NoError(t, s.ZoomIn())
	require.NoError(t, s.StartDrag(10, 10))
	s.DragMove(50, 60)
	assert.Equal(t, Pan{X: 40, Y: 50}, s.Snapshot().Transform.Pan)
	s.EndDrag()

	// a second drag continues from the existing offset
	require.NoError(t, s.StartDrag(0, 0))
	s.DragMove(5, -5)
	assert.Equal(t, Pan{X: 45, Y: 45}, s.Snapshot().Transform.Pan)
	s.EndDrag()
}

func TestZoomOutBackTo100ClearsPan(t *testing.T) {
	_, s := openSession(t)

	require.NoError(t, s.ZoomIn())
	require.NoError(t, s.StartDrag(0, 0))
	s.DragMove(30, 30)
	s.EndDrag()
	require.NotEqual(t, Pan{}, s.Snapshot().Transform.Pan)

	require.NoError(t, s.ZoomOut())
	assert.Equal(t, Pan{}, s.Snapshot().Transform.Pan)
}

func TestResetTransform(t *testing.T) {
	_, s := openSession(t)

	require.NoError(t, s.ZoomIn())
	require.NoError(t, s.Rotate())
	require.NoError(t, s.StartDrag(0, 0))
	s.DragMove(30, 30)
	s.EndDrag()

	s.ResetTransform()
	assert.Equal(t, DefaultTransform(), s.Snapshot().Transform)
}

func TestChromeToggleIgnoredWhileDragging(t *testing.T) {
	_, s := openSession(t)

	assert.True(t, s.Snapshot().ChromeVisible)
	s.ToggleChrome()
	assert.False(t, s.Snapshot().ChromeVisible)

	require.NoError(t, s.ZoomIn())
	require.NoError(t, s.StartDrag(0, 0))
	s.ToggleChrome() // mid-drag tap, ignored
	assert.False(t, s.Snapshot().ChromeVisible)
	s.EndDrag()

	s.ToggleChrome()
	assert.True(t, s.Snapshot().ChromeVisible)
}

func TestUnknownKindFallsBackToDocument(t *testing.T) {
	m := NewManager(time.Minute)
	s, err := m.Open(1, []model.ViewerItem{{FileID: 1, Kind: "weird"}}, 0)
	require.NoError(t, err)

	assert.Equal(t, model.KindDocument, s.Current().Kind)
	assert.ErrorIs(t, s.ZoomIn(), ErrNotTransformable)
}

func TestManagerOwnershipAndClose(t *testing.T) {
	m, s := openSession(t)

	_, err := m.Get(s.ID, 2)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	got, err := m.Get(s.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	require.NoError(t, m.Close(s.ID, 1))
	_, err = m.Get(s.ID, 1)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Close(s.ID, 1), ErrSessionNotFound)
}

func TestSweepReclaimsIdleSessions(t *testing.T) {
	m := NewManager(10 * time.Millisecond)
	s, err := m.Open(1, mixedSequence(), 0)
	require.NoError(t, err)

	m.sweep(time.Now().Add(time.Second))
	_, err = m.Get(s.ID, 1)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, m.Count())
}

// Scenario: viewer opened on a mixed [image, pdf, audio] sequence at index 0,
// zoom set to 200, then next -> index 1 and zoom back to 100.
func TestScenarioMixedSequenceZoomResetOnNext(t *testing.T) {
	_, s := openSession(t)

	for i := 0; i < 4; i++ {
		require.NoError(t, s.ZoomIn())
	}
	require.Equal(t, 200, s.Snapshot().Transform.Zoom)

	s.Next()
	st := s.Snapshot()
	assert.Equal(t, 1, st.Index)
	assert.Equal(t, ZoomDefault, st.Transform.Zoom)
	assert.Equal(t, model.KindDocument, st.Current.Kind)
}
