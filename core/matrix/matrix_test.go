package matrix

import (
	"testing"

	"ScoreRack/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testInstruments = []*model.Instrument{
		{ID: 10, Name: "Trumpet", SectionID: 1},
		{ID: 11, Name: "Euphonium", SectionID: 1},
		{ID: 12, Name: "Percussion", SectionID: 2},
	}
	testVoices = []*model.VocalPart{
		{ID: 100, Name: "Soprano"},
		{ID: 101, Name: "Alto"},
	}
)

func file(id int64, pos int, kind model.FileKind) *model.ScoreFile {
	return &model.ScoreFile{ID: id, Position: pos, Kind: kind, OriginalName: "f", URL: "/files/f"}
}

func manager() model.ViewerContext {
	return model.ViewerContext{UserID: 1, IsManager: true}
}

func performer(instrumentID, voiceID int64) model.ViewerContext {
	return model.ViewerContext{UserID: 2, InstrumentID: instrumentID, VoiceID: voiceID}
}

func TestManagerSeesFullMatrix(t *testing.T) {
	bundles := []*model.ResourceBundle{
		{ID: 1, PieceID: 5, InstrumentID: 10, VoiceID: 100},
		{ID: 2, PieceID: 5, InstrumentID: 10, VoiceID: 101},
		{ID: 3, PieceID: 5, InstrumentID: 11, VoiceID: 100},
		{ID: 4, PieceID: 6, InstrumentID: 10, VoiceID: 100}, // other piece, filtered out
	}

	proj := Project(5, bundles, testInstruments, testVoices, manager())

	assert.Len(t, proj.Cells, 3)
	// axes sorted by name: Euphonium before Trumpet, Alto before Soprano
	require.Len(t, proj.Instruments, 2)
	assert.Equal(t, "Euphonium", proj.Instruments[0].Name)
	assert.Equal(t, "Trumpet", proj.Instruments[1].Name)
	require.Len(t, proj.Voices, 2)
	assert.Equal(t, "Alto", proj.Voices[0].Name)
}

func TestPerformerSeesOnlyOwnSlice(t *testing.T) {
	bundles := []*model.ResourceBundle{
		{ID: 1, PieceID: 5, InstrumentID: 10, VoiceID: 100},
		{ID: 2, PieceID: 5, InstrumentID: 10, VoiceID: 101},
		{ID: 3, PieceID: 5, InstrumentID: 11, VoiceID: 100},
	}

	proj := Project(5, bundles, testInstruments, testVoices, performer(10, 100))

	require.Len(t, proj.Cells, 1)
	assert.Equal(t, int64(10), proj.Cells[0].InstrumentID)
	assert.Equal(t, int64(100), proj.Cells[0].VoiceID)
	require.Len(t, proj.Instruments, 1)
	assert.Equal(t, "Trumpet", proj.Instruments[0].Name)
}

func TestGeneralVoiceVisibleToEveryVoice(t *testing.T) {
	bundles := []*model.ResourceBundle{
		{ID: 1, PieceID: 5, InstrumentID: 10, VoiceID: model.GeneralVoiceID},
		{ID: 2, PieceID: 5, InstrumentID: 10, VoiceID: 101},
	}

	// a soprano player still sees the shared general-part bundle,
	// but not the alto bundle: the asymmetry is deliberate
	proj := Project(5, bundles, testInstruments, testVoices, performer(10, 100))

	require.Len(t, proj.Cells, 1)
	assert.Equal(t, model.GeneralVoiceID, proj.Cells[0].VoiceID)
	assert.Equal(t, int64(1), proj.Cells[0].BundleID)
}

func TestUndeclaredInstrumentGetsFullView(t *testing.T) {
	bundles := []*model.ResourceBundle{
		{ID: 1, PieceID: 5, InstrumentID: 10, VoiceID: 100},
		{ID: 2, PieceID: 5, InstrumentID: 11, VoiceID: 100},
	}

	proj := Project(5, bundles, testInstruments, testVoices, performer(0, 0))
	assert.Len(t, proj.Cells, 2)
}

func TestGeneralVoicePinnedFirstOnAxis(t *testing.T) {
	bundles := []*model.ResourceBundle{
		{ID: 1, PieceID: 5, InstrumentID: 12, VoiceID: model.GeneralVoiceID},
		{ID: 2, PieceID: 5, InstrumentID: 10, VoiceID: 100},
		{ID: 3, PieceID: 5, InstrumentID: 10, VoiceID: 101},
	}

	proj := Project(5, bundles, testInstruments, testVoices, manager())

	require.Len(t, proj.Voices, 3)
	assert.Equal(t, model.GeneralVoiceID, proj.Voices[0].ID)
	assert.Equal(t, "General", proj.Voices[0].Name)
	assert.Equal(t, "Alto", proj.Voices[1].Name)
	assert.Equal(t, "Soprano", proj.Voices[2].Name)
}

func TestCellFilesKeepPersistedOrderAndDropAudio(t *testing.T) {
	bundles := []*model.ResourceBundle{
		{
			ID: 1, PieceID: 5, InstrumentID: 10, VoiceID: 100,
			Files: []*model.ScoreFile{
				file(3, 3, model.KindImage),
				file(1, 1, model.KindDocument),
				file(4, 4, model.KindAudio), // defensive: audio never lands in cells
				file(2, 2, model.KindImage),
			},
		},
	}

	proj := Project(5, bundles, testInstruments, testVoices, manager())

	require.Len(t, proj.Cells, 1)
	got := proj.Cells[0].Files
	require.Len(t, got, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{got[0].ID, got[1].ID, got[2].ID})
}

func TestAudioAggregatedPerInstrumentAcrossVoices(t *testing.T) {
	bundles := []*model.ResourceBundle{
		{ID: 1, PieceID: 5, InstrumentID: 10, VoiceID: 100, AudioGuidePath: "audio/sop.mp3", AudioGuideName: "sop.mp3"},
		{ID: 2, PieceID: 5, InstrumentID: 10, VoiceID: 101, AudioGuidePath: "audio/alt.mp3", AudioGuideName: "alt.mp3"},
		{ID: 3, PieceID: 5, InstrumentID: 11, VoiceID: 100},
	}

	proj := Project(5, bundles, testInstruments, testVoices, manager())

	require.Len(t, proj.Audio, 1)
	assert.Equal(t, int64(10), proj.Audio[0].InstrumentID)
	assert.Len(t, proj.Audio[0].Files, 2)
}

func TestBundleSequenceAppendsAudioGuideLast(t *testing.T) {
	b := &model.ResourceBundle{
		ID: 1, PieceID: 5, InstrumentID: 10, VoiceID: 100,
		AudioGuidePath: "audio/guide.mp3",
		AudioGuideName: "guide.mp3",
		Files: []*model.ScoreFile{
			file(1, 1, model.KindImage),
			file(2, 2, model.KindDocument),
		},
	}

	seq := BundleSequence(b, true)
	require.Len(t, seq, 3)
	assert.Equal(t, model.KindAudio, seq[2].Kind)

	seq = BundleSequence(b, false)
	assert.Len(t, seq, 2)
}

func TestCellSequenceFallsBackToDocument(t *testing.T) {
	cell := model.MatrixCell{
		Files: []*model.ScoreFile{
			{ID: 1, Position: 1, Kind: "mystery"},
		},
	}

	seq := CellSequence(cell)
	require.Len(t, seq, 1)
	assert.Equal(t, model.KindDocument, seq[0].Kind)
}
