package assign

import (
	"testing"

	"ScoreRack/model"

	"github.com/stretchr/testify/assert"
)

func bundle(id, pieceID, instrumentID, voiceID int64) *model.ResourceBundle {
	return &model.ResourceBundle{ID: id, PieceID: pieceID, InstrumentID: instrumentID, VoiceID: voiceID}
}

func TestTakenPartsCollectsMatchingTriples(t *testing.T) {
	bundles := []*model.ResourceBundle{
		bundle(1, 1, 10, 100), // piece 1, trumpet, soprano
		bundle(2, 1, 10, 101), // piece 1, trumpet, alto
		bundle(3, 1, 11, 100), // other instrument
		bundle(4, 2, 10, 100), // other piece
	}

	taken := TakenParts(bundles, 1, 10, 0)
	assert.Equal(t, map[int64]bool{100: true, 101: true}, taken)
}

func TestTakenPartsExcludesBundleUnderEdit(t *testing.T) {
	bundles := []*model.ResourceBundle{
		bundle(1, 1, 10, 100),
		bundle(2, 1, 10, 101),
	}

	// editing bundle 1 must never report its own voice as taken
	taken := TakenParts(bundles, 1, 10, 1)
	assert.False(t, taken[100])
	assert.True(t, taken[101])
}

func TestGeneralVoiceParticipatesInExclusivity(t *testing.T) {
	bundles := []*model.ResourceBundle{
		bundle(1, 1, 10, model.GeneralVoiceID),
	}

	taken := TakenParts(bundles, 1, 10, 0)
	assert.True(t, taken[model.GeneralVoiceID])
}

func TestTakenPartIDsSorted(t *testing.T) {
	bundles := []*model.ResourceBundle{
		bundle(1, 1, 10, 102),
		bundle(2, 1, 10, model.GeneralVoiceID),
		bundle(3, 1, 10, 101),
	}

	ids := TakenPartIDs(bundles, 1, 10, 0)
	assert.Equal(t, []int64{0, 101, 102}, ids)
}
