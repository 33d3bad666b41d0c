package cache

import (
	"testing"
	"time"

	"ScoreRack/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundlesKey(t *testing.T) {
	assert.Equal(t, "bundles:piece:42", BundlesKey(42))
}

// API序列化屏蔽对象路径 (json:"-")，缓存编码必须完整保留它们
func TestCachedCodecRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	bundles := []*model.ResourceBundle{
		{
			ID:             1,
			PieceID:        7,
			InstrumentID:   3,
			VoiceID:        model.GeneralVoiceID,
			AudioGuidePath: "audio/abc_guide.mp3",
			AudioGuideURL:  "/files/audio/abc_guide.mp3",
			AudioGuideName: "guide.mp3",
			CreatedAt:      now,
			UpdatedAt:      now,
			Files: []*model.ScoreFile{
				{
					ID:           10,
					BundleID:     1,
					ObjectPath:   "scores/abc_page1.png",
					URL:          "/files/scores/abc_page1.png",
					OriginalName: "page1.png",
					Kind:         model.KindImage,
					Position:     1,
					CreatedAt:    now,
					UpdatedAt:    now,
				},
			},
		},
	}

	restored := fromCached(toCached(bundles))
	require.Len(t, restored, 1)
	b := restored[0]

	assert.Equal(t, bundles[0].ID, b.ID)
	assert.Equal(t, "audio/abc_guide.mp3", b.AudioGuidePath)
	assert.True(t, b.HasAudioGuide())
	require.Len(t, b.Files, 1)
	assert.Equal(t, "scores/abc_page1.png", b.Files[0].ObjectPath)
	assert.Equal(t, model.KindImage, b.Files[0].Kind)
	assert.Equal(t, 1, b.Files[0].Position)
}

// 未识别的文件类型在解码时回退为文档
func TestCachedCodecKindFallback(t *testing.T) {
	restored := fromCached([]cachedBundle{
		{ID: 1, Files: []cachedFile{{ID: 2, Kind: "hologram"}}},
	})
	require.Len(t, restored, 1)
	assert.Equal(t, model.KindDocument, restored[0].Files[0].Kind)
}
