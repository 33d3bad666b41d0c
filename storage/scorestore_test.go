package storage

import (
	"strings"
	"testing"

	"ScoreRack/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectName(t *testing.T) {
	name := ObjectName("scores", "march no.1.pdf")
	require.True(t, strings.HasPrefix(name, "scores/"))
	assert.True(t, strings.HasSuffix(name, "_march_no.1.pdf"))

	// uuid前缀保证同名文件互不覆盖
	other := ObjectName("scores", "march no.1.pdf")
	assert.NotEqual(t, name, other)
}

func TestObjectNameSanitizesUnsafeChars(t *testing.T) {
	name := ObjectName("inbox", "谱面 (final)?.pdf")
	assert.NotContains(t, name[len("inbox/"):], " ")
	assert.NotContains(t, name, "(")
	assert.NotContains(t, name, "?")
}

func TestObjectNameEmptyFilename(t *testing.T) {
	name := ObjectName("audio", "   ")
	assert.True(t, strings.HasSuffix(name, "_unnamed"))
}

func TestFileURL(t *testing.T) {
	assert.Equal(t, "/files/scores/abc_x.pdf", FileURL("scores/abc_x.pdf"))
	assert.Equal(t, "", FileURL(""))
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentTypeFor("part.PDF"))
	assert.Equal(t, "image/png", ContentTypeFor("page1.png"))
	assert.Equal(t, "audio/mpeg", ContentTypeFor("guide.mp3"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("notes.xyz"))
}

func TestKindForFilename(t *testing.T) {
	assert.Equal(t, model.KindImage, KindForFilename("page.JPG"))
	assert.Equal(t, model.KindAudio, KindForFilename("guide.wav"))
	assert.Equal(t, model.KindDocument, KindForFilename("full-score.pdf"))
	// 未识别的扩展名按文档处理
	assert.Equal(t, model.KindDocument, KindForFilename("mystery.bin"))
}
