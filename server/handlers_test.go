package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"ScoreRack/core/viewer"
	"ScoreRack/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRetainedIDs(t *testing.T) {
	ids, err := parseRetainedIDs("[3,1,2]")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, ids)

	ids, err = parseRetainedIDs("")
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = parseRetainedIDs("not json")
	assert.Error(t, err)

	// 重复ID与非正ID都拒绝
	_, err = parseRetainedIDs("[1,1]")
	assert.Error(t, err)
	_, err = parseRetainedIDs("[0]")
	assert.Error(t, err)
}

func multipartRequest(t *testing.T, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/bundles", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req
}

func TestParseBundleForm(t *testing.T) {
	req := multipartRequest(t, map[string]string{
		"pieceId":         "7",
		"instrumentId":    "3",
		"retainedFileIds": "[5,4]",
	})
	form, err := parseBundleForm(req)
	require.NoError(t, err)
	assert.Equal(t, int64(7), form.PieceID)
	assert.Equal(t, int64(3), form.InstrumentID)
	// voiceId缺省为0号通用声部
	assert.Equal(t, model.GeneralVoiceID, form.VoiceID)
	assert.Equal(t, []int64{5, 4}, form.RetainedFileIDs)
	assert.False(t, form.RemoveAudioGuide)
}

func TestParseBundleFormMissingPiece(t *testing.T) {
	req := multipartRequest(t, map[string]string{"instrumentId": "3"})
	_, err := parseBundleForm(req)
	var vErr *model.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "pieceId", vErr.Field)
}

func TestParseBundleFormRemoveAudioGuide(t *testing.T) {
	req := multipartRequest(t, map[string]string{
		"pieceId":          "7",
		"instrumentId":     "3",
		"removeAudioGuide": "true",
	})
	form, err := parseBundleForm(req)
	require.NoError(t, err)
	assert.True(t, form.RemoveAudioGuide)

	req = multipartRequest(t, map[string]string{
		"pieceId":          "7",
		"instrumentId":     "3",
		"removeAudioGuide": "maybe",
	})
	_, err = parseBundleForm(req)
	assert.Error(t, err)
}

func TestWriteDomainErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		field  string
	}{
		{model.NewValidationError("voiceId", "must be a valid id"), http.StatusUnprocessableEntity, "voiceId"},
		{model.ErrDuplicateAssignment, http.StatusConflict, "voiceId"},
		{model.ErrNotFound, http.StatusNotFound, ""},
		{viewer.ErrSessionNotFound, http.StatusNotFound, ""},
		{viewer.ErrNotTransformable, http.StatusConflict, ""},
		{viewer.ErrEmptySequence, http.StatusUnprocessableEntity, ""},
		{assertErr{}, http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeDomainError(rec, tc.err)
		assert.Equal(t, tc.status, rec.Code)

		var body errorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tc.field, body.Field)
		assert.NotEmpty(t, body.Error)
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestCanSeeBundle(t *testing.T) {
	bundle := &model.ResourceBundle{PieceID: 1, InstrumentID: 3, VoiceID: 2}
	general := &model.ResourceBundle{PieceID: 1, InstrumentID: 3, VoiceID: model.GeneralVoiceID}

	manager := model.ViewerContext{IsManager: true}
	assert.True(t, canSeeBundle(bundle, manager))

	// 未声明乐器的成员看到全部
	undeclared := model.ViewerContext{}
	assert.True(t, canSeeBundle(bundle, undeclared))

	// 演奏者只看自己乐器，声部需匹配或为通用声部
	exact := model.ViewerContext{InstrumentID: 3, VoiceID: 2}
	assert.True(t, canSeeBundle(bundle, exact))
	assert.True(t, canSeeBundle(general, exact))

	otherVoice := model.ViewerContext{InstrumentID: 3, VoiceID: 1}
	assert.False(t, canSeeBundle(bundle, otherVoice))
	assert.True(t, canSeeBundle(general, otherVoice))

	otherInstrument := model.ViewerContext{InstrumentID: 5, VoiceID: 2}
	assert.False(t, canSeeBundle(bundle, otherInstrument))
}
