package server

import (
	"encoding/json"
	"net/http"

	"ScoreRack/core/matrix"
	"ScoreRack/core/viewer"
	"ScoreRack/logger"
	"ScoreRack/model"

	"github.com/gorilla/mux"
)

// OpenViewerRequest 打开查看器的请求体。
// 序列来自资源包的有序谱面文件；includeAudio 为真时音频导读追加在末尾。
type OpenViewerRequest struct {
	BundleID     int64 `json:"bundleId"`
	StartIndex   int   `json:"startIndex"`
	IncludeAudio bool  `json:"includeAudio"`
}

// viewerCommand 是查看器的单条交互指令
type viewerCommand struct {
	Command string  `json:"command"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// canSeeBundle 判断成员是否有权查看资源包，规则与矩阵裁剪一致
func canSeeBundle(b *model.ResourceBundle, vc model.ViewerContext) bool {
	if vc.IsManager || vc.InstrumentID == 0 {
		return true
	}
	if b.InstrumentID != vc.InstrumentID {
		return false
	}
	return b.VoiceID == vc.VoiceID || b.VoiceID == model.GeneralVoiceID
}

// OpenViewerHandler 从资源包打开沉浸式查看器会话
func (h *APIHandler) OpenViewerHandler(w http.ResponseWriter, r *http.Request) {
	var req OpenViewerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.BundleID <= 0 {
		writeDomainError(w, model.NewValidationError("bundleId", "is required"))
		return
	}

	claims, err := GetClaimsFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	bundle, err := h.bundleRepo.GetBundleByID(r.Context(), req.BundleID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// 越权访问按不存在处理，不泄露资源包是否存在
	if !canSeeBundle(bundle, claims.ViewerContext()) {
		writeDomainError(w, model.ErrNotFound)
		return
	}

	seq := matrix.BundleSequence(bundle, req.IncludeAudio)
	session, err := h.viewerMgr.Open(claims.UserID, seq, req.StartIndex)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	logger.Info("查看器会话已打开",
		logger.String("sessionId", session.ID),
		logger.Int64("bundleId", bundle.ID),
		logger.Int64("userId", claims.UserID))
	writeJSON(w, http.StatusCreated, session.Snapshot())
}

// ViewerStateHandler 返回会话当前状态快照
func (h *APIHandler) ViewerStateHandler(w http.ResponseWriter, r *http.Request) {
	session, err := h.viewerSession(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

// ViewerCommandHandler 执行单条查看器指令并返回新状态。
// 变换类指令只对图片有效，当前项不是图片时返回409。
func (h *APIHandler) ViewerCommandHandler(w http.ResponseWriter, r *http.Request) {
	session, err := h.viewerSession(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var cmd viewerCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	switch cmd.Command {
	case "next":
		session.Next()
	case "previous":
		session.Previous()
	case "zoomIn":
		err = session.ZoomIn()
	case "zoomOut":
		err = session.ZoomOut()
	case "rotate":
		err = session.Rotate()
	case "resetTransform":
		session.ResetTransform()
	case "startDrag":
		err = session.StartDrag(cmd.X, cmd.Y)
	case "dragMove":
		session.DragMove(cmd.X, cmd.Y)
	case "endDrag":
		session.EndDrag()
	case "toggleChrome":
		session.ToggleChrome()
	default:
		writeDomainError(w, model.NewValidationError("command", "unknown viewer command"))
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

// CloseViewerHandler 关闭并销毁会话，本地变换状态全部丢弃
func (h *APIHandler) CloseViewerHandler(w http.ResponseWriter, r *http.Request) {
	claims, err := GetClaimsFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.viewerMgr.Close(mux.Vars(r)["id"], claims.UserID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "viewer session closed"})
}

func (h *APIHandler) viewerSession(r *http.Request) (*viewer.Session, error) {
	claims, err := GetClaimsFromContext(r.Context())
	if err != nil {
		return nil, model.NewValidationError("authorization", "missing claims")
	}
	return h.viewerMgr.Get(mux.Vars(r)["id"], claims.UserID)
}
