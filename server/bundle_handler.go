package server

import (
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"ScoreRack/cache"
	"ScoreRack/core/assign"
	"ScoreRack/core/orderedlist"
	"ScoreRack/logger"
	"ScoreRack/model"
	"ScoreRack/repository"
	"ScoreRack/storage"
)

// maxBundleFormMemory 是资源包表单的内存上限，超出部分落临时文件
const maxBundleFormMemory = 64 << 20 // 64MB

// bundleForm 是资源包创建/更新表单解析后的结果。
// 文件变更按提交契约拆成三个互不相交的集合：
// retainedFileIds 决定保留文件的最终顺序，新文件追加在其后，
// removeAudioGuide 显式删除音频导读。
type bundleForm struct {
	PieceID          int64
	InstrumentID     int64
	VoiceID          int64
	RetainedFileIDs  []int64
	RemoveAudioGuide bool
}

// parseBundleForm 解析multipart表单的标量字段并做必填校验
func parseBundleForm(r *http.Request) (*bundleForm, error) {
	f := &bundleForm{}

	var err error
	if f.PieceID, err = formID(r, "pieceId", false); err != nil {
		return nil, err
	}
	if f.InstrumentID, err = formID(r, "instrumentId", false); err != nil {
		return nil, err
	}
	// 0号是合法的通用声部
	if f.VoiceID, err = formID(r, "voiceId", true); err != nil {
		return nil, err
	}

	if f.RetainedFileIDs, err = parseRetainedIDs(r.FormValue("retainedFileIds")); err != nil {
		return nil, err
	}

	if raw := r.FormValue("removeAudioGuide"); raw != "" {
		f.RemoveAudioGuide, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, model.NewValidationError("removeAudioGuide", "must be a boolean")
		}
	}
	return f, nil
}

func formID(r *http.Request, name string, allowZero bool) (int64, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		if allowZero {
			return 0, nil
		}
		return 0, model.NewValidationError(name, "is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 || (!allowZero && id == 0) {
		return 0, model.NewValidationError(name, "must be a valid id")
	}
	return id, nil
}

// parseRetainedIDs 解析保留文件ID的JSON数组，如 "[3,1,2]"
func parseRetainedIDs(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return []int64{}, nil
	}
	var ids []int64
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, model.NewValidationError("retainedFileIds", "must be a JSON array of file ids")
	}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			return nil, model.NewValidationError("retainedFileIds", "must be distinct positive ids")
		}
		seen[id] = true
	}
	return ids, nil
}

// uploadNewFiles 将新上传的谱面文件写入对象存储，保持表单内的相对顺序。
// 返回文件记录与已上传对象路径（出错时供调用方清理）。
func (h *APIHandler) uploadNewFiles(ctx context.Context, headers []*multipart.FileHeader) ([]*model.ScoreFile, []string, error) {
	var records []*model.ScoreFile
	var uploaded []string
	for _, fh := range headers {
		kind := storage.KindForFilename(fh.Filename)
		if kind == model.KindAudio {
			return nil, uploaded, model.NewValidationError("files", fmt.Sprintf("%s: audio belongs in the audioGuide slot", fh.Filename))
		}

		src, err := fh.Open()
		if err != nil {
			return nil, uploaded, fmt.Errorf("failed to open uploaded file %s: %w", fh.Filename, err)
		}

		objectName := storage.ObjectName("scores", fh.Filename)
		err = h.store.Upload(ctx, objectName, src, fh.Size, storage.ContentTypeFor(fh.Filename))
		src.Close()
		if err != nil {
			return nil, uploaded, err
		}
		uploaded = append(uploaded, objectName)

		records = append(records, &model.ScoreFile{
			ObjectPath:   objectName,
			OriginalName: fh.Filename,
			Kind:         kind,
		})
	}
	return records, uploaded, nil
}

// uploadAudioGuide 上传音频导读文件（若表单携带）
func (h *APIHandler) uploadAudioGuide(ctx context.Context, r *http.Request) (path, name string, uploaded []string, err error) {
	file, fh, err := r.FormFile("audioGuide")
	if err == http.ErrMissingFile {
		return "", "", nil, nil
	}
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to read audioGuide field: %w", err)
	}
	defer file.Close()

	if storage.KindForFilename(fh.Filename) != model.KindAudio {
		return "", "", nil, model.NewValidationError("audioGuide", "must be an audio file")
	}

	objectName := storage.ObjectName("audio", fh.Filename)
	if err := h.store.Upload(ctx, objectName, file, fh.Size, storage.ContentTypeFor(fh.Filename)); err != nil {
		return "", "", nil, err
	}
	return objectName, fh.Filename, []string{objectName}, nil
}

// bundlesForPiece 取某乐曲的资源包列表，优先走Redis缓存
func (h *APIHandler) bundlesForPiece(ctx context.Context, pieceID int64) ([]*model.ResourceBundle, error) {
	if bundles, ok := cache.GetBundlesByPiece(ctx, pieceID); ok {
		return bundles, nil
	}

	bundles, err := h.bundleRepo.ListBundlesByPiece(ctx, pieceID)
	if err != nil {
		return nil, err
	}
	if err := cache.SetBundlesByPiece(ctx, pieceID, bundles); err != nil {
		logger.Warn("写入资源包缓存失败", logger.Int64("pieceId", pieceID), logger.ErrorField(err))
	}
	return bundles, nil
}

// afterBundleMutation 资源包变更后的统一收尾：清理对象、失效缓存、广播变更
func (h *APIHandler) afterBundleMutation(ctx context.Context, pieceID, bundleID int64, action string, removedObjects []string) {
	h.store.RemoveAll(ctx, removedObjects)
	if err := cache.InvalidateBundlesByPiece(ctx, pieceID); err != nil {
		logger.Warn("失效资源包缓存失败", logger.Int64("pieceId", pieceID), logger.ErrorField(err))
	}
	h.notifyHub.Broadcast(BundleEvent{PieceID: pieceID, BundleID: bundleID, Action: action})
}

// CreateBundleHandler 创建资源包。
// multipart字段：pieceId, instrumentId, voiceId, files(0个或多个),
// audioGuide(可选)。三元组冲突返回409并指向 voiceId 字段。
func (h *APIHandler) CreateBundleHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxBundleFormMemory); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse multipart form: %v", err), http.StatusBadRequest)
		return
	}

	form, err := parseBundleForm(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// 乐曲必须存在
	if _, err := h.catalogRepo.GetPieceByID(r.Context(), form.PieceID); err != nil {
		writeDomainError(w, err)
		return
	}

	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File["files"]
	}

	files, uploaded, err := h.uploadNewFiles(r.Context(), headers)
	if err != nil {
		h.store.RemoveAll(r.Context(), uploaded)
		writeDomainError(w, err)
		return
	}

	guidePath, guideName, guideUploaded, err := h.uploadAudioGuide(r.Context(), r)
	if err != nil {
		h.store.RemoveAll(r.Context(), uploaded)
		writeDomainError(w, err)
		return
	}
	uploaded = append(uploaded, guideUploaded...)

	bundle := &model.ResourceBundle{
		PieceID:        form.PieceID,
		InstrumentID:   form.InstrumentID,
		VoiceID:        form.VoiceID,
		AudioGuidePath: guidePath,
		AudioGuideName: guideName,
	}

	bundleID, err := h.bundleRepo.CreateBundle(r.Context(), bundle, files)
	if err != nil {
		// 创建失败时回收已上传对象，守卫数据过期导致的冲突走409
		h.store.RemoveAll(r.Context(), uploaded)
		writeDomainError(w, err)
		return
	}

	h.afterBundleMutation(r.Context(), form.PieceID, bundleID, "created", nil)

	created, err := h.bundleRepo.GetBundleByID(r.Context(), bundleID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateBundleHandler 更新资源包：可改三元组（重新校验唯一性，排除自身）、
// 重排/增删文件、替换或删除音频导读。同一会话同时只允许一个保存在途，
// 由客户端禁用提交按钮保证；后端不做排队。
func (h *APIHandler) UpdateBundleHandler(w http.ResponseWriter, r *http.Request) {
	bundleID, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxBundleFormMemory); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse multipart form: %v", err), http.StatusBadRequest)
		return
	}

	form, err := parseBundleForm(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	current, err := h.bundleRepo.GetBundleByID(r.Context(), bundleID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File["files"]
	}
	files, uploaded, err := h.uploadNewFiles(r.Context(), headers)
	if err != nil {
		h.store.RemoveAll(r.Context(), uploaded)
		writeDomainError(w, err)
		return
	}

	guidePath, guideName, guideUploaded, err := h.uploadAudioGuide(r.Context(), r)
	if err != nil {
		h.store.RemoveAll(r.Context(), uploaded)
		writeDomainError(w, err)
		return
	}
	uploaded = append(uploaded, guideUploaded...)

	patch := &repository.BundlePatch{
		BundleID:          bundleID,
		PieceID:           form.PieceID,
		InstrumentID:      form.InstrumentID,
		VoiceID:           form.VoiceID,
		RetainedFileIDs:   form.RetainedFileIDs,
		NewFiles:          files,
		NewAudioGuidePath: guidePath,
		NewAudioGuideName: guideName,
		RemoveAudioGuide:  form.RemoveAudioGuide,
	}

	removedObjects, err := h.bundleRepo.UpdateBundle(r.Context(), patch)
	if err != nil {
		h.store.RemoveAll(r.Context(), uploaded)
		writeDomainError(w, err)
		return
	}

	h.afterBundleMutation(r.Context(), form.PieceID, bundleID, "updated", removedObjects)
	// 三元组换了乐曲时旧乐曲的矩阵也要刷新
	if current.PieceID != form.PieceID {
		if err := cache.InvalidateBundlesByPiece(r.Context(), current.PieceID); err != nil {
			logger.Warn("失效旧乐曲缓存失败", logger.Int64("pieceId", current.PieceID), logger.ErrorField(err))
		}
		h.notifyHub.Broadcast(BundleEvent{PieceID: current.PieceID, BundleID: bundleID, Action: "moved"})
	}

	updated, err := h.bundleRepo.GetBundleByID(r.Context(), bundleID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteBundleHandler 删除资源包并级联其文件
func (h *APIHandler) DeleteBundleHandler(w http.ResponseWriter, r *http.Request) {
	bundleID, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}

	bundle, err := h.bundleRepo.GetBundleByID(r.Context(), bundleID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	removedObjects, err := h.bundleRepo.DeleteBundle(r.Context(), bundleID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.afterBundleMutation(r.Context(), bundle.PieceID, bundleID, "deleted", removedObjects)
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "bundle deleted"})
}

// GetBundleHandler 取单个资源包（编辑表单回显）
func (h *APIHandler) GetBundleHandler(w http.ResponseWriter, r *http.Request) {
	bundleID, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}

	bundle, err := h.bundleRepo.GetBundleByID(r.Context(), bundleID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

// ListBundlesByPieceHandler 按乐曲列出资源包（管理界面的原始列表）
func (h *APIHandler) ListBundlesByPieceHandler(w http.ResponseWriter, r *http.Request) {
	pieceID, err := queryID(r, "pieceId", false)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	bundles, err := h.bundlesForPiece(r.Context(), pieceID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bundles)
}

// TakenVoicesHandler 返回 (乐曲, 乐器) 下已被占用的声部ID。
// 编辑表单用它禁用（而非隐藏）已占用选项；excludeBundleId 排除正在
// 编辑的资源包，原地编辑不会被自己阻塞。结果只是交互提示，提交时
// 后端会在事务内重新判定。
func (h *APIHandler) TakenVoicesHandler(w http.ResponseWriter, r *http.Request) {
	pieceID, err := queryID(r, "pieceId", false)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	instrumentID, err := queryID(r, "instrumentId", false)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	excludeBundleID, err := queryID(r, "excludeBundleId", true)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	bundles, err := h.bundlesForPiece(r.Context(), pieceID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	taken := assign.TakenPartIDs(bundles, pieceID, instrumentID, excludeBundleID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"takenVoiceIds": taken})
}

// MoveFileRequest 文件移动请求体，to 为目标下标（0起）
type MoveFileRequest struct {
	To int `json:"to"`
}

// MoveFileHandler 将资源包内的一个谱面文件移动到新位置，
// 其余文件保持相对顺序。既有文件的二进制不可变，重排只改位置号。
func (h *APIHandler) MoveFileHandler(w http.ResponseWriter, r *http.Request) {
	bundleID, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	fileID, err := pathID(r, "fileId")
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var req MoveFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	bundle, err := h.bundleRepo.GetBundleByID(r.Context(), bundleID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	ids := make([]int64, 0, len(bundle.Files))
	from := -1
	for i, f := range bundle.Files {
		ids = append(ids, f.ID)
		if f.ID == fileID {
			from = i
		}
	}
	if from == -1 {
		writeDomainError(w, model.ErrNotFound)
		return
	}

	moved, err := orderedlist.Move(ids, from, req.To)
	if err != nil {
		writeDomainError(w, model.NewValidationError("to", "target position out of range"))
		return
	}

	patch := &repository.BundlePatch{
		BundleID:        bundleID,
		PieceID:         bundle.PieceID,
		InstrumentID:    bundle.InstrumentID,
		VoiceID:         bundle.VoiceID,
		RetainedFileIDs: moved,
	}
	if _, err := h.bundleRepo.UpdateBundle(r.Context(), patch); err != nil {
		writeDomainError(w, err)
		return
	}

	h.afterBundleMutation(r.Context(), bundle.PieceID, bundleID, "updated", nil)

	updated, err := h.bundleRepo.GetBundleByID(r.Context(), bundleID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
