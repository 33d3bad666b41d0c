package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"ScoreRack/logger"
	"ScoreRack/model"
)

// PieceRequest 乐曲创建/更新请求体
type PieceRequest struct {
	Name              string `json:"name"`
	Genre             string `json:"genre"`
	ReferenceVideoURL string `json:"referenceVideoUrl"`
	AudioTrackPath    string `json:"audioTrackPath"`
}

// ListPiecesHandler 返回全部乐曲
func (h *APIHandler) ListPiecesHandler(w http.ResponseWriter, r *http.Request) {
	pieces, err := h.catalogRepo.ListPieces(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pieces)
}

// GetPieceHandler 按ID取乐曲
func (h *APIHandler) GetPieceHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	piece, err := h.catalogRepo.GetPieceByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, piece)
}

// CreatePieceHandler 创建乐曲（仅管理者）
func (h *APIHandler) CreatePieceHandler(w http.ResponseWriter, r *http.Request) {
	var req PieceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeDomainError(w, model.NewValidationError("name", "is required"))
		return
	}

	piece := &model.MusicalPiece{
		Name:              strings.TrimSpace(req.Name),
		Genre:             req.Genre,
		ReferenceVideoURL: req.ReferenceVideoURL,
		AudioTrackPath:    req.AudioTrackPath,
	}
	if err := h.catalogRepo.CreatePiece(r.Context(), piece); err != nil {
		writeDomainError(w, err)
		return
	}

	logger.Info("乐曲已创建", logger.Int64("pieceId", piece.ID), logger.String("name", piece.Name))
	writeJSON(w, http.StatusCreated, piece)
}

// UpdatePieceHandler 更新乐曲（仅管理者）
func (h *APIHandler) UpdatePieceHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var req PieceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeDomainError(w, model.NewValidationError("name", "is required"))
		return
	}

	piece := &model.MusicalPiece{
		ID:                id,
		Name:              strings.TrimSpace(req.Name),
		Genre:             req.Genre,
		ReferenceVideoURL: req.ReferenceVideoURL,
		AudioTrackPath:    req.AudioTrackPath,
	}
	if err := h.catalogRepo.UpdatePiece(r.Context(), piece); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, piece)
}

// DeletePieceHandler 删除乐曲（仅管理者）。
// 仍有资源包挂在该乐曲下时拒绝删除，避免悬空的矩阵数据。
func (h *APIHandler) DeletePieceHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}

	count, err := h.bundleRepo.CountBundlesByPiece(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if count > 0 {
		writeJSON(w, http.StatusConflict, errorBody{Error: "piece still has resource bundles"})
		return
	}

	if err := h.catalogRepo.DeletePiece(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	logger.Info("乐曲已删除", logger.Int64("pieceId", id))
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "piece deleted"})
}

// ListSectionsHandler 返回全部乐器分组
func (h *APIHandler) ListSectionsHandler(w http.ResponseWriter, r *http.Request) {
	sections, err := h.catalogRepo.ListSections(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sections)
}

// ListInstrumentsHandler 返回全部乐器
func (h *APIHandler) ListInstrumentsHandler(w http.ResponseWriter, r *http.Request) {
	instruments, err := h.catalogRepo.ListInstruments(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, instruments)
}

// ListVoicesHandler 返回全部声部
func (h *APIHandler) ListVoicesHandler(w http.ResponseWriter, r *http.Request) {
	voices, err := h.catalogRepo.ListVoices(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, voices)
}
