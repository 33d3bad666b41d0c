package server

import (
	"net/http"

	"ScoreRack/core/matrix"
)

// MatrixHandler 返回某乐曲在当前成员视角下的乐器×声部矩阵投影。
// 裁剪依据来自JWT声明：管理者和未声明乐器的成员拿到完整矩阵，
// 演奏者只拿到自己乐器与声部（含通用声部）的切片。
func (h *APIHandler) MatrixHandler(w http.ResponseWriter, r *http.Request) {
	pieceID, err := queryID(r, "pieceId", false)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	claims, err := GetClaimsFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	// 乐曲不存在时报404，而不是返回空矩阵
	if _, err := h.catalogRepo.GetPieceByID(r.Context(), pieceID); err != nil {
		writeDomainError(w, err)
		return
	}

	bundles, err := h.bundlesForPiece(r.Context(), pieceID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	instruments, err := h.catalogRepo.ListInstruments(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	voices, err := h.catalogRepo.ListVoices(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	proj := matrix.Project(pieceID, bundles, instruments, voices, claims.ViewerContext())
	writeJSON(w, http.StatusOK, proj)
}
