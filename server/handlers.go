package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"ScoreRack/config"
	"ScoreRack/core/auth"
	"ScoreRack/core/viewer"
	"ScoreRack/logger"
	"ScoreRack/model"
	"ScoreRack/repository"
	"ScoreRack/storage"

	"github.com/gorilla/mux"
)

// APIHandler 处理所有API请求
type APIHandler struct {
	bundleRepo  repository.BundleRepository
	userRepo    repository.UserRepository
	catalogRepo repository.CatalogRepository
	store       *storage.ScoreStore
	viewerMgr   *viewer.Manager
	notifyHub   *NotifyHub
	cfg         *config.Config
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(
	bundleRepo repository.BundleRepository,
	userRepo repository.UserRepository,
	catalogRepo repository.CatalogRepository,
	store *storage.ScoreStore,
	viewerMgr *viewer.Manager,
	notifyHub *NotifyHub,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		bundleRepo:  bundleRepo,
		userRepo:    userRepo,
		catalogRepo: catalogRepo,
		store:       store,
		viewerMgr:   viewerMgr,
		notifyHub:   notifyHub,
		cfg:         cfg,
	}
}

// AuthMiddleware is a middleware function that checks for a valid JWT token.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		claims, err := auth.ParseToken(parts[1])
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), "userID", claims.UserID)
		ctx = context.WithValue(ctx, "claims", claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// ManagerOnly 限制仅管理者可访问（所有写操作路由）
func (h *APIHandler) ManagerOnly(next http.HandlerFunc) http.HandlerFunc {
	return h.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		claims, err := GetClaimsFromContext(r.Context())
		if err != nil || !claims.IsManager {
			http.Error(w, "Manager role required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUserIDFromContext extracts the user ID from the request context.
func GetUserIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value("userID").(int64)
	if !ok {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// GetClaimsFromContext extracts the parsed JWT claims from the request context.
func GetClaimsFromContext(ctx context.Context) (*auth.Claims, error) {
	claims, ok := ctx.Value("claims").(*auth.Claims)
	if !ok {
		return nil, fmt.Errorf("claims not found in context")
	}
	return claims, nil
}

// writeJSON 输出JSON响应
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// errorBody 是错误响应体；字段级校验错误带上 field 供表单高亮
type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// writeDomainError 将领域错误映射为HTTP状态码。
// 校验失败422、三元组冲突409、资源不存在404，其余一律500。
func writeDomainError(w http.ResponseWriter, err error) {
	var vErr *model.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: vErr.Reason, Field: vErr.Field})
	case errors.Is(err, model.ErrDuplicateAssignment):
		writeJSON(w, http.StatusConflict, errorBody{Error: "assignment already exists for this piece/instrument/voice", Field: "voiceId"})
	case errors.Is(err, model.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "resource not found"})
	case errors.Is(err, viewer.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "viewer session not found"})
	case errors.Is(err, viewer.ErrNotTransformable):
		writeJSON(w, http.StatusConflict, errorBody{Error: "current item does not support transforms"})
	case errors.Is(err, viewer.ErrEmptySequence):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "cannot open viewer on an empty sequence"})
	default:
		logger.Error("请求处理失败", logger.ErrorField(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}

// pathID 从路由变量解析整型ID
func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewValidationError(name, "must be a positive integer")
	}
	return id, nil
}

// queryID 从查询参数解析整型ID；allowZero 为真时接受0（通用声部等）
func queryID(r *http.Request, name string, allowZero bool) (int64, error) {
	raw := r.URL.Query().Get(name)
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
