package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ScoreRack/db"
	"ScoreRack/logger"
	"ScoreRack/model"

	"github.com/go-redis/redis/v8"
)

// 矩阵视图的数据源是按乐曲的资源包列表，这里做一层短TTL缓存。
// 任何资源包变更都会使对应乐曲的缓存失效，投影本身始终现算。
const bundleCacheTTL = 10 * time.Minute

// BundlesKey 根据乐曲ID生成资源包列表的Redis键
func BundlesKey(pieceID int64) string {
	return fmt.Sprintf("bundles:piece:%d", pieceID)
}

// 缓存用的编码结构。模型的对象路径字段在API序列化中被屏蔽
// (json:"-")，缓存必须完整保留它们，所以这里用自己的编码。
type cachedBundle struct {
	ID             int64        `json:"id"`
	PieceID        int64        `json:"pieceId"`
	InstrumentID   int64        `json:"instrumentId"`
	VoiceID        int64        `json:"voiceId"`
	AudioGuidePath string       `json:"audioGuidePath"`
	AudioGuideURL  string       `json:"audioGuideUrl"`
	AudioGuideName string       `json:"audioGuideName"`
	Files          []cachedFile `json:"files"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

type cachedFile struct {
	ID           int64     `json:"id"`
	BundleID     int64     `json:"bundleId"`
	ObjectPath   string    `json:"objectPath"`
	URL          string    `json:"url"`
	OriginalName string    `json:"originalName"`
	Kind         string    `json:"kind"`
	Position     int       `json:"position"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toCached(bundles []*model.ResourceBundle) []cachedBundle {
	out := make([]cachedBundle, 0, len(bundles))
	for _, b := range bundles {
		cb := cachedBundle{
			ID:             b.ID,
			PieceID:        b.PieceID,
			InstrumentID:   b.InstrumentID,
			VoiceID:        b.VoiceID,
			AudioGuidePath: b.AudioGuidePath,
			AudioGuideURL:  b.AudioGuideURL,
			AudioGuideName: b.AudioGuideName,
			CreatedAt:      b.CreatedAt,
			UpdatedAt:      b.UpdatedAt,
			Files:          make([]cachedFile, 0, len(b.Files)),
		}
		for _, f := range b.Files {
			cb.Files = append(cb.Files, cachedFile{
				ID:           f.ID,
				BundleID:     f.BundleID,
				ObjectPath:   f.ObjectPath,
				URL:          f.URL,
				OriginalName: f.OriginalName,
				Kind:         string(f.Kind),
				Position:     f.Position,
				CreatedAt:    f.CreatedAt,
				UpdatedAt:    f.UpdatedAt,
			})
		}
		out = append(out, cb)
	}
	return out
}

func fromCached(cached []cachedBundle) []*model.ResourceBundle {
	out := make([]*model.ResourceBundle, 0, len(cached))
	for _, cb := range cached {
		b := &model.ResourceBundle{
			ID:             cb.ID,
			PieceID:        cb.PieceID,
			InstrumentID:   cb.InstrumentID,
			VoiceID:        cb.VoiceID,
			AudioGuidePath: cb.AudioGuidePath,
			AudioGuideURL:  cb.AudioGuideURL,
			AudioGuideName: cb.AudioGuideName,
			CreatedAt:      cb.CreatedAt,
			UpdatedAt:      cb.UpdatedAt,
			Files:          make([]*model.ScoreFile, 0, len(cb.Files)),
		}
		for _, f := range cb.Files {
			b.Files = append(b.Files, &model.ScoreFile{
				ID:           f.ID,
				BundleID:     f.BundleID,
				ObjectPath:   f.ObjectPath,
				URL:          f.URL,
				OriginalName: f.OriginalName,
				Kind:         model.KindOrFallback(model.FileKind(f.Kind)),
				Position:     f.Position,
				CreatedAt:    f.CreatedAt,
				UpdatedAt:    f.UpdatedAt,
			})
		}
		out = append(out, b)
	}
	return out
}

// GetBundlesByPiece 读取某乐曲的资源包列表缓存；未命中返回 (nil, false)
func GetBundlesByPiece(ctx context.Context, pieceID int64) ([]*model.ResourceBundle, bool) {
	if db.RedisClient == nil {
		return nil, false
	}

	raw, err := db.RedisClient.Get(ctx, BundlesKey(pieceID)).Result()
	if err != nil {
		// 未命中或缓存故障都降级为直查数据库，不影响请求
		if err != redis.Nil {
			logger.Warn("读取资源包缓存失败", logger.ErrorField(err))
		}
		return nil, false
	}

	var cached []cachedBundle
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		// 缓存内容损坏，当作未命中并清掉
		db.RedisClient.Del(ctx, BundlesKey(pieceID))
		return nil, false
	}
	return fromCached(cached), true
}

// SetBundlesByPiece 写入某乐曲的资源包列表缓存
func SetBundlesByPiece(ctx context.Context, pieceID int64, bundles []*model.ResourceBundle) error {
	if db.RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	raw, err := json.Marshal(toCached(bundles))
	if err != nil {
		return fmt.Errorf("failed to marshal bundles for cache: %w", err)
	}

	if err := db.RedisClient.Set(ctx, BundlesKey(pieceID), raw, bundleCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set bundles cache: %w", err)
	}
	return nil
}

// InvalidateBundlesByPiece 使某乐曲的资源包列表缓存失效。
// 每次资源包创建/更新/删除后调用。
func InvalidateBundlesByPiece(ctx context.Context, pieceID int64) error {
	if db.RedisClient == nil {
		return nil
	}
	if err := db.RedisClient.Del(ctx, BundlesKey(pieceID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate bundles cache: %w", err)
	}
	return nil
}
