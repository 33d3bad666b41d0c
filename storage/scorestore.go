package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"ScoreRack/logger"
	"ScoreRack/model"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// ScoreStore 封装谱面/音频对象的上传、读取与级联删除。
// 服务只保存对象路径，文件内容自始至终是不透明的二进制。
type ScoreStore struct {
	client *minio.Client
	bucket string
}

// NewScoreStore 创建对象存储访问器
func NewScoreStore(client *minio.Client, bucket string) *ScoreStore {
	return &ScoreStore{client: client, bucket: bucket}
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_\-\.]`)

// ObjectName 为上传文件生成对象路径：<category>/<uuid>_<安全文件名>
func ObjectName(category, originalName string) string {
	base := strings.TrimSpace(originalName)
	if base == "" {
		base = "unnamed"
	}
	base = unsafeNameChars.ReplaceAllString(base, "_")
	if len(base) > 150 {
		base = base[len(base)-150:]
	}
	return fmt.Sprintf("%s/%s_%s", category, uuid.New().String()[:8], base)
}

// FileURL 返回对象的代理访问URL
func FileURL(objectPath string) string {
	if objectPath == "" {
		return ""
	}
	return "/files/" + objectPath
}

// Upload 上传一个对象
func (s *ScoreStore) Upload(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("上传对象失败 %s: %w", objectName, err)
	}
	logger.Debug("对象上传完成",
		logger.String("object", objectName),
		logger.Int64("size", size))
	return nil
}

// UploadLocalFile 上传本地文件（导入器使用）
func (s *ScoreStore) UploadLocalFile(ctx context.Context, objectName, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("打开本地文件失败 %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("读取文件信息失败 %s: %w", path, err)
	}

	return s.Upload(ctx, objectName, f, info.Size(), ContentTypeFor(path))
}

// Get 读取一个对象，调用方负责 Close
func (s *ScoreStore) Get(ctx context.Context, objectName string) (*minio.Object, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("读取对象失败 %s: %w", objectName, err)
	}
	return obj, nil
}

// Remove 删除一个对象；对象不存在不视为错误
func (s *ScoreStore) Remove(ctx context.Context, objectName string) error {
	if objectName == "" {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("删除对象失败 %s: %w", objectName, err)
	}
	return nil
}

// RemoveAll 删除一批对象，逐个尝试并汇总失败数。
// 资源包删除后的对象清理走这里：行已删除，残留对象只是可回收垃圾，
// 因此失败只记日志不回滚。
func (s *ScoreStore) RemoveAll(ctx context.Context, objectNames []string) {
	for _, name := range objectNames {
		if err := s.Remove(ctx, name); err != nil {
			logger.Warn("清理对象失败", logger.String("object", name), logger.ErrorField(err))
		}
	}
}

// ContentTypeFor 根据扩展名推断Content-Type，仅用于响应头
func ContentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	case ".ogg":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}

// KindForFilename 根据扩展名推断文件的声明类型；未识别的按文档处理
func KindForFilename(name string) model.FileKind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return model.KindImage
	case ".mp3", ".wav", ".m4a", ".ogg":
		return model.KindAudio
	default:
		return model.KindDocument
	}
}
