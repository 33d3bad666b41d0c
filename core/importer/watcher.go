// Package importer 监听扫描件投递目录，把落盘的谱面文件自动上传到对象存储。
// 扫描仪输出目录挂到 IMPORT_WATCH_DIR 后，扫描完成的文件无需浏览器即可入库，
// 管理者在编辑资源包时再从 inbox/ 前缀挑选归档。
package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ScoreRack/logger"
	"ScoreRack/storage"

	"github.com/fsnotify/fsnotify"
)

// 扫描件允许的扩展名；其他文件（临时文件、缩略图等）一律忽略
var importableExts = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".mp3":  true,
	".wav":  true,
}

// settleDelay 等待写入方完成落盘；扫描仪通常是写完后原子改名，
// Create 事件后稍等再读能避开半截文件
const settleDelay = 500 * time.Millisecond

// Watcher 监听投递目录并上传新文件
type Watcher struct {
	dir     string
	store   *storage.ScoreStore
	watcher *fsnotify.Watcher
}

// New 创建投递目录监听器，目录不存在时自动创建
func New(dir string, store *storage.ScoreStore) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}

	return &Watcher{dir: dir, store: store, watcher: w}, nil
}

// Start 启动监听循环，ctx 取消时退出并关闭底层 watcher
func (w *Watcher) Start(ctx context.Context) {
	logger.Info("扫描件导入器已启动", logger.String("dir", w.dir))
	go func() {
		defer w.watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				// Create 覆盖直接写入，Rename 覆盖"写临时文件后改名"的扫描仪
				if event.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				w.handleFile(ctx, event.Name)
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				logger.Error("导入器监听错误", logger.ErrorField(err))
			}
		}
	}()
}

func (w *Watcher) handleFile(ctx context.Context, path string) {
	ext := strings.ToLower(filepath.Ext(path))
	if !importableExts[ext] {
		return
	}

	time.Sleep(settleDelay)

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	objectName := storage.ObjectName("inbox", filepath.Base(path))
	uploadCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	if err := w.store.UploadLocalFile(uploadCtx, objectName, path); err != nil {
		logger.Error("扫描件上传失败",
			logger.String("path", path),
			logger.ErrorField(err))
		return
	}

	logger.Info("扫描件已入库",
		logger.String("path", path),
		logger.String("object", objectName))

	// 上传成功后移走源文件，避免重启时重复入库
	if err := os.Remove(path); err != nil {
		logger.Warn("删除已入库扫描件失败", logger.String("path", path), logger.ErrorField(err))
	}
}
