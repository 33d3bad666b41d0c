package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ScoreRack/db"
	"ScoreRack/logger"
	"ScoreRack/model"
	"ScoreRack/storage"
)

// BundleRepository defines the interface for resource bundle data operations.
// A bundle binds exactly one (piece, instrument, voice) triple; the repository
// enforces the uniqueness invariant inside its transactions, backed by the
// unique key on the bundles table.
type BundleRepository interface {
	CreateBundle(ctx context.Context, bundle *model.ResourceBundle, files []*model.ScoreFile) (int64, error)
	GetBundleByID(ctx context.Context, id int64) (*model.ResourceBundle, error)
	ListBundlesByPiece(ctx context.Context, pieceID int64) ([]*model.ResourceBundle, error)
	CountBundlesByPiece(ctx context.Context, pieceID int64) (int64, error)
	UpdateBundle(ctx context.Context, patch *BundlePatch) (removedObjects []string, err error)
	DeleteBundle(ctx context.Context, id int64) (removedObjects []string, err error)
}

// BundlePatch 描述一次资源包更新提交。
// 文件变更表达为三个互不相交的集合：保留的既有文件ID（决定最终顺序）、
// 新增文件（已上传到对象存储）、以及音频导读的显式删除标记。
// 既有文件的二进制不可变，重排永远不会触发重新上传。
type BundlePatch struct {
	BundleID     int64
	PieceID      int64
	InstrumentID int64
	VoiceID      int64

	RetainedFileIDs []int64            // 保留文件的最终顺序
	NewFiles        []*model.ScoreFile // 追加在保留文件之后，组内相对顺序保持

	NewAudioGuidePath string // 非空表示替换音频导读
	NewAudioGuideName string
	RemoveAudioGuide  bool // 显式删除音频导读
}

// mysqlBundleRepository implements BundleRepository for MySQL.
type mysqlBundleRepository struct {
	DB *sql.DB
}

// NewMySQLBundleRepository creates a new instance of mysqlBundleRepository.
func NewMySQLBundleRepository() BundleRepository {
	return &mysqlBundleRepository{DB: db.DB}
}

// isDuplicateKeyErr 识别唯一键冲突（并发创建时守卫数据已过期的情形）
func isDuplicateKeyErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Duplicate entry")
}

// CreateBundle 创建资源包及其有序文件，整体在一个事务内完成。
// 三元组冲突返回 model.ErrDuplicateAssignment。
func (r *mysqlBundleRepository) CreateBundle(ctx context.Context, bundle *model.ResourceBundle, files []*model.ScoreFile) (int64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin tx for CreateBundle: %w", err)
	}
	defer tx.Rollback()

	// 事务内权威校验；客户端守卫只是提示，这里才是判定之地
	taken, err := takenInTx(ctx, tx, bundle.PieceID, bundle.InstrumentID, 0)
	if err != nil {
		return 0, err
	}
	for _, v := range taken {
		if v == bundle.VoiceID {
			return 0, model.ErrDuplicateAssignment
		}
	}

	now := time.Now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bundles (piece_id, instrument_id, voice_id, audio_guide_path, audio_guide_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		bundle.PieceID, bundle.InstrumentID, bundle.VoiceID, bundle.AudioGuidePath, bundle.AudioGuideName, now, now)
	if err != nil {
		if isDuplicateKeyErr(err) {
			return 0, model.ErrDuplicateAssignment
		}
		return 0, fmt.Errorf("failed to insert bundle: %w", err)
	}

	bundleID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for CreateBundle: %w", err)
	}

	for i, f := range files {
		if err := insertScoreFile(ctx, tx, bundleID, f, i+1, now); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit CreateBundle: %w", err)
	}

	logger.Info("资源包已创建",
		logger.Int64("bundleId", bundleID),
		logger.Int64("pieceId", bundle.PieceID),
		logger.Int64("instrumentId", bundle.InstrumentID),
		logger.Int64("voiceId", bundle.VoiceID),
		logger.Int("files", len(files)))
	return bundleID, nil
}

func insertScoreFile(ctx context.Context, tx *sql.Tx, bundleID int64, f *model.ScoreFile, position int, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO score_files (bundle_id, object_path, original_name, kind, position, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		bundleID, f.ObjectPath, f.OriginalName, string(f.Kind), position, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert score file %s: %w", f.OriginalName, err)
	}
	return nil
}

// GetBundleByID retrieves a bundle with its ordered files.
func (r *mysqlBundleRepository) GetBundleByID(ctx context.Context, id int64) (*model.ResourceBundle, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT id, piece_id, instrument_id, voice_id, audio_guide_path, audio_guide_name, created_at, updated_at
		 FROM bundles WHERE id = ?`, id)

	bundle, err := scanBundle(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan bundle by ID %d: %w", id, err)
	}

	files, err := r.filesForBundles(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	bundle.Files = files[id]
	return bundle, nil
}

// ListBundlesByPiece retrieves all bundles of a piece, files in persisted order.
// This is the feed for the matrix projection.
func (r *mysqlBundleRepository) ListBundlesByPiece(ctx context.Context, pieceID int64) ([]*model.ResourceBundle, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, piece_id, instrument_id, voice_id, audio_guide_path, audio_guide_name, created_at, updated_at
		 FROM bundles WHERE piece_id = ? ORDER BY instrument_id, voice_id`, pieceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bundles for piece %d: %w", pieceID, err)
	}
	defer rows.Close()

	bundles := make([]*model.ResourceBundle, 0)
	ids := make([]int64, 0)
	for rows.Next() {
		b, err := scanBundle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bundle in ListBundlesByPiece: %w", err)
		}
		bundles = append(bundles, b)
		ids = append(ids, b.ID)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in ListBundlesByPiece: %w", err)
	}

	if len(ids) > 0 {
		files, err := r.filesForBundles(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, b := range bundles {
			b.Files = files[b.ID]
			if b.Files == nil {
				b.Files = []*model.ScoreFile{}
			}
		}
	}
	return bundles, nil
}

// CountBundlesByPiece 统计某乐曲下的资源包数量（删除乐曲前的引用检查）
func (r *mysqlBundleRepository) CountBundlesByPiece(ctx context.Context, pieceID int64) (int64, error) {
	var count int64
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM bundles WHERE piece_id = ?`, pieceID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bundles for piece %d: %w", pieceID, err)
	}
	return count, nil
}

func takenInTx(ctx context.Context, tx *sql.Tx, pieceID, instrumentID, excludeBundleID int64) ([]int64, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT voice_id FROM bundles WHERE piece_id = ? AND instrument_id = ? AND id <> ?`,
		pieceID, instrumentID, excludeBundleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query taken voices in tx: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan taken voice id in tx: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateBundle 应用一次更新提交。
// 返回提交后需要从对象存储清理的对象路径：行删除在事务内，对象删除在
// 提交之后——孤儿对象是可回收垃圾，悬空行不是。
func (r *mysqlBundleRepository) UpdateBundle(ctx context.Context, patch *BundlePatch) ([]string, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx for UpdateBundle: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT id, piece_id, instrument_id, voice_id, audio_guide_path, audio_guide_name, created_at, updated_at
		 FROM bundles WHERE id = ? FOR UPDATE`, patch.BundleID)
	current, err := scanBundle(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load bundle %d for update: %w", patch.BundleID, err)
	}

	// 对新三元组重新校验唯一性，排除自身：原地编辑不会被自己阻塞
	taken, err := takenInTx(ctx, tx, patch.PieceID, patch.InstrumentID, patch.BundleID)
	if err != nil {
		return nil, err
	}
	for _, v := range taken {
		if v == patch.VoiceID {
			return nil, model.ErrDuplicateAssignment
		}
	}

	var removedObjects []string
	now := time.Now()

	// 音频导读槽位：替换即丢弃旧对象，删除标记清空槽位
	audioPath := current.AudioGuidePath
	audioName := current.AudioGuideName
	if patch.RemoveAudioGuide && current.AudioGuidePath != "" {
		removedObjects = append(removedObjects, current.AudioGuidePath)
		audioPath, audioName = "", ""
	}
	if patch.NewAudioGuidePath != "" {
		if current.AudioGuidePath != "" && current.AudioGuidePath != patch.NewAudioGuidePath {
			removedObjects = append(removedObjects, current.AudioGuidePath)
		}
		audioPath, audioName = patch.NewAudioGuidePath, patch.NewAudioGuideName
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE bundles SET piece_id = ?, instrument_id = ?, voice_id = ?, audio_guide_path = ?, audio_guide_name = ?, updated_at = ?
		 WHERE id = ?`,
		patch.PieceID, patch.InstrumentID, patch.VoiceID, audioPath, audioName, now, patch.BundleID)
	if err != nil {
		if isDuplicateKeyErr(err) {
			return nil, model.ErrDuplicateAssignment
		}
		return nil, fmt.Errorf("failed to update bundle %d: %w", patch.BundleID, err)
	}

	// 未保留的既有文件删除行并收集对象路径
	existing, err := filesInTx(ctx, tx, patch.BundleID)
	if err != nil {
		return nil, err
	}
	retained := make(map[int64]int, len(patch.RetainedFileIDs)) // id -> 最终位置(1-based)
	for i, id := range patch.RetainedFileIDs {
		retained[id] = i + 1
	}
	for _, f := range existing {
		pos, keep := retained[f.ID]
		if !keep {
			if _, err := tx.ExecContext(ctx, `DELETE FROM score_files WHERE id = ?`, f.ID); err != nil {
				return nil, fmt.Errorf("failed to delete score file %d: %w", f.ID, err)
			}
			removedObjects = append(removedObjects, f.ObjectPath)
			continue
		}
		if pos != f.Position {
			if _, err := tx.ExecContext(ctx,
				`UPDATE score_files SET position = ?, updated_at = ? WHERE id = ?`, pos, now, f.ID); err != nil {
				return nil, fmt.Errorf("failed to reposition score file %d: %w", f.ID, err)
			}
		}
	}

	// 新文件追加在保留文件之后，保持组内相对顺序
	for i, f := range patch.NewFiles {
		if err := insertScoreFile(ctx, tx, patch.BundleID, f, len(patch.RetainedFileIDs)+i+1, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit UpdateBundle: %w", err)
	}

	logger.Info("资源包已更新",
		logger.Int64("bundleId", patch.BundleID),
		logger.Int("retained", len(patch.RetainedFileIDs)),
		logger.Int("added", len(patch.NewFiles)),
		logger.Int("removedObjects", len(removedObjects)))
	return removedObjects, nil
}

// DeleteBundle 删除资源包并级联文件行，返回待清理的对象路径
func (r *mysqlBundleRepository) DeleteBundle(ctx context.Context, id int64) ([]string, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx for DeleteBundle: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT id, piece_id, instrument_id, voice_id, audio_guide_path, audio_guide_name, created_at, updated_at
		 FROM bundles WHERE id = ? FOR UPDATE`, id)
	bundle, err := scanBundle(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load bundle %d for delete: %w", id, err)
	}

	files, err := filesInTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	var removedObjects []string
	for _, f := range files {
		removedObjects = append(removedObjects, f.ObjectPath)
	}
	if bundle.AudioGuidePath != "" {
		removedObjects = append(removedObjects, bundle.AudioGuidePath)
	}

	// score_files 行由外键 ON DELETE CASCADE 带走
	if _, err := tx.ExecContext(ctx, `DELETE FROM bundles WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to delete bundle %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit DeleteBundle: %w", err)
	}

	logger.Info("资源包已删除", logger.Int64("bundleId", id), logger.Int("removedObjects", len(removedObjects)))
	return removedObjects, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBundle(row rowScanner) (*model.ResourceBundle, error) {
	b := &model.ResourceBundle{}
	err := row.Scan(&b.ID, &b.PieceID, &b.InstrumentID, &b.VoiceID, &b.AudioGuidePath, &b.AudioGuideName, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.AudioGuideURL = storage.FileURL(b.AudioGuidePath)
	return b, nil
}

// filesForBundles 批量加载文件行，按 position 升序
func (r *mysqlBundleRepository) filesForBundles(ctx context.Context, bundleIDs []int64) (map[int64][]*model.ScoreFile, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(bundleIDs)), ",")
	args := make([]interface{}, len(bundleIDs))
	for i, id := range bundleIDs {
		args[i] = id
	}

	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, bundle_id, object_path, original_name, kind, position, created_at, updated_at
		 FROM score_files WHERE bundle_id IN (`+placeholders+`) ORDER BY bundle_id, position`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query score files: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]*model.ScoreFile)
	for rows.Next() {
		f, err := scanScoreFile(rows)
		if err != nil {
			return nil, err
		}
		out[f.BundleID] = append(out[f.BundleID], f)
	}
	return out, rows.Err()
}

func filesInTx(ctx context.Context, tx *sql.Tx, bundleID int64) ([]*model.ScoreFile, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, bundle_id, object_path, original_name, kind, position, created_at, updated_at
		 FROM score_files WHERE bundle_id = ? ORDER BY position`, bundleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query score files in tx: %w", err)
	}
	defer rows.Close()

	files := make([]*model.ScoreFile, 0)
	for rows.Next() {
		f, err := scanScoreFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func scanScoreFile(row rowScanner) (*model.ScoreFile, error) {
	f := &model.ScoreFile{}
	var kind string
	err := row.Scan(&f.ID, &f.BundleID, &f.ObjectPath, &f.OriginalName, &kind, &f.Position, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan score file: %w", err)
	}
	f.Kind = model.KindOrFallback(model.FileKind(kind))
	f.URL = storage.FileURL(f.ObjectPath)
	return f, nil
}
