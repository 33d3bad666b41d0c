package repository

import (
	"context"
	"errors"
	"fmt"

	"ScoreRack/model"

	"gorm.io/gorm"
)

// CatalogRepository 提供目录类参考数据的访问：
// 乐曲可由管理者增删改，分组/乐器/声部是只读的静态参考数据。
type CatalogRepository interface {
	ListPieces(ctx context.Context) ([]*model.MusicalPiece, error)
	GetPieceByID(ctx context.Context, id int64) (*model.MusicalPiece, error)
	CreatePiece(ctx context.Context, piece *model.MusicalPiece) error
	UpdatePiece(ctx context.Context, piece *model.MusicalPiece) error
	DeletePiece(ctx context.Context, id int64) error

	ListSections(ctx context.Context) ([]*model.Section, error)
	ListInstruments(ctx context.Context) ([]*model.Instrument, error)
	ListVoices(ctx context.Context) ([]*model.VocalPart, error)
}

// gormCatalogRepository implements CatalogRepository on the GORM connection.
type gormCatalogRepository struct {
	db *gorm.DB
}

// NewGormCatalogRepository creates a new instance of gormCatalogRepository.
func NewGormCatalogRepository(db *gorm.DB) CatalogRepository {
	return &gormCatalogRepository{db: db}
}

// ListPieces 按名称返回全部乐曲
func (r *gormCatalogRepository) ListPieces(ctx context.Context) ([]*model.MusicalPiece, error) {
	var pieces []*model.MusicalPiece
	if err := r.db.WithContext(ctx).Order("name").Find(&pieces).Error; err != nil {
		return nil, fmt.Errorf("failed to list pieces: %w", err)
	}
	return pieces, nil
}

// GetPieceByID 按ID取乐曲，不存在返回 model.ErrNotFound
func (r *gormCatalogRepository) GetPieceByID(ctx context.Context, id int64) (*model.MusicalPiece, error) {
	var piece model.MusicalPiece
	err := r.db.WithContext(ctx).First(&piece, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get piece %d: %w", id, err)
	}
	return &piece, nil
}

// CreatePiece 创建乐曲
func (r *gormCatalogRepository) CreatePiece(ctx context.Context, piece *model.MusicalPiece) error {
	if err := r.db.WithContext(ctx).Create(piece).Error; err != nil {
		return fmt.Errorf("failed to create piece: %w", err)
	}
	return nil
}

// UpdatePiece 更新乐曲（重命名、参考视频、主音轨）
func (r *gormCatalogRepository) UpdatePiece(ctx context.Context, piece *model.MusicalPiece) error {
	res := r.db.WithContext(ctx).Model(&model.MusicalPiece{ID: piece.ID}).
		Updates(map[string]interface{}{
			"name":                piece.Name,
			"genre":               piece.Genre,
			"reference_video_url": piece.ReferenceVideoURL,
			"audio_track_path":    piece.AudioTrackPath,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update piece %d: %w", piece.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// DeletePiece 删除乐曲。引用检查（是否仍有资源包）由调用方在删除前完成。
func (r *gormCatalogRepository) DeletePiece(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.MusicalPiece{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete piece %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// ListSections 返回全部乐器分组
func (r *gormCatalogRepository) ListSections(ctx context.Context) ([]*model.Section, error) {
	var sections []*model.Section
	if err := r.db.WithContext(ctx).Order("name").Find(&sections).Error; err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	return sections, nil
}

// ListInstruments 返回全部乐器
func (r *gormCatalogRepository) ListInstruments(ctx context.Context) ([]*model.Instrument, error) {
	var instruments []*model.Instrument
	if err := r.db.WithContext(ctx).Order("name").Find(&instruments).Error; err != nil {
		return nil, fmt.Errorf("failed to list instruments: %w", err)
	}
	return instruments, nil
}

// ListVoices 返回全部声部（不含0号通用声部，它不是目录行）
func (r *gormCatalogRepository) ListVoices(ctx context.Context) ([]*model.VocalPart, error) {
	var voices []*model.VocalPart
	if err := r.db.WithContext(ctx).Order("name").Find(&voices).Error; err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}
	return voices, nil
}
