package model

import "time"

// MusicalPiece represents one piece in the ensemble's repertoire.
// Managed through the GORM catalog layer; deletion is blocked while any
// ResourceBundle still references the piece.
type MusicalPiece struct {
	ID                int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name              string    `json:"name" gorm:"size:255;not null"`
	Genre             string    `json:"genre" gorm:"size:100"`
	ReferenceVideoURL string    `json:"referenceVideoUrl" gorm:"size:767"`
	AudioTrackPath    string    `json:"audioTrackPath" gorm:"size:767"` // principal reference audio object, optional
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (MusicalPiece) TableName() string {
	return "pieces"
}
