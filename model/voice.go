package model

import "time"

// GeneralVoiceID is the distinguished "general/unassigned" vocal part.
// Stored as 0 instead of SQL NULL so the unique key on
// (piece_id, instrument_id, voice_id) also covers general-part bundles:
// MySQL unique indexes treat NULLs as distinct values.
const GeneralVoiceID int64 = 0

// VocalPart 表示声部（如一声部/二声部）；0 号表示无声部区分
type VocalPart struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name" gorm:"size:100;not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (VocalPart) TableName() string {
	return "voices"
}
