package model

import "time"

// Section 表示乐器分组（如铜管、打击乐）
type Section struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name" gorm:"size:100;not null;uniqueIndex"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (Section) TableName() string {
	return "sections"
}

// Instrument 表示一种乐器，归属于一个分组。静态参考数据。
type Instrument struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name" gorm:"size:100;not null"`
	SectionID int64     `json:"sectionId" gorm:"index;not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (Instrument) TableName() string {
	return "instruments"
}
