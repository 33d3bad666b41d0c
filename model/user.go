package model

import (
	"database/sql"
	"time"
)

// User represents an ensemble member account.
// IsManager plus the declared instrument/voice form the role context that
// scopes the matrix projection.
type User struct {
	ID           int64          `json:"id"`
	Username     string         `json:"username"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"-"`
	IsManager    bool           `json:"isManager"`
	InstrumentID int64          `json:"instrumentId"` // 0 = no declared instrument
	VoiceID      int64          `json:"voiceId"`      // 0 = general voice
	Phone        sql.NullString `json:"phone,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}
