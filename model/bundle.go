package model

import "time"

// FileKind 表示文件的声明类型，决定查看器的渲染策略
type FileKind string

const (
	KindDocument FileKind = "document"
	KindImage    FileKind = "image"
	KindAudio    FileKind = "audio"
)

// KindOrFallback 返回已知类型，未识别的类型回退到文档渲染路径
func KindOrFallback(k FileKind) FileKind {
	switch k {
	case KindDocument, KindImage, KindAudio:
		return k
	}
	return KindDocument
}

// ScoreFile represents one file inside a bundle's ordered list.
// Position is a persisted, first-class attribute, not incidental array order.
type ScoreFile struct {
	ID           int64     `json:"id"`
	BundleID     int64     `json:"bundleId"`
	ObjectPath   string    `json:"-"`            // MinIO object path, exposed via URL only
	URL          string    `json:"url"`          // /files/<object> proxy URL
	OriginalName string    `json:"originalName"` // filename as uploaded
	Kind         FileKind  `json:"kind"`         // document or image; audio lives in the guide slot
	Position     int       `json:"position"`     // 1-based order within the bundle
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ResourceBundle 表示一个 (乐曲, 乐器, 声部) 三元组的资源包。
// 不变量：同一三元组最多存在一个资源包（含0号通用声部）。
type ResourceBundle struct {
	ID           int64        `json:"id"`
	PieceID      int64        `json:"pieceId"`
	InstrumentID int64        `json:"instrumentId"`
	VoiceID      int64        `json:"voiceId"` // 0 = 通用声部
	// 音频导读槽位：与有序文件列表相互独立，至多一个
	AudioGuidePath string     `json:"-"`
	AudioGuideURL  string     `json:"audioGuideUrl,omitempty"`
	AudioGuideName string     `json:"audioGuideName,omitempty"`
	Files          []*ScoreFile `json:"files"` // 按 Position 升序
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// HasAudioGuide 判断资源包是否带有音频导读
func (b *ResourceBundle) HasAudioGuide() bool {
	return b.AudioGuidePath != ""
}

// AudioGuideFile 将音频导读槽位转为查看器可消费的文件项
func (b *ResourceBundle) AudioGuideFile() *ScoreFile {
	if !b.HasAudioGuide() {
		return nil
	}
	return &ScoreFile{
		BundleID:     b.ID,
		ObjectPath:   b.AudioGuidePath,
		URL:          b.AudioGuideURL,
		OriginalName: b.AudioGuideName,
		Kind:         KindAudio,
	}
}
