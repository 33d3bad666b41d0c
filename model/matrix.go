package model

// ViewerContext 是身份服务提供的只读角色上下文。
// 本服务不自行推导权限，只用它来选择矩阵视图的裁剪方式。
type ViewerContext struct {
	UserID       int64 `json:"userId"`
	IsManager    bool  `json:"isManager"`
	InstrumentID int64 `json:"instrumentId"` // 0 = 未声明乐器
	VoiceID      int64 `json:"voiceId"`      // 0 = 通用声部
}

// AxisEntry 表示矩阵的一个坐标轴条目（乐器或声部）
type AxisEntry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MatrixCell 表示矩阵中 (乐器, 声部) 的一个单元格。
// 由唯一性不变量保证，每个单元格至多对应一个资源包。
type MatrixCell struct {
	InstrumentID int64        `json:"instrumentId"`
	VoiceID      int64        `json:"voiceId"`
	BundleID     int64        `json:"bundleId"`
	Files        []*ScoreFile `json:"files"` // 非音频文件，按持久化顺序
}

// InstrumentAudio 表示某乐器聚合后的音频导读列表（与声部无关）
type InstrumentAudio struct {
	InstrumentID int64        `json:"instrumentId"`
	Files        []*ScoreFile `json:"files"`
}

// MatrixProjection 是某乐曲的乐器×声部投影，派生数据，不持久化。
// 底层资源包集合变化时整体重算。
type MatrixProjection struct {
	PieceID     int64             `json:"pieceId"`
	Instruments []AxisEntry       `json:"instruments"` // 按名称排序
	Voices      []AxisEntry       `json:"voices"`      // 按名称排序，通用声部置顶
	Cells       []MatrixCell      `json:"cells"`
	Audio       []InstrumentAudio `json:"audio"`
}
