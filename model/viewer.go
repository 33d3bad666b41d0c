package model

// ViewerItem 是沉浸式查看器序列中的一项。
// 每一项携带自己的类型，索引切换时重新评估可用的变换操作。
type ViewerItem struct {
	FileID int64    `json:"fileId"`
	Name   string   `json:"name"`
	URL    string   `json:"url"`
	Kind   FileKind `json:"kind"`
}
