// Package orderedlist 提供可重排序列的通用操作。
// 资源包内的谱面文件排序与串烧曲目排序都使用同一套移动/提交逻辑。
package orderedlist

import "fmt"

// ErrIndexOutOfRange 表示移动操作的下标越界
var ErrIndexOutOfRange = fmt.Errorf("index out of range")

// Move 将 seq[from] 移动到下标 to，其余元素保持相对顺序不变。
// 返回新切片，原切片不被修改；from == to 时为空操作。
func Move[T any](seq []T, from, to int) ([]T, error) {
	if from < 0 || from >= len(seq) {
		return nil, fmt.Errorf("%w: from=%d len=%d", ErrIndexOutOfRange, from, len(seq))
	}
	if to < 0 || to >= len(seq) {
		return nil, fmt.Errorf("%w: to=%d len=%d", ErrIndexOutOfRange, to, len(seq))
	}

	out := make([]T, len(seq))
	copy(out, seq)
	if from == to {
		return out, nil
	}

	moved := out[from]
	if from < to {
		copy(out[from:to], out[from+1:to+1])
	} else {
		copy(out[to+1:from+1], out[to:from])
	}
	out[to] = moved
	return out, nil
}

// FileRef 标识编辑中文件列表的一项。
// 已持久化的文件带后端ID；尚未上传的新文件带客户端生成的临时ID，
// 提交时二者必须仍可区分，否则无法拆分保留列表与新增列表。
type FileRef struct {
	ID     int64  `json:"id,omitempty"`     // 后端ID，新文件为0
	TempID string `json:"tempId,omitempty"` // 新文件的临时ID（uuid）
	Name   string `json:"name,omitempty"`
}

// IsNew 判断该项是否为尚未持久化的新文件
func (r FileRef) IsNew() bool {
	return r.ID == 0
}

// SplitSubmitOrder 把编辑后的混合列表拆成提交契约要求的两个有序子列表：
// 保留的既有文件ID（决定它们的最终顺序）与新增文件（保持其组内相对顺序）。
// 两组之间在界面上的交错不会被保留——后端将两个子列表顺序拼接。
func SplitSubmitOrder(refs []FileRef) (retained []int64, added []FileRef) {
	retained = make([]int64, 0, len(refs))
	for _, r := range refs {
		if r.IsNew() {
			added = append(added, r)
		} else {
			retained = append(retained, r.ID)
		}
	}
	return retained, added
}
