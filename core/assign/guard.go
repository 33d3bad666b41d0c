// Package assign 实现分配守卫：计算某 (乐曲, 乐器) 下已被占用的声部集合，
// 用于在提交前禁用重复选项。守卫只是交互提示，权威校验在存储层事务内完成。
package assign

import (
	"sort"

	"ScoreRack/model"
)

// TakenParts 扫描资源包集合，返回给定 (乐曲, 乐器) 下已被占用的声部ID集合。
// excludeBundleID 排除正在编辑的资源包，原地编辑不会被自己阻塞；传0表示不排除。
// 0号通用声部同样参与排他：每个 (乐曲, 乐器) 至多一个通用资源包。
func TakenParts(bundles []*model.ResourceBundle, pieceID, instrumentID, excludeBundleID int64) map[int64]bool {
	taken := make(map[int64]bool)
	for _, b := range bundles {
		if b.PieceID != pieceID || b.InstrumentID != instrumentID {
			continue
		}
		if excludeBundleID != 0 && b.ID == excludeBundleID {
			continue
		}
		taken[b.VoiceID] = true
	}
	return taken
}

// TakenPartIDs 返回排序后的占用声部ID列表，便于序列化为稳定的响应
func TakenPartIDs(bundles []*model.ResourceBundle, pieceID, instrumentID, excludeBundleID int64) []int64 {
	taken := TakenParts(bundles, pieceID, instrumentID, excludeBundleID)
	ids := make([]int64, 0, len(taken))
	for id := range taken {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
