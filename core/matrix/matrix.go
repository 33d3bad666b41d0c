// Package matrix 将扁平的资源包集合物化为乐器×声部矩阵投影。
// 投影是每次读取时重新计算的纯函数：底层集合规模受 乐器数×声部数 约束，
// 不值得为它维护增量缓存。
package matrix

import (
	"fmt"
	"sort"

	"ScoreRack/model"
)

// generalVoiceName 是0号通用声部在坐标轴上的展示名
const generalVoiceName = "General"

// Project 为指定乐曲物化矩阵投影。
//
// 裁剪规则是本功能的核心访问控制：
//   - 管理者或未声明乐器的成员看到完整矩阵；
//   - 演奏者只看到自己乐器的资源包，且声部等于自己的声部或为通用声部。
//     通用声部资源包对该乐器的所有声部可见（打击乐等无声部细分的共享材料），
//     而具体声部的资源包只对完全匹配的声部可见——这是有意的不对称，不要"修正"。
func Project(pieceID int64, bundles []*model.ResourceBundle, instruments []*model.Instrument, voices []*model.VocalPart, viewer model.ViewerContext) *model.MatrixProjection {
	scoped := make([]*model.ResourceBundle, 0, len(bundles))
	restrict := !viewer.IsManager && viewer.InstrumentID != 0
	for _, b := range bundles {
		if b.PieceID != pieceID {
			continue
		}
		if restrict {
			if b.InstrumentID != viewer.InstrumentID {
				continue
			}
			if b.VoiceID != viewer.VoiceID && b.VoiceID != model.GeneralVoiceID {
				continue
			}
		}
		scoped = append(scoped, b)
	}

	instrumentNames := make(map[int64]string, len(instruments))
	for _, ins := range instruments {
		instrumentNames[ins.ID] = ins.Name
	}
	voiceNames := make(map[int64]string, len(voices))
	for _, v := range voices {
		voiceNames[v.ID] = v.Name
	}

	proj := &model.MatrixProjection{
		PieceID:     pieceID,
		Instruments: axisFor(distinctInstrumentIDs(scoped), instrumentNames, "Instrument"),
		Voices:      voiceAxis(distinctVoiceIDs(scoped), voiceNames),
		Cells:       make([]model.MatrixCell, 0, len(scoped)),
		Audio:       make([]model.InstrumentAudio, 0),
	}

	// 单元格按坐标轴顺序输出，保证投影的序列化结果稳定
	byTriple := make(map[[2]int64]*model.ResourceBundle, len(scoped))
	for _, b := range scoped {
		byTriple[[2]int64{b.InstrumentID, b.VoiceID}] = b
	}
	for _, ins := range proj.Instruments {
		for _, v := range proj.Voices {
			b, ok := byTriple[[2]int64{ins.ID, v.ID}]
			if !ok {
				continue
			}
			proj.Cells = append(proj.Cells, model.MatrixCell{
				InstrumentID: ins.ID,
				VoiceID:      v.ID,
				BundleID:     b.ID,
				Files:        nonAudioFiles(b),
			})
		}
	}

	// 音频导读按乐器聚合，与声部无关
	for _, ins := range proj.Instruments {
		var files []*model.ScoreFile
		for _, v := range proj.Voices {
			b, ok := byTriple[[2]int64{ins.ID, v.ID}]
			if !ok || !b.HasAudioGuide() {
				continue
			}
			files = append(files, b.AudioGuideFile())
		}
		if len(files) > 0 {
			proj.Audio = append(proj.Audio, model.InstrumentAudio{InstrumentID: ins.ID, Files: files})
		}
	}

	return proj
}

// CellSequence 将一个矩阵单元格展平为查看器消费的有序序列。
// 未识别的文件类型回退为文档渲染。
func CellSequence(cell model.MatrixCell) []model.ViewerItem {
	items := make([]model.ViewerItem, 0, len(cell.Files))
	for _, f := range cell.Files {
		items = append(items, model.ViewerItem{
			FileID: f.ID,
			Name:   f.OriginalName,
			URL:    f.URL,
			Kind:   model.KindOrFallback(f.Kind),
		})
	}
	return items
}

// BundleSequence 将资源包展平为查看器序列：有序谱面文件在前，
// includeAudio 为真且存在音频导读时追加到末尾。
func BundleSequence(b *model.ResourceBundle, includeAudio bool) []model.ViewerItem {
	files := nonAudioFiles(b)
	items := make([]model.ViewerItem, 0, len(files)+1)
	for _, f := range files {
		items = append(items, model.ViewerItem{
			FileID: f.ID,
			Name:   f.OriginalName,
			URL:    f.URL,
			Kind:   model.KindOrFallback(f.Kind),
		})
	}
	if includeAudio && b.HasAudioGuide() {
		g := b.AudioGuideFile()
		items = append(items, model.ViewerItem{
			Name: g.OriginalName,
			URL:  g.URL,
			Kind: model.KindAudio,
		})
	}
	return items
}

func nonAudioFiles(b *model.ResourceBundle) []*model.ScoreFile {
	files := make([]*model.ScoreFile, 0, len(b.Files))
	for _, f := range b.Files {
		if f.Kind == model.KindAudio {
			continue
		}
		files = append(files, f)
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].Position < files[j].Position })
	return files
}

func distinctInstrumentIDs(bundles []*model.ResourceBundle) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, b := range bundles {
		if !seen[b.InstrumentID] {
			seen[b.InstrumentID] = true
			ids = append(ids, b.InstrumentID)
		}
	}
	return ids
}

func distinctVoiceIDs(bundles []*model.ResourceBundle) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, b := range bundles {
		if !seen[b.VoiceID] {
			seen[b.VoiceID] = true
			ids = append(ids, b.VoiceID)
		}
	}
	return ids
}

func axisFor(ids []int64, names map[int64]string, fallbackPrefix string) []model.AxisEntry {
	axis := make([]model.AxisEntry, 0, len(ids))
	for _, id := range ids {
		name, ok := names[id]
		if !ok {
			name = fmt.Sprintf("%s %d", fallbackPrefix, id)
		}
		axis = append(axis, model.AxisEntry{ID: id, Name: name})
	}
	sort.Slice(axis, func(i, j int) bool { return axis[i].Name < axis[j].Name })
	return axis
}

// voiceAxis 按名称排序声部，通用声部存在时置顶
func voiceAxis(ids []int64, names map[int64]string) []model.AxisEntry {
	axis := make([]model.AxisEntry, 0, len(ids))
	hasGeneral := false
	for _, id := range ids {
		if id == model.GeneralVoiceID {
			hasGeneral = true
			continue
		}
		name, ok := names[id]
		if !ok {
			name = fmt.Sprintf("Voice %d", id)
		}
		axis = append(axis, model.AxisEntry{ID: id, Name: name})
	}
	sort.Slice(axis, func(i, j int) bool { return axis[i].Name < axis[j].Name })
	if hasGeneral {
		axis = append([]model.AxisEntry{{ID: model.GeneralVoiceID, Name: generalVoiceName}}, axis...)
	}
	return axis
}
