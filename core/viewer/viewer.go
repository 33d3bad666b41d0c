// Package viewer 实现沉浸式查看器的会话状态机：
// 在文档/图片/音频混合序列上导航，图片项支持缩放、旋转与平移。
// 会话是纯内存状态，关闭即销毁，不做任何持久化。
package viewer

import (
	"errors"
	"sync"
	"time"

	"ScoreRack/model"
)

const (
	ZoomDefault = 100
	ZoomMin     = 50
	ZoomMax     = 400
	ZoomStep    = 25

	rotationStep = 90
)

var (
	// ErrEmptySequence 空序列不允许打开查看器，调用方负责拦截
	ErrEmptySequence = errors.New("viewer: empty sequence")

	// ErrStartIndexOutOfRange 打开时的起始下标越界
	ErrStartIndexOutOfRange = errors.New("viewer: start index out of range")

	// ErrNotTransformable 当前项不是图片，变换操作不可用
	ErrNotTransformable = errors.New("viewer: current item does not support transforms")

	// ErrSessionNotFound 会话不存在或已被关闭
	ErrSessionNotFound = errors.New("viewer: session not found")
)

// Pan 是二维平移偏移，仅在缩放大于100%时有意义
type Pan struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Transform 是单个文件的显示变换状态
type Transform struct {
	Zoom     int `json:"zoom"`     // 百分比，默认100
	Rotation int `json:"rotation"` // 90度步进，[0,360)
	Pan      Pan `json:"pan"`
}

// DefaultTransform 返回初始变换状态 {100, 0, (0,0)}
func DefaultTransform() Transform {
	return Transform{Zoom: ZoomDefault}
}

// Session 是一次打开的查看器会话。
// 所有导出方法都持有会话锁；切换文件或关闭会话时变换状态归零。
type Session struct {
	ID       string
	OwnerID  int64
	Sequence []model.ViewerItem

	mu            sync.Mutex
	index         int
	transform     Transform
	chromeVisible bool
	dragging      bool
	anchor        Pan // 拖拽起点的指针位置
	panAtDrag     Pan // 拖拽开始时的平移偏移
	touchedAt     time.Time
}

func newSession(id string, ownerID int64, seq []model.ViewerItem, startIndex int) *Session {
	return &Session{
		ID:            id,
		OwnerID:       ownerID,
		Sequence:      seq,
		index:         startIndex,
		transform:     DefaultTransform(),
		chromeVisible: true,
		touchedAt:     time.Now(),
	}
}

// State 是会话状态的序列化快照
type State struct {
	ID            string           `json:"id"`
	Index         int              `json:"index"`
	Length        int              `json:"length"`
	Current       model.ViewerItem `json:"current"`
	Transform     Transform        `json:"transform"`
	ChromeVisible bool             `json:"chromeVisible"`
	Dragging      bool             `json:"dragging"`
}

// Snapshot 返回当前状态快照
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		ID:            s.ID,
		Index:         s.index,
		Length:        len(s.Sequence),
		Current:       s.currentLocked(),
		Transform:     s.transform,
		ChromeVisible: s.chromeVisible,
		Dragging:      s.dragging,
	}
}

// Current 返回当前项，类型未识别时回退为文档
func (s *Session) Current() model.ViewerItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked()
}

func (s *Session) currentLocked() model.ViewerItem {
	item := s.Sequence[s.index]
	item.Kind = model.KindOrFallback(item.Kind)
	return item
}

// Next 前进一项；已在末尾则为空操作。切换时重置变换与拖拽状态。
func (s *Session) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.index < len(s.Sequence)-1 {
		s.index++
		s.resetTransformLocked()
	}
}

// Previous 后退一项；已在开头则为空操作
func (s *Session) Previous() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.index > 0 {
		s.index--
		s.resetTransformLocked()
	}
}

// ZoomIn 放大一档，上限400%
func (s *Session) ZoomIn() error {
	return s.transformOp(func() {
		if s.transform.Zoom+ZoomStep <= ZoomMax {
			s.transform.Zoom += ZoomStep
		}
	})
}

// ZoomOut 缩小一档，下限50%；缩回不大于100%时平移偏移清零
func (s *Session) ZoomOut() error {
	return s.transformOp(func() {
		if s.transform.Zoom-ZoomStep >= ZoomMin {
			s.transform.Zoom -= ZoomStep
		}
		if s.transform.Zoom <= ZoomDefault {
			s.transform.Pan = Pan{}
		}
	})
}

// Rotate 顺时针旋转90度
func (s *Session) Rotate() error {
	return s.transformOp(func() {
		s.transform.Rotation = (s.transform.Rotation + rotationStep) % 360
	})
}

// ResetTransform 将变换恢复为 {100, 0, (0,0)}
func (s *Session) ResetTransform() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.resetTransformLocked()
}

// StartDrag 记录拖拽锚点。仅图片且缩放大于100%时拖拽才会产生平移。
func (s *Session) StartDrag(x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.currentLocked().Kind != model.KindImage {
		return ErrNotTransformable
	}
	s.dragging = true
	s.anchor = Pan{X: x, Y: y}
	s.panAtDrag = s.transform.Pan
	return nil
}

// DragMove 以锚点差值更新平移：pointer - anchor + offsetAtDragStart。
// 未处于拖拽中或缩放不大于100%时忽略。
func (s *Session) DragMove(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if !s.dragging || s.transform.Zoom <= ZoomDefault {
		return
	}
	s.transform.Pan = Pan{
		X: x - s.anchor.X + s.panAtDrag.X,
		Y: y - s.anchor.Y + s.panAtDrag.Y,
	}
}

// EndDrag 结束拖拽（指针抬起）
func (s *Session) EndDrag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.dragging = false
}

// ToggleChrome 切换界面浮层显隐；拖拽过程中的点击不触发
func (s *Session) ToggleChrome() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.dragging {
		return
	}
	s.chromeVisible = !s.chromeVisible
}

func (s *Session) transformOp(apply func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.currentLocked().Kind != model.KindImage {
		return ErrNotTransformable
	}
	apply()
	return nil
}

func (s *Session) resetTransformLocked() {
	s.transform = DefaultTransform()
	s.dragging = false
	s.anchor = Pan{}
	s.panAtDrag = Pan{}
}

func (s *Session) touch() {
	s.touchedAt = time.Now()
}

func (s *Session) idleSince(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.touchedAt) > ttl
}
