package viewer

import (
	"context"
	"sync"
	"time"

	"ScoreRack/logger"
	"ScoreRack/model"

	"github.com/google/uuid"
)

// Manager 管理进程内的查看器会话，uuid 作为会话键。
// 会话归属于打开它的成员；闲置超时后由清理协程回收。
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

// NewManager 创建会话管理器，ttl 为会话闲置回收时间
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

// Open 打开新的查看器会话。空序列直接拒绝，起始下标必须有效。
func (m *Manager) Open(ownerID int64, seq []model.ViewerItem, startIndex int) (*Session, error) {
	if len(seq) == 0 {
		return nil, ErrEmptySequence
	}
	if startIndex < 0 || startIndex >= len(seq) {
		return nil, ErrStartIndexOutOfRange
	}

	s := newSession(uuid.New().String(), ownerID, seq, startIndex)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	logger.Debug("查看器会话已打开",
		logger.String("sessionId", s.ID),
		logger.Int64("ownerId", ownerID),
		logger.Int("length", len(seq)))
	return s, nil
}

// Get 按ID取会话，校验归属
func (m *Manager) Get(id string, ownerID int64) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || s.OwnerID != ownerID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close 关闭并销毁会话，未保存的本地状态全部丢弃
func (m *Manager) Close(id string, ownerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.OwnerID != ownerID {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	logger.Debug("查看器会话已关闭", logger.String("sessionId", id))
	return nil
}

// Count 返回当前存活会话数
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// StartSweeper 启动闲置会话清理协程，ctx 取消时退出
func (m *Manager) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.ttl / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				m.sweep(now)
			}
		}
	}()
}

func (m *Manager) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.idleSince(now, m.ttl) {
			delete(m.sessions, id)
			logger.Debug("闲置查看器会话已回收", logger.String("sessionId", id))
		}
	}
}
