package cart

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/metrics"
)

const defaultSweepInterval = time.Minute

// Registry 按会话ID管理购物车会话，空闲会话定期回收
type Registry struct {
	deps          Deps
	idleTTL       time.Duration
	sweepInterval time.Duration
	now           func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewRegistry 创建会话注册表，idleTTL <= 0 时不回收
func NewRegistry(deps Deps, idleTTL time.Duration) *Registry {
	return &Registry{
		deps:          deps,
		idleTTL:       idleTTL,
		sweepInterval: defaultSweepInterval,
		now:           time.Now,
		sessions:      make(map[string]*Session),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Get 获取会话，不存在时创建
func (r *Registry) Get(sessionID string) *Session {
	sessionID = strings.TrimSpace(sessionID)
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		session = NewSession(sessionID, r.deps)
		r.sessions[sessionID] = session
		metrics.SetActiveSessions(len(r.sessions))
	}
	session.touch(r.now())
	return session
}

// Len 当前会话数量
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep 回收空闲会话，返回回收数量
// 匿名购物车已持久化在本地存储，登录购物车以远端为准，回收后重新访问会重新加载
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)
	var expired []*Session
	r.mu.Lock()
	for id, session := range r.sessions {
		if session.LastUsed().Before(cutoff) {
			expired = append(expired, session)
			delete(r.sessions, id)
		}
	}
	metrics.SetActiveSessions(len(r.sessions))
	r.mu.Unlock()

	for _, session := range expired {
		session.Close()
	}
	if len(expired) > 0 {
		logger.Debugw("cart_sessions_swept", "count", len(expired))
	}
	return len(expired)
}

// Close 关闭全部会话
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for id, session := range r.sessions {
		sessions = append(sessions, session)
		delete(r.sessions, id)
	}
	metrics.SetActiveSessions(0)
	r.mu.Unlock()
	for _, session := range sessions {
		session.Close()
	}
}

// Name 服务名称
func (r *Registry) Name() string {
	return "cart_sweeper"
}

// Start 定期回收空闲会话与过期的本地存储条目，阻塞直到 Stop
func (r *Registry) Start(ctx context.Context) error {
	defer close(r.done)
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Sweep()
			if r.deps.Store != nil {
				r.deps.Store.EvictExpired(ctx)
			}
		case <-r.stop:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// Stop 停止回收循环并关闭全部会话
func (r *Registry) Stop(ctx context.Context) error {
	r.stopOnce.Do(func() { close(r.stop) })
	select {
	case <-r.done:
	case <-ctx.Done():
	}
	r.Close()
	return nil
}
