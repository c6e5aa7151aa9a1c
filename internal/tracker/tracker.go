package tracker

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// 上传尝试状态
const (
	StatePending   = "pending"
	StateUploading = "uploading"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// FileInfo 提交上传时的文件信息
type FileInfo struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// Attempt 一次上传尝试的乐观状态
// 临时ID与服务端文件记录ID相互独立，仅由调用方按提交顺序对账
type Attempt struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Total      int64     `json:"total"`
	Uploaded   int64     `json:"uploaded"`
	Percentage float64   `json:"percentage"`
	Speed      int64     `json:"speed"` // bytes per second
	State      string    `json:"state"`
	Reason     string    `json:"reason,omitempty"`
	StartTime  time.Time `json:"start_time"`
	UpdateTime time.Time `json:"update_time"`
}

func (a *Attempt) terminal() bool {
	return a.State == StateCompleted || a.State == StateFailed
}

// Tracker 上传尝试状态机
// 只做客户端可见的乐观记账，不触发任何存储或持久化操作
type Tracker struct {
	mu          sync.RWMutex
	attempts    map[string]*Attempt
	order       []string
	subscribers map[string]map[chan Attempt]struct{}
}

// NewTracker 创建上传尝试跟踪器
func NewTracker() *Tracker {
	return &Tracker{
		attempts:    make(map[string]*Attempt),
		subscribers: make(map[string]map[chan Attempt]struct{}),
	}
}

// Start 为每个文件创建一条尝试记录并进入 uploading 状态
// 返回生成的临时ID，顺序与传入文件一致
func (t *Tracker) Start(files []FileInfo) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]string, len(files))
	now := time.Now()
	for i, f := range files {
		id := uuid.NewString()
		ids[i] = id
		t.attempts[id] = &Attempt{
			ID:         id,
			Filename:   f.Filename,
			Total:      f.Size,
			State:      StateUploading,
			StartTime:  now,
			UpdateTime: now,
		}
		t.order = append(t.order, id)
	}
	return ids
}

// UpdateProgress 更新上传进度
// 对不存在或已终态的尝试静默忽略
func (t *Tracker) UpdateProgress(id string, uploaded int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.attempts[id]
	if !ok || a.terminal() {
		return
	}

	if uploaded > a.Uploaded {
		now := time.Now()
		duration := now.Sub(a.UpdateTime).Seconds()
		if duration > 0 {
			a.Speed = int64(float64(uploaded-a.Uploaded) / duration)
		}
		a.Uploaded = uploaded
		a.UpdateTime = now
		if a.Total > 0 {
			a.Percentage = float64(uploaded) / float64(a.Total) * 100
		}
	}

	t.notify(a)
}

// Complete 标记上传成功
func (t *Tracker) Complete(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.attempts[id]
	if !ok || a.terminal() {
		return
	}

	a.State = StateCompleted
	a.Percentage = 100
	a.Uploaded = a.Total
	a.UpdateTime = time.Now()
	t.notify(a)
}

// Fail 标记上传失败并保留失败原因
func (t *Tracker) Fail(id string, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.attempts[id]
	if !ok || a.terminal() {
		return
	}

	a.State = StateFailed
	a.Reason = reason
	a.UpdateTime = time.Now()
	t.notify(a)
}

// ClearCompleted 清除所有已成功的尝试
// 失败的尝试保留，供用户查看原因后重试
func (t *Tracker) ClearCompleted() {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.order[:0]
	for _, id := range t.order {
		a := t.attempts[id]
		if a != nil && a.State == StateCompleted {
			delete(t.attempts, id)
			t.closeSubscribers(id)
			continue
		}
		kept = append(kept, id)
	}
	t.order = kept
}

// Dismiss 显式移除单条尝试记录
func (t *Tracker) Dismiss(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.attempts[id]; !ok {
		return
	}
	delete(t.attempts, id)
	t.closeSubscribers(id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Get 查询单条尝试记录
func (t *Tracker) Get(id string) (Attempt, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	a, ok := t.attempts[id]
	if !ok {
		return Attempt{}, false
	}
	return *a, true
}

// List 按提交顺序返回全部尝试记录
func (t *Tracker) List() []Attempt {
	t.mu.RLock()
	defer t.mu.RUnlock()

	attempts := make([]Attempt, 0, len(t.order))
	for _, id := range t.order {
		if a, ok := t.attempts[id]; ok {
			attempts = append(attempts, *a)
		}
	}
	return attempts
}

// Subscribe 订阅尝试状态变化
func (t *Tracker) Subscribe(id string) chan Attempt {
	ch := make(chan Attempt, 10)
	t.mu.Lock()
	if _, ok := t.subscribers[id]; !ok {
		t.subscribers[id] = make(map[chan Attempt]struct{})
	}
	t.subscribers[id][ch] = struct{}{}
	if a, ok := t.attempts[id]; ok {
		ch <- *a
	}
	t.mu.Unlock()
	return ch
}

// Unsubscribe 取消订阅
func (t *Tracker) Unsubscribe(id string, ch chan Attempt) {
	t.mu.Lock()
	if subs, ok := t.subscribers[id]; ok {
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(t.subscribers, id)
		}
	}
	t.mu.Unlock()
}

// notify 通知订阅者，调用方需持有锁
func (t *Tracker) notify(a *Attempt) {
	for ch := range t.subscribers[a.ID] {
		select {
		case ch <- *a:
		default:
		}
	}
}

// closeSubscribers 关闭并移除某条记录的全部订阅，调用方需持有锁
func (t *Tracker) closeSubscribers(id string) {
	if subs, ok := t.subscribers[id]; ok {
		for ch := range subs {
			close(ch)
		}
		delete(t.subscribers, id)
	}
}
