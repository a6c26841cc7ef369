package ingest

import (
	"context"
	"sync"
	"time"

	"playlist-rag-api/internal/domain/entity"
	"playlist-rag-api/pkg/logger"
)

const (
	defaultLogCapacity = 500
	subscriberBuffer   = 16
	mirrorTimeout      = 2 * time.Second
)

// Snapshot 导入状态快照
type Snapshot struct {
	RunID      string       `json:"run_id,omitempty"`
	Phase      entity.Phase `json:"phase"`
	Message    string       `json:"message"`
	Log        []string     `json:"log"`
	StartedAt  *time.Time   `json:"started_at,omitempty"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
	Seq        uint64       `json:"seq"`
}

func (s Snapshot) clone() Snapshot {
	cp := s
	cp.Log = append([]string(nil), s.Log...)
	return cp
}

// ProgressLog 导入进度：阶段、当前消息与有界日志
// 只有导入流程写入，HTTP 读取方通过 Snapshot/Watch 获取副本。
type ProgressLog struct {
	mu       sync.Mutex
	capacity int
	snap     Snapshot
	subs     map[int]chan Snapshot
	nextSub  int
	mirror   StatusMirror
}

// NewProgressLog 创建进度日志，mirror 可为 nil
func NewProgressLog(capacity int, mirror StatusMirror) *ProgressLog {
	if capacity <= 0 {
		capacity = defaultLogCapacity
	}
	return &ProgressLog{
		capacity: capacity,
		snap:     Snapshot{Phase: entity.PhaseIdle, Log: []string{}},
		subs:     make(map[int]chan Snapshot),
		mirror:   mirror,
	}
}

// Begin 开始新的导入，清空日志
func (p *ProgressLog) Begin(runID string) {
	now := time.Now()
	p.update(func(s *Snapshot) {
		s.RunID = runID
		s.Phase = entity.PhaseRunning
		s.Message = "Starting ingest"
		s.Log = []string{}
		s.StartedAt = &now
		s.FinishedAt = nil
	})
}

// Message 更新当前消息
func (p *ProgressLog) Message(msg string) {
	p.update(func(s *Snapshot) {
		s.Message = msg
	})
}

// Append 追加一行日志
func (p *ProgressLog) Append(line string) {
	p.update(func(s *Snapshot) {
		s.Log = p.appendBounded(s.Log, line)
	})
}

// Step 同时更新消息并追加日志
func (p *ProgressLog) Step(msg, line string) {
	p.update(func(s *Snapshot) {
		s.Message = msg
		s.Log = p.appendBounded(s.Log, line)
	})
}

// Finish 进入终态
func (p *ProgressLog) Finish(phase entity.Phase, msg string) {
	now := time.Now()
	p.update(func(s *Snapshot) {
		s.Phase = phase
		s.Message = msg
		s.Log = p.appendBounded(s.Log, msg)
		s.FinishedAt = &now
	})
}

// Reset 回到 idle
func (p *ProgressLog) Reset() {
	p.update(func(s *Snapshot) {
		s.RunID = ""
		s.Phase = entity.PhaseIdle
		s.Message = "Data reset"
		s.Log = []string{}
		s.StartedAt = nil
		s.FinishedAt = nil
	})
}

// Snapshot 返回当前状态副本
func (p *ProgressLog) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap.clone()
}

// Subscribe 订阅状态变化；慢读者丢弃最旧的快照
func (p *ProgressLog) Subscribe() (<-chan Snapshot, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSub
	p.nextSub++
	ch := make(chan Snapshot, subscriberBuffer)
	ch <- p.snap.clone()
	p.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if c, ok := p.subs[id]; ok {
				delete(p.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Status 实现 StatusReader
func (p *ProgressLog) Status(_ context.Context) (Snapshot, error) {
	return p.Snapshot(), nil
}

// Watch 实现 StatusReader
func (p *ProgressLog) Watch(_ context.Context) (<-chan Snapshot, func(), error) {
	ch, cancel := p.Subscribe()
	return ch, cancel, nil
}

func (p *ProgressLog) appendBounded(log []string, line string) []string {
	log = append(log, line)
	if over := len(log) - p.capacity; over > 0 {
		log = append([]string(nil), log[over:]...)
	}
	return log
}

func (p *ProgressLog) update(fn func(s *Snapshot)) {
	p.mu.Lock()
	fn(&p.snap)
	p.snap.Seq++
	snap := p.snap.clone()
	for _, ch := range p.subs {
		offer(ch, snap.clone())
	}
	p.mu.Unlock()

	if p.mirror != nil {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		if err := p.mirror.Publish(ctx, snap); err != nil {
			logger.Warn(ctx, "failed to mirror ingest status", "error", err.Error(), "run_id", snap.RunID)
		}
	}
}

// offer 非阻塞发送，通道满时丢弃最旧的元素
func offer(ch chan Snapshot, snap Snapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
