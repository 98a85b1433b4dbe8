package approval

import (
	"sync"
	"time"
)

// DecisionEvent 审批裁决事件，每次状态转移发布一条
type DecisionEvent struct {
	ArticleID  string    `json:"article_id"`
	Event      EventType `json:"event"`
	Gate       *Gate     `json:"gate,omitempty"`
	Status     Status    `json:"status"`
	ActorID    string    `json:"actor_id"`
	ActorName  string    `json:"actor_name"`
	OccurredAt time.Time `json:"occurred_at"`
}

// DecisionBus 进程内裁决事件总线。
// 按文章 ID 订阅，空 ID 订阅全部事件；发布非阻塞，慢订阅者丢事件。
type DecisionBus struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]chan DecisionEvent
	nextID uint64
	buffer int
}

// NewDecisionBus 创建事件总线，buffer 为每个订阅通道的缓冲大小
func NewDecisionBus(buffer int) *DecisionBus {
	if buffer <= 0 {
		buffer = 16
	}
	return &DecisionBus{
		subs:   make(map[string]map[uint64]chan DecisionEvent),
		buffer: buffer,
	}
}

// Subscribe 订阅指定文章的裁决事件，articleID 为空时订阅全部。
// 返回只读通道和取消函数，取消后通道关闭。
func (b *DecisionBus) Subscribe(articleID string) (<-chan DecisionEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	ch := make(chan DecisionEvent, b.buffer)

	if b.subs[articleID] == nil {
		b.subs[articleID] = make(map[uint64]chan DecisionEvent)
	}
	b.subs[articleID][id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if m, ok := b.subs[articleID]; ok {
			if c, ok := m[id]; ok {
				delete(m, id)
				close(c)
			}
			if len(m) == 0 {
				delete(b.subs, articleID)
			}
		}
	}
	return ch, cancel
}

// Publish 发布事件，通道已满时跳过该订阅者
func (b *DecisionBus) Publish(evt DecisionEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	deliver := func(m map[uint64]chan DecisionEvent) {
		for _, ch := range m {
			select {
			case ch <- evt:
			default:
			}
		}
	}
	deliver(b.subs[evt.ArticleID])
	deliver(b.subs[""])
}
