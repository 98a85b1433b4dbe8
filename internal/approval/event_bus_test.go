package approval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionBus(t *testing.T) {
	t.Run("按文章订阅", func(t *testing.T) {
		bus := NewDecisionBus(4)
		ch, cancel := bus.Subscribe("a1")
		defer cancel()

		bus.Publish(DecisionEvent{ArticleID: "a1", Event: EventApprove})
		bus.Publish(DecisionEvent{ArticleID: "a2", Event: EventReject})

		select {
		case evt := <-ch:
			assert.Equal(t, "a1", evt.ArticleID)
		case <-time.After(time.Second):
			t.Fatal("未收到事件")
		}
		select {
		case evt := <-ch:
			t.Fatalf("收到其他文章的事件: %+v", evt)
		default:
		}
	})

	t.Run("空 ID 订阅全部", func(t *testing.T) {
		bus := NewDecisionBus(4)
		ch, cancel := bus.Subscribe("")
		defer cancel()

		bus.Publish(DecisionEvent{ArticleID: "a1"})
		bus.Publish(DecisionEvent{ArticleID: "a2"})

		got := make([]string, 0, 2)
		for i := 0; i < 2; i++ {
			select {
			case evt := <-ch:
				got = append(got, evt.ArticleID)
			case <-time.After(time.Second):
				t.Fatal("事件不全")
			}
		}
		assert.ElementsMatch(t, []string{"a1", "a2"}, got)
	})

	t.Run("取消后通道关闭", func(t *testing.T) {
		bus := NewDecisionBus(4)
		ch, cancel := bus.Subscribe("a1")
		cancel()

		_, open := <-ch
		assert.False(t, open)

		// 重复取消不 panic
		cancel()
	})

	t.Run("慢订阅者不阻塞发布", func(t *testing.T) {
		bus := NewDecisionBus(1)
		ch, cancel := bus.Subscribe("a1")
		defer cancel()

		done := make(chan struct{})
		go func() {
			for i := 0; i < 10; i++ {
				bus.Publish(DecisionEvent{ArticleID: "a1"})
			}
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("发布被慢订阅者阻塞")
		}
		require.NotEmpty(t, ch)
	})
}
