package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	m := NewManager(zerolog.Nop())
	defer m.Close()

	ch1, unsub1 := m.Subscribe()
	ch2, unsub2 := m.Subscribe()
	defer unsub1()
	defer unsub2()

	m.Publish(&TradeExecutedData{
		TransactionID: "txn-1",
		Owner:         "user-1",
		Symbol:        "AAPL",
		Side:          "BUY",
		Shares:        10,
		Price:         "100",
		Total:         "1000",
	})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case event := <-ch:
			assert.Equal(t, TradeExecuted, event.Type)
			data, ok := event.Data.(*TradeExecutedData)
			require.True(t, ok)
			assert.Equal(t, "AAPL", data.Symbol)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	m := NewManager(zerolog.Nop())
	defer m.Close()

	ch, unsub := m.Subscribe()
	assert.Equal(t, 1, m.SubscriberCount())

	unsub()
	assert.Equal(t, 0, m.SubscriberCount())

	_, open := <-ch
	assert.False(t, open)

	// Double unsubscribe is safe
	unsub()
}

func TestPublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	m := NewManager(zerolog.Nop())
	defer m.Close()

	_, unsub := m.Subscribe()
	defer unsub()

	// Overfill the buffer; excess events are dropped, not deadlocked
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			m.Publish(&HoldingChangedData{Owner: "user-1", Symbol: "AAPL", Shares: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on full subscriber buffer")
	}
}

func TestEventJSONIncludesTypedData(t *testing.T) {
	event := Event{
		Type:      TradeExecuted,
		Timestamp: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		Data: &TradeExecutedData{
			TransactionID: "txn-1",
			Symbol:        "MSFT",
			Side:          "SELL",
			Shares:        5,
			Price:         "420.10",
			Total:         "2100.50",
		},
	}

	raw, err := json.Marshal(&event)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "trade_executed", decoded["type"])

	data, ok := decoded["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "MSFT", data["symbol"])
	assert.Equal(t, "2100.50", data["total"])
}
