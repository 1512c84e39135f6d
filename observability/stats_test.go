package observability

import (
	"log/slog"
	"socialchat/domain"
	"socialchat/domain/event"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type rooms map[domain.RoomID]int

func (r rooms) Count() map[domain.RoomID]int { return r }

type sessions int64

func (s sessions) Active() int64 { return int64(s) }

func TestCollector_Collect(t *testing.T) {
	req := require.New(t)
	counter := event.NewCounter()
	counter.Increment(event.SessionOpenedType)
	counter.Add(event.FanoutCompletedType, 3)

	collector := NewCollector(logs.GetLoggerFromLevel(slog.LevelDebug), rooms{domain.DefaultRoom: 2}, sessions(2), counter)
	stats := collector.Collect()

	req.Equal(int64(2), stats.Sessions)
	req.Equal(map[string]int{"1": 2}, stats.Rooms)
	req.Equal(map[string]uint64{
		string(event.SessionOpenedType):   1,
		string(event.FanoutCompletedType): 3,
	}, stats.Counters)
	req.Positive(stats.Process.Goroutines)
	req.NotEmpty(stats.Uptime)
}
