package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 服务器运行期的关键指标（用于监控与调试）
type Metrics struct {
	// 入站数据报
	PacketsReceived  prometheus.Counter
	PacketsMalformed prometheus.Counter
	UnknownCommands  prometheus.Counter

	// 连接生命周期
	ConnectsAccepted  prometheus.Counter
	ConnectsRejected  prometheus.Counter // GameFull
	ConnectsDuplicate prometheus.Counter
	Disconnects       prometheus.Counter
	IdleKicks         prometheus.Counter
	Connections       prometheus.Gauge
	AliveEntities     prometheus.Gauge

	// 输入与携带槽位的指令
	InputsAccepted       prometheus.Counter
	SlotCommandsRejected *prometheus.CounterVec // 按命令标签区分

	SendFailures prometheus.Counter

	Ticks        prometheus.Counter
	TickDuration prometheus.Histogram
}

// NewMetrics 在给定的 Registerer 上注册全部指标；每个 Server 使用独立注册表
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PacketsReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "arena_packets_received_total",
			Help: "Total number of datagrams drained from the transport",
		}),
		PacketsMalformed: f.NewCounter(prometheus.CounterOpts{
			Name: "arena_packets_malformed_total",
			Help: "Total number of datagrams dropped because they could not be decoded",
		}),
		UnknownCommands: f.NewCounter(prometheus.CounterOpts{
			Name: "arena_unknown_commands_total",
			Help: "Total number of datagrams carrying an unknown command tag",
		}),
		ConnectsAccepted: f.NewCounter(prometheus.CounterOpts{
			Name: "arena_connects_accepted_total",
			Help: "Total number of connect requests that were assigned a slot",
		}),
		ConnectsRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "arena_connects_rejected_total",
			Help: "Total number of connect requests answered with GameFull",
		}),
		ConnectsDuplicate: f.NewCounter(prometheus.CounterOpts{
			Name: "arena_connects_duplicate_total",
			Help: "Total number of connect requests ignored because the endpoint already holds a slot",
		}),
		Disconnects: f.NewCounter(prometheus.CounterOpts{
			Name: "arena_disconnects_total",
			Help: "Total number of slots released",
		}),
		IdleKicks: f.NewCounter(prometheus.CounterOpts{
			Name: "arena_idle_kicks_total",
			Help: "Total number of slots released by the idle timeout",
		}),
		Connections: f.NewGauge(prometheus.GaugeOpts{
			Name: "arena_connections",
			Help: "Current number of connected slots",
		}),
		AliveEntities: f.NewGauge(prometheus.GaugeOpts{
			Name: "arena_alive_entities",
			Help: "Current number of alive entities, world entity included",
		}),
		InputsAccepted: f.NewCounter(prometheus.CounterOpts{
			Name: "arena_inputs_accepted_total",
			Help: "Total number of player input packets applied to a session",
		}),
		SlotCommandsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_slot_commands_rejected_total",
			Help: "Total number of slot-addressed commands dropped for a bad slot or foreign endpoint",
		}, []string{"command"}),
		SendFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "arena_send_failures_total",
			Help: "Total number of outbound datagrams the transport did not fully send",
		}),
		Ticks: f.NewCounter(prometheus.CounterOpts{
			Name: "arena_ticks_total",
			Help: "Total number of simulation ticks",
		}),
		TickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "arena_tick_duration_seconds",
			Help:    "Time spent inside one tick",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
	}
}
