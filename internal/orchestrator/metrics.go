package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"

	"qvox/internal/supervisor"
)

var (
	tasksSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qvox",
			Name:      "tasks_submitted_total",
			Help:      "Generation submissions by kind and result",
		},
		[]string{"kind", "result"},
	)
	tasksFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qvox",
			Name:      "tasks_finished_total",
			Help:      "Generation tasks that reached a terminal phase",
		},
		[]string{"kind", "phase"},
	)
	taskPolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qvox",
			Name:      "task_polls_total",
			Help:      "Task status polls by result",
		},
		[]string{"result"},
	)
	resultFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qvox",
			Name:      "result_fetches_total",
			Help:      "Result audio downloads by result",
		},
		[]string{"result"},
	)
	resultBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "qvox",
			Name:      "result_audio_bytes_total",
			Help:      "Bytes of result audio fetched",
		},
	)
	backendSpawns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qvox",
			Name:      "backend_spawns_total",
			Help:      "Backend launches by result",
		},
		[]string{"result"},
	)
	gateState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "qvox",
			Name:      "backend_gate_state",
			Help:      "1 for the current health gate state, 0 otherwise",
		},
		[]string{"state"},
	)
	readySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "qvox",
			Name:      "backend_ready_seconds",
			Help:      "Time from spawn until the backend reported its models loaded",
			Buckets:   []float64{1, 5, 10, 20, 30, 60, 120, 300, 600},
		},
	)
)

func init() {
	prometheus.MustRegister(tasksSubmitted, tasksFinished, taskPolls, resultFetches, resultBytes, backendSpawns, gateState, readySeconds)
}

var gateStates = []supervisor.GateState{supervisor.GateStarting, supervisor.GateWaiting, supervisor.GateReady, supervisor.GateErrored}

func setGateState(s supervisor.GateState) {
	for _, st := range gateStates {
		v := 0.0
		if st == s {
			v = 1
		}
		gateState.WithLabelValues(string(st)).Set(v)
	}
}
