package service

import (
	"sync"
	"time"
)

// MetricsCollector tracks counts and cumulative timings of the voting pipeline.
type MetricsCollector struct {
	mu sync.RWMutex

	votingStartTime time.Time
	votingEndTime   time.Time
	votingCount     int
	votingTotalTime time.Duration
	rejectedCount   int

	miningCount     int
	miningTotalTime time.Duration

	biometric map[string]*BiometricMetrics

	countingCount    int
	countingLastTime time.Duration

	votingPhaseStartTime time.Time
	votingPhaseEndTime   time.Time
}

// OperationMetrics contains timing information for an operation
type OperationMetrics struct {
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Count          int       `json:"count"`
	ProcessingTime int64     `json:"processing_time_ms"`
}

type BiometricMetrics struct {
	Attempts  int `json:"attempts"`
	Successes int `json:"successes"`
}

// MetricsResponse provides the metrics for all operations
type MetricsResponse struct {
	Voting        OperationMetrics            `json:"voting"`
	RejectedVotes int                         `json:"rejected_votes"`
	Mining        OperationMetrics            `json:"mining"`
	Counting      OperationMetrics            `json:"counting"`
	Biometric     map[string]BiometricMetrics `json:"biometric"`
	PhaseStart    time.Time                   `json:"phase_start_time"`
	PhaseEnd      time.Time                   `json:"phase_end_time,omitempty"`
	PhaseDuration int64                       `json:"phase_duration_ms"`
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{biometric: make(map[string]*BiometricMetrics)}
}

func (mc *MetricsCollector) StartVotingPhase() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.votingPhaseStartTime = time.Now()
	mc.votingPhaseEndTime = time.Time{}
}

func (mc *MetricsCollector) EndVotingPhase() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if !mc.votingPhaseStartTime.IsZero() && mc.votingPhaseEndTime.IsZero() {
		mc.votingPhaseEndTime = time.Now()
	}
}

// RecordVotingStart marks the start of a vote being cast
func (mc *MetricsCollector) RecordVotingStart() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.votingCount == 0 {
		mc.votingStartTime = time.Now()
	}
	mc.votingCount++
}

// RecordVotingEnd marks the end of a cast, successful or not
func (mc *MetricsCollector) RecordVotingEnd(duration time.Duration, ok bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.votingEndTime = time.Now()
	mc.votingTotalTime += duration
	if !ok {
		mc.rejectedCount++
	}
}

func (mc *MetricsCollector) RecordMining(duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.miningCount++
	mc.miningTotalTime += duration
}

func (mc *MetricsCollector) RecordBiometric(kind string, success bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	m, ok := mc.biometric[kind]
	if !ok {
		m = &BiometricMetrics{}
		mc.biometric[kind] = m
	}
	m.Attempts++
	if success {
		m.Successes++
	}
}

func (mc *MetricsCollector) RecordCounting(duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.countingCount++
	mc.countingLastTime = duration
}

// GetMetrics returns current metrics for all operations
func (mc *MetricsCollector) GetMetrics() MetricsResponse {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	biometric := make(map[string]BiometricMetrics, len(mc.biometric))
	for k, v := range mc.biometric {
		biometric[k] = *v
	}

	resp := MetricsResponse{
		Voting: OperationMetrics{
			StartTime:      mc.votingStartTime,
			EndTime:        mc.votingEndTime,
			Count:          mc.votingCount,
			ProcessingTime: mc.votingTotalTime.Milliseconds(),
		},
		RejectedVotes: mc.rejectedCount,
		Mining: OperationMetrics{
			Count:          mc.miningCount,
			ProcessingTime: mc.miningTotalTime.Milliseconds(),
		},
		Counting: OperationMetrics{
			Count:          mc.countingCount,
			ProcessingTime: mc.countingLastTime.Milliseconds(),
		},
		Biometric:  biometric,
		PhaseStart: mc.votingPhaseStartTime,
		PhaseEnd:   mc.votingPhaseEndTime,
	}
	if !mc.votingPhaseStartTime.IsZero() {
		end := mc.votingPhaseEndTime
		if end.IsZero() {
			end = time.Now()
		}
		resp.PhaseDuration = end.Sub(mc.votingPhaseStartTime).Milliseconds()
	}
	return resp
}

// Reset clears all metrics
func (mc *MetricsCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.votingStartTime = time.Time{}
	mc.votingEndTime = time.Time{}
	mc.votingCount = 0
	mc.votingTotalTime = 0
	mc.rejectedCount = 0

	mc.miningCount = 0
	mc.miningTotalTime = 0

	mc.biometric = make(map[string]*BiometricMetrics)

	mc.countingCount = 0
	mc.countingLastTime = 0
}
