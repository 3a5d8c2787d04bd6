package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"civic-vote/log"
	"civic-vote/models"
)

// Ledger is the append side of the vote ledger.
type Ledger interface {
	AddVote(vote models.VoteRecord) string
}

// VoteQueue funnels every append through a single worker goroutine so blocks
// are mined one at a time in submission order.
type VoteQueue struct {
	ledger  Ledger
	metrics *MetricsCollector

	mu           sync.RWMutex
	closed       bool
	voteCh       chan *VoteRequest
	processingWg sync.WaitGroup
	startOnce    sync.Once
}

// VoteRequest represents a queued vote awaiting its block
type VoteRequest struct {
	Vote     models.VoteRecord
	ResultCh chan<- *ProcessingResult
}

// ProcessingResult contains the result of a queued append
type ProcessingResult struct {
	Receipt        string
	ProcessingTime time.Duration
}

func NewVoteQueue(ledger Ledger, queueSize int, metrics *MetricsCollector) *VoteQueue {
	if queueSize < 1 {
		queueSize = 1
	}
	return &VoteQueue{
		ledger:  ledger,
		metrics: metrics,
		voteCh:  make(chan *VoteRequest, queueSize),
	}
}

// Start launches the worker. Calling it more than once has no effect.
func (q *VoteQueue) Start() {
	q.startOnce.Do(func() {
		q.processingWg.Add(1)
		go q.voteWorker()
	})
}

// Submit queues vote and waits for its receipt. It fails fast with
// ErrQueueFull when the buffer is full. Once a vote is accepted it is always
// appended, so Submit keeps waiting for the receipt even if ctx ends.
func (q *VoteQueue) Submit(ctx context.Context, vote models.VoteRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	resultCh := make(chan *ProcessingResult, 1)

	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return "", ErrQueueClosed
	}
	select {
	case q.voteCh <- &VoteRequest{Vote: vote, ResultCh: resultCh}:
		q.mu.RUnlock()
	default:
		q.mu.RUnlock()
		log.Warn("vote queue is full", zap.String("voter", vote.VoterID), zap.Int("capacity", cap(q.voteCh)))
		return "", ErrQueueFull
	}

	result := <-resultCh
	return result.Receipt, nil
}

// Pending returns the number of votes waiting to be mined.
func (q *VoteQueue) Pending() int {
	return len(q.voteCh)
}

// Stop refuses new votes, lets the worker drain what is queued and waits for it.
func (q *VoteQueue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.voteCh)
	q.mu.Unlock()

	q.Start()
	q.processingWg.Wait()
}

func (q *VoteQueue) voteWorker() {
	defer q.processingWg.Done()

	for req := range q.voteCh {
		startTime := time.Now()
		receipt := q.ledger.AddVote(req.Vote)
		processingTime := time.Since(startTime)

		if q.metrics != nil {
			q.metrics.RecordMining(processingTime)
		}

		req.ResultCh <- &ProcessingResult{Receipt: receipt, ProcessingTime: processingTime}
		close(req.ResultCh)
	}
}
