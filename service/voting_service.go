package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"civic-vote/log"
	"civic-vote/models"
	"civic-vote/storage"
)

// CastVoteRequest is what a logged-in voter submits.
type CastVoteRequest struct {
	VoterID      string `json:"-"`
	CandidateID  *int   `json:"candidateId"`
	IsNota       bool   `json:"isNota"`
	Constituency string `json:"constituency"`
}

// VotingService captures votes after eligibility checks and hands them to the
// ledger through the vote queue.
type VotingService struct {
	store        storage.Store
	queue        *VoteQueue
	window       *PollWindow
	verification *VoterVerificationService
	metrics      *MetricsCollector
	now          func() time.Time
}

func NewVotingService(store storage.Store, queue *VoteQueue, window *PollWindow, metrics *MetricsCollector) *VotingService {
	return &VotingService{
		store:        store,
		queue:        queue,
		window:       window,
		verification: NewVoterVerificationService(store),
		metrics:      metrics,
		now:          time.Now,
	}
}

// NewVoteID returns an id of the form VT-<unix millis>-<9 random hex chars>.
func NewVoteID(t time.Time) string {
	return "VT-" + strconv.FormatInt(t.UnixMilli(), 10) + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

// CastVote checks the poll window, the voter and the candidate, marks the
// voter as having voted and appends the vote to the ledger. The returned
// record carries the receipt in BlockchainHash.
func (vs *VotingService) CastVote(ctx context.Context, req CastVoteRequest) (*models.VoteRecord, error) {
	vs.metrics.RecordVotingStart()
	startTime := time.Now()

	vote, err := vs.castVote(ctx, req)
	vs.metrics.RecordVotingEnd(time.Since(startTime), err == nil)
	if err != nil {
		log.Info("vote rejected", zap.String("voter", req.VoterID), zap.Error(err))
		return nil, err
	}
	return vote, nil
}

func (vs *VotingService) castVote(ctx context.Context, req CastVoteRequest) (*models.VoteRecord, error) {
	if !vs.window.IsOpen() {
		return nil, ErrPollsClosed
	}

	voter, err := vs.verification.VerifyVoter(ctx, req.VoterID)
	if err != nil {
		return nil, err
	}

	constituency := req.Constituency
	if constituency == "" {
		constituency = voter.Constituency
	} else if constituency != voter.Constituency {
		return nil, ErrInvalidConstituency
	}

	var candidateID *int
	if !req.IsNota {
		if err := vs.checkCandidate(ctx, req.CandidateID, constituency); err != nil {
			return nil, err
		}
		candidateID = models.CandidateRef(*req.CandidateID)
	}

	if err := vs.store.MarkVoted(ctx, voter.VoterID); err != nil {
		if errors.Is(err, storage.ErrAlreadyVoted) {
			return nil, ErrAlreadyVoted
		}
		vs.clearVoted(voter.VoterID)
		return nil, fmt.Errorf("failed to mark voter %s: %w", voter.VoterID, err)
	}

	now := vs.now().UTC().Truncate(time.Millisecond)
	vote := models.VoteRecord{
		VoteID:       NewVoteID(now),
		VoterID:      voter.VoterID,
		CandidateID:  candidateID,
		Constituency: constituency,
		Timestamp:    now,
		IsNota:       req.IsNota,
	}

	receipt, err := vs.queue.Submit(ctx, vote)
	if err != nil {
		vs.clearVoted(voter.VoterID)
		return nil, err
	}
	vote.BlockchainHash = receipt

	// The ledger is authoritative; a failed row write only loses the copy.
	if err := vs.store.SaveVote(ctx, vote); err != nil {
		log.Error("failed to save vote row", zap.String("vote", vote.VoteID), zap.Error(err))
	}

	log.Info("vote cast", zap.String("vote", vote.VoteID), zap.String("constituency", constituency), zap.String("receipt", receipt))
	return &vote, nil
}

// clearVoted undoes a MarkVoted whose vote never reached the ledger.
func (vs *VotingService) clearVoted(voterID string) {
	if err := vs.store.ClearVoted(context.Background(), voterID); err != nil {
		log.Error("failed to clear voted flag", zap.String("voter", voterID), zap.Error(err))
	}
}

func (vs *VotingService) checkCandidate(ctx context.Context, id *int, constituency string) error {
	if id == nil {
		return fmt.Errorf("%w: candidate id is required unless voting NOTA", ErrInvalidCandidate)
	}
	candidate, err := vs.store.GetCandidate(ctx, *id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %d does not exist", ErrInvalidCandidate, *id)
		}
		return err
	}
	if !candidate.IsActive {
		return fmt.Errorf("%w: %d has withdrawn", ErrInvalidCandidate, *id)
	}
	if candidate.Constituency != constituency {
		return fmt.Errorf("%w: %d does not stand in %s", ErrInvalidCandidate, *id, constituency)
	}
	return nil
}

func (vs *VotingService) IsVotingActive() bool {
	return vs.window.IsOpen()
}

func (vs *VotingService) PollStatus() PollStatus {
	return vs.window.Status()
}

// EndVotingSession closes the poll window.
func (vs *VotingService) EndVotingSession() error {
	if !vs.window.Close() {
		return ErrPollsClosed
	}
	vs.metrics.EndVotingPhase()
	log.Info("voting session ended")
	return nil
}
