package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"civic-vote/models"
	"civic-vote/storage"
)

// NotaCandidateID identifies the NOTA row in results.
const NotaCandidateID = -1

// VoteSource is the read side of the vote ledger.
type VoteSource interface {
	VotesByConstituency(constituency string) []models.VoteRecord
}

type CandidateResult struct {
	Candidate  models.Candidate `json:"candidate"`
	Votes      int              `json:"votes"`
	Percentage string           `json:"percentage"`
}

type ConstituencyResults struct {
	Constituency string            `json:"constituency"`
	TotalVotes   int               `json:"totalVotes"`
	Results      []CandidateResult `json:"results"`
}

type ElectionStats struct {
	storage.VotingStats
	TurnoutRate string `json:"turnoutRate"`
}

// VoteCountingService tallies the ledger for the voting admin.
type VoteCountingService struct {
	store   storage.Store
	ledger  VoteSource
	metrics *MetricsCollector
}

func NewVoteCountingService(store storage.Store, ledger VoteSource, metrics *MetricsCollector) *VoteCountingService {
	return &VoteCountingService{store: store, ledger: ledger, metrics: metrics}
}

func percentage(part, total int) string {
	if total == 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", float64(part)/float64(total)*100)
}

// Results counts the ledger's votes for constituency: one row per active
// candidate plus a NOTA row, ordered by votes, highest first. Votes for
// candidates no longer active count towards the total only.
func (vcs *VoteCountingService) Results(ctx context.Context, constituency string) (*ConstituencyResults, error) {
	startTime := time.Now()
	defer func() {
		if vcs.metrics != nil {
			vcs.metrics.RecordCounting(time.Since(startTime))
		}
	}()

	candidates, err := vcs.store.CandidatesByConstituency(ctx, constituency)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	votes := vcs.ledger.VotesByConstituency(constituency)

	tally := make(map[int]int)
	nota := 0
	for _, v := range votes {
		switch {
		case v.IsNota:
			nota++
		case v.CandidateID != nil:
			tally[*v.CandidateID]++
		}
	}

	total := len(votes)
	results := make([]CandidateResult, 0, len(candidates)+1)
	for _, c := range candidates {
		results = append(results, CandidateResult{
			Candidate:  c,
			Votes:      tally[c.ID],
			Percentage: percentage(tally[c.ID], total),
		})
	}
	results = append(results, CandidateResult{
		Candidate:  models.Candidate{ID: NotaCandidateID, Name: models.NotaToken, Party: "None of the Above"},
		Votes:      nota,
		Percentage: percentage(nota, total),
	})

	sort.SliceStable(results, func(i, j int) bool { return results[i].Votes > results[j].Votes })

	return &ConstituencyResults{
		Constituency: constituency,
		TotalVotes:   total,
		Results:      results,
	}, nil
}

// Stats reports roll-level totals with the turnout rate as a percentage.
func (vcs *VoteCountingService) Stats(ctx context.Context) (*ElectionStats, error) {
	stats, err := vcs.store.VotingStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load voting stats: %w", err)
	}
	return &ElectionStats{
		VotingStats: *stats,
		TurnoutRate: percentage(stats.TotalVotes, stats.EligibleVoters),
	}, nil
}
