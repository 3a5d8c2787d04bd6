package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civic-vote/blockchain/ledger"
	"civic-vote/models"
	"civic-vote/registry"
	"civic-vote/storage"
)

type harness struct {
	store    *storage.MemoryStore
	ledger   *ledger.VoteLedger
	queue    *VoteQueue
	window   *PollWindow
	metrics  *MetricsCollector
	voting   *VotingService
	counting *VoteCountingService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	h := &harness{
		store:   storage.NewMemoryStore(),
		ledger:  ledger.New(ledger.WithDifficulty(1)),
		window:  NewPollWindow(0),
		metrics: NewMetricsCollector(),
	}
	require.NoError(t, registry.SeedDemoData(ctx, h.store))

	h.queue = NewVoteQueue(h.ledger, 8, h.metrics)
	h.queue.Start()
	t.Cleanup(h.queue.Stop)

	h.voting = NewVotingService(h.store, h.queue, h.window, h.metrics)
	h.counting = NewVoteCountingService(h.store, h.ledger, h.metrics)
	return h
}

func (h *harness) addVoter(t *testing.T, id, constituency string) {
	t.Helper()
	_, err := h.store.CreateVoter(context.Background(), models.Voter{
		VoterID:      id,
		Password:     "pw",
		FullName:     id,
		Constituency: constituency,
		IsActive:     true,
	})
	require.NoError(t, err)
}

func TestCastVote(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	vote, err := h.voting.CastVote(ctx, CastVoteRequest{VoterID: "VOTER001", CandidateID: models.CandidateRef(1)})
	require.NoError(t, err)

	assert.Regexp(t, `^VT-\d+-[0-9a-f]{9}$`, vote.VoteID)
	assert.Equal(t, "Mumbai North - 24", vote.Constituency)
	assert.Equal(t, 1, *vote.CandidateID)
	assert.False(t, vote.IsNota)
	assert.Len(t, vote.BlockchainHash, 64)
	assert.Equal(t, h.ledger.ReceiptHash(*vote), vote.BlockchainHash)

	voter, err := h.store.GetVoter(ctx, "VOTER001")
	require.NoError(t, err)
	assert.True(t, voter.HasVoted)

	rows, err := h.store.VotesByConstituency(ctx, "Mumbai North - 24")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, vote.BlockchainHash, rows[0].BlockchainHash)

	receipt, err := h.ledger.FindReceipt(vote.BlockchainHash)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), receipt.BlockIndex)
	assert.True(t, h.ledger.ValidateChain())

	_, err = h.voting.CastVote(ctx, CastVoteRequest{VoterID: "VOTER001", CandidateID: models.CandidateRef(2)})
	assert.ErrorIs(t, err, ErrAlreadyVoted)
	assert.Equal(t, 2, h.ledger.Stats().TotalBlocks)

	m := h.metrics.GetMetrics()
	assert.Equal(t, 2, m.Voting.Count)
	assert.Equal(t, 1, m.RejectedVotes)
	assert.Equal(t, 1, m.Mining.Count)
}

// unsyncedStore sets the voted flag but reports the write as failed, like a
// backend whose acknowledgement was lost.
type unsyncedStore struct {
	storage.Store
	failures int
}

func (s *unsyncedStore) MarkVoted(ctx context.Context, voterID string) error {
	if err := s.Store.MarkVoted(ctx, voterID); err != nil {
		return err
	}
	if s.failures > 0 {
		s.failures--
		return errors.New("write not acknowledged")
	}
	return nil
}

func TestCastVoteClearsFlagWhenMarkFails(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	store := &unsyncedStore{Store: h.store, failures: 1}
	voting := NewVotingService(store, h.queue, h.window, h.metrics)

	_, err := voting.CastVote(ctx, CastVoteRequest{VoterID: "VOTER001", CandidateID: models.CandidateRef(1)})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyVoted)

	voter, err := h.store.GetVoter(ctx, "VOTER001")
	require.NoError(t, err)
	assert.False(t, voter.HasVoted)
	assert.Equal(t, 1, h.ledger.Stats().TotalBlocks)

	vote, err := voting.CastVote(ctx, CastVoteRequest{VoterID: "VOTER001", CandidateID: models.CandidateRef(1)})
	require.NoError(t, err)
	assert.Len(t, vote.BlockchainHash, 64)
	assert.Equal(t, 2, h.ledger.Stats().TotalBlocks)
}

func TestCastNotaVote(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	vote, err := h.voting.CastVote(ctx, CastVoteRequest{VoterID: "VOTER001", CandidateID: models.CandidateRef(1), IsNota: true})
	require.NoError(t, err)

	assert.True(t, vote.IsNota)
	assert.Nil(t, vote.CandidateID, "NOTA votes carry no candidate")
	assert.Equal(t, ledger.ReceiptDigest(ledger.SHA256, *vote), vote.BlockchainHash)
}

func TestCastVoteRejections(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name  string
		setup func(t *testing.T, h *harness)
		req   CastVoteRequest
		err   error
	}{
		{
			name: "unknown voter",
			req:  CastVoteRequest{VoterID: "nobody", CandidateID: models.CandidateRef(1)},
			err:  ErrVoterNotFound,
		},
		{
			name: "inactive voter",
			setup: func(t *testing.T, h *harness) {
				inactive := false
				_, err := h.store.UpdateVoter(ctx, "VOTER001", models.VoterUpdate{IsActive: &inactive})
				require.NoError(t, err)
			},
			req: CastVoteRequest{VoterID: "VOTER001", CandidateID: models.CandidateRef(1)},
			err: ErrVoterInactive,
		},
		{
			name: "missing candidate",
			req:  CastVoteRequest{VoterID: "VOTER001"},
			err:  ErrInvalidCandidate,
		},
		{
			name: "unknown candidate",
			req:  CastVoteRequest{VoterID: "VOTER001", CandidateID: models.CandidateRef(42)},
			err:  ErrInvalidCandidate,
		},
		{
			name: "withdrawn candidate",
			setup: func(t *testing.T, h *harness) {
				require.NoError(t, h.store.DeleteCandidate(ctx, 1))
			},
			req: CastVoteRequest{VoterID: "VOTER001", CandidateID: models.CandidateRef(1)},
			err: ErrInvalidCandidate,
		},
		{
			name: "candidate elsewhere",
			setup: func(t *testing.T, h *harness) {
				_, err := h.store.CreateCandidate(ctx, models.Candidate{Name: "C", Party: "P", Constituency: "Pune"})
				require.NoError(t, err)
			},
			req: CastVoteRequest{VoterID: "VOTER001", CandidateID: models.CandidateRef(3)},
			err: ErrInvalidCandidate,
		},
		{
			name: "other constituency",
			req:  CastVoteRequest{VoterID: "VOTER001", CandidateID: models.CandidateRef(1), Constituency: "Pune"},
			err:  ErrInvalidConstituency,
		},
		{
			name: "polls closed",
			setup: func(t *testing.T, h *harness) {
				require.NoError(t, h.voting.EndVotingSession())
			},
			req: CastVoteRequest{VoterID: "VOTER001", CandidateID: models.CandidateRef(1)},
			err: ErrPollsClosed,
		},
		{
			name: "underage",
			setup: func(t *testing.T, h *harness) {
				dob := time.Now().AddDate(-17, 0, 0)
				_, err := h.store.UpdateCitizen(ctx, "1234-5678-9012", models.CitizenUpdate{DateOfBirth: &dob})
				require.NoError(t, err)
			},
			req: CastVoteRequest{VoterID: "VOTER001", CandidateID: models.CandidateRef(1)},
			err: ErrUnderage,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			if tc.setup != nil {
				tc.setup(t, h)
			}

			_, err := h.voting.CastVote(ctx, tc.req)
			assert.ErrorIs(t, err, tc.err)
			assert.Equal(t, 1, h.ledger.Stats().TotalBlocks, "nothing reaches the ledger")

			if voter, err := h.store.GetVoter(ctx, "VOTER001"); err == nil {
				assert.False(t, voter.HasVoted)
			}
		})
	}
}

type gatedLedger struct {
	entered chan struct{}
	gate    chan struct{}
	l       *ledger.VoteLedger
}

func (g *gatedLedger) AddVote(v models.VoteRecord) string {
	g.entered <- struct{}{}
	<-g.gate
	return g.l.AddVote(v)
}

func TestQueueFullClearsVotedFlag(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	gated := &gatedLedger{entered: make(chan struct{}, 4), gate: make(chan struct{}), l: h.ledger}

	queue := NewVoteQueue(gated, 1, h.metrics)
	queue.Start()
	voting := NewVotingService(h.store, queue, h.window, h.metrics)

	h.addVoter(t, "V1", "Mumbai North - 24")
	h.addVoter(t, "V2", "Mumbai North - 24")
	done := make(chan error, 2)
	cast := func(id string) {
		_, err := voting.CastVote(ctx, CastVoteRequest{VoterID: id, IsNota: true})
		done <- err
	}

	// V1 occupies the worker, V2 fills the one-slot buffer.
	go cast("V1")
	<-gated.entered
	go cast("V2")
	require.Eventually(t, func() bool { return queue.Pending() == 1 }, time.Second, time.Millisecond)

	_, err := voting.CastVote(ctx, CastVoteRequest{VoterID: "VOTER001", IsNota: true})
	assert.ErrorIs(t, err, ErrQueueFull)

	voter, err := h.store.GetVoter(ctx, "VOTER001")
	require.NoError(t, err)
	assert.False(t, voter.HasVoted, "voted flag is rolled back")

	close(gated.gate)
	require.NoError(t, <-done)
	require.NoError(t, <-done)
	queue.Stop()
	assert.Equal(t, 2, h.ledger.Stats().TotalVotes)
}

func TestQueueStopDrainsAndRefuses(t *testing.T) {
	l := ledger.New(ledger.WithDifficulty(1))
	q := NewVoteQueue(l, 4, nil)
	q.Start()

	receipt, err := q.Submit(context.Background(), models.VoteRecord{VoteID: "VT-1", VoterID: "V1", IsNota: true})
	require.NoError(t, err)
	assert.Len(t, receipt, 64)

	q.Stop()
	q.Stop()

	_, err = q.Submit(context.Background(), models.VoteRecord{VoteID: "VT-2"})
	assert.ErrorIs(t, err, ErrQueueClosed)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewVoteQueue(l, 1, nil).Submit(cancelled, models.VoteRecord{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResults(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	const c = "Mumbai North - 24"

	empty, err := h.counting.Results(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.TotalVotes)
	require.Len(t, empty.Results, 3)
	for _, r := range empty.Results {
		assert.Equal(t, "0.0", r.Percentage)
	}
	assert.Equal(t, "Candidate A", empty.Results[0].Candidate.Name, "ties keep candidate order")
	assert.Equal(t, NotaCandidateID, empty.Results[2].Candidate.ID)

	ballots := []CastVoteRequest{
		{CandidateID: models.CandidateRef(2)},
		{CandidateID: models.CandidateRef(2)},
		{CandidateID: models.CandidateRef(1)},
		{IsNota: true},
		{CandidateID: models.CandidateRef(2)},
		{IsNota: true},
	}
	for i, b := range ballots {
		id := "R" + string(rune('A'+i))
		h.addVoter(t, id, c)
		b.VoterID = id
		_, err := h.voting.CastVote(ctx, b)
		require.NoError(t, err)
	}

	results, err := h.counting.Results(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, c, results.Constituency)
	assert.Equal(t, 6, results.TotalVotes)
	require.Len(t, results.Results, 3)

	assert.Equal(t, "Candidate B", results.Results[0].Candidate.Name)
	assert.Equal(t, 3, results.Results[0].Votes)
	assert.Equal(t, "50.0", results.Results[0].Percentage)

	assert.Equal(t, models.NotaToken, results.Results[1].Candidate.Name)
	assert.Equal(t, "None of the Above", results.Results[1].Candidate.Party)
	assert.Equal(t, 2, results.Results[1].Votes)
	assert.Equal(t, "33.3", results.Results[1].Percentage)

	assert.Equal(t, "Candidate A", results.Results[2].Candidate.Name)
	assert.Equal(t, "16.7", results.Results[2].Percentage)

	other, err := h.counting.Results(ctx, "Pune")
	require.NoError(t, err)
	assert.Equal(t, 0, other.TotalVotes)
	assert.Len(t, other.Results, 1)

	assert.Equal(t, 3, h.metrics.GetMetrics().Counting.Count)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addVoter(t, "V2", "Mumbai North - 24")
	h.addVoter(t, "V3", "Mumbai North - 24")

	_, err := h.voting.CastVote(ctx, CastVoteRequest{VoterID: "VOTER001", IsNota: true})
	require.NoError(t, err)

	stats, err := h.counting.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalVotes)
	assert.Equal(t, 3, stats.EligibleVoters)
	assert.Equal(t, 1, stats.Constituencies)
	assert.Equal(t, "33.3", stats.TurnoutRate)

	empty := NewVoteCountingService(storage.NewMemoryStore(), h.ledger, nil)
	stats, err = empty.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.0", stats.TurnoutRate)
}

func TestPollWindow(t *testing.T) {
	now := time.Date(2024, 11, 20, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	w := newPollWindow(time.Hour, clock)
	assert.True(t, w.IsOpen())
	require.NotNil(t, w.Status().Deadline)

	now = now.Add(time.Hour)
	assert.False(t, w.IsOpen(), "closes at the deadline")
	assert.False(t, w.Close())

	open := newPollWindow(0, clock)
	now = now.Add(1000 * time.Hour)
	assert.True(t, open.IsOpen(), "no deadline")
	assert.True(t, open.Close())
	assert.False(t, open.IsOpen())
	assert.NotNil(t, open.Status().Closed)
}

func TestAuthenticator(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	auth := NewAuthenticator(store,
		Credentials{UserID: "admin", Password: "admin123"},
		Credentials{UserID: "votingadmin", Password: "admin123"})
	auth.SeedOnFirstVoterLogin(func(ctx context.Context) error { return registry.SeedDemoData(ctx, store) })

	p, err := auth.LoginAdmin(ctx, SystemAadhaar, "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: "admin", Role: RoleAdmin, System: SystemAadhaar}, *p)

	_, err = auth.LoginAdmin(ctx, SystemVoting, "admin", "admin123")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "credentials are per console")

	_, err = auth.LoginAdmin(ctx, SystemAadhaar, "admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = store.CreateAdminUser(ctx, models.AdminUser{UserID: "officer", Password: "s3cret", Role: SystemVoting})
	require.NoError(t, err)
	p, err = auth.LoginAdmin(ctx, SystemVoting, "officer", "s3cret")
	require.NoError(t, err)
	assert.True(t, p.IsAdmin())

	p, voter, err := auth.LoginVoter(ctx, "VOTER001", "voter123")
	require.NoError(t, err, "first voter login seeds the demo roll")
	assert.Equal(t, Principal{UserID: "VOTER001", Role: RoleVoter, System: SystemVoting}, *p)
	assert.Empty(t, voter.Password)

	_, _, err = auth.LoginVoter(ctx, "VOTER001", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = auth.LoginVoter(ctx, "VOTER404", "voter123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegistrationCreatesVoter(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	rs := NewRegistrationService(store)
	rs.now = func() time.Time { return time.UnixMilli(1732089600123) }

	c := registry.DefaultSeed().Citizens[0]
	c.AadhaarNumber = "9876 5432 1098"
	c.FaceTemplate = "raw-face"
	c.Constituency = "Pune"

	citizen, voter, err := rs.CreateCitizen(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, "9876-5432-1098", citizen.AadhaarNumber)
	assert.NotEqual(t, "raw-face", citizen.FaceTemplate)

	require.NotNil(t, voter)
	assert.Equal(t, "VOTER600123", voter.VoterID)
	assert.Equal(t, "Pune", voter.Constituency)

	stored, err := store.GetVoter(ctx, "VOTER600123")
	require.NoError(t, err)
	assert.Equal(t, "1990-05-15", stored.Password)

	_, _, err = rs.CreateCitizen(ctx, c)
	assert.ErrorIs(t, err, storage.ErrDuplicate)
}

func TestRegistrationWithoutConstituency(t *testing.T) {
	ctx := context.Background()
	rs := NewRegistrationService(storage.NewMemoryStore())

	citizen, voter, err := rs.CreateCitizen(ctx, registry.DefaultSeed().Citizens[0])
	require.NoError(t, err)
	assert.NotNil(t, citizen)
	assert.Nil(t, voter, "voter creation failure is not fatal")

	bad := registry.DefaultSeed().Citizens[0]
	bad.AadhaarNumber = "12"
	_, _, err = rs.CreateCitizen(ctx, bad)
	assert.ErrorIs(t, err, registry.ErrInvalid)
}

func TestMetricsBiometric(t *testing.T) {
	m := NewMetricsCollector()
	m.RecordBiometric(models.VerificationFace, true)
	m.RecordBiometric(models.VerificationFace, false)

	got := m.GetMetrics().Biometric[models.VerificationFace]
	assert.Equal(t, BiometricMetrics{Attempts: 2, Successes: 1}, got)

	m.Reset()
	assert.Empty(t, m.GetMetrics().Biometric)
}
