package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civic-vote/models"
)

func steppingClock() func() time.Time {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Minute)
		return t
	}
}

func newTestStore() *MemoryStore {
	s := NewMemoryStore()
	s.now = steppingClock()
	return s
}

func citizen(aadhaar, name, district string) models.Citizen {
	return models.Citizen{
		AadhaarNumber: aadhaar,
		FullName:      name,
		DateOfBirth:   time.Date(1985, 6, 15, 0, 0, 0, 0, time.UTC),
		Gender:        "Male",
		Address:       "1 Main Road",
		District:      district,
		State:         "Maharashtra",
		Pincode:       "400001",
	}
}

func TestCitizenCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	created, err := s.CreateCitizen(ctx, citizen("1234-5678-9012", "Rajesh Kumar Singh", "Mumbai"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	_, err = s.CreateCitizen(ctx, citizen("1234-5678-9012", "Someone Else", "Pune"))
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := s.GetCitizen(ctx, "1234-5678-9012")
	require.NoError(t, err)
	assert.Equal(t, "Rajesh Kumar Singh", got.FullName)

	name := "Rajesh K. Singh"
	updated, err := s.UpdateCitizen(ctx, "1234-5678-9012", models.CitizenUpdate{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.FullName)
	assert.Equal(t, "Mumbai", updated.District)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	_, err = s.UpdateCitizen(ctx, "0000-0000-0000", models.CitizenUpdate{FullName: &name})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteCitizen(ctx, "1234-5678-9012"))
	_, err = s.GetCitizen(ctx, "1234-5678-9012")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteCitizen(ctx, "1234-5678-9012"), ErrNotFound)
}

func TestCitizenTemplatesAreCopied(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	c := citizen("1111-2222-3333", "A", "Mumbai")
	c.FingerprintTemplates = map[string]string{"thumb": "0xabc"}
	_, err := s.CreateCitizen(ctx, c)
	require.NoError(t, err)

	c.FingerprintTemplates["thumb"] = "changed"
	got, err := s.GetCitizen(ctx, "1111-2222-3333")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", got.FingerprintTemplates["thumb"])
}

func TestListCitizensPaging(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	for _, a := range []string{"1111-1111-1111", "2222-2222-2222", "3333-3333-3333"} {
		_, err := s.CreateCitizen(ctx, citizen(a, "Name "+a[:1], "Mumbai"))
		require.NoError(t, err)
	}

	all, err := s.ListCitizens(ctx, 50, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "3333-3333-3333", all[0].AadhaarNumber, "newest first")

	page, err := s.ListCitizens(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "2222-2222-2222", page[0].AadhaarNumber)

	page, err = s.ListCitizens(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestSearchCitizens(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	_, _ = s.CreateCitizen(ctx, citizen("1234-5678-9012", "Rajesh Kumar Singh", "Mumbai"))
	_, _ = s.CreateCitizen(ctx, citizen("9876-5432-1098", "Priya Sharma", "Pune"))

	found, err := s.SearchCitizens(ctx, "rajesh", "")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "1234-5678-9012", found[0].AadhaarNumber)

	found, err = s.SearchCitizens(ctx, "9876", "")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, err = s.SearchCitizens(ctx, "", "Pune")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Priya Sharma", found[0].FullName)

	found, err = s.SearchCitizens(ctx, "rajesh", "Pune")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestVoterLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	v, err := s.CreateVoter(ctx, models.Voter{
		VoterID:       "VOTER001",
		AadhaarNumber: "1234-5678-9012",
		Password:      "voter123",
		FullName:      "Rajesh Kumar Singh",
		Constituency:  "Mumbai North - 24",
		IsActive:      true,
		HasVoted:      true,
	})
	require.NoError(t, err)
	assert.False(t, v.HasVoted, "new voters have not voted")

	_, err = s.CreateVoter(ctx, models.Voter{VoterID: "VOTER001"})
	assert.ErrorIs(t, err, ErrDuplicate)

	byAadhaar, err := s.GetVoterByAadhaar(ctx, "1234-5678-9012")
	require.NoError(t, err)
	assert.Equal(t, "VOTER001", byAadhaar.VoterID)

	require.NoError(t, s.MarkVoted(ctx, "VOTER001"))
	assert.ErrorIs(t, s.MarkVoted(ctx, "VOTER001"), ErrAlreadyVoted)
	assert.ErrorIs(t, s.MarkVoted(ctx, "nobody"), ErrNotFound)

	require.NoError(t, s.ClearVoted(ctx, "VOTER001"))
	require.NoError(t, s.MarkVoted(ctx, "VOTER001"))

	inactive := false
	updated, err := s.UpdateVoter(ctx, "VOTER001", models.VoterUpdate{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	voters, err := s.ListVoters(ctx)
	require.NoError(t, err)
	assert.Len(t, voters, 1)

	require.NoError(t, s.DeleteVoter(ctx, "VOTER001"))
	_, err = s.GetVoter(ctx, "VOTER001")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkVotedIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	_, err := s.CreateVoter(ctx, models.Voter{VoterID: "V1", IsActive: true})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.MarkVoted(ctx, "V1") == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
}

func TestCandidates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	a, err := s.CreateCandidate(ctx, models.Candidate{Name: "Candidate A", Party: "Party A", Constituency: "Mumbai North - 24"})
	require.NoError(t, err)
	assert.True(t, a.IsActive)
	_, err = s.CreateCandidate(ctx, models.Candidate{Name: "Candidate B", Party: "Party B", Constituency: "Mumbai North - 24"})
	require.NoError(t, err)
	_, err = s.CreateCandidate(ctx, models.Candidate{Name: "Candidate C", Party: "Party C", Constituency: "Pune"})
	require.NoError(t, err)

	local, err := s.CandidatesByConstituency(ctx, "Mumbai North - 24")
	require.NoError(t, err)
	assert.Len(t, local, 2)

	symbol := "Lotus"
	updated, err := s.UpdateCandidate(ctx, a.ID, models.CandidateUpdate{Symbol: &symbol})
	require.NoError(t, err)
	assert.Equal(t, "Lotus", updated.Symbol)

	require.NoError(t, s.DeleteCandidate(ctx, a.ID))
	assert.ErrorIs(t, s.DeleteCandidate(ctx, a.ID), ErrNotFound)

	local, err = s.CandidatesByConstituency(ctx, "Mumbai North - 24")
	require.NoError(t, err)
	assert.Len(t, local, 1)

	kept, err := s.GetCandidate(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, kept.IsActive, "deleted candidates are deactivated")

	all, err := s.ListCandidates(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestVotesAndStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	_, _ = s.CreateVoter(ctx, models.Voter{VoterID: "V1", IsActive: true})
	_, _ = s.CreateVoter(ctx, models.Voter{VoterID: "V2", IsActive: true})
	_, _ = s.CreateCandidate(ctx, models.Candidate{Name: "A", Constituency: "X"})
	_, _ = s.CreateCandidate(ctx, models.Candidate{Name: "B", Constituency: "X"})
	_, _ = s.CreateCandidate(ctx, models.Candidate{Name: "C", Constituency: "Y"})

	require.NoError(t, s.SaveVote(ctx, models.VoteRecord{VoteID: "VT-1", VoterID: "V1", Constituency: "X", CandidateID: models.CandidateRef(1)}))
	assert.ErrorIs(t, s.SaveVote(ctx, models.VoteRecord{VoteID: "VT-1"}), ErrDuplicate)

	votes, err := s.VotesByConstituency(ctx, "X")
	require.NoError(t, err)
	assert.Len(t, votes, 1)

	stats, err := s.VotingStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, VotingStats{TotalVotes: 1, EligibleVoters: 2, Constituencies: 2}, *stats)
}

func TestBiometricLogs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	entry, err := s.LogBiometric(ctx, models.BiometricLog{AadhaarNumber: "1234-5678-9012", VerificationType: models.VerificationFace, Confidence: 90, IsSuccessful: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.ID)
	assert.False(t, entry.Timestamp.IsZero())

	_, _ = s.LogBiometric(ctx, models.BiometricLog{AadhaarNumber: "other"})

	logs, err := s.BiometricLogs(ctx, "1234-5678-9012")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.VerificationFace, logs[0].VerificationType)
}

func TestAdminUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	_, err := s.CreateAdminUser(ctx, models.AdminUser{UserID: "admin", Password: "admin123", Role: "admin"})
	require.NoError(t, err)
	_, err = s.CreateAdminUser(ctx, models.AdminUser{UserID: "admin"})
	assert.ErrorIs(t, err, ErrDuplicate)

	a, err := s.GetAdminUser(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin123", a.Password)

	_, err = s.GetAdminUser(ctx, "root")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, Options{Backend: BackendJSON, DataDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &JSONStore{}, s)

	_, err = Open(ctx, Options{Backend: "sqlite"})
	assert.Error(t, err)
}
