package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"civic-vote/models"
)

// snapshot is the complete state of a MemoryStore. JSONStore writes it to disk.
type snapshot struct {
	Admins        []models.AdminUser    `json:"admins"`
	Citizens      []models.Citizen      `json:"citizens"`
	Voters        []models.Voter        `json:"voters"`
	Candidates    []models.Candidate    `json:"candidates"`
	Votes         []models.VoteRecord   `json:"votes"`
	BiometricLogs []models.BiometricLog `json:"biometricLogs"`
	Sequences     map[string]int64      `json:"sequences"`
}

const (
	seqAdmins     = "admins"
	seqCitizens   = "citizens"
	seqVoters     = "voters"
	seqCandidates = "candidates"
	seqBiometric  = "biometric_logs"
)

// MemoryStore keeps every record in maps guarded by a single RWMutex.
type MemoryStore struct {
	mu         sync.RWMutex
	admins     map[string]models.AdminUser
	citizens   map[string]models.Citizen
	voters     map[string]models.Voter
	candidates map[int]models.Candidate
	votes      []models.VoteRecord
	biometric  []models.BiometricLog
	seq        map[string]int64

	now func() time.Time
	// persist is called with the lock held after every successful mutation.
	persist func(*snapshot) error
	// saved is the state last accepted by persist.
	saved *snapshot
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{now: time.Now}
	s.reset()
	return s
}

func (s *MemoryStore) reset() {
	s.admins = make(map[string]models.AdminUser)
	s.citizens = make(map[string]models.Citizen)
	s.voters = make(map[string]models.Voter)
	s.candidates = make(map[int]models.Candidate)
	s.votes = make([]models.VoteRecord, 0)
	s.biometric = make([]models.BiometricLog, 0)
	s.seq = make(map[string]int64)
}

// setPersist installs fn and takes the current state as persisted.
func (s *MemoryStore) setPersist(fn func(*snapshot) error) {
	s.persist = fn
	s.saved = s.snapshot()
}

func (s *MemoryStore) next(name string) int64 {
	s.seq[name]++
	return s.seq[name]
}

// commit persists the current state. If that fails, the state is rolled back
// to the last persisted snapshot so memory never runs ahead of disk.
func (s *MemoryStore) commit() error {
	if s.persist == nil {
		return nil
	}
	snap := s.snapshot()
	if err := s.persist(snap); err != nil {
		s.reset()
		s.restore(s.saved)
		return err
	}
	s.saved = snap
	return nil
}

func (s *MemoryStore) snapshot() *snapshot {
	snap := &snapshot{
		Admins:        make([]models.AdminUser, 0, len(s.admins)),
		Citizens:      make([]models.Citizen, 0, len(s.citizens)),
		Voters:        make([]models.Voter, 0, len(s.voters)),
		Candidates:    make([]models.Candidate, 0, len(s.candidates)),
		Votes:         append([]models.VoteRecord(nil), s.votes...),
		BiometricLogs: append([]models.BiometricLog(nil), s.biometric...),
		Sequences:     make(map[string]int64, len(s.seq)),
	}
	for _, a := range s.admins {
		snap.Admins = append(snap.Admins, a)
	}
	for _, c := range s.citizens {
		snap.Citizens = append(snap.Citizens, c)
	}
	for _, v := range s.voters {
		snap.Voters = append(snap.Voters, v)
	}
	for _, c := range s.candidates {
		snap.Candidates = append(snap.Candidates, c)
	}
	for k, v := range s.seq {
		snap.Sequences[k] = v
	}
	sort.Slice(snap.Admins, func(i, j int) bool { return snap.Admins[i].ID < snap.Admins[j].ID })
	sort.Slice(snap.Citizens, func(i, j int) bool { return snap.Citizens[i].ID < snap.Citizens[j].ID })
	sort.Slice(snap.Voters, func(i, j int) bool { return snap.Voters[i].ID < snap.Voters[j].ID })
	sort.Slice(snap.Candidates, func(i, j int) bool { return snap.Candidates[i].ID < snap.Candidates[j].ID })
	return snap
}

func (s *MemoryStore) restore(snap *snapshot) {
	for _, a := range snap.Admins {
		s.admins[a.UserID] = a
	}
	for _, c := range snap.Citizens {
		s.citizens[c.AadhaarNumber] = c
	}
	for _, v := range snap.Voters {
		s.voters[v.VoterID] = v
	}
	for _, c := range snap.Candidates {
		s.candidates[c.ID] = c
	}
	s.votes = append(s.votes, snap.Votes...)
	s.biometric = append(s.biometric, snap.BiometricLogs...)
	for k, v := range snap.Sequences {
		s.seq[k] = v
	}
}

func cloneCitizen(c models.Citizen) models.Citizen {
	if c.FingerprintTemplates != nil {
		templates := make(map[string]string, len(c.FingerprintTemplates))
		for k, v := range c.FingerprintTemplates {
			templates[k] = v
		}
		c.FingerprintTemplates = templates
	}
	return c
}

func (s *MemoryStore) GetAdminUser(_ context.Context, userID string) (*models.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.admins[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *MemoryStore) CreateAdminUser(_ context.Context, user models.AdminUser) (*models.AdminUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.admins[user.UserID]; ok {
		return nil, fmt.Errorf("admin %s: %w", user.UserID, ErrDuplicate)
	}
	user.ID = s.next(seqAdmins)
	user.CreatedAt = s.now().UTC()
	s.admins[user.UserID] = user
	return &user, s.commit()
}

func (s *MemoryStore) GetCitizen(_ context.Context, aadhaar string) (*models.Citizen, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.citizens[aadhaar]
	if !ok {
		return nil, ErrNotFound
	}
	c = cloneCitizen(c)
	return &c, nil
}

// newestFirst orders citizens by creation time, most recent first.
func newestFirst(citizens []models.Citizen) {
	sort.Slice(citizens, func(i, j int) bool {
		if citizens[i].CreatedAt.Equal(citizens[j].CreatedAt) {
			return citizens[i].ID > citizens[j].ID
		}
		return citizens[i].CreatedAt.After(citizens[j].CreatedAt)
	})
}

func (s *MemoryStore) ListCitizens(_ context.Context, limit, offset int) ([]models.Citizen, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]models.Citizen, 0, len(s.citizens))
	for _, c := range s.citizens {
		all = append(all, cloneCitizen(c))
	}
	newestFirst(all)

	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []models.Citizen{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *MemoryStore) CreateCitizen(_ context.Context, citizen models.Citizen) (*models.Citizen, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.citizens[citizen.AadhaarNumber]; ok {
		return nil, fmt.Errorf("citizen %s: %w", citizen.AadhaarNumber, ErrDuplicate)
	}
	now := s.now().UTC()
	citizen = cloneCitizen(citizen)
	citizen.ID = s.next(seqCitizens)
	citizen.CreatedAt = now
	citizen.UpdatedAt = now
	citizen.VoterID, citizen.Constituency = "", ""
	s.citizens[citizen.AadhaarNumber] = citizen

	out := cloneCitizen(citizen)
	return &out, s.commit()
}

func (s *MemoryStore) UpdateCitizen(_ context.Context, aadhaar string, update models.CitizenUpdate) (*models.Citizen, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.citizens[aadhaar]
	if !ok {
		return nil, ErrNotFound
	}
	c = cloneCitizen(c)
	update.Apply(&c)
	c.UpdatedAt = s.now().UTC()
	s.citizens[aadhaar] = c

	out := cloneCitizen(c)
	return &out, s.commit()
}

func (s *MemoryStore) DeleteCitizen(_ context.Context, aadhaar string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.citizens[aadhaar]; !ok {
		return ErrNotFound
	}
	delete(s.citizens, aadhaar)
	return s.commit()
}

func (s *MemoryStore) SearchCitizens(_ context.Context, query, district string) ([]models.Citizen, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	found := make([]models.Citizen, 0)
	for _, c := range s.citizens {
		if district != "" && c.District != district {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(c.FullName), q) && !strings.Contains(c.AadhaarNumber, q) {
			continue
		}
		found = append(found, cloneCitizen(c))
	}
	newestFirst(found)
	return found, nil
}

func (s *MemoryStore) GetVoter(_ context.Context, voterID string) (*models.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.voters[voterID]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (s *MemoryStore) GetVoterByAadhaar(_ context.Context, aadhaar string) (*models.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.voters {
		if v.AadhaarNumber == aadhaar {
			v := v
			return &v, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListVoters(_ context.Context) ([]models.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	voters := make([]models.Voter, 0, len(s.voters))
	for _, v := range s.voters {
		voters = append(voters, v)
	}
	sort.Slice(voters, func(i, j int) bool { return voters[i].ID < voters[j].ID })
	return voters, nil
}

func (s *MemoryStore) CreateVoter(_ context.Context, voter models.Voter) (*models.Voter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.voters[voter.VoterID]; ok {
		return nil, fmt.Errorf("voter %s: %w", voter.VoterID, ErrDuplicate)
	}
	voter.ID = s.next(seqVoters)
	voter.CreatedAt = s.now().UTC()
	voter.HasVoted = false
	s.voters[voter.VoterID] = voter
	return &voter, s.commit()
}

func (s *MemoryStore) UpdateVoter(_ context.Context, voterID string, update models.VoterUpdate) (*models.Voter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.voters[voterID]
	if !ok {
		return nil, ErrNotFound
	}
	update.Apply(&v)
	s.voters[voterID] = v
	return &v, s.commit()
}

func (s *MemoryStore) DeleteVoter(_ context.Context, voterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.voters[voterID]; !ok {
		return ErrNotFound
	}
	delete(s.voters, voterID)
	return s.commit()
}

func (s *MemoryStore) MarkVoted(_ context.Context, voterID string) error {
	return s.setVoted(voterID, true)
}

func (s *MemoryStore) ClearVoted(_ context.Context, voterID string) error {
	return s.setVoted(voterID, false)
}

func (s *MemoryStore) setVoted(voterID string, voted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.voters[voterID]
	if !ok {
		return ErrNotFound
	}
	if voted && v.HasVoted {
		return ErrAlreadyVoted
	}
	v.HasVoted = voted
	s.voters[voterID] = v
	return s.commit()
}

func (s *MemoryStore) activeCandidates(match func(models.Candidate) bool) []models.Candidate {
	found := make([]models.Candidate, 0)
	for _, c := range s.candidates {
		if c.IsActive && match(c) {
			found = append(found, c)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })
	return found
}

func (s *MemoryStore) ListCandidates(_ context.Context) ([]models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeCandidates(func(models.Candidate) bool { return true }), nil
}

func (s *MemoryStore) CandidatesByConstituency(_ context.Context, constituency string) ([]models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeCandidates(func(c models.Candidate) bool { return c.Constituency == constituency }), nil
}

func (s *MemoryStore) GetCandidate(_ context.Context, id int) (*models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.candidates[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) CreateCandidate(_ context.Context, candidate models.Candidate) (*models.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidate.ID = int(s.next(seqCandidates))
	candidate.IsActive = true
	candidate.CreatedAt = s.now().UTC()
	s.candidates[candidate.ID] = candidate
	return &candidate, s.commit()
}

func (s *MemoryStore) UpdateCandidate(_ context.Context, id int, update models.CandidateUpdate) (*models.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.candidates[id]
	if !ok {
		return nil, ErrNotFound
	}
	update.Apply(&c)
	s.candidates[id] = c
	return &c, s.commit()
}

// DeleteCandidate deactivates the candidate; the row is kept so past votes
// still resolve.
func (s *MemoryStore) DeleteCandidate(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.candidates[id]
	if !ok || !c.IsActive {
		return ErrNotFound
	}
	c.IsActive = false
	s.candidates[id] = c
	return s.commit()
}

func (s *MemoryStore) SaveVote(_ context.Context, vote models.VoteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range s.votes {
		if v.VoteID == vote.VoteID {
			return fmt.Errorf("vote %s: %w", vote.VoteID, ErrDuplicate)
		}
	}
	s.votes = append(s.votes, vote.Clone())
	return s.commit()
}

func (s *MemoryStore) VotesByConstituency(_ context.Context, constituency string) ([]models.VoteRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	votes := make([]models.VoteRecord, 0)
	for _, v := range s.votes {
		if v.Constituency == constituency {
			votes = append(votes, v.Clone())
		}
	}
	return votes, nil
}

func (s *MemoryStore) VotingStats(_ context.Context) (*VotingStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	constituencies := make(map[string]struct{})
	for _, c := range s.candidates {
		constituencies[c.Constituency] = struct{}{}
	}
	return &VotingStats{
		TotalVotes:     len(s.votes),
		EligibleVoters: len(s.voters),
		Constituencies: len(constituencies),
	}, nil
}

func (s *MemoryStore) LogBiometric(_ context.Context, entry models.BiometricLog) (*models.BiometricLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = s.next(seqBiometric)
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now().UTC()
	}
	s.biometric = append(s.biometric, entry)
	return &entry, s.commit()
}

func (s *MemoryStore) BiometricLogs(_ context.Context, aadhaar string) ([]models.BiometricLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]models.BiometricLog, 0)
	for _, l := range s.biometric {
		if l.AadhaarNumber == aadhaar {
			logs = append(logs, l)
		}
	}
	return logs, nil
}

func (s *MemoryStore) Close(context.Context) error {
	return nil
}
