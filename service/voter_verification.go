package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"civic-vote/models"
	"civic-vote/storage"
)

const MinimumVotingAge = 18

// VoterVerificationService decides whether a voter may cast a ballot now.
type VoterVerificationService struct {
	store      storage.Store
	minimumAge int
	now        func() time.Time
}

func NewVoterVerificationService(store storage.Store) *VoterVerificationService {
	return &VoterVerificationService{
		store:      store,
		minimumAge: MinimumVotingAge,
		now:        time.Now,
	}
}

// VerifyVoter returns the voter if it exists, is active, has not voted yet and,
// when linked to a citizen record, is of voting age.
func (vvs *VoterVerificationService) VerifyVoter(ctx context.Context, voterID string) (*models.Voter, error) {
	voter, err := vvs.store.GetVoter(ctx, voterID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrVoterNotFound
		}
		return nil, fmt.Errorf("failed to load voter %s: %w", voterID, err)
	}

	if !voter.IsActive {
		return nil, ErrVoterInactive
	}
	if voter.HasVoted {
		return nil, ErrAlreadyVoted
	}

	if voter.AadhaarNumber != "" {
		citizen, err := vvs.store.GetCitizen(ctx, voter.AadhaarNumber)
		switch {
		case err == nil:
			if age := vvs.calculateAge(citizen.DateOfBirth); age < vvs.minimumAge {
				return nil, fmt.Errorf("%w: must be at least %d (current age: %d)", ErrUnderage, vvs.minimumAge, age)
			}
		case !errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("failed to load citizen for voter %s: %w", voterID, err)
		}
	}

	return voter, nil
}

func (vvs *VoterVerificationService) calculateAge(birthDate time.Time) int {
	now := vvs.now()
	age := now.Year() - birthDate.Year()

	if now.Month() < birthDate.Month() ||
		(now.Month() == birthDate.Month() && now.Day() < birthDate.Day()) {
		age--
	}
	return age
}
