package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"civic-vote/biometric"
	"civic-vote/log"
	"civic-vote/models"
	"civic-vote/registry"
	"civic-vote/storage"
)

// RegistrationService creates roll records after validation. Creating a
// citizen also enrolls the citizen as a voter.
type RegistrationService struct {
	store storage.Store
	now   func() time.Time
}

func NewRegistrationService(store storage.Store) *RegistrationService {
	return &RegistrationService{store: store, now: time.Now}
}

// AutoVoterID is VOTER followed by the last six digits of the unix millis.
func AutoVoterID(t time.Time) string {
	ms := strconv.FormatInt(t.UnixMilli(), 10)
	return "VOTER" + ms[len(ms)-6:]
}

// CreateCitizen validates and stores citizen, then creates its voter entry
// with the date of birth (YYYY-MM-DD) as password. A failure to create the
// voter is logged and the citizen is still returned.
func (rs *RegistrationService) CreateCitizen(ctx context.Context, citizen models.Citizen) (*models.Citizen, *models.Voter, error) {
	aadhaar, err := registry.NormalizeAadhaar(citizen.AadhaarNumber)
	if err != nil {
		return nil, nil, err
	}
	citizen.AadhaarNumber = aadhaar
	if err := registry.ValidateCitizen(&citizen); err != nil {
		return nil, nil, err
	}
	biometric.Enroll(&citizen)

	voterID, constituency := citizen.VoterID, citizen.Constituency
	created, err := rs.store.CreateCitizen(ctx, citizen)
	if err != nil {
		return nil, nil, err
	}

	if voterID == "" {
		voterID = AutoVoterID(rs.now())
	}
	voter, err := rs.CreateVoter(ctx, models.Voter{
		VoterID:       voterID,
		AadhaarNumber: created.AadhaarNumber,
		Password:      created.DateOfBirth.Format("2006-01-02"),
		FullName:      created.FullName,
		Constituency:  constituency,
		IsActive:      true,
	})
	if err != nil {
		log.Warn("failed to create voter record", zap.String("aadhaar", created.AadhaarNumber), zap.Error(err))
		return created, nil, nil
	}
	return created, voter, nil
}

func (rs *RegistrationService) UpdateCitizen(ctx context.Context, aadhaar string, update models.CitizenUpdate) (*models.Citizen, error) {
	if update.FingerprintTemplates != nil || update.FaceTemplate != nil {
		enroll := models.Citizen{FingerprintTemplates: update.FingerprintTemplates}
		if update.FaceTemplate != nil {
			enroll.FaceTemplate = *update.FaceTemplate
		}
		biometric.Enroll(&enroll)
		update.FingerprintTemplates = enroll.FingerprintTemplates
		if update.FaceTemplate != nil {
			update.FaceTemplate = &enroll.FaceTemplate
		}
	}
	if update.Pincode != nil {
		if err := registry.ValidatePincode(*update.Pincode); err != nil {
			return nil, err
		}
	}
	return rs.store.UpdateCitizen(ctx, aadhaar, update)
}

func (rs *RegistrationService) CreateVoter(ctx context.Context, voter models.Voter) (*models.Voter, error) {
	if voter.AadhaarNumber != "" {
		aadhaar, err := registry.NormalizeAadhaar(voter.AadhaarNumber)
		if err != nil {
			return nil, err
		}
		voter.AadhaarNumber = aadhaar
	}
	if err := registry.ValidateVoter(&voter); err != nil {
		return nil, err
	}
	created, err := rs.store.CreateVoter(ctx, voter)
	if err != nil {
		return nil, fmt.Errorf("failed to create voter %s: %w", voter.VoterID, err)
	}
	public := created.Public()
	return &public, nil
}

func (rs *RegistrationService) CreateCandidate(ctx context.Context, candidate models.Candidate) (*models.Candidate, error) {
	if err := registry.ValidateCandidate(&candidate); err != nil {
		return nil, err
	}
	return rs.store.CreateCandidate(ctx, candidate)
}
