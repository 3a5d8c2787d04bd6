// Package registry validates roll records and seeds the demo electoral roll.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"civic-vote/encryption"
	"civic-vote/log"
	"civic-vote/models"
	"civic-vote/storage"
)

// SeedData is the demo roll: citizens, their voter entries and the candidates
// standing in their constituencies.
type SeedData struct {
	Citizens   []models.Citizen   `json:"citizens"`
	Voters     []models.Voter     `json:"voters"`
	Candidates []models.Candidate `json:"candidates"`
}

// DefaultSeed is the roll every fresh deployment starts with.
func DefaultSeed() SeedData {
	return SeedData{
		Citizens: []models.Citizen{
			{
				AadhaarNumber: "1234-5678-9012",
				FullName:      "Rajesh Kumar Singh",
				DateOfBirth:   time.Date(1990, 5, 15, 0, 0, 0, 0, time.UTC),
				Gender:        "Male",
				Address:       "123 Main Street, Mumbai",
				District:      "Mumbai",
				State:         "Maharashtra",
				Pincode:       "400001",
				FingerprintTemplates: map[string]string{
					"right_thumb": encryption.TemplateDigest("demo_fingerprint_template"),
				},
				FaceTemplate: encryption.TemplateDigest("demo_face_template"),
				IsVerified:   true,
			},
		},
		Voters: []models.Voter{
			{
				VoterID:       "VOTER001",
				AadhaarNumber: "1234-5678-9012",
				Password:      "voter123",
				FullName:      "Rajesh Kumar Singh",
				Constituency:  "Mumbai North - 24",
				IsActive:      true,
			},
		},
		Candidates: []models.Candidate{
			{
				Name:          "Candidate A",
				Party:         "Party A",
				Constituency:  "Mumbai North - 24",
				Qualification: "Graduate",
				Experience:    "5 years in social work",
			},
			{
				Name:          "Candidate B",
				Party:         "Party B",
				Constituency:  "Mumbai North - 24",
				Qualification: "Post Graduate",
				Experience:    "10 years in public service",
			},
		},
	}
}

// LoadSeed reads seed data from path. A missing file is created with
// DefaultSeed so operators have something to edit.
func LoadSeed(path string) (SeedData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return createDefaultSeedFile(path)
		}
		return SeedData{}, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed SeedData
	if err := json.Unmarshal(data, &seed); err != nil {
		return SeedData{}, fmt.Errorf("failed to unmarshal seed data: %w", err)
	}
	if err := seed.Validate(); err != nil {
		return SeedData{}, err
	}
	return seed, nil
}

func createDefaultSeedFile(path string) (SeedData, error) {
	seed := DefaultSeed()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return SeedData{}, fmt.Errorf("failed to create directory: %w", err)
	}
	data, err := json.MarshalIndent(seed, "", "  ")
	if err != nil {
		return SeedData{}, fmt.Errorf("failed to marshal default seed data: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return SeedData{}, fmt.Errorf("failed to save default seed file: %w", err)
	}
	return seed, nil
}

func (d SeedData) Validate() error {
	for i := range d.Citizens {
		if err := ValidateCitizen(&d.Citizens[i]); err != nil {
			return fmt.Errorf("citizen %s: %w", d.Citizens[i].AadhaarNumber, err)
		}
	}
	for i := range d.Voters {
		if err := ValidateVoter(&d.Voters[i]); err != nil {
			return fmt.Errorf("voter %s: %w", d.Voters[i].VoterID, err)
		}
	}
	for i := range d.Candidates {
		if err := ValidateCandidate(&d.Candidates[i]); err != nil {
			return fmt.Errorf("candidate %s: %w", d.Candidates[i].Name, err)
		}
	}
	return nil
}

// Seed inserts whatever part of d is not in the store yet. It is safe to call
// on every voter login.
func Seed(ctx context.Context, store storage.Store, d SeedData) error {
	created := 0

	for _, c := range d.Citizens {
		_, err := store.GetCitizen(ctx, c.AadhaarNumber)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if _, err := store.CreateCitizen(ctx, c); err != nil && !errors.Is(err, storage.ErrDuplicate) {
			return fmt.Errorf("failed to seed citizen %s: %w", c.AadhaarNumber, err)
		}
		created++
	}

	for _, v := range d.Voters {
		_, err := store.GetVoter(ctx, v.VoterID)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if _, err := store.CreateVoter(ctx, v); err != nil && !errors.Is(err, storage.ErrDuplicate) {
			return fmt.Errorf("failed to seed voter %s: %w", v.VoterID, err)
		}
		created++
	}

	for _, c := range d.Candidates {
		existing, err := store.CandidatesByConstituency(ctx, c.Constituency)
		if err != nil {
			return err
		}
		if hasCandidate(existing, c.Name) {
			continue
		}
		if _, err := store.CreateCandidate(ctx, c); err != nil {
			return fmt.Errorf("failed to seed candidate %s: %w", c.Name, err)
		}
		created++
	}

	if created > 0 {
		log.Info("demo data created", zap.Int("records", created))
	}
	return nil
}

// SeedDemoData seeds DefaultSeed.
func SeedDemoData(ctx context.Context, store storage.Store) error {
	return Seed(ctx, store, DefaultSeed())
}

func hasCandidate(candidates []models.Candidate, name string) bool {
	for _, c := range candidates {
		if c.Name == name {
			return true
		}
	}
	return false
}
