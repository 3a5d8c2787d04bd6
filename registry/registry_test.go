package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civic-vote/encryption"
	"civic-vote/models"
	"civic-vote/storage"
)

func TestNormalizeAadhaar(t *testing.T) {
	for _, in := range []string{"123456789012", "1234-5678-9012", "1234 5678 9012", " 1234-5678 9012 "} {
		got, err := NormalizeAadhaar(in)
		require.NoError(t, err, in)
		assert.Equal(t, "1234-5678-9012", got)
	}

	for _, in := range []string{"", "1234-5678-901", "abcd-efgh-ijkl", "1234567890123"} {
		_, err := NormalizeAadhaar(in)
		assert.ErrorIs(t, err, ErrInvalid, in)
	}
}

func validCitizen() models.Citizen {
	return DefaultSeed().Citizens[0]
}

func TestValidateCitizen(t *testing.T) {
	c := validCitizen()
	require.NoError(t, ValidateCitizen(&c))

	broken := map[string]func(c *models.Citizen){
		"aadhaar":  func(c *models.Citizen) { c.AadhaarNumber = "123456789012" },
		"name":     func(c *models.Citizen) { c.FullName = "  " },
		"dob":      func(c *models.Citizen) { c.DateOfBirth = time.Time{} },
		"gender":   func(c *models.Citizen) { c.Gender = "" },
		"address":  func(c *models.Citizen) { c.Address = "" },
		"district": func(c *models.Citizen) { c.District = "" },
		"state":    func(c *models.Citizen) { c.State = "" },
		"pincode":  func(c *models.Citizen) { c.Pincode = "4000" },
	}
	for name, mutate := range broken {
		t.Run(name, func(t *testing.T) {
			c := validCitizen()
			mutate(&c)
			assert.ErrorIs(t, ValidateCitizen(&c), ErrInvalid)
		})
	}
}

func TestValidateVoterAndCandidate(t *testing.T) {
	v := DefaultSeed().Voters[0]
	require.NoError(t, ValidateVoter(&v))
	v.Password = ""
	assert.ErrorIs(t, ValidateVoter(&v), ErrInvalid)

	c := DefaultSeed().Candidates[0]
	require.NoError(t, ValidateCandidate(&c))
	c.Constituency = ""
	assert.ErrorIs(t, ValidateCandidate(&c), ErrInvalid)
}

func TestSeedDemoDataIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	require.NoError(t, SeedDemoData(ctx, store))
	require.NoError(t, SeedDemoData(ctx, store))

	voter, err := store.GetVoter(ctx, "VOTER001")
	require.NoError(t, err)
	assert.Equal(t, "voter123", voter.Password)
	assert.Equal(t, "Mumbai North - 24", voter.Constituency)
	assert.True(t, voter.IsActive)

	citizen, err := store.GetCitizen(ctx, "1234-5678-9012")
	require.NoError(t, err)
	assert.Equal(t, "Rajesh Kumar Singh", citizen.FullName)
	assert.True(t, encryption.IsTemplateDigest(citizen.FaceTemplate))

	candidates, err := store.CandidatesByConstituency(ctx, "Mumbai North - 24")
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "Party A", candidates[0].Party)
	assert.Equal(t, "Party B", candidates[1].Party)
}

func TestLoadSeedCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed", "roll.json")

	seed, err := LoadSeed(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultSeed().Voters, seed.Voters)

	_, err = os.Stat(path)
	require.NoError(t, err)

	again, err := LoadSeed(path)
	require.NoError(t, err)
	assert.Len(t, again.Candidates, 2)
}

func TestLoadSeedRejectsInvalidRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roll.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"voters":[{"voterId":"X"}]}`), 0644))

	_, err := LoadSeed(path)
	assert.ErrorIs(t, err, ErrInvalid)
}
