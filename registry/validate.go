package registry

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"civic-vote/models"
)

var ErrInvalid = errors.New("invalid record")

var (
	aadhaarPattern = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}$`)
	pincodePattern = regexp.MustCompile(`^\d{6}$`)
	digitsOnly     = regexp.MustCompile(`^\d{12}$`)
)

// NormalizeAadhaar accepts twelve digits, optionally grouped by spaces or
// dashes, and returns them in the dddd-dddd-dddd form used as the record key.
func NormalizeAadhaar(s string) (string, error) {
	digits := strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(s))
	if !digitsOnly.MatchString(digits) {
		return "", fmt.Errorf("%w: aadhaar number %q must have 12 digits", ErrInvalid, s)
	}
	return digits[0:4] + "-" + digits[4:8] + "-" + digits[8:12], nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func ValidateCitizen(c *models.Citizen) error {
	if !aadhaarPattern.MatchString(c.AadhaarNumber) {
		return invalid("aadhaar number %q is not in dddd-dddd-dddd form", c.AadhaarNumber)
	}
	if strings.TrimSpace(c.FullName) == "" {
		return invalid("full name is required")
	}
	if c.DateOfBirth.IsZero() {
		return invalid("date of birth is required")
	}
	if c.Gender == "" {
		return invalid("gender is required")
	}
	if c.Address == "" {
		return invalid("address is required")
	}
	if c.District == "" {
		return invalid("district is required")
	}
	if c.State == "" {
		return invalid("state is required")
	}
	return ValidatePincode(c.Pincode)
}

func ValidatePincode(pincode string) error {
	if !pincodePattern.MatchString(pincode) {
		return invalid("pincode %q must have 6 digits", pincode)
	}
	return nil
}

func ValidateVoter(v *models.Voter) error {
	if v.VoterID == "" {
		return invalid("voter id is required")
	}
	if !aadhaarPattern.MatchString(v.AadhaarNumber) {
		return invalid("aadhaar number %q is not in dddd-dddd-dddd form", v.AadhaarNumber)
	}
	if v.Password == "" {
		return invalid("password is required")
	}
	if strings.TrimSpace(v.FullName) == "" {
		return invalid("full name is required")
	}
	if v.Constituency == "" {
		return invalid("constituency is required")
	}
	return nil
}

func ValidateCandidate(c *models.Candidate) error {
	if strings.TrimSpace(c.Name) == "" {
		return invalid("name is required")
	}
	if c.Party == "" {
		return invalid("party is required")
	}
	if c.Constituency == "" {
		return invalid("constituency is required")
	}
	return nil
}
