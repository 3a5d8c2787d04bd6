package api

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"civic-vote/biometric"
	"civic-vote/models"
	"civic-vote/registry"
)

const (
	defaultPage  = 1
	defaultLimit = 50
)

// citizenPayload accepts dateOfBirth as a plain date as well as RFC 3339.
type citizenPayload struct {
	models.Citizen
	DateOfBirth string `json:"dateOfBirth"`
}

type citizenUpdatePayload struct {
	models.CitizenUpdate
	DateOfBirth *string `json:"dateOfBirth"`
}

type CreateCitizenResponse struct {
	*models.Citizen
	Voter *models.Voter `json:"voter,omitempty"`
}

type fingerprintRequest struct {
	AadhaarNumber   string `json:"aadhaarNumber"`
	FingerprintData string `json:"fingerprintData"`
}

type faceRequest struct {
	AadhaarNumber string `json:"aadhaarNumber"`
	FaceData      string `json:"faceData"`
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date of birth %q", registry.ErrInvalid, s)
	}
	return t.UTC(), nil
}

func aadhaarParam(c *fiber.Ctx) (string, error) {
	return registry.NormalizeAadhaar(c.Params("aadhaar"))
}

func (s *Server) handleListCitizens(c *fiber.Ctx) error {
	page := c.QueryInt("page", defaultPage)
	limit := c.QueryInt("limit", defaultLimit)
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}

	citizens, err := s.Store.ListCitizens(c.UserContext(), limit, (page-1)*limit)
	if err != nil {
		return err
	}
	return c.JSON(citizens)
}

func (s *Server) handleSearchCitizens(c *fiber.Ctx) error {
	citizens, err := s.Store.SearchCitizens(c.UserContext(), c.Query("q"), c.Query("district"))
	if err != nil {
		return err
	}
	return c.JSON(citizens)
}

func (s *Server) handleGetCitizen(c *fiber.Ctx) error {
	aadhaar, err := aadhaarParam(c)
	if err != nil {
		return err
	}
	citizen, err := s.Store.GetCitizen(c.UserContext(), aadhaar)
	if err != nil {
		return err
	}
	return c.JSON(citizen)
}

func (s *Server) handleCreateCitizen(c *fiber.Ctx) error {
	var req citizenPayload
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid citizen data")
	}
	if req.DateOfBirth != "" {
		dob, err := parseDate(req.DateOfBirth)
		if err != nil {
			return err
		}
		req.Citizen.DateOfBirth = dob
	}

	citizen, voter, err := s.Registration.CreateCitizen(c.UserContext(), req.Citizen)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(CreateCitizenResponse{Citizen: citizen, Voter: voter})
}

func (s *Server) handleUpdateCitizen(c *fiber.Ctx) error {
	aadhaar, err := aadhaarParam(c)
	if err != nil {
		return err
	}
	var req citizenUpdatePayload
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid update data")
	}
	if req.DateOfBirth != nil {
		dob, err := parseDate(*req.DateOfBirth)
		if err != nil {
			return err
		}
		req.CitizenUpdate.DateOfBirth = &dob
	}

	citizen, err := s.Registration.UpdateCitizen(c.UserContext(), aadhaar, req.CitizenUpdate)
	if err != nil {
		return err
	}
	return c.JSON(citizen)
}

func (s *Server) handleDeleteCitizen(c *fiber.Ctx) error {
	aadhaar, err := aadhaarParam(c)
	if err != nil {
		return err
	}
	if err := s.Store.DeleteCitizen(c.UserContext(), aadhaar); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) handleBiometricLogs(c *fiber.Ctx) error {
	aadhaar, err := aadhaarParam(c)
	if err != nil {
		return err
	}
	logs, err := s.Store.BiometricLogs(c.UserContext(), aadhaar)
	if err != nil {
		return err
	}
	return c.JSON(logs)
}

// Malformed aadhaar numbers are treated like unknown ones: no match.
func (s *Server) handleVerifyFingerprint(c *fiber.Ctx) error {
	var req fingerprintRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}
	aadhaar, err := registry.NormalizeAadhaar(req.AadhaarNumber)
	if err != nil {
		return c.JSON(biometric.Result{})
	}
	result, err := s.Verifier.VerifyFingerprint(c.UserContext(), aadhaar, req.FingerprintData)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (s *Server) handleVerifyFace(c *fiber.Ctx) error {
	var req faceRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}
	aadhaar, err := registry.NormalizeAadhaar(req.AadhaarNumber)
	if err != nil {
		return c.JSON(biometric.Result{})
	}
	result, err := s.Verifier.VerifyFace(c.UserContext(), aadhaar, req.FaceData)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (s *Server) handleListVoters(c *fiber.Ctx) error {
	voters, err := s.Store.ListVoters(c.UserContext())
	if err != nil {
		return err
	}
	public := make([]models.Voter, len(voters))
	for i, v := range voters {
		public[i] = v.Public()
	}
	return c.JSON(public)
}

func (s *Server) handleCreateVoter(c *fiber.Ctx) error {
	req := models.Voter{IsActive: true}
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid voter data")
	}
	voter, err := s.Registration.CreateVoter(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(voter)
}

func (s *Server) handleListCandidates(c *fiber.Ctx) error {
	candidates, err := s.Store.ListCandidates(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(candidates)
}

func (s *Server) handleCandidatesByConstituency(c *fiber.Ctx) error {
	candidates, err := s.Store.CandidatesByConstituency(c.UserContext(), c.Params("constituency"))
	if err != nil {
		return err
	}
	return c.JSON(candidates)
}

func (s *Server) handleCreateCandidate(c *fiber.Ctx) error {
	var req models.Candidate
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid candidate data")
	}
	candidate, err := s.Registration.CreateCandidate(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(candidate)
}

func (s *Server) handleDeleteCandidate(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return badRequest("Invalid candidate id")
	}
	if err := s.Store.DeleteCandidate(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}
