package api

import (
	"github.com/gofiber/fiber/v2"

	"civic-vote/service"
)

type LoginRequest struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginResponse struct {
	Success bool               `json:"success"`
	User    *service.Principal `json:"user"`
	Voter   interface{}        `json:"voter,omitempty"`
}

func (s *Server) handleAdminLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}

	p, err := s.Auth.LoginAdmin(c.UserContext(), service.SystemAadhaar, req.UserID, req.Password)
	if err != nil {
		return err
	}
	if err := s.login(c, p); err != nil {
		return err
	}
	return c.JSON(LoginResponse{Success: true, User: p})
}

// handleVotingLogin serves both the voting admin and voters; role selects which.
func (s *Server) handleVotingLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}

	if req.Role == service.RoleAdmin {
		p, err := s.Auth.LoginAdmin(c.UserContext(), service.SystemVoting, req.UserID, req.Password)
		if err != nil {
			return err
		}
		if err := s.login(c, p); err != nil {
			return err
		}
		return c.JSON(LoginResponse{Success: true, User: p})
	}

	p, voter, err := s.Auth.LoginVoter(c.UserContext(), req.UserID, req.Password)
	if err != nil {
		return err
	}
	if err := s.login(c, p); err != nil {
		return err
	}
	return c.JSON(LoginResponse{Success: true, User: p, Voter: voter})
}

func (s *Server) handleLogout(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return err
	}
	if err := sess.Destroy(); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) handleCurrentUser(c *fiber.Ctx) error {
	return c.JSON(currentPrincipal(c))
}
