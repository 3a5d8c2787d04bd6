package api

import (
	"github.com/gofiber/fiber/v2"

	"civic-vote/service"
)

const (
	keyUserID = "userId"
	keyRole   = "role"
	keySystem = "system"

	localPrincipal = "principal"
)

func (s *Server) login(c *fiber.Ctx, p *service.Principal) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return err
	}
	if err := sess.Regenerate(); err != nil {
		return err
	}
	sess.Set(keyUserID, p.UserID)
	sess.Set(keyRole, p.Role)
	sess.Set(keySystem, p.System)
	return sess.Save()
}

func (s *Server) principal(c *fiber.Ctx) (*service.Principal, error) {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return nil, err
	}
	userID, _ := sess.Get(keyUserID).(string)
	if userID == "" {
		return nil, nil
	}
	role, _ := sess.Get(keyRole).(string)
	system, _ := sess.Get(keySystem).(string)
	return &service.Principal{UserID: userID, Role: role, System: system}, nil
}

// authenticate rejects requests without a session, and with roles given,
// sessions of any other role.
func (s *Server) authenticate(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := s.principal(c)
		if err != nil {
			return err
		}
		if p == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
		}
		if len(roles) > 0 && !hasRole(p.Role, roles) {
			return fiber.NewError(fiber.StatusForbidden, "Forbidden")
		}
		c.Locals(localPrincipal, p)
		return c.Next()
	}
}

func hasRole(role string, roles []string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func currentPrincipal(c *fiber.Ctx) *service.Principal {
	p, _ := c.Locals(localPrincipal).(*service.Principal)
	return p
}
