package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"civic-vote/log"
	"civic-vote/service"
)

func (s *Server) handleCastVote(c *fiber.Ctx) error {
	var req service.CastVoteRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}
	req.VoterID = currentPrincipal(c).UserID

	vote, err := s.Voting.CastVote(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(vote)
}

func (s *Server) handleResults(c *fiber.Ctx) error {
	results, err := s.Counting.Results(c.UserContext(), c.Params("constituency"))
	if err != nil {
		return err
	}
	return c.JSON(results)
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	stats, err := s.Counting.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

func (s *Server) handleElectionStatus(c *fiber.Ctx) error {
	return c.JSON(s.Voting.PollStatus())
}

func (s *Server) handleCloseElection(c *fiber.Ctx) error {
	if err := s.Voting.EndVotingSession(); err != nil {
		return err
	}
	if s.Archive != nil {
		if _, err := s.Archive.Save(s.Ledger.Export()); err != nil {
			log.Error("failed to archive ledger", zap.Error(err))
		}
	}
	return c.JSON(s.Voting.PollStatus())
}

func (s *Server) handleMetrics(c *fiber.Ctx) error {
	return c.JSON(s.Metrics.GetMetrics())
}
