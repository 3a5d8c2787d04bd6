package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"civic-vote/blockchain/ledger"
	"civic-vote/models"
)

// ChainStatus is the public summary of the vote ledger.
type ChainStatus struct {
	ledger.Stats
	Difficulty   int    `json:"difficulty"`
	Algorithm    string `json:"algorithm"`
	PendingVotes int    `json:"pendingVotes"`
	PollsOpen    bool   `json:"pollsOpen"`
}

type BlockVerification struct {
	CalculatedHash string `json:"calculatedHash"`
	StoredHash     string `json:"storedHash"`
	HashMatch      bool   `json:"hashMatch"`
}

type BlockDetailsResponse struct {
	Block        models.Block      `json:"block"`
	IsValid      bool              `json:"isValid"`
	Verification BlockVerification `json:"verification"`
}

type ReceiptResponse struct {
	Valid bool `json:"valid"`
	ledger.Receipt
}

func (s *Server) handleChainStats(c *fiber.Ctx) error {
	return c.JSON(ChainStatus{
		Stats:        s.Ledger.Stats(),
		Difficulty:   s.Ledger.Difficulty(),
		Algorithm:    string(s.Ledger.Algorithm()),
		PendingVotes: s.Queue.Pending(),
		PollsOpen:    s.Voting.IsVotingActive(),
	})
}

func (s *Server) handleValidateChain(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"isValid": s.Ledger.ValidateChain()})
}

func (s *Server) handleListBlocks(c *fiber.Ctx) error {
	return c.JSON(s.Ledger.Blocks())
}

func (s *Server) handleGetBlock(c *fiber.Ctx) error {
	index, err := strconv.ParseUint(c.Params("index"), 10, 64)
	if err != nil {
		return badRequest("Invalid block index")
	}
	block, err := s.Ledger.Block(index)
	if err != nil {
		return err
	}

	calculated := ledger.BlockDigest(s.Ledger.Algorithm(), block)
	return c.JSON(BlockDetailsResponse{
		Block:   block,
		IsValid: calculated == block.Hash,
		Verification: BlockVerification{
			CalculatedHash: calculated,
			StoredHash:     block.Hash,
			HashMatch:      calculated == block.Hash,
		},
	})
}

func (s *Server) handleVerifyReceipt(c *fiber.Ctx) error {
	receipt, err := s.Ledger.FindReceipt(c.Params("hash"))
	if err != nil {
		return err
	}
	return c.JSON(ReceiptResponse{Valid: true, Receipt: receipt})
}
