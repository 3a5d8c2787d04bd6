// Package api exposes the Aadhaar console and the voting portal over HTTP.
package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/session"
	"go.uber.org/zap"

	"civic-vote/biometric"
	"civic-vote/blockchain/ledger"
	"civic-vote/log"
	"civic-vote/service"
	"civic-vote/storage"
)

const sessionCookie = "civic_session"

// Deps are the collaborators the handlers call into.
type Deps struct {
	Store        storage.Store
	Ledger       *ledger.VoteLedger
	Queue        *service.VoteQueue
	Voting       *service.VotingService
	Counting     *service.VoteCountingService
	Registration *service.RegistrationService
	Verifier     *biometric.Verifier
	Auth         *service.Authenticator
	Metrics      *service.MetricsCollector

	// Archive, when set, receives an export of the ledger as polls close.
	Archive *storage.ChainArchive
}

type Options struct {
	CORSOrigins     string
	SessionDuration time.Duration
}

type Server struct {
	Deps
	app      *fiber.App
	sessions *session.Store
}

func NewServer(deps Deps, opts Options) *Server {
	if opts.SessionDuration <= 0 {
		opts.SessionDuration = 24 * time.Hour
	}
	if opts.CORSOrigins == "" {
		opts.CORSOrigins = "*"
	}

	s := &Server{
		Deps: deps,
		app: fiber.New(fiber.Config{
			AppName:               "civic-vote",
			DisableStartupMessage: true,
			UnescapePath:          true,
			ErrorHandler:          errorHandler,
		}),
		sessions: session.New(session.Config{
			Expiration:     opts.SessionDuration,
			KeyLookup:      "cookie:" + sessionCookie,
			CookieHTTPOnly: true,
			CookieSameSite: fiber.CookieSameSiteLaxMode,
		}),
	}

	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     opts.CORSOrigins,
		AllowCredentials: opts.CORSOrigins != "*",
	}))
	s.app.Use(requestLogger)
	s.routes()

	return s
}

func (s *Server) routes() {
	api := s.app.Group("/api")

	api.Post("/admin/login", s.handleAdminLogin)
	api.Post("/voting/login", s.handleVotingLogin)
	api.Post("/logout", s.handleLogout)
	api.Get("/auth/user", s.authenticate(), s.handleCurrentUser)

	citizens := api.Group("/citizens", s.authenticate())
	citizens.Get("/", s.handleListCitizens)
	citizens.Get("/search", s.handleSearchCitizens)
	citizens.Post("/", s.handleCreateCitizen)
	citizens.Get("/:aadhaar", s.handleGetCitizen)
	citizens.Put("/:aadhaar", s.handleUpdateCitizen)
	citizens.Delete("/:aadhaar", s.handleDeleteCitizen)
	citizens.Get("/:aadhaar/logs", s.handleBiometricLogs)

	api.Post("/verify/fingerprint", s.handleVerifyFingerprint)
	api.Post("/verify/face", s.handleVerifyFace)

	api.Get("/voters", s.authenticate(), s.handleListVoters)
	api.Post("/voters", s.authenticate(), s.handleCreateVoter)

	api.Get("/candidates", s.authenticate(), s.handleListCandidates)
	api.Post("/candidates", s.authenticate(), s.handleCreateCandidate)
	api.Get("/candidates/:constituency", s.handleCandidatesByConstituency)
	api.Delete("/candidates/:id", s.authenticate(service.RoleAdmin), s.handleDeleteCandidate)

	api.Post("/vote", s.authenticate(service.RoleVoter), s.handleCastVote)
	api.Get("/results/:constituency", s.authenticate(), s.handleResults)
	api.Get("/stats", s.authenticate(), s.handleStats)
	api.Get("/election/status", s.handleElectionStatus)
	api.Post("/election/close", s.authenticate(service.RoleAdmin), s.handleCloseElection)

	chain := api.Group("/blockchain")
	chain.Get("/stats", s.handleChainStats)
	chain.Get("/validate", s.handleValidateChain)
	chain.Get("/blocks", s.authenticate(), s.handleListBlocks)
	chain.Get("/blocks/:index", s.authenticate(), s.handleGetBlock)
	chain.Get("/receipts/:hash", s.handleVerifyReceipt)

	api.Get("/metrics", s.authenticate(service.RoleAdmin), s.handleMetrics)
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	log.Info("listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	log.Debug("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("elapsed", time.Since(start)))
	return err
}
