package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"civic-vote/log"
	"civic-vote/models"
	"civic-vote/storage"
)

const (
	SystemAadhaar = "aadhaar"
	SystemVoting  = "voting"

	RoleAdmin = "admin"
	RoleVoter = "voter"
)

// Principal is the identity kept in a session.
type Principal struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	System string `json:"system"`
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

type Credentials struct {
	UserID   string
	Password string
}

// Authenticator checks console logins. Admins are matched against the
// configured demo credentials first and then against stored admin users,
// whose Role names the console they may use.
type Authenticator struct {
	store  storage.Store
	admins map[string]Credentials
	seed   func(ctx context.Context) error

	mu     sync.Mutex
	seeded bool
}

func NewAuthenticator(store storage.Store, aadhaarAdmin, votingAdmin Credentials) *Authenticator {
	return &Authenticator{
		store: store,
		admins: map[string]Credentials{
			SystemAadhaar: aadhaarAdmin,
			SystemVoting:  votingAdmin,
		},
	}
}

// SeedOnFirstVoterLogin makes the first voter login populate the roll.
func (a *Authenticator) SeedOnFirstVoterLogin(seed func(ctx context.Context) error) {
	a.seed = seed
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (a *Authenticator) LoginAdmin(ctx context.Context, system, userID, password string) (*Principal, error) {
	creds, ok := a.admins[system]
	if !ok {
		return nil, fmt.Errorf("unknown system %q", system)
	}
	if creds.UserID != "" && equal(creds.UserID, userID) && equal(creds.Password, password) {
		return &Principal{UserID: userID, Role: RoleAdmin, System: system}, nil
	}

	user, err := a.store.GetAdminUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.Role != system || !equal(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return &Principal{UserID: user.UserID, Role: RoleAdmin, System: system}, nil
}

func (a *Authenticator) LoginVoter(ctx context.Context, voterID, password string) (*Principal, *models.Voter, error) {
	a.seedOnce(ctx)

	voter, err := a.store.GetVoter(ctx, voterID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !equal(voter.Password, password) {
		return nil, nil, ErrInvalidCredentials
	}

	public := voter.Public()
	return &Principal{UserID: voter.VoterID, Role: RoleVoter, System: SystemVoting}, &public, nil
}

// seedOnce retries on later logins until seeding succeeds.
func (a *Authenticator) seedOnce(ctx context.Context) {
	if a.seed == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.seeded {
		return
	}
	if err := a.seed(ctx); err != nil {
		log.Error("error creating demo data", zap.Error(err))
		return
	}
	a.seeded = true
}
