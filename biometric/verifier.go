// Package biometric simulates fingerprint and face matching against the
// enrolled templates of a citizen. Confidence is drawn at random; no real
// matching takes place.
package biometric

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"civic-vote/encryption"
	"civic-vote/log"
	"civic-vote/models"
	"civic-vote/storage"
)

// Result is what a verification attempt reports back to the caller.
type Result struct {
	IsMatch    bool `json:"isMatch"`
	Confidence int  `json:"confidence"`
}

// Recorder receives the outcome of every logged attempt.
type Recorder interface {
	RecordBiometric(kind string, success bool)
}

type profile struct {
	kind      string
	min, span int
	threshold int
}

var (
	fingerprint = profile{kind: models.VerificationFingerprint, min: 60, span: 40, threshold: 75}
	face        = profile{kind: models.VerificationFace, min: 65, span: 35, threshold: 80}
)

type Verifier struct {
	store    storage.Store
	recorder Recorder

	mu   sync.Mutex
	intn func(n int) int
}

type Option func(*Verifier)

// WithRand replaces the confidence source. intn must return a value in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(v *Verifier) { v.intn = intn }
}

func WithRecorder(r Recorder) Option {
	return func(v *Verifier) { v.recorder = r }
}

func NewVerifier(store storage.Store, opts ...Option) *Verifier {
	v := &Verifier{
		store: store,
		intn:  rand.New(rand.NewSource(time.Now().UnixNano())).Intn,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// VerifyFingerprint draws a confidence in [60, 99] and matches above 75.
func (v *Verifier) VerifyFingerprint(ctx context.Context, aadhaar, data string) (Result, error) {
	citizen, err := v.lookup(ctx, aadhaar)
	if err != nil || citizen == nil || len(citizen.FingerprintTemplates) == 0 {
		return Result{}, err
	}
	return v.attempt(ctx, aadhaar, fingerprint)
}

// VerifyFace draws a confidence in [65, 99] and matches above 80.
func (v *Verifier) VerifyFace(ctx context.Context, aadhaar, data string) (Result, error) {
	citizen, err := v.lookup(ctx, aadhaar)
	if err != nil || citizen == nil || citizen.FaceTemplate == "" {
		return Result{}, err
	}
	return v.attempt(ctx, aadhaar, face)
}

// lookup returns nil, nil for an unknown citizen.
func (v *Verifier) lookup(ctx context.Context, aadhaar string) (*models.Citizen, error) {
	citizen, err := v.store.GetCitizen(ctx, aadhaar)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return citizen, err
}

func (v *Verifier) attempt(ctx context.Context, aadhaar string, p profile) (Result, error) {
	v.mu.Lock()
	confidence := v.intn(p.span) + p.min
	v.mu.Unlock()

	result := Result{IsMatch: confidence > p.threshold, Confidence: confidence}

	_, err := v.store.LogBiometric(ctx, models.BiometricLog{
		AadhaarNumber:    aadhaar,
		VerificationType: p.kind,
		IsSuccessful:     result.IsMatch,
		Confidence:       confidence,
		SessionID:        sessionID(),
	})
	if err != nil {
		log.Error("failed to log biometric attempt", zap.String("type", p.kind), zap.Error(err))
		return Result{}, err
	}
	if v.recorder != nil {
		v.recorder.RecordBiometric(p.kind, result.IsMatch)
	}

	return result, nil
}

func sessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

// Enroll replaces raw captured templates on c by their digests. Templates
// that are already digests are left alone.
func Enroll(c *models.Citizen) {
	for finger, template := range c.FingerprintTemplates {
		if template != "" && !encryption.IsTemplateDigest(template) {
			c.FingerprintTemplates[finger] = encryption.TemplateDigest(template)
		}
	}
	if c.FaceTemplate != "" && !encryption.IsTemplateDigest(c.FaceTemplate) {
		c.FaceTemplate = encryption.TemplateDigest(c.FaceTemplate)
	}
}
