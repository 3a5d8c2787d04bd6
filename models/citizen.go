package models

import "time"

// Citizen is an Aadhaar record managed by the admin console.
type Citizen struct {
	ID                   int64             `json:"id" bson:"id"`
	AadhaarNumber        string            `json:"aadhaarNumber" bson:"aadhaar_number"`
	FullName             string            `json:"fullName" bson:"full_name"`
	DateOfBirth          time.Time         `json:"dateOfBirth" bson:"date_of_birth"`
	Gender               string            `json:"gender" bson:"gender"`
	Address              string            `json:"address" bson:"address"`
	District             string            `json:"district" bson:"district"`
	State                string            `json:"state" bson:"state"`
	Pincode              string            `json:"pincode" bson:"pincode"`
	PhotoURL             string            `json:"photoUrl,omitempty" bson:"photo_url,omitempty"`
	FingerprintTemplates map[string]string `json:"fingerprintTemplates,omitempty" bson:"fingerprint_templates,omitempty"`
	FaceTemplate         string            `json:"faceTemplate,omitempty" bson:"face_template,omitempty"`
	IsVerified           bool              `json:"isVerified" bson:"is_verified"`
	CreatedAt            time.Time         `json:"createdAt" bson:"created_at"`
	UpdatedAt            time.Time         `json:"updatedAt" bson:"updated_at"`

	// Set only on creation requests; used for the voter record created alongside.
	VoterID      string `json:"voterId,omitempty" bson:"-"`
	Constituency string `json:"constituency,omitempty" bson:"-"`
}

// CitizenUpdate carries a partial citizen update; nil fields are left alone.
type CitizenUpdate struct {
	FullName             *string           `json:"fullName,omitempty"`
	DateOfBirth          *time.Time        `json:"dateOfBirth,omitempty"`
	Gender               *string           `json:"gender,omitempty"`
	Address              *string           `json:"address,omitempty"`
	District             *string           `json:"district,omitempty"`
	State                *string           `json:"state,omitempty"`
	Pincode              *string           `json:"pincode,omitempty"`
	PhotoURL             *string           `json:"photoUrl,omitempty"`
	FingerprintTemplates map[string]string `json:"fingerprintTemplates,omitempty"`
	FaceTemplate         *string           `json:"faceTemplate,omitempty"`
	IsVerified           *bool             `json:"isVerified,omitempty"`
}

// Apply copies the set fields of u onto c.
func (u CitizenUpdate) Apply(c *Citizen) {
	if u.FullName != nil {
		c.FullName = *u.FullName
	}
	if u.DateOfBirth != nil {
		c.DateOfBirth = *u.DateOfBirth
	}
	if u.Gender != nil {
		c.Gender = *u.Gender
	}
	if u.Address != nil {
		c.Address = *u.Address
	}
	if u.District != nil {
		c.District = *u.District
	}
	if u.State != nil {
		c.State = *u.State
	}
	if u.Pincode != nil {
		c.Pincode = *u.Pincode
	}
	if u.PhotoURL != nil {
		c.PhotoURL = *u.PhotoURL
	}
	if u.FingerprintTemplates != nil {
		c.FingerprintTemplates = u.FingerprintTemplates
	}
	if u.FaceTemplate != nil {
		c.FaceTemplate = *u.FaceTemplate
	}
	if u.IsVerified != nil {
		c.IsVerified = *u.IsVerified
	}
}

// BiometricLog records one verification attempt.
type BiometricLog struct {
	ID               int64     `json:"id" bson:"id"`
	AadhaarNumber    string    `json:"aadhaarNumber" bson:"aadhaar_number"`
	VerificationType string    `json:"verificationType" bson:"verification_type"`
	IsSuccessful     bool      `json:"isSuccessful" bson:"is_successful"`
	Confidence       int       `json:"confidence" bson:"confidence"`
	Timestamp        time.Time `json:"timestamp" bson:"timestamp"`
	SessionID        string    `json:"sessionId" bson:"session_id"`
}

const (
	VerificationFingerprint = "fingerprint"
	VerificationFace        = "face"
)

// AdminUser is an operator account for either console.
type AdminUser struct {
	ID        int64     `json:"id" bson:"id"`
	UserID    string    `json:"userId" bson:"user_id"`
	Password  string    `json:"-" bson:"password"`
	Role      string    `json:"role" bson:"role"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}
