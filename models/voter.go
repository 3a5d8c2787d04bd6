package models

import "time"

// Voter is an electoral roll entry. HasVoted is the only double-vote guard.
type Voter struct {
	ID            int64     `json:"id" bson:"id"`
	VoterID       string    `json:"voterId" bson:"voter_id"`
	AadhaarNumber string    `json:"aadhaarNumber" bson:"aadhaar_number"`
	Password      string    `json:"password,omitempty" bson:"password"`
	FullName      string    `json:"fullName" bson:"full_name"`
	Constituency  string    `json:"constituency" bson:"constituency"`
	IsActive      bool      `json:"isActive" bson:"is_active"`
	HasVoted      bool      `json:"hasVoted" bson:"has_voted"`
	CreatedAt     time.Time `json:"createdAt" bson:"created_at"`
}

// Public returns a copy without the credential.
func (v Voter) Public() Voter {
	v.Password = ""
	return v
}

// VoterUpdate carries a partial voter update.
type VoterUpdate struct {
	FullName     *string `json:"fullName,omitempty"`
	Password     *string `json:"password,omitempty"`
	Constituency *string `json:"constituency,omitempty"`
	IsActive     *bool   `json:"isActive,omitempty"`
}

func (u VoterUpdate) Apply(v *Voter) {
	if u.FullName != nil {
		v.FullName = *u.FullName
	}
	if u.Password != nil {
		v.Password = *u.Password
	}
	if u.Constituency != nil {
		v.Constituency = *u.Constituency
	}
	if u.IsActive != nil {
		v.IsActive = *u.IsActive
	}
}

// Candidate stands in exactly one constituency.
type Candidate struct {
	ID            int       `json:"id" bson:"id"`
	Name          string    `json:"name" bson:"name"`
	Party         string    `json:"party" bson:"party"`
	Constituency  string    `json:"constituency" bson:"constituency"`
	Symbol        string    `json:"symbol,omitempty" bson:"symbol,omitempty"`
	Qualification string    `json:"qualification,omitempty" bson:"qualification,omitempty"`
	Experience    string    `json:"experience,omitempty" bson:"experience,omitempty"`
	PhotoURL      string    `json:"photoUrl,omitempty" bson:"photo_url,omitempty"`
	IsActive      bool      `json:"isActive" bson:"is_active"`
	CreatedAt     time.Time `json:"createdAt" bson:"created_at"`
}

// CandidateUpdate carries a partial candidate update.
type CandidateUpdate struct {
	Name          *string `json:"name,omitempty"`
	Party         *string `json:"party,omitempty"`
	Constituency  *string `json:"constituency,omitempty"`
	Symbol        *string `json:"symbol,omitempty"`
	Qualification *string `json:"qualification,omitempty"`
	Experience    *string `json:"experience,omitempty"`
	PhotoURL      *string `json:"photoUrl,omitempty"`
}

func (u CandidateUpdate) Apply(c *Candidate) {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Party != nil {
		c.Party = *u.Party
	}
	if u.Constituency != nil {
		c.Constituency = *u.Constituency
	}
	if u.Symbol != nil {
		c.Symbol = *u.Symbol
	}
	if u.Qualification != nil {
		c.Qualification = *u.Qualification
	}
	if u.Experience != nil {
		c.Experience = *u.Experience
	}
	if u.PhotoURL != nil {
		c.PhotoURL = *u.PhotoURL
	}
}
