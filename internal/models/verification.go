package models

// VerifiedFlags carries the per-ckey verification flags tracked by Veyra.
type VerifiedFlags struct {
	AgeVetted bool   `json:"age_vetted"`
	VettedBy  string `json:"vetted_by,omitempty"`
}

// Verification is a ckey verification record as returned by the Veyra API.
type Verification struct {
	DiscordID          string        `json:"discord_id"`
	Ckey               string        `json:"ckey"`
	VerifiedFlags      VerifiedFlags `json:"verified_flags"`
	VerificationMethod string        `json:"verification_method,omitempty"`
}
