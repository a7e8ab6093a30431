// -----------------------------------------------------------------------
// Profile - Fixed applicant identity used to fill application forms
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

// EEODefaults holds the default answers for equal-opportunity questions.
type EEODefaults struct {
	Race       string `json:"race"`
	Veteran    string `json:"veteran"`
	Disability string `json:"disability"`
}

// Profile is the applicant identity. Every field the filler can write
// comes from here; missing fields are populated by ApplyDefaults so a
// partial profile.json still produces a complete application.
type Profile struct {
	FirstName       string      `json:"first_name" validate:"required"`
	LastName        string      `json:"last_name" validate:"required"`
	Email           string      `json:"email" validate:"required,email"`
	Phone           string      `json:"phone" validate:"required"`
	AddressLine1    string      `json:"address_line1"`
	City            string      `json:"city"`
	State           string      `json:"state"`
	Zip             string      `json:"zip"`
	Pitch           string      `json:"pitch"`
	SeaDaysNote     string      `json:"sea_days_note"`
	DateAvailable   string      `json:"date_available"`
	DesiredPay      string      `json:"desired_pay"`
	ReferredBy      string      `json:"referred_by"`
	CareerGoals     string      `json:"career_goals"`
	WorkEnvironment string      `json:"work_environment"`
	ResumePath      string      `json:"resume_path"`
	EEO             EEODefaults `json:"eeo_defaults"`
}

// LoadProfile reads the applicant profile from a JSON file and fills any
// missing fields with the built-in defaults. A missing file yields the
// full default profile.
func LoadProfile(path string) (*Profile, error) {
	profile := &Profile{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}
	if err == nil {
		if err := json.Unmarshal(data, profile); err != nil {
			return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
		}
	}

	profile.ApplyDefaults()

	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("profile validation failed: %w", err)
	}

	return profile, nil
}

// ApplyDefaults fills every empty field with the built-in applicant values.
func (p *Profile) ApplyDefaults() {
	setDefault(&p.FirstName, "Elijah")
	setDefault(&p.LastName, "Wallis")
	setDefault(&p.Email, "elijahcwallis@gmail.com")
	setDefault(&p.Phone, "985-991-4360")
	setDefault(&p.AddressLine1, "3201 Wynwood Dr")
	setDefault(&p.City, "Plano")
	setDefault(&p.State, "TX")
	setDefault(&p.Zip, "75074")
	setDefault(&p.ResumePath, "./resume.pdf")
	setDefault(&p.SeaDaysNote, "250 documented sea days with company letters attached.")
	setDefault(&p.DateAvailable, "03/10/2026")
	setDefault(&p.DesiredPay, "Negotiable")
	setDefault(&p.ReferredBy, "Online Job Board")
	setDefault(&p.CareerGoals, "A rewarding career in the maritime and dredging industry where I can apply my 250 documented sea days of experience and Tankerman PIC certification.")
	setDefault(&p.WorkEnvironment, "A collaborative, safety-focused maritime environment with hands-on operational work aboard dredging vessels.")
	setDefault(&p.EEO.Race, "Black or African American")
	setDefault(&p.EEO.Veteran, "No")
	setDefault(&p.EEO.Disability, "No")
}

// Validate validates the profile using go-playground/validator.
func (p *Profile) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}

// FullName returns "First Last" trimmed of surrounding space.
func (p *Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// StateFull returns the expanded state name for the profile state
// abbreviation, or the raw value when no expansion is known.
func (p *Profile) StateFull() string {
	if full, ok := StateNames[strings.ToUpper(p.State)]; ok {
		return full
	}
	return p.State
}

// StateCandidates returns the values tried against state dropdowns, in
// preference order: full name, abbreviation, then lowercase variants.
func (p *Profile) StateCandidates() []string {
	full := p.StateFull()
	return []string{full, p.State, strings.ToLower(full), strings.ToLower(p.State)}
}

// FillValues returns the canonical field key to value map handed to the
// in-page filler. State is expanded to its full name because career-site
// dropdowns list "Texas", not "TX".
func (p *Profile) FillValues() map[string]string {
	return map[string]string{
		"first_name":       p.FirstName,
		"last_name":        p.LastName,
		"full_name":        p.FullName(),
		"email":            p.Email,
		"phone":            p.Phone,
		"address_line1":    p.AddressLine1,
		"city":             p.City,
		"state":            p.StateFull(),
		"zip":              p.Zip,
		"pitch":            p.Pitch,
		"sea_days_note":    p.SeaDaysNote,
		"date_available":   p.DateAvailable,
		"desired_pay":      p.DesiredPay,
		"referred_by":      p.ReferredBy,
		"career_goals":     p.CareerGoals,
		"work_environment": p.WorkEnvironment,
	}
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
