package experiment

import (
	"fmt"
	"strings"
)

// Arm is the treatment a customer was randomised into
type Arm string

const (
	MensEmail   Arm = "MensEmail"
	WomensEmail Arm = "WomensEmail"
	NoEmail     Arm = "NoEmail"
)

// AllArms lists the arms in canonical order
var AllArms = []Arm{MensEmail, WomensEmail, NoEmail}

// Label returns the segment label used in the raw Hillstrom data
func (a Arm) Label() string {
	switch a {
	case MensEmail:
		return "Mens E-Mail"
	case WomensEmail:
		return "Womens E-Mail"
	case NoEmail:
		return "No E-Mail"
	}
	return string(a)
}

// Valid reports whether a is one of the known arms
func (a Arm) Valid() bool {
	return a == MensEmail || a == WomensEmail || a == NoEmail
}

// ParseArm accepts either the canonical name or the raw segment label,
// ignoring case, spaces, dashes and underscores ("Mens E-Mail", "mens_email").
func ParseArm(s string) (Arm, error) {
	norm := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))

	switch norm {
	case "mensemail", "mens":
		return MensEmail, nil
	case "womensemail", "womens":
		return WomensEmail, nil
	case "noemail", "control", "none":
		return NoEmail, nil
	}
	return "", fmt.Errorf("unknown treatment arm %q", s)
}

// ArmPair is an ordered (treatment, control) comparison
type ArmPair struct {
	Treatment Arm `json:"treatment" yaml:"treatment"`
	Control   Arm `json:"control" yaml:"control"`
}

// NewArmPair builds a pair, rejecting unknown or identical arms
func NewArmPair(treatment, control Arm) (ArmPair, error) {
	if !treatment.Valid() || !control.Valid() {
		return ArmPair{}, fmt.Errorf("invalid arm pair %s vs %s", treatment, control)
	}
	if treatment == control {
		return ArmPair{}, fmt.Errorf("arm pair compares %s with itself", treatment)
	}
	return ArmPair{Treatment: treatment, Control: control}, nil
}

// ParseArmPair parses "Treatment:Control" or "Treatment vs Control"
func ParseArmPair(s string) (ArmPair, error) {
	var parts []string
	switch {
	case strings.Contains(s, ":"):
		parts = strings.SplitN(s, ":", 2)
	case strings.Contains(strings.ToLower(s), " vs "):
		idx := strings.Index(strings.ToLower(s), " vs ")
		parts = []string{s[:idx], s[idx+4:]}
	default:
		return ArmPair{}, fmt.Errorf("arm pair %q must look like treatment:control", s)
	}
	t, err := ParseArm(parts[0])
	if err != nil {
		return ArmPair{}, err
	}
	c, err := ParseArm(parts[1])
	if err != nil {
		return ArmPair{}, err
	}
	return NewArmPair(t, c)
}

// Swap returns the pair with treatment and control exchanged
func (p ArmPair) Swap() ArmPair {
	return ArmPair{Treatment: p.Control, Control: p.Treatment}
}

// Contains reports whether a is one side of the pair
func (p ArmPair) Contains(a Arm) bool {
	return a == p.Treatment || a == p.Control
}

func (p ArmPair) String() string {
	return fmt.Sprintf("%s vs %s", p.Treatment.Label(), p.Control.Label())
}

// DefaultConversionPairs are the comparisons run for conversion z-tests
func DefaultConversionPairs() []ArmPair {
	return []ArmPair{
		{Treatment: MensEmail, Control: NoEmail},
		{Treatment: WomensEmail, Control: NoEmail},
		{Treatment: MensEmail, Control: WomensEmail},
	}
}

// DefaultTreatmentPairs are the e-mail vs control comparisons used for spend
// tests and uplift modelling
func DefaultTreatmentPairs() []ArmPair {
	return []ArmPair{
		{Treatment: MensEmail, Control: NoEmail},
		{Treatment: WomensEmail, Control: NoEmail},
	}
}
