// Package triage maps a structured severity assessment to one of four
// triage priorities. Everything here is pure: no I/O and no state.
package triage

import (
	"github.com/medirespond/medirespond/pkg/apperr"
)

type Priority string

const (
	PriorityImmediate Priority = "Immediate"
	PriorityUrgent    Priority = "Urgent"
	PriorityDelayed   Priority = "Delayed"
	PriorityMinimal   Priority = "Minimal"
)

// Priorities lists every priority, most severe first.
var Priorities = []Priority{PriorityImmediate, PriorityUrgent, PriorityDelayed, PriorityMinimal}

type DistressLevel string

const (
	DistressMildlyConcerned     DistressLevel = "Mildly Concerned"
	DistressModeratelyConcerned DistressLevel = "Moderately Concerned"
	DistressVeryConcerned       DistressLevel = "Very Concerned"
	DistressPanicked            DistressLevel = "Panicked"
)

type Consciousness string

const (
	ConsciousnessAlert        Consciousness = "Alert and Oriented"
	ConsciousnessConfused     Consciousness = "Confused"
	ConsciousnessDrowsy       Consciousness = "Drowsy"
	ConsciousnessUnresponsive Consciousness = "Unresponsive"
)

var validDistress = map[DistressLevel]bool{
	DistressMildlyConcerned: true, DistressModeratelyConcerned: true,
	DistressVeryConcerned: true, DistressPanicked: true,
}

var validConsciousness = map[Consciousness]bool{
	ConsciousnessAlert: true, ConsciousnessConfused: true,
	ConsciousnessDrowsy: true, ConsciousnessUnresponsive: true,
}

const (
	MinPainLevel           = 0
	MaxPainLevel           = 10
	MinBreathingDifficulty = 1
	MaxBreathingDifficulty = 5
)

// Severity is the patient-reported condition used to derive a priority.
type Severity struct {
	PainLevel           int           `json:"painLevel"`
	BreathingDifficulty int           `json:"breathingDifficulty"`
	DistressLevel       DistressLevel `json:"distressLevel"`
	Consciousness       Consciousness `json:"consciousness"`
}

// Validate checks ranges and enum membership. Out-of-range input is a caller
// error and never reaches Classify.
func (s Severity) Validate() error {
	if s.PainLevel < MinPainLevel || s.PainLevel > MaxPainLevel {
		return apperr.Validation("painLevel must be between %d and %d", MinPainLevel, MaxPainLevel)
	}
	if s.BreathingDifficulty < MinBreathingDifficulty || s.BreathingDifficulty > MaxBreathingDifficulty {
		return apperr.Validation("breathingDifficulty must be between %d and %d", MinBreathingDifficulty, MaxBreathingDifficulty)
	}
	if !validDistress[s.DistressLevel] {
		return apperr.Validation("invalid distressLevel: %q", s.DistressLevel)
	}
	if !validConsciousness[s.Consciousness] {
		return apperr.Validation("invalid consciousness: %q", s.Consciousness)
	}
	return nil
}

// Classify returns the priority for s. Rules are evaluated in order and the
// first match wins; the order must not change.
func Classify(s Severity) Priority {
	switch {
	case s.BreathingDifficulty >= 4 || s.Consciousness == ConsciousnessUnresponsive:
		return PriorityImmediate
	case s.PainLevel >= 8 || s.DistressLevel == DistressPanicked || s.Consciousness == ConsciousnessDrowsy:
		return PriorityUrgent
	case s.PainLevel >= 5 || s.BreathingDifficulty >= 3 || s.DistressLevel == DistressVeryConcerned:
		return PriorityDelayed
	default:
		return PriorityMinimal
	}
}

// ParsePriority validates an untrusted priority string.
func ParsePriority(v string) (Priority, bool) {
	for _, p := range Priorities {
		if string(p) == v {
			return p, true
		}
	}
	return "", false
}

// Recommendations returns the standing guidance for responders at priority p.
func Recommendations(p Priority) string {
	switch p {
	case PriorityImmediate:
		return "Immediate medical intervention required. Prepare for emergency response. Monitor vitals continuously."
	case PriorityUrgent:
		return "Urgent medical assessment needed. Monitor vital signs every 15 minutes. Prepare for potential escalation."
	case PriorityDelayed:
		return "Medical assessment required within 1 hour. Monitor for changes in condition. Regular vital sign checks."
	default:
		return "Non-urgent medical assessment needed. Monitor for changes in condition. Regular check-ins recommended."
	}
}
