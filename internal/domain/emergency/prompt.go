package emergency

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/medirespond/medirespond/internal/domain/identity"
)

const noneReported = "None reported"

// AssessmentSchema constrains the model reply to an Assessment.
var AssessmentSchema = map[string]interface{}{
	"type": "OBJECT",
	"properties": map[string]interface{}{
		"summary": map[string]interface{}{
			"type":        "STRING",
			"description": "A concise summary of the emergency situation based on all provided information",
		},
		"triagePriority": map[string]interface{}{
			"type":        "STRING",
			"description": "The recommended triage priority level based on severity",
			"enum":        []string{"Immediate", "Urgent", "Delayed", "Minimal"},
		},
		"recommendations": map[string]interface{}{
			"type":        "STRING",
			"description": "Medical recommendations for emergency responders",
		},
	},
	"required": []string{"summary", "triagePriority", "recommendations"},
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return noneReported
	}
	return strings.Join(items, ", ")
}

func reading(v *float64) string {
	if v == nil {
		return "unknown"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// BuildAssessmentPrompt renders the patient profile and the reported
// emergency into the prompt sent to the assessment model.
func BuildAssessmentPrompt(p *identity.User, req *AssessedCallRequest) string {
	var b strings.Builder
	b.WriteString("You are an AI emergency medical assistant. Assess the following emergency situation and provide a structured response.\n")
	b.WriteString("Include relevant patient history in your assessment and recommendations.\n\n")

	b.WriteString("PATIENT INFORMATION:\n")
	fmt.Fprintf(&b, "- Age: %d\n", p.Age)
	fmt.Fprintf(&b, "- Gender: %s\n", p.Gender)
	fmt.Fprintf(&b, "- Blood Type: %s\n", p.BloodType)
	fmt.Fprintf(&b, "- Location: %s (%s)\n", p.Address, p.Pincode)
	if p.Location != nil {
		fmt.Fprintf(&b, "- Coordinates: Lat %v, Lng %v\n", p.Location.Lat, p.Location.Lng)
	}

	b.WriteString("\nMEDICAL HISTORY:\n")
	fmt.Fprintf(&b, "- Chronic Conditions: %s\n", listOrNone(p.ChronicConditions))
	fmt.Fprintf(&b, "- Allergies: %s\n", listOrNone(p.Allergies))
	fmt.Fprintf(&b, "- Current Medications: %s\n", listOrNone(p.CurrentMedications))

	b.WriteString("\nEMERGENCY CONTACTS:\n")
	if len(p.EmergencyContacts) == 0 {
		b.WriteString(noneReported + "\n")
	}
	for _, c := range p.EmergencyContacts {
		fmt.Fprintf(&b, "%s (%s): %s\n", c.Name, c.Relationship, c.PhoneNumber)
	}

	fmt.Fprintf(&b, "\nEMERGENCY DESCRIPTION:\n%s\n", req.Description)

	b.WriteString("\nVITAL SIGNS:\n")
	fmt.Fprintf(&b, "- Heart Rate: %s bpm\n", reading(req.Vitals.HeartRate))
	fmt.Fprintf(&b, "- Blood Pressure: %s\n", orUnknown(req.Vitals.BloodPressure))
	fmt.Fprintf(&b, "- SpO2: %s%%\n", reading(req.Vitals.SpO2))
	fmt.Fprintf(&b, "- Temperature: %s°C\n", reading(req.Vitals.Temperature))

	summary := req.MedicalReportSummary
	if strings.TrimSpace(summary) == "" {
		summary = "No additional medical history provided"
	}
	fmt.Fprintf(&b, "\nADDITIONAL MEDICAL HISTORY:\n%s\n", summary)

	b.WriteString("\nSEVERITY ASSESSMENT:\n")
	fmt.Fprintf(&b, "- Pain Level (0-10): %d\n", req.PainLevel)
	fmt.Fprintf(&b, "- Breathing Difficulty (1-5): %d\n", req.BreathingDifficulty)
	fmt.Fprintf(&b, "- Distress Level: %s\n", req.DistressLevel)
	fmt.Fprintf(&b, "- Level of Consciousness: %s\n", req.Consciousness)

	b.WriteString("\nProvide a medical assessment including:\n")
	b.WriteString("1. A comprehensive summary of the emergency situation incorporating the patient's medical history\n")
	b.WriteString("2. An appropriate triage priority level (Immediate, Urgent, Delayed, or Minimal)\n")
	b.WriteString("3. Detailed medical recommendations for emergency responders, taking into account the patient's chronic conditions, allergies, and current medications\n")
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// Narrative is the responder summary stored on directly classified calls.
func Narrative(description string, v Vitals) string {
	return fmt.Sprintf("Patient presents with %s. Vitals show heart rate of %s bpm, blood pressure of %s, SpO2 at %s%%, and temperature of %s°C.",
		description, reading(v.HeartRate), orUnknown(v.BloodPressure), reading(v.SpO2), reading(v.Temperature))
}
