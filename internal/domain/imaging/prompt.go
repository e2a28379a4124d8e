package imaging

import (
	"fmt"
	"strings"
)

const xrayPrompt = `You are a medical AI assistant helping radiologists analyze chest X-rays.

The attached image is a chest X-ray, and our model has detected the following probabilities for various conditions:

%s

Provide a detailed analysis in markdown with these sections:

# Summary
A brief overview of the key findings

## Key Findings
- The most significant findings
- Critical values
- Concerning patterns

## Clinical Interpretation
Primary concerns, potential diagnoses and pattern recognition.

## Recommendations
1. Immediate actions required (if any)
2. Follow-up tests or examinations
3. Monitoring requirements

## Differential Diagnoses
Potential diagnoses ordered by likelihood, with supporting evidence.`

const ctPrompt = `You are a medical AI assistant analyzing a CT scan.

The model has detected the following probabilities for conditions:

%s

Provide a detailed analysis in markdown with these sections:

# Summary
A brief overview of the key findings

## Key Findings
- The most significant findings
- Critical values

## Clinical Interpretation
Primary concerns, potential diagnoses and pattern recognition.

## Recommendations
- Immediate actions required
- Follow-up tests

## Differential Diagnoses
Potential diagnoses ordered by likelihood.`

const interpretationMaxTokens = 2048

// findingsText renders one "label: probability" line per prediction.
func findingsText(preds []Prediction) string {
	var b strings.Builder
	for i, p := range preds {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %.4f", p.Label, p.Probability)
	}
	return b.String()
}

// BuildPrompt returns the interpretation prompt for m.
func BuildPrompt(m Modality, preds []Prediction) string {
	tmpl := ctPrompt
	if m == ModalityXRay {
		tmpl = xrayPrompt
	}
	return fmt.Sprintf(tmpl, findingsText(preds))
}
