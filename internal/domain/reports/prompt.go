package reports

// summarySchema mirrors Summary, wrapped in a top-level "summary" object.
var summarySchema = map[string]interface{}{
	"type": "OBJECT",
	"properties": map[string]interface{}{
		"summary": map[string]interface{}{
			"type": "OBJECT",
			"properties": map[string]interface{}{
				"keyFindings": map[string]interface{}{
					"type":        "ARRAY",
					"description": "List of key medical findings",
					"items":       map[string]interface{}{"type": "STRING"},
				},
				"diagnosis": map[string]interface{}{
					"type":        "STRING",
					"description": "Primary diagnosis from the report",
				},
				"recommendations": map[string]interface{}{
					"type":        "ARRAY",
					"description": "List of medical recommendations",
					"items":       map[string]interface{}{"type": "STRING"},
				},
				"importantDetails": map[string]interface{}{
					"type":        "STRING",
					"description": "Additional important information from the report",
				},
			},
			"required": []string{"keyFindings", "diagnosis", "recommendations", "importantDetails"},
		},
	},
	"required": []string{"summary"},
}

const summaryPrompt = `You are a helpful assistant summarizing a medical document. Create a summary of the attached report for patient %s (%s) in a clear and concise way.
List the key findings, the primary diagnosis, the recommendations and any other important details. Do not add disclaimers or warnings.`

const analysisPrompt = `You are a medical AI assistant. Analyze the attached medical report PDF and provide a concise summary of the patient's medical history.
Focus on:
1. Chronic conditions
2. Current medications
3. Recent test results
4. Known allergies
5. Important medical history

Provide a concise 3-5 sentence summary covering the most important medical information for emergency responders.`

const extractPrompt = `Analyze the attached medical report and provide a summary focusing on:
1. Key medical findings and abnormalities
2. Important test results and values
3. Diagnoses or conditions mentioned
4. Any recommendations or follow-up actions

Provide a concise summary (100-200 words) that captures the most important medical information. Do not include patient identifying information.`

const (
	summaryMaxTokens  = 2048
	analysisMaxTokens = 1024
	extractMaxTokens  = 1024
)
