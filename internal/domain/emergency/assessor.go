package emergency

import (
	"context"

	"github.com/medirespond/medirespond/internal/platform/genai"
)

// Assessor obtains a triage assessment for a rendered prompt.
type Assessor interface {
	Assess(ctx context.Context, prompt string) (*Assessment, error)
}

// JSONGenerator is the part of genai.Client the assessor needs.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, req genai.Request, out interface{}) error
}

// GenAIAssessor asks the generative model for a schema-constrained
// assessment.
type GenAIAssessor struct {
	gen JSONGenerator
}

func NewGenAIAssessor(gen JSONGenerator) *GenAIAssessor {
	return &GenAIAssessor{gen: gen}
}

func (a *GenAIAssessor) Assess(ctx context.Context, prompt string) (*Assessment, error) {
	var out Assessment
	err := a.gen.GenerateJSON(ctx, genai.Request{
		Parts:  []genai.Part{genai.Text(prompt)},
		Schema: AssessmentSchema,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
