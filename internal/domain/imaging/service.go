package imaging

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/medirespond/medirespond/internal/platform/genai"
	"github.com/medirespond/medirespond/pkg/apperr"
)

// Classifier scores an image against a model's labels.
type Classifier interface {
	Classify(ctx context.Context, fileName, contentType string, image []byte) (map[string]float64, error)
}

type Generator interface {
	Generate(ctx context.Context, req genai.Request) (string, error)
}

type Service struct {
	classifiers map[Modality]Classifier
	gen         Generator
	logger      zerolog.Logger
}

// NewService builds the imaging service. Modalities without a classifier
// are disabled; a nil generator returns scores without interpretation.
func NewService(classifiers map[Modality]Classifier, gen Generator, logger zerolog.Logger) *Service {
	return &Service{
		classifiers: classifiers,
		gen:         gen,
		logger:      logger.With().Str("component", "imaging").Logger(),
	}
}

// Enabled reports whether m has a classifier.
func (s *Service) Enabled(m Modality) bool {
	return s.classifiers[m] != nil
}

// Analyze classifies img and asks the generative model to interpret the
// scores. A classifier failure fails the request; an interpretation failure
// is logged and the scores are returned alone.
func (s *Service) Analyze(ctx context.Context, m Modality, img *Image) (*Analysis, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	classifier := s.classifiers[m]
	if classifier == nil {
		return nil, apperr.Assessment("classify image", fmt.Errorf("no classifier for %s", m))
	}

	scores, err := classifier.Classify(ctx, img.FileName, img.ContentType, img.Data)
	if err != nil {
		return nil, apperr.Assessment("classify image", err)
	}
	preds, err := rank(m, scores)
	if err != nil {
		return nil, apperr.Assessment("classify image", err)
	}

	a := &Analysis{
		Modality:       m,
		Predictions:    preds,
		PredictedClass: preds[0].Label,
		Confidence:     preds[0].Probability,
	}
	if text, err := s.interpret(ctx, m, img, preds); err != nil {
		s.logger.Warn().Err(err).Str("modality", string(m)).Msg("image interpretation failed")
	} else {
		a.AIAnalysis = text
		a.AnalysisAvailable = true
	}
	return a, nil
}

// rank keeps the modality's labels, checks every one was scored, and sorts
// most likely first. Ties keep label order.
func rank(m Modality, scores map[string]float64) ([]Prediction, error) {
	preds := make([]Prediction, 0, len(m.Labels()))
	for _, label := range m.Labels() {
		p, ok := scores[label]
		if !ok {
			return nil, fmt.Errorf("classifier omitted label %q", label)
		}
		if math.IsNaN(p) || p < 0 || p > 1 {
			return nil, fmt.Errorf("probability for %q out of range: %v", label, p)
		}
		preds = append(preds, Prediction{Label: label, Probability: p})
	}
	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].Probability > preds[j].Probability
	})
	return preds, nil
}

func (s *Service) interpret(ctx context.Context, m Modality, img *Image, preds []Prediction) (string, error) {
	if s.gen == nil {
		return "", errors.New("generator not configured")
	}
	parts := []genai.Part{genai.Text(BuildPrompt(m, preds))}
	if m == ModalityXRay {
		parts = append(parts, genai.File(img.ContentType, img.Data))
	}
	text, err := s.gen.Generate(ctx, genai.Request{Parts: parts, MaxOutputTokens: interpretationMaxTokens})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
