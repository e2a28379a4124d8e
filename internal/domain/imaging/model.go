// Package imaging classifies medical images with an external model and
// has the generative model interpret the scores for clinicians.
package imaging

import (
	"github.com/medirespond/medirespond/pkg/apperr"
)

type Modality string

const (
	ModalityXRay Modality = "xray"
	ModalityCT   Modality = "ctscan"
)

// MaxImageSize bounds a single uploaded image.
const MaxImageSize = 10 << 20

// Labels are listed in the order the classifiers emit them.
var labels = map[Modality][]string{
	ModalityXRay: {
		"Atelectasis", "Cardiomegaly", "Effusion", "Infiltration",
		"Mass", "Nodule", "Pneumonia", "Pneumothorax", "Consolidation",
		"Edema", "Emphysema", "Fibrosis", "Pleural_Thickening", "Hernia",
	},
	ModalityCT: {"aneurysm", "cancer", "tumor"},
}

func ParseModality(v string) (Modality, bool) {
	m := Modality(v)
	_, ok := labels[m]
	return m, ok
}

// Labels returns the conditions the modality's classifier scores.
func (m Modality) Labels() []string {
	return labels[m]
}

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Image is an uploaded scan.
type Image struct {
	FileName    string
	ContentType string
	Data        []byte
}

func (img *Image) Validate() error {
	if len(img.Data) == 0 {
		return apperr.Validation("image file is required")
	}
	if !allowedContentTypes[img.ContentType] {
		return apperr.Validation("only JPEG and PNG images are allowed")
	}
	if len(img.Data) > MaxImageSize {
		return apperr.Validation("image exceeds 10MB limit")
	}
	return nil
}

type Prediction struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// Analysis is the result of one scan. Predictions are sorted most likely
// first. AIAnalysis is markdown and is empty when AnalysisAvailable is false.
type Analysis struct {
	Modality          Modality     `json:"modality"`
	Predictions       []Prediction `json:"predictions"`
	PredictedClass    string       `json:"predictedClass"`
	Confidence        float64      `json:"confidence"`
	AIAnalysis        string       `json:"aiAnalysis"`
	AnalysisAvailable bool         `json:"analysisAvailable"`
}
