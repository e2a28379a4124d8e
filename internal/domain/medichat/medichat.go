// Package medichat answers questions about a patient's report, grounding
// the model with generic clinical passages from a vector index.
package medichat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/medirespond/medirespond/internal/platform/genai"
	"github.com/medirespond/medirespond/pkg/apperr"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	maxOutputTokens = 2048
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages []Message `json:"messages"`
	Data     struct {
		ReportData string `json:"reportData"`
	} `json:"data"`
}

type ChatResponse struct {
	Text       string `json:"text"`
	Retrievals string `json:"retrievals"`
	Role       string `json:"role"`
}

// Retriever returns passages relevant to query, already formatted for a
// prompt.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (string, error)
}

// TextGenerator is the part of genai.Client the chat needs.
type TextGenerator interface {
	Generate(ctx context.Context, req genai.Request) (string, error)
}

type Service struct {
	retriever Retriever
	gen       TextGenerator
	logger    zerolog.Logger
}

// NewService builds the chat service. A nil retriever answers without
// clinical passages; a nil generator fails every chat.
func NewService(retriever Retriever, gen TextGenerator, logger zerolog.Logger) *Service {
	return &Service{
		retriever: retriever,
		gen:       gen,
		logger:    logger.With().Str("component", "medichat").Logger(),
	}
}

// Chat answers the last message in messages. Retrieval failures leave the
// passages empty; generator failures are AssessmentErrors.
func (s *Service) Chat(ctx context.Context, messages []Message, reportData string) (*ChatResponse, error) {
	question := lastQuestion(messages)
	if question == "" {
		return nil, apperr.Validation("a question is required")
	}
	if s.gen == nil {
		return nil, apperr.Assessment("medichat", errors.New("generator not configured"))
	}

	retrievals := s.retrieve(ctx, SearchQuery(reportData, question))

	text, err := s.gen.Generate(ctx, genai.Request{
		Parts:           []genai.Part{genai.Text(BuildPrompt(reportData, question, retrievals))},
		MaxOutputTokens: maxOutputTokens,
	})
	if err != nil {
		return nil, apperr.Assessment("medichat", err)
	}
	return &ChatResponse{Text: text, Retrievals: retrievals, Role: RoleAssistant}, nil
}

func (s *Service) retrieve(ctx context.Context, query string) string {
	if s.retriever == nil {
		return ""
	}
	out, err := s.retriever.Retrieve(ctx, query)
	if err != nil {
		s.logger.Warn().Err(err).Msg("retrieval failed, answering without clinical findings")
		return ""
	}
	return out
}

func lastQuestion(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}
	return strings.TrimSpace(messages[len(messages)-1].Content)
}

// SearchQuery is the text embedded to search the clinical index.
func SearchQuery(reportData, question string) string {
	return fmt.Sprintf("Represent this for searching relevant passages: patient medical report says: \n%s. \n\n%s", reportData, question)
}

func BuildPrompt(reportData, question, retrievals string) string {
	var b strings.Builder
	b.WriteString("Here is a summary of a patient's clinical report, and a user query. ")
	b.WriteString("Some generic clinical findings are also provided that may or may not be relevant for the report.\n")
	b.WriteString("Go through the clinical report and answer the user query.\n")
	b.WriteString("Ensure the response is factually accurate, and demonstrates a thorough understanding of the query topic and the clinical report.\n")
	b.WriteString("Before answering you may enrich your knowledge by going through the provided clinical findings.\n")
	b.WriteString("The clinical findings are generic insights and not part of the patient's medical report. ")
	b.WriteString("Do not include any clinical finding if it is not relevant for the patient's case.\n\n")
	fmt.Fprintf(&b, "**Patient's Clinical report summary:**\n%s.\n**end of patient's clinical report**\n\n", reportData)
	fmt.Fprintf(&b, "**User Query:**\n%s?\n**end of user query**\n\n", question)
	fmt.Fprintf(&b, "**Generic Clinical findings:**\n\n%s.\n\n**end of generic clinical findings**\n\n", retrievals)
	b.WriteString("Provide thorough justification for your answer.\n\n**Answer:**")
	return b.String()
}
