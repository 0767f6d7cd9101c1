// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/poiesic/pulse/ai"
	"github.com/poiesic/pulse/core"
)

var errNoChoices = errors.New("no choices returned from model")

// Classifier implements ai.Classifier using OpenAI-compatible chat APIs.
type Classifier struct {
	client llms.Model
	logger *slog.Logger
}

// classificationResponse matches the JSON shape the model is instructed to
// return.
type classificationResponse struct {
	Sentiment  string   `json:"sentiment"`
	Topics     []string `json:"topics"`
	Urgency    string   `json:"urgency"`
	Intent     string   `json:"intent"`
	Summary    string   `json:"summary"`
	Confidence float64  `json:"confidence"`
}

// criteriaResponse matches the JSON shape for ad-hoc criteria evaluation.
type criteriaResponse struct {
	Matches bool   `json:"matches"`
	Reason  string `json:"reason"`
}

// newClassifier is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newClassifier(config *ai.Config) (*Classifier, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ClassifierHost),
		openai.WithToken(config.APIToken),
		openai.WithModel(config.ClassifierModel),
	)
	if err != nil {
		return nil, err
	}

	return &Classifier{
		client: client,
		logger: slog.Default().With("component", "openai-classifier"),
	}, nil
}

// NewClassifier creates a new classifier using the provided configuration.
//
// Returns ai.Classifier interface to enforce abstraction.
func NewClassifier(config *ai.Config) (ai.Classifier, error) {
	return newClassifier(config)
}

// Classify produces a structured classification for a piece of feedback.
// It never returns an error: any transport or parse failure is downgraded to
// the sentinel failed classification with the cause logged.
func (c *Classifier) Classify(ctx context.Context, text string, profile *core.UserProfile, npsScore *int, source core.Source) core.Classification {
	prompt := buildClassificationPrompt(text, profile, npsScore, source)

	var result classificationResponse
	if err := c.generateJSON(ctx, prompt, &result); err != nil {
		c.logger.Error("classification degraded to sentinel", "err", err)
		return core.FailedClassification()
	}

	classification, err := parseClassification(&result)
	if err != nil {
		c.logger.Error("classification degraded to sentinel", "err", err)
		return core.FailedClassification()
	}
	return classification
}

// MatchCriteria evaluates a natural language boolean criterion against item
// text. Same no-raise contract as Classify.
func (c *Classifier) MatchCriteria(ctx context.Context, itemText, criteriaText string) (bool, string) {
	prompt := buildCriteriaPrompt(itemText, criteriaText)

	var result criteriaResponse
	if err := c.generateJSON(ctx, prompt, &result); err != nil {
		c.logger.Warn("criteria match degraded", "err", err)
		return false, core.FailedSummary
	}
	return result.Matches, result.Reason
}

// generateJSON runs a chat completion in JSON mode and unmarshals the
// response, retrying up to 3 times on malformed output.
func (c *Classifier) generateJSON(ctx context.Context, prompt string, out any) error {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(prompt),
			},
		},
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := c.client.GenerateContent(ctx, content, llms.WithTemperature(0.1), llms.WithJSONMode())
		if err != nil {
			return err
		}
		if len(response.Choices) < 1 {
			lastErr = errNoChoices
			continue
		}

		responseText := stripCodeFences(response.Choices[0].Content)
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), out); err != nil {
			lastErr = err
			c.logger.Warn("error parsing model response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}
		return nil
	}
	return lastErr
}

// parseClassification converts the raw response into a domain classification,
// rejecting values outside the enums.
func parseClassification(r *classificationResponse) (core.Classification, error) {
	sentiment, err := core.ParseSentiment(r.Sentiment)
	if err != nil {
		return core.Classification{}, err
	}
	urgency, err := core.ParseUrgency(r.Urgency)
	if err != nil {
		return core.Classification{}, err
	}
	intent, err := core.ParseIntent(r.Intent)
	if err != nil {
		return core.Classification{}, err
	}

	topics := r.Topics
	if len(topics) == 0 {
		topics = []string{"general_feedback"}
	}

	confidence := r.Confidence
	if confidence == 0 {
		// The model omitted the field; distinguish from the sentinel.
		confidence = 0.8
	}

	return core.Classification{
		Sentiment:  sentiment,
		Topics:     topics,
		Urgency:    urgency,
		Intent:     intent,
		Summary:    r.Summary,
		Confidence: confidence,
	}, nil
}

// stripCodeFences removes markdown code fences the model sometimes wraps
// around JSON despite instructions.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
