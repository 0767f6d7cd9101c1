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


package core

import (
	"fmt"
	"time"
)

// ParseSource converts a raw string into a Source.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceNPS, SourceZendesk, SourceIntercom, SourceEmail, SourceOther:
		return Source(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSource, s)
}

// ParseSentiment converts a raw string into a Sentiment.
func ParseSentiment(s string) (Sentiment, error) {
	switch Sentiment(s) {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return Sentiment(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSentiment, s)
}

// ParseUrgency converts a raw string into an Urgency.
func ParseUrgency(s string) (Urgency, error) {
	switch Urgency(s) {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return Urgency(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidUrgency, s)
}

// ParseIntent converts a raw string into an Intent.
func ParseIntent(s string) (Intent, error) {
	switch Intent(s) {
	case IntentChurnRisk, IntentUpsell, IntentSupportNeeded,
		IntentFeatureAdvocacy, IntentGeneralFeedback:
		return Intent(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidIntent, s)
}

// ValidateNPSScore checks that an NPS score is within the 0-10 survey range.
func ValidateNPSScore(score int) error {
	if score < 0 || score > 10 {
		return fmt.Errorf("%w: %d", ErrInvalidNPSScore, score)
	}
	return nil
}

// ValidateProfile validates a UserProfile according to domain rules.
//
// Validation rules:
//   - UserID must not be empty
//   - MRR must not be negative when present
func ValidateProfile(profile *UserProfile) error {
	if profile == nil {
		return fmt.Errorf("%w: profile is nil", ErrInvalidProfile)
	}
	if profile.UserID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, ErrEmptyUserID)
	}
	if profile.MRR != nil && *profile.MRR < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, ErrNegativeMRR)
	}
	return nil
}

// ValidateFeedbackItem validates a FeedbackItem according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//   - Source must be a known value
//   - CreatedAt must not be in the future
//   - NPSScore, when present, must be in 0-10
//   - Profile, when present, must itself be valid
//
// NOT validated (populated by enrichment):
//   - Embedding (can be empty until the gateway runs)
//   - Classification (can be nil when skipped or pending)
//   - ID ("" is valid before insert assigns one)
func ValidateFeedbackItem(item *FeedbackItem) error {
	if item == nil {
		return fmt.Errorf("%w: item is nil", ErrInvalidFeedbackItem)
	}
	if item.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidFeedbackItem, ErrEmptyText)
	}
	if _, err := ParseSource(string(item.Source)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFeedbackItem, err)
	}
	if !item.CreatedAt.IsZero() && item.CreatedAt.After(time.Now().Add(time.Minute)) {
		return fmt.Errorf("%w: %w", ErrInvalidFeedbackItem, ErrInvalidTimestamp)
	}
	if item.NPSScore != nil {
		if err := ValidateNPSScore(*item.NPSScore); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidFeedbackItem, err)
		}
	}
	if item.Profile != nil {
		if err := ValidateProfile(item.Profile); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidFeedbackItem, err)
		}
	}
	return nil
}
