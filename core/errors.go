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

import "errors"

// Domain validation errors
var (
	// ErrInvalidFeedbackItem indicates a FeedbackItem failed validation.
	ErrInvalidFeedbackItem = errors.New("invalid feedback item")

	// ErrInvalidProfile indicates a UserProfile failed validation.
	ErrInvalidProfile = errors.New("invalid user profile")

	// ErrEmptyText indicates the Text field is empty.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrEmptyUserID indicates the profile UserID field is empty.
	ErrEmptyUserID = errors.New("user id cannot be empty")

	// ErrInvalidSource indicates an unknown feedback source value.
	ErrInvalidSource = errors.New("invalid feedback source")

	// ErrInvalidSentiment indicates an unknown sentiment value.
	ErrInvalidSentiment = errors.New("invalid sentiment")

	// ErrInvalidUrgency indicates an unknown urgency value.
	ErrInvalidUrgency = errors.New("invalid urgency")

	// ErrInvalidIntent indicates an unknown intent value.
	ErrInvalidIntent = errors.New("invalid intent")

	// ErrInvalidNPSScore indicates an NPS score outside the 0-10 range.
	ErrInvalidNPSScore = errors.New("nps score must be between 0 and 10")

	// ErrNegativeMRR indicates a negative monthly recurring revenue value.
	ErrNegativeMRR = errors.New("mrr cannot be negative")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")
)
