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


package storage

import (
	"sort"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/pulse/core"
)

// MUS serializers for the stored record shapes. These are written by hand:
// the record layout has optional fields and a string-keyed trait map, and the
// profile is stored as a user-id reference rather than inline.
//
// Timestamps are stored as Unix microseconds. Optional fields carry a
// presence flag.

// FeedbackItemMUS serializes feedback rows. The referenced profile is stored
// as its user id only; backends resolve it on read.
var FeedbackItemMUS = feedbackItemMUS{}

// UserProfileMUS serializes user profile rows.
var UserProfileMUS = userProfileMUS{}

// MarshalFeedbackItem serializes a FeedbackItem to bytes.
func MarshalFeedbackItem(item *core.FeedbackItem) []byte {
	buf := make([]byte, FeedbackItemMUS.Size(item))
	FeedbackItemMUS.Marshal(item, buf)
	return buf
}

// UnmarshalFeedbackItem deserializes a FeedbackItem from bytes.
// The Profile field holds only the UserID reference; callers resolve the
// full profile separately.
func UnmarshalFeedbackItem(data []byte) (*core.FeedbackItem, error) {
	item, _, err := FeedbackItemMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// MarshalProfile serializes a UserProfile to bytes.
func MarshalProfile(profile *core.UserProfile) []byte {
	buf := make([]byte, UserProfileMUS.Size(profile))
	UserProfileMUS.Marshal(profile, buf)
	return buf
}

// UnmarshalProfile deserializes a UserProfile from bytes.
func UnmarshalProfile(data []byte) (*core.UserProfile, error) {
	profile, _, err := UserProfileMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// MarshalString serializes a string, used for index values holding record ids.
func MarshalString(s string) []byte {
	buf := make([]byte, ord.String.Size(s))
	ord.String.Marshal(s, buf)
	return buf
}

// UnmarshalString deserializes a string index value.
func UnmarshalString(data []byte) (string, error) {
	s, _, err := ord.String.Unmarshal(data)
	return s, err
}

type userProfileMUS struct{}

func (userProfileMUS) Marshal(p *core.UserProfile, bs []byte) (n int) {
	n = ord.String.Marshal(p.UserID, bs)
	n += ord.String.Marshal(p.Email, bs[n:])
	n += ord.String.Marshal(p.SubscriptionType, bs[n:])
	n += marshalOptFloat64(p.MRR, bs[n:])
	n += ord.String.Marshal(p.CompanyName, bs[n:])
	n += ord.String.Marshal(p.Industry, bs[n:])
	n += marshalOptTime(p.SignupDate, bs[n:])
	n += marshalStringMap(p.Traits, bs[n:])
	return n
}

func (userProfileMUS) Unmarshal(bs []byte) (p *core.UserProfile, n int, err error) {
	p = &core.UserProfile{}
	var m int
	if p.UserID, n, err = ord.String.Unmarshal(bs); err != nil {
		return nil, n, err
	}
	if p.Email, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	if p.SubscriptionType, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	if p.MRR, m, err = unmarshalOptFloat64(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	if p.CompanyName, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	if p.Industry, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	if p.SignupDate, m, err = unmarshalOptTime(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	if p.Traits, m, err = unmarshalStringMap(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	return p, n, nil
}

func (userProfileMUS) Size(p *core.UserProfile) (size int) {
	size = ord.String.Size(p.UserID)
	size += ord.String.Size(p.Email)
	size += ord.String.Size(p.SubscriptionType)
	size += sizeOptFloat64(p.MRR)
	size += ord.String.Size(p.CompanyName)
	size += ord.String.Size(p.Industry)
	size += sizeOptTime(p.SignupDate)
	size += sizeStringMap(p.Traits)
	return size
}

type feedbackItemMUS struct{}

func (feedbackItemMUS) Marshal(item *core.FeedbackItem, bs []byte) (n int) {
	n = ord.String.Marshal(item.ID, bs)
	n += ord.String.Marshal(item.Text, bs[n:])
	n += ord.String.Marshal(string(item.Source), bs[n:])
	n += varint.Int64.Marshal(item.CreatedAt.UnixMicro(), bs[n:])

	userID := ""
	if item.Profile != nil {
		userID = item.Profile.UserID
	}
	n += ord.String.Marshal(userID, bs[n:])

	n += ord.Bool.Marshal(item.Classification != nil, bs[n:])
	if c := item.Classification; c != nil {
		n += ord.String.Marshal(string(c.Sentiment), bs[n:])
		n += marshalStringSlice(c.Topics, bs[n:])
		n += ord.String.Marshal(string(c.Urgency), bs[n:])
		n += ord.String.Marshal(string(c.Intent), bs[n:])
		n += ord.String.Marshal(c.Summary, bs[n:])
		n += raw.Float64.Marshal(c.Confidence, bs[n:])
	}

	n += marshalVector(item.Embedding, bs[n:])
	n += marshalOptInt(item.NPSScore, bs[n:])
	n += ord.String.Marshal(item.TicketID, bs[n:])
	n += ord.String.Marshal(item.TicketPriority, bs[n:])
	return n
}

func (feedbackItemMUS) Unmarshal(bs []byte) (item *core.FeedbackItem, n int, err error) {
	item = &core.FeedbackItem{}
	var m int
	if item.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return nil, n, err
	}
	if item.Text, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	var source string
	if source, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	item.Source = core.Source(source)
	var createdAt int64
	if createdAt, m, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	item.CreatedAt = time.UnixMicro(createdAt).UTC()

	var userID string
	if userID, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	if userID != "" {
		item.Profile = &core.UserProfile{UserID: userID}
	}

	var hasClassification bool
	if hasClassification, m, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	if hasClassification {
		c := &core.Classification{}
		var sentiment, urgency, intent string
		if sentiment, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n + m, err
		}
		n += m
		if c.Topics, m, err = unmarshalStringSlice(bs[n:]); err != nil {
			return nil, n + m, err
		}
		n += m
		if urgency, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n + m, err
		}
		n += m
		if intent, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n + m, err
		}
		n += m
		if c.Summary, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n + m, err
		}
		n += m
		if c.Confidence, m, err = raw.Float64.Unmarshal(bs[n:]); err != nil {
			return nil, n + m, err
		}
		n += m
		c.Sentiment = core.Sentiment(sentiment)
		c.Urgency = core.Urgency(urgency)
		c.Intent = core.Intent(intent)
		item.Classification = c
	}

	if item.Embedding, m, err = unmarshalVector(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	if item.NPSScore, m, err = unmarshalOptInt(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	if item.TicketID, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	if item.TicketPriority, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return nil, n + m, err
	}
	n += m
	return item, n, nil
}

func (feedbackItemMUS) Size(item *core.FeedbackItem) (size int) {
	size = ord.String.Size(item.ID)
	size += ord.String.Size(item.Text)
	size += ord.String.Size(string(item.Source))
	size += varint.Int64.Size(item.CreatedAt.UnixMicro())

	userID := ""
	if item.Profile != nil {
		userID = item.Profile.UserID
	}
	size += ord.String.Size(userID)

	size += ord.Bool.Size(item.Classification != nil)
	if c := item.Classification; c != nil {
		size += ord.String.Size(string(c.Sentiment))
		size += sizeStringSlice(c.Topics)
		size += ord.String.Size(string(c.Urgency))
		size += ord.String.Size(string(c.Intent))
		size += ord.String.Size(c.Summary)
		size += raw.Float64.Size(c.Confidence)
	}

	size += sizeVector(item.Embedding)
	size += sizeOptInt(item.NPSScore)
	size += ord.String.Size(item.TicketID)
	size += ord.String.Size(item.TicketPriority)
	return size
}

// Optional and collection helpers

func marshalOptFloat64(v *float64, bs []byte) (n int) {
	n = ord.Bool.Marshal(v != nil, bs)
	if v != nil {
		n += raw.Float64.Marshal(*v, bs[n:])
	}
	return n
}

func unmarshalOptFloat64(bs []byte) (v *float64, n int, err error) {
	present, n, err := ord.Bool.Unmarshal(bs)
	if err != nil || !present {
		return nil, n, err
	}
	val, m, err := raw.Float64.Unmarshal(bs[n:])
	if err != nil {
		return nil, n + m, err
	}
	return &val, n + m, nil
}

func sizeOptFloat64(v *float64) (size int) {
	size = ord.Bool.Size(v != nil)
	if v != nil {
		size += raw.Float64.Size(*v)
	}
	return size
}

func marshalOptInt(v *int, bs []byte) (n int) {
	n = ord.Bool.Marshal(v != nil, bs)
	if v != nil {
		n += varint.Int.Marshal(*v, bs[n:])
	}
	return n
}

func unmarshalOptInt(bs []byte) (v *int, n int, err error) {
	present, n, err := ord.Bool.Unmarshal(bs)
	if err != nil || !present {
		return nil, n, err
	}
	val, m, err := varint.Int.Unmarshal(bs[n:])
	if err != nil {
		return nil, n + m, err
	}
	return &val, n + m, nil
}

func sizeOptInt(v *int) (size int) {
	size = ord.Bool.Size(v != nil)
	if v != nil {
		size += varint.Int.Size(*v)
	}
	return size
}

func marshalOptTime(t *time.Time, bs []byte) (n int) {
	n = ord.Bool.Marshal(t != nil, bs)
	if t != nil {
		n += varint.Int64.Marshal(t.UnixMicro(), bs[n:])
	}
	return n
}

func unmarshalOptTime(bs []byte) (t *time.Time, n int, err error) {
	present, n, err := ord.Bool.Unmarshal(bs)
	if err != nil || !present {
		return nil, n, err
	}
	micros, m, err := varint.Int64.Unmarshal(bs[n:])
	if err != nil {
		return nil, n + m, err
	}
	val := time.UnixMicro(micros).UTC()
	return &val, n + m, nil
}

func sizeOptTime(t *time.Time) (size int) {
	size = ord.Bool.Size(t != nil)
	if t != nil {
		size += varint.Int64.Size(t.UnixMicro())
	}
	return size
}

func marshalVector(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func unmarshalVector(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil || length == 0 {
		return nil, n, err
	}
	v = make([]float32, length)
	for i := 0; i < length; i++ {
		var m int
		if v[i], m, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
			return nil, n + m, err
		}
		n += m
	}
	return v, n, nil
}

func sizeVector(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

func marshalStringSlice(v []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func unmarshalStringSlice(bs []byte) (v []string, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil || length == 0 {
		return nil, n, err
	}
	v = make([]string, length)
	for i := 0; i < length; i++ {
		var m int
		if v[i], m, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n + m, err
		}
		n += m
	}
	return v, n, nil
}

func sizeStringSlice(v []string) (size int) {
	size = varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return size
}

func marshalStringMap(v map[string]string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, k := range sortedKeys(v) {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(v[k], bs[n:])
	}
	return n
}

func unmarshalStringMap(bs []byte) (v map[string]string, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil || length == 0 {
		return nil, n, err
	}
	v = make(map[string]string, length)
	for i := 0; i < length; i++ {
		var key, val string
		var m int
		if key, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n + m, err
		}
		n += m
		if val, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n + m, err
		}
		n += m
		v[key] = val
	}
	return v, n, nil
}

func sizeStringMap(v map[string]string) (size int) {
	size = varint.Int.Size(len(v))
	for k, val := range v {
		size += ord.String.Size(k)
		size += ord.String.Size(val)
	}
	return size
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Deterministic output so identical profiles serialize identically.
	sort.Strings(keys)
	return keys
}
