package badger

import (
	"encoding/binary"
	"time"

	"github.com/poiesic/pulse/core"
)

// Key prefixes for different data types
const (
	feedbackRecordPrefix = "fbrec"
	feedbackDatePrefix   = "fbrecd"
	profileRecordPrefix  = "profrec"
)

// makeFeedbackKey generates a key for a feedback record by ID.
func makeFeedbackKey(id string) []byte {
	return []byte(feedbackRecordPrefix + ":" + id)
}

// makeProfileKey generates a key for a user profile by user ID.
func makeProfileKey(userID string) []byte {
	return []byte(profileRecordPrefix + ":" + userID)
}

// makeFeedbackDateKey generates a composite key for the date index.
// Format: prefix:timestamp:idhash
// Record IDs are variable-length strings, so the suffix is an 8-byte hash of
// the ID to keep index keys fixed width.
func makeFeedbackDateKey(timestamp time.Time, id string) []byte {
	prefix := feedbackDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for timestamp + 8 bytes for ID hash
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(core.IDFromContent(id)))
	return buf
}

// makePartialFeedbackDateKey generates a partial key for date range queries.
// Format: prefix:timestamp
func makePartialFeedbackDateKey(timestamp time.Time) []byte {
	prefix := feedbackDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	return buf
}
