package records

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// MissingTopic replaces the permalink when it has no topic segment.
const MissingTopic = "NA"

// topicSegment is the index of the topic slug in a slash-split permalink
// ("/r/<sub>/comments/<id>/<topic>/...").
const topicSegment = 5

// Digest returns the lowercase hex SHA-256 of s.
func Digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Topic returns the topic segment of a permalink and whether it exists.
func Topic(permalink string) (string, bool) {
	parts := strings.Split(permalink, "/")
	if len(parts) <= topicSegment {
		return "", false
	}
	return parts[topicSegment], true
}

// Anonymized returns r with the author hashed and the permalink reduced to a
// hash of its topic segment.
func (r Record) Anonymized() Record {
	out := r
	out.Author = Digest(r.Author)
	if topic, ok := Topic(r.Permalink); ok {
		out.Permalink = Digest(topic)
	} else {
		out.Permalink = MissingTopic
	}
	return out
}

// Anonymize rewrites every record of s in place. Records that only differed
// below the topic level collapse into one.
func Anonymize(s *Set) {
	items := make(map[Record]struct{}, len(s.items))
	for r := range s.items {
		items[r.Anonymized()] = struct{}{}
	}
	s.items = items
}
