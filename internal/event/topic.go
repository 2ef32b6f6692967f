package event

import "strings"

// Topic is a hierarchical event name using dot notation.
type Topic string

// Wildcards and separator used in topic patterns.
const (
	// WildcardSingle matches exactly one segment.
	WildcardSingle = "*"

	// WildcardMulti matches zero or more segments.
	WildcardMulti = "**"

	// Separator separates topic segments.
	Separator = "."
)

// Editor topics.
const (
	TopicKeyup       Topic = "editor.editableKeyup"
	TopicKeypress    Topic = "editor.editableKeypress"
	TopicInput       Topic = "editor.editableInput"
	TopicClick       Topic = "editor.editableClick"
	TopicBlur        Topic = "editor.blur"
	TopicFocus       Topic = "editor.focus"
	TopicWindowClick Topic = "editor.windowClick"

	// TopicAllEditor matches every editor topic.
	TopicAllEditor Topic = "editor" + Separator + WildcardMulti
)

// String returns the topic as a string.
func (t Topic) String() string {
	return string(t)
}

// Segments returns the topic split by the separator.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), Separator)
}

// Base returns the last segment of the topic.
func (t Topic) Base() string {
	s := string(t)
	if idx := strings.LastIndex(s, Separator); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

// IsWildcard reports whether the topic contains a wildcard.
func (t Topic) IsWildcard() bool {
	return strings.Contains(string(t), WildcardSingle)
}

// IsValid reports whether the topic is non-empty and has no empty
// segments.
func (t Topic) IsValid() bool {
	if t == "" {
		return false
	}
	for _, seg := range t.Segments() {
		if seg == "" {
			return false
		}
	}
	return true
}

// Matches reports whether the topic matches pattern.
func (t Topic) Matches(pattern Topic) bool {
	return matchSegments(t.Segments(), pattern.Segments())
}

func matchSegments(topic, pattern []string) bool {
	ti, pi := 0, 0
	for pi < len(pattern) {
		if pattern[pi] == WildcardMulti {
			for ; ti <= len(topic); ti++ {
				if matchSegments(topic[ti:], pattern[pi+1:]) {
					return true
				}
			}
			return false
		}
		if ti >= len(topic) {
			return false
		}
		if pattern[pi] != WildcardSingle && pattern[pi] != topic[ti] {
			return false
		}
		ti++
		pi++
	}
	return ti == len(topic)
}
