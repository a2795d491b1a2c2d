package kafkaadmin

import (
	"fmt"
	"regexp"
)

// Maximum topic name length accepted by brokers.
const maxTopicNameLen = 249

// Accepted characters in Kafka topic names.
var topicNameChars = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ValidateTopicName returns an error if the name could never be accepted by
// a broker.
func ValidateTopicName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("topic name must be specified")
	case name == "." || name == "..":
		return fmt.Errorf("topic name cannot be %q", name)
	case len(name) > maxTopicNameLen:
		return fmt.Errorf("topic name exceeds %d characters", maxTopicNameLen)
	case !topicNameChars.MatchString(name):
		return fmt.Errorf("topic name %q contains characters other than [a-zA-Z0-9._-]", name)
	}

	return nil
}

// stringsToRegex takes a []string of topic names and returns a []*regexp.Regexp.
// The values are either a string literal and become ^value$ or are regex and
// compiled then added.
func stringsToRegex(names []string) ([]*regexp.Regexp, error) {
	var out []*regexp.Regexp

	// Update string literals to ^value$ regex.
	for n, t := range names {
		if !containsRegex(t) {
			names[n] = fmt.Sprintf(`^%s$`, regexp.QuoteMeta(t))
		}
	}

	// Compile regex patterns.
	for _, t := range names {
		r, err := regexp.Compile(t)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern: %s", t)
		}

		out = append(out, r)
	}

	return out, nil
}

// containsRegex takes a topic name string and returns whether or not
// it should be interpreted as regex. Anything that is a legal topic name,
// dots included, is taken literally.
func containsRegex(t string) bool {
	return ValidateTopicName(t) != nil
}

// FilterTopicNames returns the names that match any of the patterns, or all
// names if no patterns are given. Internal topics are dropped unless
// includeInternal is set. Order is preserved.
func FilterTopicNames(names []string, patterns []*regexp.Regexp, includeInternal bool) []string {
	var out = []string{}

	for _, name := range names {
		if !includeInternal && isInternalTopic(name) {
			continue
		}

		if len(patterns) == 0 {
			out = append(out, name)
			continue
		}

		for _, re := range patterns {
			if re.MatchString(name) {
				out = append(out, name)
				break
			}
		}
	}

	return out
}

// TopicPatterns compiles topic names or regex patterns as ListTopics does.
func TopicPatterns(names ...string) ([]*regexp.Regexp, error) {
	var patterns = make([]string, len(names))
	copy(patterns, names)

	return stringsToRegex(patterns)
}
