package memory

import "strings"

// maxRenderedLikes caps how many preferences appear in the rendered block.
const maxRenderedLikes = 8

// contextHeader opens the rendered memory block.
const contextHeader = "User long-term memory:"

// RenderContext reduces a most-recent-first fact list to a compact text
// block for prompt injection: the most recent first and last name, and up
// to maxRenderedLikes de-duplicated likes in most-recent-first order.
// Returns the empty string when nothing is populated.
func RenderContext(facts []Fact) string {
	if len(facts) == 0 {
		return ""
	}

	var firstName, lastName string
	var likes []string
	seen := make(map[string]bool)

	for _, fact := range facts {
		switch fact.Key {
		case KeyFirstName:
			if firstName == "" {
				firstName = fact.Value
			}
		case KeyLastName:
			if lastName == "" {
				lastName = fact.Value
			}
		case KeyLikes:
			if !seen[fact.Value] && len(likes) < maxRenderedLikes {
				seen[fact.Value] = true
				likes = append(likes, fact.Value)
			}
		}
	}

	lines := []string{contextHeader}
	if firstName != "" {
		lines = append(lines, "- First name: "+firstName)
	}
	if lastName != "" {
		lines = append(lines, "- Last name: "+lastName)
	}
	if len(likes) > 0 {
		lines = append(lines, "- Likes: "+strings.Join(likes, ", "))
	}

	if len(lines) == 1 {
		return ""
	}
	return strings.Join(lines, "\n")
}
