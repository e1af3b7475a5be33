package agent

import (
	"regexp"
	"sort"
)

// citationPattern matches [n] markers referencing numbered context blocks
var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// ExtractCitations returns the sorted set of unique citation markers found
// in the answer text. Grading and response assembly both use this, so the
// two extractions agree as long as the answer is not mutated in between.
func ExtractCitations(answer string) []string {
	seen := make(map[string]struct{})
	for _, match := range citationPattern.FindAllStringSubmatch(answer, -1) {
		seen[match[1]] = struct{}{}
	}

	citations := make([]string, 0, len(seen))
	for citation := range seen {
		citations = append(citations, citation)
	}
	sort.Strings(citations)
	return citations
}
