package ai

import (
	"context"
	"regexp"
	"strings"

	"github.com/quka-ai/ragstore/pkg/types"
)

var (
	capitalized = regexp.MustCompile(`\b[A-Z][\p{L}0-9]+(?:\s+[A-Z][\p{L}0-9]+)*\b`)
	sentenceEnd = regexp.MustCompile(`[.!?\n]+`)
)

var sentenceStarters = map[string]bool{
	"The": true, "A": true, "An": true, "This": true, "That": true, "These": true, "Those": true,
	"It": true, "In": true, "On": true, "At": true, "We": true, "They": true, "He": true, "She": true,
	"I": true, "If": true, "When": true, "But": true, "And": true, "Or": true, "For": true, "As": true,
}

// HeuristicExtractor extracts capitalized phrases as entities and links every
// pair that shares a sentence. It runs offline and is deterministic.
type HeuristicExtractor struct{}

func (HeuristicExtractor) Extract(ctx context.Context, chunk string) (types.ExtractResult, error) {
	var res types.ExtractResult
	seen := map[string]*types.Entity{}

	for _, sentence := range sentenceEnd.Split(chunk, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		var names []string
		for _, m := range capitalized.FindAllString(sentence, -1) {
			m = trimStarter(m)
			if m == "" || contains(names, m) {
				continue
			}
			names = append(names, m)
			if _, ok := seen[m]; !ok {
				e := &types.Entity{Name: m, Type: "concept", Description: sentence}
				seen[m] = e
				res.Entities = append(res.Entities, e)
			}
		}
		for i := 0; i < len(names); i++ {
			for j := i + 1; j < len(names); j++ {
				res.Relations = append(res.Relations, &types.Relation{
					Source:      names[i],
					Target:      names[j],
					Description: sentence,
					Keywords:    "co-occurrence",
					Weight:      1,
				})
			}
		}
	}
	return NormalizeResult(res), nil
}

// trimStarter drops a leading sentence word such as "The" from a phrase.
func trimStarter(phrase string) string {
	words := strings.Fields(phrase)
	for len(words) > 0 && sentenceStarters[words[0]] {
		words = words[1:]
	}
	return strings.Join(words, " ")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
