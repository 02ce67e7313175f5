package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/skzy2018/ai-kakeibo-app/internal/database/repository"
)

// NearMatches returns the existing names that look like typos of name.
// Exact matches are excluded; case-only differences are included.
func NearMatches(name string, existing []string) []string {
	maxDist := 2
	if utf8.RuneCountInString(name) <= 4 {
		maxDist = 1
	}
	var out []string
	seen := map[string]bool{}
	for _, cand := range existing {
		if cand == name || seen[cand] {
			continue
		}
		if strings.EqualFold(cand, name) || levenshtein.ComputeDistance(name, cand) <= maxDist {
			out = append(out, cand)
			seen[cand] = true
		}
	}
	return out
}

// nearMatchWarnings flags newly created keys that resemble existing ones.
// Lookup failures are logged and produce no warnings.
func (s *ImportService) nearMatchWarnings(ctx context.Context, created CreatedKeys) []string {
	if len(created.Accounts)+len(created.Categories)+len(created.Tags) == 0 {
		return nil
	}
	var warnings []string
	check := func(kind string, keys []string, names func(context.Context) ([]string, error)) {
		if len(keys) == 0 {
			return
		}
		existing, err := names(ctx)
		if err != nil {
			s.Log.Warn().Err(err).Str("kind", kind).Msg("near match lookup failed")
			return
		}
		for _, key := range keys {
			if m := NearMatches(key, existing); len(m) > 0 {
				warnings = append(warnings, fmt.Sprintf("new %s %q is similar to existing %s", kind, key, strings.Join(quoteAll(m), ", ")))
			}
		}
	}
	check("account", created.Accounts, repository.NewAccountRepo(s.DB).Names)

	// Categories are keyed by (name, type); only compare within a type.
	categories := repository.NewCategoryRepo(s.DB)
	for _, c := range created.Categories {
		byType := func(ctx context.Context) ([]string, error) {
			return categories.NamesByType(ctx, c.CategoryType)
		}
		check(c.CategoryType+" category", []string{c.Name}, byType)
	}
	check("tag", created.Tags, repository.NewTagRepo(s.DB).Names)

	for _, w := range warnings {
		s.Log.Warn().Msg(w)
	}
	return warnings
}

func quoteAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
