package harvest

import (
	"sort"
	"strings"
)

// DefaultCreatorRoles ranks the freetext name roles that identify a work's
// creator. Lower rank wins; roles sharing a rank tie-break by encounter
// order. Keys must be lower-case.
var DefaultCreatorRoles = map[string]int{
	"artist":        0,
	"artist/maker":  0,
	"attributed to": 0,
	"author":        0,
	"created_by":    0,
	"creator":       0,
	"inventor":      0,
	"model maker":   0,
	"photographer":  0,
	"photograph by": 0,
	"written by":    0,

	"architect": 1,
	"designer":  1,

	"compiled by": 2,
	"engraver":    2,
	"etcher":      2,
	"maker":       2,
	"silversmith": 2,

	"print maker": 3,
	"after":       3,

	"manufactured by": 4,
	"manufacturer":    4,
	"published by":    4,
	"publisher":       4,

	"patentee": 5,
}

// resolveCreator picks a creator name using the configured role ranks.
// Freetext names with a recognized role are preferred, best rank first;
// failing that, the first indexed name typed personal_main wins. Returns
// false when neither source has a usable entry.
func resolveCreator(roles map[string]int, indexed indexedStructured, free freetext) (string, bool) {
	type ranked struct {
		rank    int
		content string
	}
	var candidates []ranked
	for _, entry := range decodeNameEntries(free.Name) {
		rank, ok := roles[strings.ToLower(string(entry.Label))]
		if !ok || entry.Content == "" {
			continue
		}
		candidates = append(candidates, ranked{rank: rank, content: string(entry.Content)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].rank < candidates[j].rank
	})
	if len(candidates) > 0 {
		return candidates[0].content, true
	}

	for _, entry := range decodeNameEntries(indexed.Name) {
		if strings.ToLower(string(entry.Type)) == "personal_main" && entry.Content != "" {
			return string(entry.Content), true
		}
	}
	return "", false
}
