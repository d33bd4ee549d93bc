package homepage

import (
	"github.com/MrSnakeDoc/smartmarks/internal/bookmarks"
)

// ToInputs turns entries into create requests, titled by entry name.
// Validation is left to the importer so rejected entries get reported.
func ToInputs(entries []Entry) []bookmarks.CreateInput {
	out := make([]bookmarks.CreateInput, 0, len(entries))
	for _, e := range entries {
		out = append(out, bookmarks.CreateInput{URL: e.Href, Title: e.Name})
	}
	return out
}
