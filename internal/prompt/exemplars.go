// File path: internal/prompt/exemplars.go
package prompt

import "strings"

// Exemplar is one canonical before/after pair for a rule category.
type Exemplar struct {
	Before string
	After  string
}

// The pool is fixed and small; it bounds prompt size and keeps exemplar
// quality curated rather than crowd-sourced.
var exemplarPool = map[string][]Exemplar{
	"passive-voice": {
		{Before: "The file is created by the system.", After: "The system creates the file."},
		{Before: "Errors are returned when validation fails.", After: "Validation failures return errors."},
	},
	"wordiness": {
		{Before: "In order to configure the service, it is necessary to edit the file.", After: "To configure the service, edit the file."},
		{Before: "Due to the fact that the cache is full, writes fail.", After: "Because the cache is full, writes fail."},
	},
	"heading-case": {
		{Before: "Getting Started With The API", After: "Getting started with the API"},
		{Before: "Frequently Asked Questions", After: "Frequently asked questions"},
	},
	"second-person": {
		{Before: "One should restart the service after upgrading.", After: "Restart the service after upgrading."},
		{Before: "The user must provide an API key.", After: "You must provide an API key."},
	},
	"future-tense": {
		{Before: "The command will print the version.", After: "The command prints the version."},
	},
}

// SelectExemplars returns up to max exemplars for the category. Unknown
// categories get none; the prompt still carries rules and passages.
func SelectExemplars(category string, max int) []Exemplar {
	if max <= 0 {
		return nil
	}
	pool := exemplarPool[strings.TrimSpace(strings.ToLower(category))]
	if len(pool) > max {
		pool = pool[:max]
	}
	out := make([]Exemplar, len(pool))
	copy(out, pool)
	return out
}
