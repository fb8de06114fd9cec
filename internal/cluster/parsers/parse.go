package parsers

import (
	"github.com/rileyhilliard/sgpu/internal/cluster"
)

// Result is the outcome of parsing one poll's worth of text.
type Result struct {
	Resources []cluster.Resource
	// Warnings holds every *MalformedRecordError and *DecodeError. Each one
	// cost a single record; the rest of the batch is in Resources.
	Warnings []error
	// Records is the number of records the tokenizer produced.
	Records int
}

// Parse tokenizes and decodes text. It never fails as a whole.
func Parse(text string, opts Options) Result {
	records, errs := Tokenize(text)

	res := Result{
		Resources: make([]cluster.Resource, 0, len(records)),
		Warnings:  errs,
		Records:   len(records),
	}
	for _, rec := range records {
		r, err := DecodeWith(rec, opts)
		if err != nil {
			res.Warnings = append(res.Warnings, err)
			continue
		}
		res.Resources = append(res.Resources, r)
	}
	return res
}
