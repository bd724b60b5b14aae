package domain

import (
	"fmt"
	"sort"
)

// ModelCatalog lists the model identifiers the pipeline accepts, keyed to a capability tier,
// plus the defaults used when a record leaves a model unset.
type ModelCatalog struct {
	Models               map[string]string
	DefaultOCRModel      string
	DefaultQuestionModel string
}

// OCRModel resolves the model used for text extraction.
func (c ModelCatalog) OCRModel(requested string) string {
	if requested != "" {
		return requested
	}
	return c.DefaultOCRModel
}

// QuestionModel resolves the model used for question generation.
func (c ModelCatalog) QuestionModel(requested string) string {
	if requested != "" {
		return requested
	}
	return c.DefaultQuestionModel
}

// Check rejects a model the catalog does not recognise. An empty model is accepted
// and resolved to the default later. An empty catalog accepts everything.
func (c ModelCatalog) Check(model string) error {
	if model == "" || len(c.Models) == 0 {
		return nil
	}
	if _, ok := c.Models[model]; ok {
		return nil
	}
	return NewInvalidInputError(fmt.Sprintf("unsupported model %q (known: %v)", model, c.Known()))
}

// Tier returns the capability tier of a model, or "" when unknown.
func (c ModelCatalog) Tier(model string) string {
	return c.Models[model]
}

// Known returns the recognised model ids in sorted order.
func (c ModelCatalog) Known() []string {
	ids := make([]string, 0, len(c.Models))
	for id := range c.Models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
