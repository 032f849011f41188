// Package pii classifies a free-text sample into a PII category using a
// language model and a keyword table over its reply.
package pii

import (
	"context"
	"fmt"
	"strings"

	"github.com/cvsubs74/dm-consent/pkg/llm"
	"github.com/cvsubs74/dm-consent/pkg/logging"
)

// Category is the outcome of a classification
type Category string

const (
	Name                Category = "Name"
	Email               Category = "Email"
	SSN                 Category = "SSN"
	Address             Category = "Address"
	DriverLicenseNumber Category = "Driver License Number"
	Other               Category = "Other"
	Error               Category = "Error"
)

// Categories lists every value Classify can return
var Categories = []Category{Name, Email, SSN, Address, DriverLicenseNumber, Other, Error}

type keyword struct {
	category Category
	phrases  []string
}

// keywords is matched in order; more specific categories come first so
// "driver license number" is not read as a plain "name" and so on.
var keywords = []keyword{
	{DriverLicenseNumber, []string{"driver license", "driver's license", "drivers license", "driving licence"}},
	{SSN, []string{"ssn", "social security"}},
	{Email, []string{"email", "e-mail"}},
	{Address, []string{"address"}},
	{Name, []string{"name"}},
}

const promptTemplate = `Classify the following text into exactly one of these PII categories:
Name, Email, SSN, Address, Driver License Number, Other.
Reply with the category only.

Text: %s`

// Observer is told about each classification outcome
type Observer interface {
	ObserveClassification(c Category)
}

// Classifier maps text to a Category. A nil backend classifies everything as Error.
type Classifier struct {
	backend  llm.Completer
	observer Observer
}

// NewClassifier creates a classifier over backend, which may be nil
func NewClassifier(backend llm.Completer, observer Observer) *Classifier {
	return &Classifier{backend: backend, observer: observer}
}

// Classify asks the model once and matches its reply against the keyword table.
// Blank text is Other without a model call; any backend failure is Error.
func (c *Classifier) Classify(ctx context.Context, text string) Category {
	category := c.classify(ctx, text)
	if c.observer != nil {
		c.observer.ObserveClassification(category)
	}
	return category
}

func (c *Classifier) classify(ctx context.Context, text string) Category {
	text = strings.TrimSpace(text)
	if text == "" {
		return Other
	}
	if c.backend == nil {
		logging.WarnContext(ctx, "classification skipped", "error", llm.ErrNotConfigured)
		return Error
	}

	reply, err := c.backend.Complete(ctx, fmt.Sprintf(promptTemplate, text))
	if err != nil {
		logging.WarnContext(ctx, "classification failed", "error", err)
		return Error
	}

	category := Match(reply)
	logging.DebugContext(ctx, "text classified", "reply", reply, "category", string(category))
	return category
}

// Match maps a model reply to a Category, Other when nothing matches
func Match(reply string) Category {
	reply = strings.ToLower(reply)
	for _, kw := range keywords {
		for _, phrase := range kw.phrases {
			if strings.Contains(reply, phrase) {
				return kw.category
			}
		}
	}
	return Other
}
