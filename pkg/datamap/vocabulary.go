package datamap

import "sort"

// Vocabulary holds the fixed option lists offered by the integration forms
type Vocabulary struct {
	DataElements         []string `json:"dataElements" koanf:"data_elements"`
	DSARElements         []string `json:"dsarElements" koanf:"dsar_elements"`
	Vendors              []string `json:"vendors" koanf:"vendors"`
	ProcessingActivities []string `json:"processingActivities" koanf:"processing_activities"`
}

// DefaultVocabulary returns the built-in option lists
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		DataElements:         []string{"Name", "Phone Number", "SSN", "Email", "Address"},
		DSARElements:         []string{"Email", "SSN", "Phone Number", "Address"},
		Vendors:              []string{"Microsoft", "Google", "Meta", "Salesforce"},
		ProcessingActivities: []string{"Loan Approval Process", "Account Validation Process", "Credit Check Process"},
	}
}

// WithDefaults fills empty lists from DefaultVocabulary
func (v Vocabulary) WithDefaults() Vocabulary {
	def := DefaultVocabulary()
	if len(v.DataElements) == 0 {
		v.DataElements = def.DataElements
	}
	if len(v.DSARElements) == 0 {
		v.DSARElements = def.DSARElements
	}
	if len(v.Vendors) == 0 {
		v.Vendors = def.Vendors
	}
	if len(v.ProcessingActivities) == 0 {
		v.ProcessingActivities = def.ProcessingActivities
	}
	return v
}

// Options are the choices a form should offer for one session
type Options struct {
	DataElements         []string `json:"dataElements"`
	DSARElements         []string `json:"dsarElements"`
	Vendors              []string `json:"vendors"`
	ProcessingActivities []string `json:"processingActivities"`
}

// sortedUnion merges lists into one sorted list without duplicates
func sortedUnion(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, s := range list {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
