// Package scenario replays a YAML list of integration operations against a
// Data Map, for demos and regression fixtures.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cvsubs74/dm-consent/pkg/datamap"
	"gopkg.in/yaml.v3"
)

// Scenario is a named sequence of steps.
//
//	name: loan demo
//	scanned_vendors: [Google, Meta]
//	steps:
//	  - consent: {collection_point: example.com/signup, purpose: Marketing, data_elements: [Email]}
//	  - cookies: {domain: example.com}
type Scenario struct {
	Name string `yaml:"name"`
	// Seed for the random cookie scanner; ignored when ScannedVendors is set
	Seed           int64    `yaml:"seed"`
	ScannedVendors []string `yaml:"scanned_vendors"`
	Steps          []Step   `yaml:"steps"`
}

// Step holds exactly one operation
type Step struct {
	Consent            *ConsentStep    `yaml:"consent"`
	Cookies            *CookiesStep    `yaml:"cookies"`
	DSAR               *DSARStep       `yaml:"dsar"`
	Discovery          *DiscoveryStep  `yaml:"discovery"`
	VendorEngagement   *EngagementStep `yaml:"vendor_engagement"`
	ProcessingActivity *ActivityStep   `yaml:"processing_activity"`
	Model              *ModelStep      `yaml:"model"`
}

type ConsentStep struct {
	CollectionPoint string   `yaml:"collection_point"`
	Purpose         string   `yaml:"purpose"`
	DataElements    []string `yaml:"data_elements"`
}

type CookiesStep struct {
	Domain string `yaml:"domain"`
}

type DSARStep struct {
	RequestType  string   `yaml:"request_type"`
	DataElements []string `yaml:"data_elements"`
}

type DiscoveryStep struct {
	DataSource string   `yaml:"data_source"`
	PIIs       []string `yaml:"piis"`
}

type EngagementStep struct {
	Name    string   `yaml:"name"`
	Vendors []string `yaml:"vendors"`
}

type ActivityStep struct {
	Name string `yaml:"name"`
}

type ModelStep struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Purpose     string `yaml:"purpose"`
}

// Load reads a scenario file
func Load(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes a scenario and checks every step names one operation
func Parse(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty scenario")
		}
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	for i, step := range sc.Steps {
		if n := step.count(); n != 1 {
			return nil, fmt.Errorf("step %d: want exactly one operation, got %d", i+1, n)
		}
	}
	return &sc, nil
}

func (s Step) count() int {
	n := 0
	for _, set := range []bool{
		s.Consent != nil, s.Cookies != nil, s.DSAR != nil, s.Discovery != nil,
		s.VendorEngagement != nil, s.ProcessingActivity != nil, s.Model != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// Operation returns the datamap operation name of the step
func (s Step) Operation() string {
	switch {
	case s.Consent != nil:
		return datamap.OpConsent
	case s.Cookies != nil:
		return datamap.OpScanCookies
	case s.DSAR != nil:
		return datamap.OpDSAR
	case s.Discovery != nil:
		return datamap.OpDataDiscovery
	case s.VendorEngagement != nil:
		return datamap.OpVendorEngagement
	case s.ProcessingActivity != nil:
		return datamap.OpCreateProcessingActivity
	case s.Model != nil:
		return datamap.OpCreateModel
	}
	return ""
}

// Apply runs the step against in
func (s Step) Apply(ctx context.Context, in *datamap.Integrations) (datamap.Result, error) {
	switch {
	case s.Consent != nil:
		return in.Consent(ctx, datamap.ConsentInput{
			CollectionPoint: s.Consent.CollectionPoint,
			Purpose:         s.Consent.Purpose,
			DataElements:    s.Consent.DataElements,
		})
	case s.Cookies != nil:
		return in.ScanCookies(ctx, s.Cookies.Domain)
	case s.DSAR != nil:
		return in.SubmitDSAR(ctx, datamap.DSARInput{
			RequestType:  s.DSAR.RequestType,
			DataElements: s.DSAR.DataElements,
		})
	case s.Discovery != nil:
		return in.DiscoverData(ctx, datamap.DiscoveryInput{
			DataSource: s.Discovery.DataSource,
			PIIs:       s.Discovery.PIIs,
		})
	case s.VendorEngagement != nil:
		return in.EngageVendors(ctx, datamap.EngagementInput{
			Name:    s.VendorEngagement.Name,
			Vendors: s.VendorEngagement.Vendors,
		})
	case s.ProcessingActivity != nil:
		return in.CreateProcessingActivity(ctx, s.ProcessingActivity.Name)
	case s.Model != nil:
		return in.CreateModel(ctx, datamap.ModelInput{
			Name:        s.Model.Name,
			Description: s.Model.Description,
			Purpose:     s.Model.Purpose,
		})
	}
	return datamap.Result{}, errors.New("empty step")
}

// Scanner returns the cookie scanner the scenario asks for
func (sc *Scenario) Scanner() datamap.VendorScanner {
	if len(sc.ScannedVendors) > 0 {
		return datamap.FixedVendorScanner(sc.ScannedVendors)
	}
	return datamap.NewRandomVendorScanner(sc.Seed)
}

// ReportFunc receives the outcome of each step, numbered from 1
type ReportFunc func(n int, op string, result datamap.Result, err error)

// Summary counts replay outcomes
type Summary struct {
	Applied  int
	Rejected int
}

// Replay applies every step in order. Rejected steps are reported and
// skipped; any other error stops the replay.
func (sc *Scenario) Replay(ctx context.Context, in *datamap.Integrations, report ReportFunc) (Summary, error) {
	var sum Summary
	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		result, err := step.Apply(ctx, in)
		if report != nil {
			report(i+1, step.Operation(), result, err)
		}
		switch {
		case err == nil:
			sum.Applied++
		case datamap.IsValidationError(err):
			sum.Rejected++
		default:
			return sum, fmt.Errorf("step %d (%s): %w", i+1, step.Operation(), err)
		}
	}
	return sum, nil
}
