package datamap

import (
	"context"
	"fmt"
	"strings"

	"github.com/cvsubs74/dm-consent/pkg/logging"
)

// Operation names, used for logging, metrics and validation errors
const (
	OpConsent                  = "consent"
	OpScanCookies              = "cookies"
	OpDSAR                     = "dsar"
	OpDataDiscovery            = "data_discovery"
	OpVendorEngagement         = "vendor_engagement"
	OpCreateProcessingActivity = "processing_activity"
	OpCreateModel              = "model"
)

// Purpose selector values the model form uses as prompts, never as real purposes
const (
	PurposePrompt = "Select a processing activity..."
	PurposeAddNew = "Add new processing activity"
)

// Observer is notified after every integration operation
type Observer interface {
	ObserveOperation(op string, err error)
}

// ChangeFunc is called after an operation has mutated the store
type ChangeFunc func(ctx context.Context, op string)

// Result is the user-facing outcome of a successful integration operation
type Result struct {
	Operation    string   `json:"operation"`
	Message      string   `json:"message"`
	VendorsFound []string `json:"vendorsFound,omitempty"`
}

// ConsentInput links a Purpose to the Collection Point gathering its data
type ConsentInput struct {
	CollectionPoint string   `json:"collectionPoint" validate:"notblank"`
	Purpose         string   `json:"purpose" validate:"notblank"`
	DataElements    []string `json:"dataElements" validate:"min=1,dive,notblank"`
}

// DSARInput registers a DSAR request type as a Processing Activity
type DSARInput struct {
	RequestType  string   `json:"requestType" validate:"notblank"`
	DataElements []string `json:"dataElements" validate:"min=1,dive,notblank"`
}

// DiscoveryInput records the PIIs found when scanning a data source
type DiscoveryInput struct {
	DataSource string   `json:"dataSource" validate:"notblank"`
	PIIs       []string `json:"piis" validate:"min=1,dive,notblank"`
}

// EngagementInput groups third-party vendors under one engagement
type EngagementInput struct {
	Name    string   `json:"name" validate:"notblank"`
	Vendors []string `json:"vendors" validate:"min=1,dive,notblank"`
}

// ModelInput creates a Model linked to its purpose
type ModelInput struct {
	Name        string `json:"name" validate:"notblank"`
	Description string `json:"description" validate:"notblank"`
	Purpose     string `json:"purpose" validate:"notblank"`
}

type cookieInput struct {
	Domain string `json:"domain" validate:"notblank"`
}

type activityInput struct {
	Name string `json:"name" validate:"notblank"`
}

// Integrations runs the Data Mapping integration operations against one Store
type Integrations struct {
	store    *Store
	vocab    func() Vocabulary
	scanner  VendorScanner
	onChange ChangeFunc
	observer Observer
}

// Option configures Integrations
type Option func(*Integrations)

// WithVocabulary sets the source of option lists; it is read on every call
func WithVocabulary(fn func() Vocabulary) Option {
	return func(in *Integrations) { in.vocab = fn }
}

// WithVendorScanner replaces the cookie vendor scanner
func WithVendorScanner(s VendorScanner) Option {
	return func(in *Integrations) { in.scanner = s }
}

// WithOnChange registers the refresh hook
func WithOnChange(fn ChangeFunc) Option {
	return func(in *Integrations) { in.onChange = fn }
}

// WithObserver registers an operation observer
func WithObserver(o Observer) Option {
	return func(in *Integrations) { in.observer = o }
}

// NewIntegrations binds the integration operations to store
func NewIntegrations(store *Store, opts ...Option) *Integrations {
	in := &Integrations{
		store:   store,
		vocab:   DefaultVocabulary,
		scanner: NewRandomVendorScanner(0),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Store returns the underlying Data Map
func (in *Integrations) Store() *Store {
	return in.store
}

// Options lists the form choices: vocabulary merged with what this session created
func (in *Integrations) Options() Options {
	v := in.vocab()
	activities := make([]string, 0)
	for _, e := range in.store.Entities(ProcessingActivities) {
		activities = append(activities, e.Name)
	}
	return Options{
		DataElements:         copyStrings(v.DataElements),
		DSARElements:         copyStrings(v.DSARElements),
		Vendors:              sortedUnion(v.Vendors, in.store.Vendors()),
		ProcessingActivities: sortedUnion(v.ProcessingActivities, activities),
	}
}

// Consent creates the Purpose as a Processing Activity, the Collection Point
// as an Asset carrying the selected Data Elements, and links them.
func (in *Integrations) Consent(ctx context.Context, input ConsentInput) (Result, error) {
	input.CollectionPoint = strings.TrimSpace(input.CollectionPoint)
	input.Purpose = strings.TrimSpace(input.Purpose)

	fields := validateInput(input)
	fields = append(fields, checkVocabulary("dataElements", input.DataElements, in.vocab().DataElements)...)
	if err := in.reject(OpConsent, fields); err != nil {
		return Result{}, err
	}

	in.store.UpsertEntity(ProcessingActivities, input.Purpose, nil)
	in.store.UpsertEntity(Assets, input.CollectionPoint, input.DataElements)
	in.store.AddLink(input.Purpose, input.CollectionPoint)

	logging.DebugContext(ctx, "consent integrated",
		"purpose", input.Purpose, "collectionPoint", input.CollectionPoint, "elements", len(input.DataElements))

	return in.done(ctx, OpConsent, Result{Message: "Consent integration has been successfully processed."})
}

// ScanCookies registers domain as an Asset and links it to every vendor the
// scanner finds setting cookies on it.
func (in *Integrations) ScanCookies(ctx context.Context, domain string) (Result, error) {
	domain = strings.TrimSpace(domain)
	if err := in.reject(OpScanCookies, validateInput(cookieInput{Domain: domain})); err != nil {
		return Result{}, err
	}

	vendors, err := in.scanner.ScanVendors(ctx, domain, in.vocab().Vendors)
	if err != nil {
		in.observe(OpScanCookies, err)
		return Result{}, fmt.Errorf("scanning cookies for %s: %w", domain, err)
	}

	in.store.UpsertEntity(Assets, domain, nil)
	for _, vendor := range vendors {
		in.store.AddVendor(vendor)
		in.store.AddLink(domain, vendor)
	}

	logging.DebugContext(ctx, "cookies scanned", "domain", domain, "vendors", vendors)

	return in.done(ctx, OpScanCookies, Result{
		Message:      fmt.Sprintf("Cookies scanned and added for %s. Vendors found: %s.", domain, strings.Join(vendors, ", ")),
		VendorsFound: vendors,
	})
}

// SubmitDSAR registers the request type as a Processing Activity with the
// Data Elements the request covers.
func (in *Integrations) SubmitDSAR(ctx context.Context, input DSARInput) (Result, error) {
	input.RequestType = strings.TrimSpace(input.RequestType)

	fields := validateInput(input)
	fields = append(fields, checkVocabulary("dataElements", input.DataElements, in.vocab().DSARElements)...)
	if err := in.reject(OpDSAR, fields); err != nil {
		return Result{}, err
	}

	in.store.UpsertEntity(ProcessingActivities, input.RequestType, input.DataElements)

	return in.done(ctx, OpDSAR, Result{
		Message: fmt.Sprintf("DSAR request '%s' has been created successfully.", input.RequestType),
	})
}

// DiscoverData registers the data source as an Asset with the discovered PIIs
func (in *Integrations) DiscoverData(ctx context.Context, input DiscoveryInput) (Result, error) {
	input.DataSource = strings.TrimSpace(input.DataSource)

	fields := validateInput(input)
	fields = append(fields, checkVocabulary("piis", input.PIIs, in.vocab().DataElements)...)
	if err := in.reject(OpDataDiscovery, fields); err != nil {
		return Result{}, err
	}

	in.store.UpsertEntity(Assets, input.DataSource, input.PIIs)

	return in.done(ctx, OpDataDiscovery, Result{
		Message: fmt.Sprintf("Data Discovery information for '%s' has been added successfully.", input.DataSource),
	})
}

// EngageVendors represents an engagement as a Processing Activity linked to
// each selected vendor.
func (in *Integrations) EngageVendors(ctx context.Context, input EngagementInput) (Result, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Vendors = trimNames(input.Vendors)
	if err := in.reject(OpVendorEngagement, validateInput(input)); err != nil {
		return Result{}, err
	}

	in.store.UpsertEntity(ProcessingActivities, input.Name, nil)
	for _, vendor := range input.Vendors {
		in.store.AddLink(input.Name, vendor)
		in.store.AddVendor(vendor)
	}

	return in.done(ctx, OpVendorEngagement, Result{
		Message: fmt.Sprintf("Engagement '%s' with vendors %s has been successfully added to the Data Map.",
			input.Name, strings.Join(input.Vendors, ", ")),
	})
}

// trimNames trims each name and drops repeats. Blank names are kept so
// validation can report them.
func trimNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name != "" && seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// CreateProcessingActivity adds an empty Processing Activity
func (in *Integrations) CreateProcessingActivity(ctx context.Context, name string) (Result, error) {
	name = strings.TrimSpace(name)
	if err := in.reject(OpCreateProcessingActivity, validateInput(activityInput{Name: name})); err != nil {
		return Result{}, err
	}

	in.store.UpsertEntity(ProcessingActivities, name, nil)

	return in.done(ctx, OpCreateProcessingActivity, Result{
		Message: fmt.Sprintf("Processing activity '%s' has been created successfully.", name),
	})
}

// CreateModel records the model and links it to its purpose, creating the
// purpose Processing Activity if needed.
func (in *Integrations) CreateModel(ctx context.Context, input ModelInput) (Result, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Purpose = strings.TrimSpace(input.Purpose)

	fields := validateInput(input)
	if input.Purpose == PurposePrompt || input.Purpose == PurposeAddNew {
		fields = append(fields, FieldError{Field: "purpose", Message: "select a processing activity"})
	}
	if err := in.reject(OpCreateModel, fields); err != nil {
		return Result{}, err
	}

	in.store.UpsertEntity(ProcessingActivities, input.Purpose, nil)
	in.store.AddModel(input.Name, input.Description, input.Purpose)

	return in.done(ctx, OpCreateModel, Result{
		Message: fmt.Sprintf("Model '%s' has been created successfully and linked to the processing activity '%s'.",
			input.Name, input.Purpose),
	})
}

func (in *Integrations) reject(op string, fields []FieldError) error {
	if len(fields) == 0 {
		return nil
	}
	err := &ValidationError{Operation: op, Fields: fields}
	in.observe(op, err)
	return err
}

func (in *Integrations) done(ctx context.Context, op string, r Result) (Result, error) {
	r.Operation = op
	in.observe(op, nil)
	if in.onChange != nil {
		in.onChange(ctx, op)
	}
	return r, nil
}

func (in *Integrations) observe(op string, err error) {
	if in.observer != nil {
		in.observer.ObserveOperation(op, err)
	}
}
