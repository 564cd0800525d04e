package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackzampolin/lectern/internal/errs"
	"github.com/jackzampolin/lectern/internal/extract"
	"github.com/jackzampolin/lectern/internal/prompts"
)

// EntityType is one recognizable entity: a name the model reports it
// under and a description telling the model what to look for.
type EntityType struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// entityTypes is the built-in inventory of recognizable entities.
var entityTypes = []EntityType{
	{"ADDRESS", "A physical address, such as '100 Main Street, Anytown, USA' or 'Suite #12, Building 123'."},
	{"AGE", "An individual's age, including the quantity and unit of time."},
	{"AWS_ACCESS_KEY", "A unique identifier that's associated with a secret access key; used to sign programmatic AWS requests cryptographically."},
	{"AWS_SECRET_KEY", "A unique identifier that's associated with an access key."},
	{"CREDIT_DEBIT_CVV", "A three-digit card verification code (CVV) present on VISA, MasterCard, and Discover credit and debit cards."},
	{"CREDIT_DEBIT_EXPIRY", "The expiration date for a credit or debit card."},
	{"CREDIT_DEBIT_NUMBER", "The number for a credit or debit card."},
	{"DATE_TIME", "A date can include a year, month, day, day of week, or time of day."},
	{"DRIVER_ID", "The number assigned to a driver's license."},
	{"EMAIL", "An email address."},
	{"INTERNATIONAL_BANK_ACCOUNT_NUMBER", "An International Bank Account Number has specific formats in each country."},
	{"IP_ADDRESS", "An IPv4 address."},
	{"LICENSE_PLATE", "A license plate for a vehicle."},
	{"MAC_ADDRESS", "A media access control (MAC) address."},
	{"NAME", "An individual's name."},
	{"PASSWORD", "An alphanumeric string used as a password."},
	{"PHONE", "A phone number."},
	{"PIN", "A four-digit personal identification number (PIN)."},
	{"SWIFT_CODE", "A SWIFT code."},
	{"URL", "A web address."},
	{"USERNAME", "A user name that identifies an account."},
	{"VEHICLE_IDENTIFICATION_NUMBER", "A Vehicle Identification Number (VIN)."},
	{"CA_HEALTH_NUMBER", "A Canadian Health Service Number."},
	{"CA_SOCIAL_INSURANCE_NUMBER", "A Canadian Social Insurance Number (SIN)."},
	{"IN_AADHAAR", "An Indian Aadhaar number."},
	{"IN_NREGA", "An Indian National Rural Employment Guarantee Act (NREGA) number."},
	{"IN_PERMANENT_ACCOUNT_NUMBER", "An Indian Permanent Account Number."},
	{"IN_VOTER_NUMBER", "An Indian Voter ID number."},
	{"UK_NATIONAL_HEALTH_SERVICE_NUMBER", "A UK National Health Service Number."},
	{"UK_NATIONAL_INSURANCE_NUMBER", "A UK National Insurance Number (NINO)."},
	{"UK_UNIQUE_TAXPAYER_REFERENCE_NUMBER", "A UK Unique Taxpayer Reference (UTR) is a 10-digit number that identifies a taxpayer or a business."},
	{"BANK_ACCOUNT_NUMBER", "A US bank account number, typically 10 to 12 digits long."},
	{"BANK_ROUTING", "A US bank routing number, typically nine digits long."},
	{"PASSPORT_NUMBER", "A passport number, ranging from six to nine alphanumeric characters."},
	{"US_INDIVIDUAL_TAX_IDENTIFICATION_NUMBER", "A US Individual Taxpayer Identification Number (ITIN) is a nine-digit number."},
	{"SSN", "A US Social Security Number (SSN) is a nine-digit number."},
	{"ES_NIF", "A spanish NIF number (Personal tax ID)."},
	{"IT_VAT_CODE", "An Italian VAT code number"},
	{"PL_PESEL_NUMBER", "Polish PESEL number"},
	{"SG_NRIC_FIN", "A National Registration Identification Card"},
	{"AU_BUSINESS_NUMBER", "The Australian Business Number (ABN) is a unique 11 digit identifier issued to all entities registered in the Australian Business Register (ABR)."},
	{"AU_COMPANY_NUMBER", "An Australian Company Number is a unique nine-digit number issued by the Australian Securities and Investments Commission to every company registered under the Commonwealth Corporations Act 2001 as an identifier."},
	{"AU_TAX_FILE_NUMBER", "The tax file number (TFN) is a unique identifier issued by the Australian Taxation Office to each taxpaying entity"},
	{"AU_MEDICARE", "Medicare number is a unique identifier issued by Australian Government"},
	{"COMMERCIAL_ITEM", "A branded product."},
	{"EVENT", "An event, such as a festival, concert, election, etc."},
	{"ORGANIZATION", "Large organizations, such as a government, company, religion, sports team, etc."},
	{"PERSON", "Individuals, groups of people, nicknames, fictional characters."},
	{"QUANTITY", "A quantified amount, such as currency, percentages, numbers, bytes, etc."},
	{"TITLE", "An official name given to any creation or creative work, such as movies, books, songs, etc."},
}

// EntityTypes returns the built-in entity inventory.
func EntityTypes() []EntityType {
	return append([]EntityType(nil), entityTypes...)
}

// EntitySchema builds the per-page recognition schema for the named
// entity types. Each page reports the entities found on it; every entity
// is one of the selected types.
func EntitySchema(names []string) (json.RawMessage, error) {
	if len(names) == 0 {
		return nil, &errs.ValidationError{Parameter: "entities", Message: "at least one entity type is required"}
	}
	byName := make(map[string]EntityType, len(entityTypes))
	for _, e := range entityTypes {
		byName[e.Name] = e
	}

	oneOf := make([]map[string]any, 0, len(names))
	for _, name := range names {
		e, ok := byName[name]
		if !ok {
			return nil, &errs.ValidationError{Parameter: "entities", Value: name, Message: "unknown entity type"}
		}
		oneOf = append(oneOf, map[string]any{
			"type": "object",
			"properties": map[string]any{
				e.Name: map[string]any{
					"type":        "string",
					"description": e.Description,
				},
			},
			"required": []string{e.Name},
		})
	}

	schema := map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"page": map[string]any{
					"type":        "integer",
					"description": "The page number of the document",
				},
				"entities": map[string]any{
					"type":        "array",
					"description": "Named entities found in this page",
					"items":       map[string]any{"oneOf": oneOf},
				},
			},
			"required": []string{"page", "entities"},
		},
	}
	return json.Marshal(schema)
}

// EntityRequest is one entity-recognition pass over a document. Entity
// recognition always runs as a single call; sliding windows do not apply.
type EntityRequest struct {
	// Message is the user's instruction, e.g. what part of the document
	// to scan.
	Message string

	// Pages selects which pages to analyze, as in Request.
	Pages []int

	// Entities names the entity types to recognize, from EntityTypes.
	Entities []string

	MaxTokens   int
	Temperature float64
}

// RunEntities recognizes the requested entity types in the document and
// reports them page by page.
func (a *Analyzer) RunEntities(ctx context.Context, docPath string, req *EntityRequest) (*Result, error) {
	schemaRaw, err := EntitySchema(req.Entities)
	if err != nil {
		return nil, err
	}

	doc, err := a.loadDocument(ctx, docPath)
	if err != nil {
		return nil, err
	}
	pages, err := resolvePages(req.Pages, doc.TotalPages, a.Config.MaxPagesPerCall)
	if err != nil {
		return nil, err
	}
	images, err := a.Raster.ToImages(ctx, doc, pages)
	if err != nil {
		return nil, err
	}
	system, err := a.Prompts.Render(prompts.KeyNER, map[string]any{
		"Date":   a.date(),
		"Schema": string(schemaRaw),
	})
	if err != nil {
		return nil, err
	}

	wr, err := a.protocol().Extract(ctx, &extract.Request{
		System:      system,
		Message:     req.Message,
		Pages:       images,
		Schema:      schemaRaw,
		MaxTokens:   a.maxTokens(req.MaxTokens),
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("recognizing entities: %w", err)
	}
	return &Result{Output: wr.Parsed, RetriesUsed: wr.RetriesUsed, Usage: wr.Usage}, nil
}
