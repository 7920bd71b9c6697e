// Package edgar retrieves XBRL company facts from the SEC EDGAR API.
package edgar

// CompanyFacts represents the EDGAR company facts JSON-LD structure.
type CompanyFacts struct {
	CIK        int               `json:"cik"`
	EntityName string            `json:"entityName"`
	Facts      map[string]FactNS `json:"facts"`
}

// FactNS groups facts by namespace (e.g., "us-gaap", "dei").
type FactNS map[string]Fact

// Fact is a single XBRL fact with its units and values.
type Fact struct {
	Label       string                 `json:"label"`
	Description string                 `json:"description"`
	Units       map[string][]FactValue `json:"units"`
}

// FactValue is a single data point for a fact.
type FactValue struct {
	Start string  `json:"start,omitempty"`
	End   string  `json:"end"`
	Val   float64 `json:"val"`
	Accn  string  `json:"accn"`
	FY    int     `json:"fy"`
	FP    string  `json:"fp"`
	Form  string  `json:"form"`
	Filed string  `json:"filed"`
	Frame string  `json:"frame,omitempty"`
}

// FilingData bundles everything the extraction stage needs for one
// registrant: the raw fact data plus registrant metadata from the
// submissions endpoint.
type FilingData struct {
	Ticker     string        `json:"ticker"`
	CIK        int           `json:"cik"`
	EntityName string        `json:"entity_name"`
	SIC        *int          `json:"sic,omitempty"`
	Facts      *CompanyFacts `json:"facts"`
}
