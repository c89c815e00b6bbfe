package contracts

// Category groups indicators by topic for related-story fallback.
type Category string

const (
	CategoryHousing    Category = "housing"
	CategoryInflation  Category = "inflation"
	CategoryEmployment Category = "employment"
	CategoryEconomy    Category = "economy"
	CategoryRates      Category = "rates"
	CategoryDebt       Category = "debt"
)

// PainDirection marks which way a move hurts consumers.
type PainDirection string

const (
	// PainWhenUp: rising values hurt (CPI, gas price, mortgage rate).
	PainWhenUp PainDirection = "up"
	// PainWhenDown: falling values hurt (median income, savings rate).
	PainWhenDown PainDirection = "down"
	// PainNeutral: no direct consumer-pain reading (M2 money supply).
	PainNeutral PainDirection = "neutral"
)

// Indicator is the static descriptor of one tracked economic time series.
// Loaded from the strategy config at run start; immutable afterwards.
type Indicator struct {
	Code           string        `json:"code" yaml:"code"`                       // internal key, e.g. "mortgage_rate_30yr"
	SeriesID       string        `json:"series_id" yaml:"series_id"`             // upstream FRED id, e.g. "MORTGAGE30US"
	Name           string        `json:"name" yaml:"name"`                       // display name
	Category       Category      `json:"category" yaml:"category"`
	Unit           string        `json:"unit" yaml:"unit"`
	InterestWeight float64       `json:"interest_weight" yaml:"interest_weight"` // audience relevance points
	PainDirection  PainDirection `json:"pain_direction" yaml:"pain_direction"`
}
