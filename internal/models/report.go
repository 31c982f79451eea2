package models

type Suitability string

const (
	SuitabilityHigh   Suitability = "High"
	SuitabilityMedium Suitability = "Medium"
	SuitabilityLow    Suitability = "Low"
)

type AggregateReport struct {
	Suitability  Suitability `json:"suitability"`
	Strengths    []string    `json:"strengths"`
	Weaknesses   []string    `json:"weaknesses"`
	FinalComment string      `json:"final_comment"`
}

// QAResult is one graded answer as handed to the report aggregator.
type QAResult struct {
	Question  string  `json:"question"`
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}
