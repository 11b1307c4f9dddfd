package domain

// Weights tune the priority score. Deadline pressure dominates by default.
type Weights struct {
	Impact   float64 `json:"impact"`
	Urgency  float64 `json:"urgency"`
	Deadline float64 `json:"deadline"`
}

// DefaultWeights returns the standard manager weighting (3/2/5).
func DefaultWeights() Weights {
	return Weights{Impact: 3, Urgency: 2, Deadline: 5}
}
