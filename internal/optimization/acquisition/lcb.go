package acquisition

// DefaultExplorationWeight is the LCB weight used when none is configured.
const DefaultExplorationWeight = 2.0

// LowerConfidenceBound scores a prediction by beta*sigma - mu, the negated
// lower confidence bound. Larger is better.
type LowerConfidenceBound struct {
	beta float64
}

// NewLowerConfidenceBound returns an LCB with exploration weight beta.
// A non-positive beta selects DefaultExplorationWeight.
func NewLowerConfidenceBound(beta float64) *LowerConfidenceBound {
	if beta <= 0 {
		beta = DefaultExplorationWeight
	}
	return &LowerConfidenceBound{beta: beta}
}

// Compute returns beta*sigma - mu.
func (l *LowerConfidenceBound) Compute(mu, sigma float64) float64 {
	return l.beta*sigma - mu
}

// Gradient returns beta*dsigma - dmu.
func (l *LowerConfidenceBound) Gradient(mu, dmu float64, sigma, dsigma float64) float64 {
	return l.beta*dsigma - dmu
}

// ExplorationWeight returns beta.
func (l *LowerConfidenceBound) ExplorationWeight() float64 { return l.beta }
