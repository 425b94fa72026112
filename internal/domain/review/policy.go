package review

// Policy is a payer coverage policy a case is evaluated against.
type Policy struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`
	// Criteria is the policy text handed to the analysis engine.
	Criteria string `json:"criteria,omitempty" yaml:"criteria"`
}
