package lifecycle

import (
	"context"

	"github.com/yungbote/prism-backend/internal/domain/review"
)

// Request is what the analysis engine needs to evaluate one case.
type Request struct {
	CaseID      string
	Attempt     int
	DocumentRef string
	PolicyID    string
	PolicyText  string
	ProviderID  string
}

// AnalysisGateway submits a document and policy to the analysis engine and
// waits for its verdict. Implementations should return a *review.Error of kind
// AnalysisRejected when the engine refuses the input; any other error is
// treated as the engine being unavailable.
type AnalysisGateway interface {
	Analyze(ctx context.Context, req Request) (review.VerdictInput, error)
}

type PolicyCatalog interface {
	Get(id string) (review.Policy, bool)
}
