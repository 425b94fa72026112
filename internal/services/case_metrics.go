package services

import (
	"github.com/yungbote/prism-backend/internal/modules/review/lifecycle"
	"github.com/yungbote/prism-backend/internal/observability"
)

// AttachMetrics counts lifecycle events and completed RFI sends. A nil m is a no-op.
func AttachMetrics(lc *lifecycle.Lifecycle, m *observability.Metrics) func() {
	if m == nil {
		return func() {}
	}
	return lc.Subscribe(func(ev lifecycle.Event) {
		m.IncCaseEvent(string(ev.Type))
		// a sent round never changes again, so a sent RFI here is the send itself
		if ev.Type == lifecycle.EventRFIUpdated && ev.Case != nil && ev.Case.RFI != nil && ev.Case.RFI.Sent {
			m.IncRFISend("sent")
		}
	})
}
