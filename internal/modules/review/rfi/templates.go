package rfi

import "github.com/yungbote/prism-backend/internal/domain/review"

// Template is a canned request-for-information body.
type Template struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Body string `json:"body"`
}

var catalog = []Template{
	{
		ID:   "missing_labs",
		Name: "Missing lab results",
		Body: "To complete our review of this prior authorization request, please provide the most recent laboratory results supporting the diagnosis, including dates of collection and reference ranges.",
	},
	{
		ID:   "missing_imaging",
		Name: "Missing imaging report",
		Body: "Please send the radiology report for the imaging referenced in the request, including the study date and the interpreting radiologist's impression.",
	},
	{
		ID:   "clinical_notes",
		Name: "Clinical notes",
		Body: "Please provide clinical notes from the last two office visits documenting symptoms, examination findings and the treatment plan.",
	},
	{
		ID:   "prior_treatment",
		Name: "Prior treatment history",
		Body: "The policy requires documentation of prior conservative or first-line therapy. Please provide the treatments tried, their duration and the patient's response.",
	},
	{
		ID:   "medical_necessity",
		Name: "Letter of medical necessity",
		Body: "Please submit a letter of medical necessity signed by the ordering provider explaining why the requested service is required for this patient.",
	},
}

// Templates returns the catalog in display order.
func Templates() []Template {
	out := make([]Template, len(catalog))
	copy(out, catalog)
	return out
}

func LookupTemplate(id string) (Template, error) {
	for _, t := range catalog {
		if t.ID == id {
			return t, nil
		}
	}
	return Template{}, review.NewError(review.KindUnknownTemplate, "", nil)
}
