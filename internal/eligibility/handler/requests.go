package handler

import (
	"shieldcare/internal/eligibility"
	"shieldcare/internal/health"
	dErrors "shieldcare/pkg/domain-errors"
)

// FormRequest is the body of PUT /eligibility/form and the optional body of
// POST /eligibility/submit. Only the fields present are applied.
type FormRequest struct {
	Age           *string `json:"age,omitempty"`
	BloodPressure *string `json:"bloodPressure,omitempty"`
	BloodSugar    *string `json:"bloodSugar,omitempty"`

	// Populated by Validate, in form order
	edits []eligibility.FieldEdit
}

// Validate collects the present fields. Values are checked by the workflow at
// submission, matching how a user types into the form.
func (r *FormRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.edits = r.edits[:0]
	for _, f := range []struct {
		metric health.Metric
		value  *string
	}{
		{health.MetricAge, r.Age},
		{health.MetricBloodPressure, r.BloodPressure},
		{health.MetricBloodSugar, r.BloodSugar},
	} {
		if f.value == nil {
			continue
		}
		if len(*f.value) > 16 {
			return dErrors.New(dErrors.CodeValidation, string(f.metric)+" must be at most 16 characters")
		}
		r.edits = append(r.edits, eligibility.FieldEdit{Metric: f.metric, Raw: *f.value})
	}
	return nil
}

// Edits returns the validated field edits.
func (r *FormRequest) Edits() []eligibility.FieldEdit {
	return r.edits
}

// IsEmpty reports whether no field was supplied.
func (r *FormRequest) IsEmpty() bool {
	return len(r.edits) == 0
}
