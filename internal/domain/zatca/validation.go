// Package zatca contains the domain rules for ZATCA e-invoicing: validation
// classification of authority responses and the monetary totals that must be
// byte-identical between the hashed XML and what the authority re-computes.
package zatca

// SuppressedWarningCode is a benign warning the gateway attaches to otherwise
// valid documents; it is stripped before classification.
const SuppressedWarningCode = "BR-KSA-98"

// Validation statuses.
const (
	StatusPass    = "PASS"
	StatusWarning = "WARNING"
	StatusError   = "ERROR"
)

// ValidationMessage is one coded message from the authority's validation
// results, preserved verbatim for operator visibility.
type ValidationMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationOutcome is the classified result of a document validation.
type ValidationOutcome struct {
	Status   string
	Warnings map[string]string // code -> message
	Errors   map[string]string // code -> message
}

// Classify maps the authority's warning and error lists to an outcome after
// suppressing the known benign warning code. Any error forces ERROR; no
// errors and no remaining warnings is PASS; otherwise WARNING.
func Classify(warnings, errors []ValidationMessage) ValidationOutcome {
	out := ValidationOutcome{
		Warnings: map[string]string{},
		Errors:   map[string]string{},
	}
	for _, w := range warnings {
		if w.Code == SuppressedWarningCode {
			continue
		}
		out.Warnings[w.Code] = w.Message
	}
	for _, e := range errors {
		out.Errors[e.Code] = e.Message
	}

	switch {
	case len(out.Errors) > 0:
		out.Status = StatusError
	case len(out.Warnings) > 0:
		out.Status = StatusWarning
	default:
		out.Status = StatusPass
	}
	return out
}
