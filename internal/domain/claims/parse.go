package claims

import (
	"errors"
	"regexp"
	"strings"
)

// NoReasonProvided is recorded when the classifier gives a label without a
// justification.
const NoReasonProvided = "No reason provided."

// ErrNoDecision means the classifier response carried no recognised label.
var ErrNoDecision = errors.New("no decision label in classifier response")

var (
	answerPattern = regexp.MustCompile(`(?i)Answer:\s*(Claim Approved|Claim Cancelled|Claim in review)`)
	reasonPattern = regexp.MustCompile(`(?i)Reason:\s*(.*)`)
)

var canonicalDecisions = map[string]Decision{
	strings.ToLower(string(DecisionApproved)):  DecisionApproved,
	strings.ToLower(string(DecisionCancelled)): DecisionCancelled,
	strings.ToLower(string(DecisionInReview)):  DecisionInReview,
}

// Verdict is a parsed classifier response.
type Verdict struct {
	Decision Decision
	Reason   string
}

// ParseDecision reads the decision label and justification out of free text.
// Labels match case-insensitively and are returned in canonical form. The
// reason is the rest of the first line after "Reason:".
func ParseDecision(text string) (Verdict, error) {
	m := answerPattern.FindStringSubmatch(text)
	if m == nil {
		return Verdict{}, ErrNoDecision
	}
	v := Verdict{
		Decision: canonicalDecisions[strings.ToLower(m[1])],
		Reason:   NoReasonProvided,
	}
	if r := reasonPattern.FindStringSubmatch(text); r != nil {
		if reason := strings.TrimSpace(r[1]); reason != "" {
			v.Reason = reason
		}
	}
	return v, nil
}
