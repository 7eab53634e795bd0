package domain

// Step identifies the current state of the intake dialogue. The create
// flow advances strictly StepFileNumber → StepAccuser → StepDefendant →
// StepPaymentDate; the edit flow is the single StepEditPaymentDate.
type Step string

const (
	StepNone            Step = ""
	StepFileNumber      Step = "file_number"
	StepAccuser         Step = "accuser"
	StepDefendant       Step = "defendant"
	StepPaymentDate     Step = "payment_date"
	StepEditPaymentDate Step = "edit_payment_date"
)

// ParseStep maps a stored step string back to a Step. Unknown values
// degrade to StepNone so a corrupted session falls back to idle instead
// of wedging the dialogue.
func ParseStep(s string) Step {
	switch Step(s) {
	case StepFileNumber, StepAccuser, StepDefendant, StepPaymentDate, StepEditPaymentDate:
		return Step(s)
	default:
		return StepNone
	}
}
