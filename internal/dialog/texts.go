package dialog

// Flow prompts, phrased for Telegram Markdown.
const (
	promptFileNumber      = "Let's add a new case. Please send the *File Number*:"
	promptAccuser         = "Got it. Now send the *Accuser* name:"
	promptDefendant       = "Now send the *Defendant* name:"
	promptPaymentDate     = "Finally, send the *Payment Date* (YYYY-MM-DD):"
	promptEditPaymentDate = "Send new *payment date* (YYYY-MM-DD):"

	repromptFileNumber = "File number cannot be empty. Please send a valid file number:"
	repromptAccuser    = "Accuser name cannot be empty. Please send a valid accuser name:"
	repromptDefendant  = "Defendant name cannot be empty. Please send a valid defendant name:"
)

// Abort reasons, shown to the user before the dialogue resets to idle.
const (
	reasonBadDate      = "Invalid date format. Please use YYYY-MM-DD format."
	reasonFutureDate   = "Payment date cannot be in the future."
	reasonExpired      = "This case has already expired. The deadline was in the past. Cases that have expired cannot be saved."
	reasonMissingData  = "Missing required case information. Please start over."
	reasonDuplicateFmt = "A case with file number %q already exists."
	reasonCaseNotFound = "Case not found."
	reasonInternal     = "An error occurred while processing your request. Please try again later."
)
