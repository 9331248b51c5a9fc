package application

// Chat keywords. The transport renders these as keyboard buttons; typed text
// is matched case-insensitively.
const (
	KeywordStart          = "/start"
	KeywordBack           = "back"
	KeywordVolumeWeight   = "volume and weight"
	KeywordVolumeOnly     = "volume only"
	KeywordWeightOnly     = "weight only"
	KeywordDescribe       = "describe cargo"
	KeywordRequestQuote   = "request quote"
	KeywordNewCalculation = "new calculation"
	KeywordSkip           = "skip"
)

const (
	msgWelcome = "Welcome! I can estimate delivery costs from Turkey.\n" +
		"How would you like to describe your cargo?\n" +
		"• volume and weight\n• volume only\n• weight only\n• describe cargo"

	msgUseButtons = "Please pick one of the options or send /start to begin."

	msgPromptVolume      = "Enter the cargo volume in m³ (for example 2.5):"
	msgPromptWeight      = "Enter the cargo weight in kg:"
	msgPromptDescription = "Describe your cargo in a few words (at least 10 characters):"
	msgPromptCity        = "Which city should we deliver to?"
	msgPromptName        = "Great! What is your name?"
	msgPromptContact     = "How can we reach you? Send a phone (+...) or an email:"
	msgPromptCompany     = "Your company name (or \"skip\"):"

	msgInvalidVolume      = "Volume must be a positive number, e.g. 2.5 or 2,5. Try again:"
	msgInvalidWeight      = "Weight must be a positive number. Try again:"
	msgInvalidDescription = "That description is too short — at least 10 characters, please:"
	msgInvalidCity        = "Please send a city name (at least 2 characters):"
	msgInvalidName        = "Please send your name (at least 2 characters):"
	msgInvalidContact     = "That doesn't look like a phone or email. A phone starts with + and has at least 10 digits:"
	msgInvalidCompany     = "Company name is too short. Send it again or \"skip\":"

	msgResultActions = "What next?\n• request quote — leave your contacts\n• new calculation — start over"
	msgReplyHint     = "Please answer the question above, or send \"back\" to start over."
	msgNoRates       = "Rates are not loaded yet. Please try again later."
	msgLeadThanks    = "Thank you! Our manager will contact you shortly."

	msgUploadNotAllowed   = "You are not allowed to update rate tables."
	msgUploadUnsupported  = "Document uploads are not handled on this channel."
	msgDescriptionResult  = "Thanks! For cargo like \"%s\" to %s, our manager will prepare an individual estimate."
	msgHubRoutedNote      = "Delivery to %s only; onward delivery to %s is priced separately."
	msgQuoteResult        = "Delivery to %s\nVolume: %s m³, weight: %s kg\nPrice bracket: up to %d m³\nEstimated cost: %.2f %s"
	msgQuoteValidUntil    = "Rates valid until %s."
	msgCalculationFailure = "Could not compute an estimate right now. Please try again later."
)
