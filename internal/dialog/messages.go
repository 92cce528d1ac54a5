package dialog

// User-facing prompts, one per dialogue step.
const (
	promptStart = "Type \"start\" to set up a commute reminder, or \"weather\" for a forecast."

	promptOrigin      = "Where do you leave from?"
	promptDestination = "Where are you headed?"
	promptMode        = "How do you travel?\n1. Transit\n2. Driving\n3. Walking\n4. Bicycling\nReply with 1-4."
	promptModeRetry   = "Please reply with a number from 1 to 4."
	promptTimeType    = "Should I plan around your departure time or your arrival time? Pick one below."
	promptDateTime    = "Pick the target date and time."
	promptFutureTime  = "That time has already passed. Pick a future date and time."
	promptRemindTime  = "What time should the daily reminder arrive? Use HH:MM, e.g. 07:00."
	promptRemindRetry = "That doesn't look like a time. Use HH:MM, e.g. 07:00."

	promptWeatherPlace  = "Which place's weather would you like?"
	promptWeatherFailed = "I couldn't find weather for that place. Try another name."
)
