package propose

// Exports for black-box tests.

var (
	WithChatCompleter = withChatCompleter
	ParseCount        = parseCount
	ParseBorders      = parseBorders
	BuildBorderPrompt = buildBorderPrompt
	ClassifyError     = classifyError
)

// ChatCompleter exposes the client interface to the test package.
type ChatCompleter = chatCompleter
