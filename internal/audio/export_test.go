package audio

// Exports for black-box tests.
var (
	WithCommandRunner = withCommandRunner
	WithFileSystem    = withFileSystem
	ParseDuration     = parseDuration
)

type (
	CommandRunner = commandRunner
	FileSystem    = fileSystem
)
