package align

// Exports for black-box tests.
var (
	WithAudioTranscriber = withAudioTranscriber
	WithProcessRunner    = withProcessRunner
	WithWhisperXTempDir  = withWhisperXTempDir
	WithRecognizer       = withRecognizer
	NewGCPAlignerWith    = newGCPAligner
	ClassifyGRPC         = classifyGRPC
	CleanWords           = cleanWords
)

type (
	AudioSource      = audioSource
	AudioTranscriber = audioTranscriber
	ProcessRunner    = processRunner
	Recognizer       = recognizer
)
