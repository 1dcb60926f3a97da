package observability

var (
	Enabled     = enabled
	SampleRatio = sampleRatio
	Headers     = headers
)
