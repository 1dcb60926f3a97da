package align

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/alnah/go-videochunk/internal/apierr"
	"github.com/alnah/go-videochunk/internal/audio"
	"github.com/alnah/go-videochunk/internal/lang"
	"github.com/alnah/go-videochunk/internal/transcript"
)

// Google credential environment variables. The JSON variant holds the key
// itself; the other one a path to it.
const (
	EnvGoogleCredentialsJSON = "GOOGLE_APPLICATION_CREDENTIALS_JSON"
	EnvGoogleCredentials     = "GOOGLE_APPLICATION_CREDENTIALS"
)

const (
	defaultGCPMaxRetries = 4
	defaultGCPBaseDelay  = 2 * time.Second
	defaultGCPMaxDelay   = 30 * time.Second
	gcpOperationTimeout  = 30 * time.Minute
)

// recognizer runs a long-running recognition to completion.
type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error)
}

// speechRecognizer adapts *speech.Client to recognizer.
type speechRecognizer struct {
	client *speech.Client
}

func (s speechRecognizer) Recognize(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
	op, err := s.client.LongRunningRecognize(ctx, req)
	if err != nil {
		return nil, err
	}
	return op.Wait(ctx)
}

// ClientOptionsFromEnv builds credential options from the environment.
// With neither variable set, Application Default Credentials apply.
func ClientOptionsFromEnv(getenv func(string) string) []option.ClientOption {
	creds := strings.TrimSpace(getenv(EnvGoogleCredentialsJSON))
	if creds == "" {
		creds = strings.TrimSpace(getenv(EnvGoogleCredentials))
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

// GCPAligner gets word time offsets from Google Speech-to-Text.
type GCPAligner struct {
	rec        recognizer
	src        audioSource
	language   string
	model      string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	onRetry    func(attempt int, err error, delay time.Duration)
	closer     func() error
}

// GCPOption configures a GCPAligner.
type GCPOption func(*GCPAligner)

// WithGCPLanguage sets the recognition language; base codes get a default region.
func WithGCPLanguage(code string) GCPOption {
	return func(a *GCPAligner) { a.language = lang.BCP47(code) }
}

// WithGCPModel sets the recognition model ("video", "latest_long").
func WithGCPModel(model string) GCPOption {
	return func(a *GCPAligner) { a.model = model }
}

// WithGCPRetry sets the retry budget and delays.
func WithGCPRetry(maxRetries int, base, max time.Duration) GCPOption {
	return func(a *GCPAligner) {
		if maxRetries >= 0 {
			a.maxRetries = maxRetries
		}
		if base > 0 {
			a.baseDelay = base
		}
		if max > 0 {
			a.maxDelay = max
		}
	}
}

// WithGCPRetryHook registers a callback invoked before each retry.
func WithGCPRetryHook(fn func(attempt int, err error, delay time.Duration)) GCPOption {
	return func(a *GCPAligner) { a.onRetry = fn }
}

// withRecognizer replaces the speech client (for testing).
func withRecognizer(r recognizer) GCPOption {
	return func(a *GCPAligner) { a.rec = r }
}

func newGCPAligner(rec recognizer, src audioSource, opts ...GCPOption) *GCPAligner {
	a := &GCPAligner{
		rec:        rec,
		src:        src,
		language:   lang.BCP47(""),
		maxRetries: defaultGCPMaxRetries,
		baseDelay:  defaultGCPBaseDelay,
		maxDelay:   defaultGCPMaxDelay,
		closer:     func() error { return nil },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewGCPAligner dials Speech-to-Text with the given client options.
// Close releases the connection.
func NewGCPAligner(ctx context.Context, src audioSource, clientOpts []option.ClientOption, opts ...GCPOption) (*GCPAligner, error) {
	c, err := speech.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	a := newGCPAligner(speechRecognizer{client: c}, src, opts...)
	a.closer = c.Close
	return a, nil
}

// Close releases the underlying client.
func (a *GCPAligner) Close() error {
	return a.closer()
}

// Align sends the audio track as inline 16 kHz mono FLAC and collects word
// offsets from the top alternative of every result. text is not used:
// Speech-to-Text has no forced-alignment mode.
func (a *GCPAligner) Align(ctx context.Context, mediaPath, _ string) (Alignment, error) {
	ctx, cancel := context.WithTimeout(ctx, gcpOperationTimeout)
	defer cancel()

	audioPath, cleanup, err := a.src.Extract(ctx, mediaPath, audio.FLAC)
	if err != nil {
		return Alignment{}, fmt.Errorf("extract audio: %w", err)
	}
	defer cleanup()

	content, err := os.ReadFile(audioPath) // #nosec G304 -- temp file written by the extractor
	if err != nil {
		return Alignment{}, fmt.Errorf("read extracted audio: %w", err)
	}

	req := &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_FLAC,
			SampleRateHertz:            int32(audio.FLAC.SampleRate),
			AudioChannelCount:          1,
			LanguageCode:               a.language,
			Model:                      a.model,
			EnableWordTimeOffsets:      true,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: content},
		},
	}
	cfg := apierr.RetryConfig{
		Op:         "speech recognition",
		MaxRetries: a.maxRetries,
		BaseDelay:  a.baseDelay,
		MaxDelay:   a.maxDelay,
		Jitter:     retryJitter,
		OnRetry:    a.onRetry,
	}

	resp, err := apierr.RetryWithBackoff(ctx, cfg, func() (*speechpb.LongRunningRecognizeResponse, error) {
		resp, err := a.rec.Recognize(ctx, req)
		if err != nil {
			return nil, classifyGRPC(err)
		}
		return resp, nil
	}, apierr.IsRetryable)
	if err != nil {
		return Alignment{}, fmt.Errorf("recognize %s: %w", mediaPath, err)
	}

	var words []transcript.WordTiming
	for _, r := range resp.GetResults() {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		for _, w := range alts[0].GetWords() {
			words = append(words, transcript.WordTiming{
				Word:  w.GetWord(),
				Start: seconds(w.GetStartTime()),
				End:   seconds(w.GetEndTime()),
			})
		}
	}
	return finish(ctx, a.src, mediaPath, words, 0)
}

func seconds(d *durationpb.Duration) float64 {
	if d == nil {
		return 0
	}
	return float64(d.GetSeconds()) + float64(d.GetNanos())/1e9
}

// classifyGRPC maps gRPC status codes to sentinel errors.
func classifyGRPC(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("recognition timed out: %w", apierr.ErrTimeout)
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.Internal:
		return fmt.Errorf("%s: %w", st.Message(), apierr.ErrTimeout)
	case codes.ResourceExhausted:
		return fmt.Errorf("%s: %w", st.Message(), apierr.ErrRateLimit)
	case codes.Unauthenticated:
		return fmt.Errorf("%s: %w", st.Message(), apierr.ErrAuthFailed)
	case codes.PermissionDenied, codes.InvalidArgument, codes.NotFound, codes.FailedPrecondition:
		return fmt.Errorf("%s: %w", st.Message(), apierr.ErrBadRequest)
	}
	return err
}
