package pipeline

import (
	"context"
	"errors"

	"reelsmith/internal/audio"
	"reelsmith/internal/encode"
	"reelsmith/internal/imaging"
	"reelsmith/internal/services/images"
	"reelsmith/internal/timeline"
)

// Kind buckets render failures for callers that route on cause rather than
// message: retry policy, queue status, API responses.
type Kind string

const (
	KindDecode            Kind = "decode"
	KindFetchTimeout      Kind = "fetch_timeout"
	KindLengthMismatch    Kind = "length_mismatch"
	KindAudioDecode       Kind = "audio_decode"
	KindTranscode         Kind = "transcode"
	KindEncode            Kind = "encode"
	KindResourceExhausted Kind = "resource_exhausted"
	KindCanceled          Kind = "canceled"
	KindUnknown           Kind = "unknown"
)

// Classify maps an error chain to its failure kind. Cancellation wins over
// everything else so an aborted run never reads as a media failure.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, imaging.ErrDecode):
		return KindDecode
	case errors.Is(err, images.ErrFetchTimeout):
		return KindFetchTimeout
	case errors.Is(err, timeline.ErrLengthMismatch):
		return KindLengthMismatch
	case errors.Is(err, audio.ErrAudioDecode):
		return KindAudioDecode
	case errors.Is(err, audio.ErrTranscode):
		return KindTranscode
	case errors.Is(err, encode.ErrResourceExhausted):
		return KindResourceExhausted
	case errors.Is(err, encode.ErrEncode):
		return KindEncode
	default:
		return KindUnknown
	}
}

// Retryable reports whether a failure kind is worth another attempt without
// operator intervention.
func (k Kind) Retryable() bool {
	switch k {
	case KindFetchTimeout, KindTranscode, KindEncode:
		return true
	default:
		return false
	}
}
