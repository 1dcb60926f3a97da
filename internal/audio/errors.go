package audio

import "errors"

// ErrFileNotFound indicates the media file does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrExtractFailed indicates FFmpeg could not produce the audio track.
var ErrExtractFailed = errors.New("audio extraction failed")

// ErrTooLarge indicates the extracted audio exceeds the format's upload limit.
var ErrTooLarge = errors.New("extracted audio exceeds upload limit")

// ErrNoDuration indicates FFmpeg output carried no duration.
var ErrNoDuration = errors.New("could not determine media duration")
