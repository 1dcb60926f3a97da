package ffmpeg

// EnvProvider exposes the environment interface to black-box tests.
type EnvProvider = envProvider
