package transcription

import "time"

// Config captures runtime settings for WhisperX operations.
type Config struct {
	// FFmpegBinary extracts audio ahead of transcription.
	FFmpegBinary string
	// Command launches WhisperX (uvx by default).
	Command string
	// Model is the WhisperX model to use (e.g., "base", "large-v3").
	Model string
	// CUDAEnabled enables GPU acceleration.
	CUDAEnabled bool
	// VADMethod selects the voice activity detection method ("silero" or "pyannote").
	VADMethod string
	// HFToken is the Hugging Face token for pyannote VAD.
	HFToken string
	// Language pins the spoken language; empty lets WhisperX detect it.
	Language string
	// Timeout bounds a single transcription, extraction included. Zero disables it.
	Timeout time.Duration
}

// WhisperX configuration constants.
const (
	DefaultModel      = "base"
	CUDAIndexURL      = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL      = "https://pypi.org/simple"
	BatchSize         = "4"
	ChunkSize         = "15"
	VADOnset          = "0.08"
	VADOffset         = "0.07"
	BeamSize          = "5"
	Temperature       = "0.0"
	SegmentResolution = "sentence"
	OutputFormat      = "json"
	CPUDevice         = "cpu"
	CUDADevice        = "cuda"
	CPUComputeType    = "float32"
	VADMethodPyannote = "pyannote"
	VADMethodSilero   = "silero"
)

// Command names for external tools.
const (
	UVXCommand    = "uvx"
	FFmpegCommand = "ffmpeg"
)
