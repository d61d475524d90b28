package assemblyai

// Transcript statuses returned by the API.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Speech models accepted by the API.
const (
	ModelUniversal = "universal"
	ModelSlam1     = "slam-1"
)

// Word is one recognized word with millisecond timing.
type Word struct {
	Text       string  `json:"text"`
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	Confidence float64 `json:"confidence"`
	Speaker    string  `json:"speaker,omitempty"`
}

// Utterance is a per-speaker segment with nested words.
type Utterance struct {
	Speaker    string  `json:"speaker"`
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	Confidence float64 `json:"confidence"`
	Text       string  `json:"text"`
	Words      []Word  `json:"words,omitempty"`
}

// Transcript is the API transcript resource.
type Transcript struct {
	ID            string      `json:"id"`
	Status        string      `json:"status"`
	Text          string      `json:"text"`
	Confidence    float64     `json:"confidence"`
	AudioDuration float64     `json:"audio_duration"`
	Error         string      `json:"error,omitempty"`
	Words         []Word      `json:"words,omitempty"`
	Utterances    []Utterance `json:"utterances,omitempty"`
}

// TranscriptParams is the request body for submitting a transcription job.
type TranscriptParams struct {
	AudioURL            string   `json:"audio_url"`
	SpeechModel         string   `json:"speech_model,omitempty"`
	LanguageCode        string   `json:"language_code,omitempty"`
	SpeakerLabels       bool     `json:"speaker_labels,omitempty"`
	SpeakersExpected    *int     `json:"speakers_expected,omitempty"`
	MinSpeakersExpected *int     `json:"min_speakers_expected,omitempty"`
	MaxSpeakersExpected *int     `json:"max_speakers_expected,omitempty"`
	KeytermsPrompt      []string `json:"keyterms_prompt,omitempty"`
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}
