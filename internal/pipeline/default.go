package pipeline

// Artifact names shared between stage contracts. Both the extraction and
// separation stages publish ArtifactAudio so downstream consumers resolve to
// the cleaned track when separation ran and the raw track when it did not.
const (
	ArtifactAudio        = "audio.wav"
	ArtifactSpeech       = "speech.json"
	ArtifactTranscript   = "transcript.json"
	ArtifactAligned      = "aligned.json"
	ArtifactTranslations = "translations.json"
	ArtifactSubtitles    = "subtitles.srt"
	ArtifactOutput       = "output.mkv"
)

// Canonical stage names.
const (
	StageExtract      = "extract"
	StageSeparate     = "separate"
	StageDetectSpeech = "detect_speech"
	StageTranscribe   = "transcribe"
	StageAlign        = "align"
	StageTranslate    = "translate"
	StageSubtitle     = "subtitle"
	StageMux          = "mux"
)

// DefaultRegistry returns the built-in pipeline: extraction through muxing.
// Vocal separation is the one skippable stage; every other failure is fatal.
func DefaultRegistry() (*Registry, error) {
	return NewRegistry([]StageDefinition{
		{
			Name:           StageExtract,
			RuntimeProfile: "media",
			Inputs:         nil, // source file is supplied by the orchestrator
			Outputs:        []string{ArtifactAudio},
			Policy:         PolicyFatal,
		},
		{
			Name:           StageSeparate,
			RuntimeProfile: "separation",
			Inputs:         []ArtifactRef{{Name: ArtifactAudio}},
			Outputs:        []string{ArtifactAudio},
			Policy:         PolicySkippable,
		},
		{
			Name:           StageDetectSpeech,
			RuntimeProfile: "speech",
			Inputs:         []ArtifactRef{{Name: ArtifactAudio}},
			Outputs:        []string{ArtifactSpeech},
			Policy:         PolicyFatal,
		},
		{
			Name:           StageTranscribe,
			RuntimeProfile: "speech",
			Inputs: []ArtifactRef{
				{Name: ArtifactAudio},
				{Name: ArtifactSpeech},
			},
			Outputs: []string{ArtifactTranscript},
			Policy:  PolicyFatal,
		},
		{
			Name:           StageAlign,
			RuntimeProfile: "speech",
			Inputs: []ArtifactRef{
				{Name: ArtifactTranscript, From: StageTranscribe},
				{Name: ArtifactAudio},
			},
			Outputs: []string{ArtifactAligned},
			Policy:  PolicyFatal,
		},
		{
			Name:           StageTranslate,
			RuntimeProfile: "native",
			Aliases:        []string{"translate_batch", "translate_llm"},
			Inputs:         []ArtifactRef{{Name: ArtifactAligned}},
			Outputs:        []string{ArtifactTranslations},
			Policy:         PolicyFatal,
		},
		{
			Name:           StageSubtitle,
			RuntimeProfile: "media",
			Inputs: []ArtifactRef{
				{Name: ArtifactAligned},
				{Name: ArtifactTranslations},
			},
			Outputs: []string{ArtifactSubtitles},
			Policy:  PolicyFatal,
		},
		{
			Name:           StageMux,
			RuntimeProfile: "media",
			Inputs:         []ArtifactRef{{Name: ArtifactSubtitles}},
			Outputs:        []string{ArtifactOutput},
			Policy:         PolicyFatal,
		},
	})
}
