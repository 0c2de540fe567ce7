package backend

import (
	"fmt"
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Kind names one of the five generation submission shapes.
type Kind string

const (
	KindClone        Kind = "clone"
	KindUploadClone  Kind = "clone_with_upload"
	KindMultiSpeaker Kind = "multi_speaker"
	KindVoiceDesign  Kind = "voice_design"
	KindCustomVoice  Kind = "custom_voice"
)

// DefaultLanguage lets the backend detect the language from the text.
const DefaultLanguage = "auto"

// SupportedLanguages mirrors the backend's accepted language values.
var SupportedLanguages = []string{
	"auto", "Chinese", "English", "Japanese", "Korean", "German",
	"French", "Russian", "Portuguese", "Spanish", "Italian",
}

// SupportedSpeakers mirrors the backend's named speakers for custom voice.
var SupportedSpeakers = []string{
	"Vivian", "Serena", "Uncle_Fu", "Dylan", "Eric", "Ryan", "Aiden", "Ono_Anna", "Sohee",
}

// GenerationRequest is implemented by the five submission variants only.
type GenerationRequest interface {
	Kind() Kind
	// normalized returns a copy with backend defaults applied.
	normalized() GenerationRequest
}

// CloneRequest clones a voice from a previously uploaded reference clip.
type CloneRequest struct {
	Text       string `json:"text" validate:"required,max=10000"`
	RefAudioID string `json:"ref_audio_id" validate:"required,max=200"`
	RefText    string `json:"ref_text,omitempty" validate:"omitempty,max=10000"`
	Language   string `json:"language" validate:"language"`
}

func (CloneRequest) Kind() Kind { return KindClone }

func (r CloneRequest) normalized() GenerationRequest {
	r.Language = languageOrDefault(r.Language)
	return r
}

// UploadCloneRequest uploads a reference clip and clones from it in one step.
type UploadCloneRequest struct {
	Audio    []byte `json:"-" validate:"required,min=1"`
	Filename string `json:"filename" validate:"required"`
	Text     string `json:"text" validate:"required,max=10000"`
	RefText  string `json:"ref_text,omitempty" validate:"omitempty,max=10000"`
	Language string `json:"language" validate:"language"`
}

func (UploadCloneRequest) Kind() Kind { return KindUploadClone }

func (r UploadCloneRequest) normalized() GenerationRequest {
	r.Language = languageOrDefault(r.Language)
	if r.Filename == "" {
		r.Filename = "reference.wav"
	}
	return r
}

// Segment is one speaker turn of a multi-speaker request.
type Segment struct {
	Text       string `json:"text" validate:"required,max=10000"`
	RefAudioID string `json:"ref_audio_id" validate:"required,max=200"`
	RefText    string `json:"ref_text,omitempty" validate:"omitempty,max=10000"`
	Language   string `json:"language" validate:"language"`
}

// MultiSpeakerRequest generates several segments and concatenates them.
type MultiSpeakerRequest struct {
	Segments []Segment `json:"segments" validate:"required,min=1,max=100,dive"`
}

func (MultiSpeakerRequest) Kind() Kind { return KindMultiSpeaker }

func (r MultiSpeakerRequest) normalized() GenerationRequest {
	segs := make([]Segment, len(r.Segments))
	for i, s := range r.Segments {
		s.Language = languageOrDefault(s.Language)
		segs[i] = s
	}
	r.Segments = segs
	return r
}

// VoiceDesignRequest describes a voice with a free-form instruction.
type VoiceDesignRequest struct {
	Text     string `json:"text" validate:"required,max=10000"`
	Instruct string `json:"instruct" validate:"required,max=1000"`
	Language string `json:"language" validate:"language"`
}

func (VoiceDesignRequest) Kind() Kind { return KindVoiceDesign }

func (r VoiceDesignRequest) normalized() GenerationRequest {
	r.Language = languageOrDefault(r.Language)
	return r
}

// CustomVoiceRequest speaks with one of the backend's named speakers.
type CustomVoiceRequest struct {
	Text     string `json:"text" validate:"required,max=10000"`
	Speaker  string `json:"speaker" validate:"required,speaker"`
	Language string `json:"language" validate:"language"`
	Instruct string `json:"instruct,omitempty" validate:"omitempty,max=1000"`
}

func (CustomVoiceRequest) Kind() Kind { return KindCustomVoice }

func (r CustomVoiceRequest) normalized() GenerationRequest {
	r.Language = languageOrDefault(r.Language)
	return r
}

func languageOrDefault(lang string) string {
	if lang == "" {
		return DefaultLanguage
	}
	return lang
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("language", func(fl validator.FieldLevel) bool {
			return slices.Contains(SupportedLanguages, fl.Field().String())
		})
		_ = validate.RegisterValidation("speaker", func(fl validator.FieldLevel) bool {
			return slices.Contains(SupportedSpeakers, fl.Field().String())
		})
	})
	return validate
}

// Normalize applies backend defaults and validates the request against the
// backend's limits. The returned request is the one that should be sent.
func Normalize(req GenerationRequest) (GenerationRequest, error) {
	if req == nil {
		return nil, fmt.Errorf("nil generation request")
	}
	n := req.normalized()
	if err := requestValidator().Struct(n); err != nil {
		return nil, fmt.Errorf("invalid %s request: %w", n.Kind(), err)
	}
	return n, nil
}
