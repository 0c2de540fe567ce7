package backend

// TaskStatus is the backend-reported coarse status of a generation task.
type TaskStatus string

const (
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
	StatusCancelled  TaskStatus = "cancelled"
)

// Terminal reports whether no further progress is expected for the status.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	// VoiceClonerLoaded is the backend's "models loaded" flag; the backend is
	// usable for generation only once it is true.
	VoiceClonerLoaded bool     `json:"voice_cloner_loaded"`
	LoadedModels      []string `json:"loaded_models"`
}

// CapabilitiesResponse is returned by GET /capabilities.
type CapabilitiesResponse struct {
	Models   []string `json:"models"`
	Speakers []string `json:"speakers"`
}

// LanguagesResponse is returned by GET /languages.
type LanguagesResponse struct {
	Languages []string `json:"languages"`
}

// SubmitResponse is shared by all generation endpoints.
type SubmitResponse struct {
	TaskID        string   `json:"task_id"`
	Status        string   `json:"status"`
	OutputPath    *string  `json:"output_path,omitempty"`
	Message       string   `json:"message"`
	EstimatedTime *float64 `json:"estimated_time,omitempty"`
}

// TaskStatusResponse is returned by GET /tasks/{task_id}.
type TaskStatusResponse struct {
	Status                TaskStatus `json:"status"`
	Progress              int        `json:"progress"`
	OutputPath            *string    `json:"output_path,omitempty"`
	RefAudioID            *string    `json:"ref_audio_id,omitempty"`
	GenerationTimeSeconds *float64   `json:"generation_time_seconds,omitempty"`
	Error                 *string    `json:"error,omitempty"`
	// Multi-speaker fields, present only for multi-segment tasks.
	IsMultiSpeaker *bool `json:"is_multi_speaker,omitempty"`
	TotalSegments  *int  `json:"total_segments,omitempty"`
	CurrentSegment *int  `json:"current_segment,omitempty"`
}

// CancelResponse is returned by POST /tasks/{task_id}/cancel.
type CancelResponse struct {
	Message string `json:"message"`
}

// ReferenceAudio describes an uploaded reference clip.
type ReferenceAudio struct {
	ID           string  `json:"id"`
	Filename     string  `json:"filename"`
	OriginalName string  `json:"original_name"`
	Name         *string `json:"name,omitempty"`
	RefText      *string `json:"ref_text,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

// GeneratedAudio describes a stored generation result.
type GeneratedAudio struct {
	ID                    string   `json:"id"`
	Filename              string   `json:"filename"`
	RefAudioID            *string  `json:"ref_audio_id,omitempty"`
	RefAudioName          *string  `json:"ref_audio_name,omitempty"`
	GeneratedText         string   `json:"generated_text"`
	CreatedAt             string   `json:"created_at"`
	GenerationTimeSeconds *float64 `json:"generation_time_seconds,omitempty"`
}

// RenameResponse is returned by PUT /references/{id}/name.
type RenameResponse struct {
	Message string `json:"message"`
	Name    string `json:"name"`
}

// DeleteResponse is returned by the DELETE endpoints.
type DeleteResponse struct {
	Message string `json:"message"`
}
