// Package docs registers the control API's OpenAPI document with swag.
// Regenerate with `swag init -g cmd/qvox/docs.go -o internal/httpapi/docs`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Backend and task status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}
            }
        },
        "/tasks/clone": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tasks"],
                "summary": "Start a voice-clone task from a stored reference",
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/types.TaskView"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/tasks/multi-speaker": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tasks"],
                "summary": "Start a multi-speaker task",
                "responses": {"202": {"description": "Accepted", "schema": {"$ref": "#/definitions/types.TaskView"}}}
            }
        },
        "/tasks/voice-design": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tasks"],
                "summary": "Start a voice-design task",
                "responses": {"202": {"description": "Accepted", "schema": {"$ref": "#/definitions/types.TaskView"}}}
            }
        },
        "/tasks/custom-voice": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tasks"],
                "summary": "Start a custom-voice task",
                "responses": {"202": {"description": "Accepted", "schema": {"$ref": "#/definitions/types.TaskView"}}}
            }
        },
        "/tasks/clone-with-upload": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["tasks"],
                "summary": "Start a voice-clone task with an uploaded reference",
                "responses": {"202": {"description": "Accepted", "schema": {"$ref": "#/definitions/types.TaskView"}}}
            }
        },
        "/task": {
            "get": {
                "produces": ["application/json"],
                "tags": ["tasks"],
                "summary": "Current task",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.TaskView"}}}
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["tasks"],
                "summary": "Clear a finished task",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.MessageResponse"}}}
            }
        },
        "/task/cancel": {
            "post": {
                "produces": ["application/json"],
                "tags": ["tasks"],
                "summary": "Cancel the processing task",
                "responses": {"202": {"description": "Accepted", "schema": {"$ref": "#/definitions/types.MessageResponse"}}}
            }
        },
        "/task/audio": {
            "get": {
                "produces": ["audio/wav"],
                "tags": ["tasks"],
                "summary": "Result audio of the current task",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/backend/restart": {
            "post": {
                "produces": ["application/json"],
                "tags": ["backend"],
                "summary": "Restart the backend with its current launch configuration",
                "responses": {"202": {"description": "Accepted", "schema": {"$ref": "#/definitions/types.MessageResponse"}}}
            }
        },
        "/backend/references": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["backend"],
                "summary": "Store a reference clip on the backend",
                "parameters": [
                    {"type": "file", "description": "Reference audio", "name": "file", "in": "formData", "required": true},
                    {"type": "string", "description": "Transcript of the reference", "name": "ref_text", "in": "formData"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/backend.ReferenceAudio"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/backend/references/{id}": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["backend"],
                "summary": "Delete a stored reference clip",
                "parameters": [{"type": "string", "description": "Reference id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.MessageResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/backend/references/{id}/audio": {
            "get": {
                "produces": ["audio/wav"],
                "tags": ["backend"],
                "summary": "Download a stored reference clip",
                "parameters": [{"type": "string", "description": "Reference id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/backend/references/{id}/name": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["backend"],
                "summary": "Rename a stored reference clip",
                "parameters": [
                    {"type": "string", "description": "Reference id", "name": "id", "in": "path", "required": true},
                    {"description": "New display name", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.RenameReferenceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/backend.RenameResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/backend/generated/{id}": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["backend"],
                "summary": "Delete a stored generation result",
                "parameters": [{"type": "string", "description": "Generated audio id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.MessageResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/events": {
            "get": {
                "produces": ["text/event-stream"],
                "tags": ["status"],
                "summary": "Orchestrator event stream",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.EventView"}}}
            }
        }
    },
    "definitions": {
        "backend.ReferenceAudio": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "filename": {"type": "string"},
                "original_name": {"type": "string"},
                "name": {"type": "string"},
                "ref_text": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "backend.RenameResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "name": {"type": "string"}
            }
        },
        "types.RenameReferenceRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "backend not ready"},
                "code": {"type": "integer", "example": 503}
            }
        },
        "types.MessageResponse": {
            "type": "object",
            "properties": {"message": {"type": "string", "example": "cancel requested"}}
        },
        "types.SegmentProgress": {
            "type": "object",
            "properties": {
                "current": {"type": "integer", "example": 2},
                "total": {"type": "integer", "example": 3}
            }
        },
        "types.TaskView": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "kind": {"type": "string", "example": "multi_speaker"},
                "phase": {"type": "string", "example": "processing"},
                "progress": {"type": "integer", "example": 45},
                "label": {"type": "string", "example": "generating segment 2 of 3..."},
                "segments": {"$ref": "#/definitions/types.SegmentProgress"},
                "elapsed_seconds": {"type": "integer"},
                "last_error": {"type": "string"},
                "error_kind": {"type": "string"},
                "has_audio": {"type": "boolean"},
                "audio_bytes": {"type": "integer"},
                "output_path": {"type": "string"},
                "created_unix": {"type": "integer"}
            }
        },
        "types.BackendStatus": {
            "type": "object",
            "properties": {
                "state": {"type": "string", "example": "waiting"},
                "status_text": {"type": "string", "example": "Loading models... (12s)"},
                "elapsed_seconds": {"type": "integer"},
                "error": {"type": "string"},
                "detail": {"type": "string"},
                "last_probe": {"type": "string"},
                "endpoint": {"type": "string", "example": "http://localhost:8000"},
                "pid": {"type": "integer"},
                "alive": {"type": "boolean"}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "backend": {"$ref": "#/definitions/types.BackendStatus"},
                "task": {"$ref": "#/definitions/types.TaskView"},
                "uptime_seconds": {"type": "integer"},
                "server_time_unix": {"type": "integer"}
            }
        },
        "types.EventView": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string", "example": "task_progress"},
                "task_id": {"type": "string"},
                "time_unix_ms": {"type": "integer"},
                "fields": {"type": "object"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "qvox control API",
	Description:      "Supervises the local TTS backend and orchestrates generation tasks.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
