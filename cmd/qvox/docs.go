package main

// General API documentation for swaggo.
// Regenerate with: swag init -g cmd/qvox/docs.go -o internal/httpapi/docs
//
// @title           qvox control API
// @version         1.0
// @description     Supervises the local TTS backend and orchestrates generation tasks.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
