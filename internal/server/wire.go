package server

import "github.com/sadopc/tempo/internal/remote"

// Request and response bodies shared with the HTTP client backend.

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateRequest struct {
	Year   int            `json:"year,omitempty"`
	Fields map[string]any `json:"fields"`
}

type DocumentList struct {
	Documents []remote.Document `json:"documents"`
}

type ErrorBody struct {
	Error string `json:"error"`
}
