package middleware

import "github.com/byland-ai/byland/pkg/ports"

// Middleware allows wrapping a SessionStore to add behavior.
type Middleware func(ports.SessionStore) ports.SessionStore

// ProfileMiddleware allows wrapping a ProfileStore to add behavior.
type ProfileMiddleware func(ports.ProfileStore) ports.ProfileStore
