package domain

import "errors"

// ErrSessionNotFound is returned when a user has no stored conversation session.
var ErrSessionNotFound = errors.New("session not found")

// ErrProfileNotFound is returned when a user has no stored hiker profile.
var ErrProfileNotFound = errors.New("profile not found")

// ErrInvalidTripRequest marks trip parameters rejected before any producer runs.
var ErrInvalidTripRequest = errors.New("invalid trip request")

// ErrProducerFailed marks a failure (or timeout) of one of the trip producers.
var ErrProducerFailed = errors.New("trip producer failed")

// ErrPersistence marks a retryable failure to durably store a session or profile.
var ErrPersistence = errors.New("persistence failure")

// GenericFailureReply is shown to the user when a turn could not be stored.
const GenericFailureReply = "Something went wrong, please try again."
