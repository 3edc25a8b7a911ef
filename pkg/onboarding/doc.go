/*
Package onboarding implements the hiker-profile onboarding conversation.

The conversation is a deterministic finite-state machine over the fixed state
chain intro → experience → gear → terrain → personality → safety → summary →
confirmation. Each call to Advance fires exactly one transition and appends
exactly one system message to the transcript. Sessions whose state is not
recognized are treated as if they were at intro.

The engine holds no session storage and does no locking: callers must serialize
turns of the same user (see package session).
*/
package onboarding
