/*
Package session runs onboarding turns against durable storage.

The Manager serializes the turns of one user with an in-process mutex (and,
optionally, a distributed lock shared by every replica) so that a turn is a
single load, advance and save that either fully lands or is not taken.
*/
package session
