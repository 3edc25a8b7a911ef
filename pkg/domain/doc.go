/*
Package domain contains the core data contracts for the ByLand trip-planning assistant.

It defines the entities shared by the onboarding conversation engine and the trip
plan aggregator. This package is kept pure and free of external dependencies like
I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - OnboardingState: the closed, ordered set of onboarding steps.
  - Session: one user's conversation (current state, collected fields, transcript).
  - HikerProfile: the materialized profile written once the user confirms.
  - TripRequest / TripPlan: the aggregator's input and merged output.
  - LifecycleHooks: callbacks fired on transitions and producer calls.
*/
package domain
