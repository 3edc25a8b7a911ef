/*
Package ports defines the driven ports (interfaces) for the ByLand core.

These interfaces decouple the onboarding engine and plan aggregator from external
implementations, allowing them to work with various storage backends and trip
data sources.

# Key Interfaces

  - SessionStore: persists and loads onboarding Sessions.
  - ProfileStore: persists confirmed HikerProfiles.
  - DistributedLocker: provides distributed locking for concurrent turns of the same user.
  - RoutePlanner, GearSuggester, WeatherForecaster, PermitsChecker: the four trip producers.
*/
package ports
