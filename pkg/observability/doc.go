/*
Package observability turns onboarding and planning lifecycle events into
Prometheus metrics.

Metrics.Hooks returns domain.LifecycleHooks that can be merged with any other
hooks (for example structured logging) and handed to the onboarding engine and
the plan aggregator.
*/
package observability
