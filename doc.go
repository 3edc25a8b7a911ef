/*
Package byland onboards hikers through a short conversation and assembles trip
plans from independent producer agents.

# Concept

Onboarding is a fixed, linear state machine (intro, experience, gear, terrain,
personality, safety, summary, confirmation). Each user turn fires exactly one
transition, appends exactly one system message to the transcript and is made
durable before it is acknowledged. A confirmed conversation yields a
HikerProfile.

Trip planning fans a TripRequest out to four producers (route, gear, weather,
permits) concurrently and merges their results into a single TripPlan. Any
producer failure, timeout or malformed output fails the whole plan.

# Usage

	app := byland.New()

	res, err := app.Turn(ctx, "hiker-42", "hello")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Diff.Appended[0].Content)

	plan, err := app.Plan(ctx, domain.TripRequest{Origin: "Trailhead", Destination: "Summit", Days: 3})

Storage, distributed locking, logging and metrics are injected with Options;
see cmd/byland for a fully configured HTTP, MCP and CLI host.
*/
package byland
