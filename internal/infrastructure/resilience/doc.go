/*
Package resilience provides the circuit breakers guarding outbound calls.

# Overview

Scripts call third-party APIs through the runner. A host that keeps failing
trips its breaker, after which calls to it fail fast until the breaker lets
a probe through.

# Usage

	group := resilience.NewGroup(resilience.Settings{
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 10
		},
	})

	err := group.Get("api.example.com").Execute(func() error {
		return call()
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open
*/
package resilience
