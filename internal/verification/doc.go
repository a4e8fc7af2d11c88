// Package verification provides the publisher verification suite: the
// conformance checks any implementation registered with package impl can be
// run against.
//
// # Running the Suite
//
// The suite is run through the runner package or the CLI:
//
//	streamtck run --impl reference
//	streamtck run --impl unicast --with-tags required
//
// # Check Naming
//
// Check IDs follow the rule they verify and carry a prefix that matches their
// tags:
//   - required_*: Required, must pass for every implementation
//   - optional_*: Subscribers(n) or Additional, skipped when unsupported
//   - stochastic_*: Stochastic, a failing assertion is inconclusive
//   - untested_*: NotVerified, informational only
//
// # Adding a Check
//
// Append to the slice in PublisherSuite with check.New and the tags that
// describe it:
//
//	check.New("optional_spec111_maySupportMultiSubscribe", "1.11",
//	    "publisher may support multiple subscribers",
//	    maySupportMultiSubscribe, tag.Subscribers{N: 2}),
//
// Bodies obtain the publisher under test through the helpers in helpers.go and
// report rule violations with check.Failf.
package verification
