// Package translate routes subtitle segments between a fast machine engine
// and a creative chat-completions engine.
//
// Each segment moves through a small state machine: the router estimates the
// segment's creativity to pick a primary engine, scores the candidate with
// cheap structural signals, and falls back to the other engine at most once
// when the candidate scores below the threshold. Engines that fail
// authoritatively (auth, quota) trip a sticky breaker so dead credentials do
// not burn every remaining segment.
package translate
