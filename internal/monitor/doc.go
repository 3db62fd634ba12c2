// Package monitor watches the registered players of each guild while they
// sit in voice, detects the external match they play together and hands
// every finished match to a consumer at most once.
//
// Each guild has one session, driven by one goroutine:
//
//	Dormant -> Armed -> InGame -> Finalizing -> Armed | Dormant
//
// A session is armed when at least two registered players are in voice.
// Once a match has been found the session no longer reacts to people
// leaving voice or to shutdown until the match has been classified and
// dispatched.
package monitor
