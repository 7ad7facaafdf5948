// Package health reports liveness and readiness of the archiver.
//
// Components register a CheckFunc under a name; the readiness endpoint runs
// all of them concurrently with a per-check timeout. The metadata store and
// the rule store register a ping each.
package health
