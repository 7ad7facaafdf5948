// Package archive implements tag-driven archival of files.
//
// An archive rule binds a system tag to an age threshold. For every rule a
// recurring job runs Engine.Run with the tag id. A run pages through all
// files carrying the tag, resolves each one through a mount point that
// grants move permissions, and moves files older than the threshold into
// the owner's archive folder (".archive" by default). Archived files lose
// the tag so later runs do not touch them again.
//
// # Outcomes
//
// A run whose tag no longer exists, or whose rule was deleted, removes its
// own recurring job and returns OutcomeSelfDeregistered. A failure of the
// tag index while paging aborts the run with OutcomeFatalPaginationError.
// A storage error while resolving the tag or loading the rule, or a rule
// without a usable cutoff, ends the run with OutcomeFailed.
// Every other failure is confined to a single file: it is logged, counted
// in SweepStats and the run continues.
//
// # Naming
//
// Moves never overwrite. When the destination name is taken the engine
// probes "name (1).ext", "name (2).ext" and so on until a free name is found.
package archive
