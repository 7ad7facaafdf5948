// Package filestore gives the archive engine access to user file trees.
//
// Each user's files live in a go-billy filesystem. On disk the tree of user
// "alice" is rooted at <data_dir>/alice/files; tests use in-memory trees.
// The package provides:
//
//   - Workspaces: opens archive.Workspace handles per user
//   - Resolver: archive.NodeResolver backed by the node index
//   - Mover: archive.Filesystem, renames inside the owner's tree and keeps
//     the node index in sync
//   - Scanner: indexes a user's files and their home mount
package filestore
