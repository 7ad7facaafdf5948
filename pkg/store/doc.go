// Package store persists the archiver's metadata in SQLite.
//
// One Store holds every table the archiver reads and writes:
//
//   - archive_rules: one row per rule, unique per tag
//   - system_tags and tag_objects: the tag catalog and the tag index
//   - file_nodes: the node index (owner, path, timestamps) per object id
//   - mounts: the mount points through which objects are reachable
//   - jobs: registrations of recurring invocations
//
// Two drivers are supported. "sqlite" is the pure-Go modernc.org/sqlite
// driver and is the default; "sqlite3" is github.com/mattn/go-sqlite3 and
// requires cgo.
//
// # Basic Usage
//
//	st, err := store.Open(&store.Config{Path: "data/archiver.db"})
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	rule := &archive.Rule{TagID: 4, TimeUnit: archive.UnitMonth, TimeAmount: 6}
//	if err := st.CreateRule(ctx, rule); err != nil {
//	    return err
//	}
//
// Store satisfies archive.TagCatalog, archive.RuleStore, archive.TagIndex and
// archive.MountResolver, so it can be handed to archive.NewEngine directly.
package store
