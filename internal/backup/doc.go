// Package backup keeps a filesystem copy of catalog metacards in step with
// the create, update and delete batches produced by catalog ingest.
//
// Every metacard is stored as one snapshot file at a path derived from its
// ID. With a shard depth of N, the first N two-character pairs of the ID
// name nested directories, so metacard "abcdef123" at depth 2 lives at
// root/ab/cd/abcdef123.
//
// Files are changed with rename-based protocols so that a reader never sees
// a partial snapshot:
//
//   - Writes go to "<id>.tmp" and are renamed over "<id>".
//   - Deletes rename "<id>" to "<id>.del" (stage) and then remove it
//     (finalize).
//   - Updates stage the old snapshot, write the new one, and finalize the
//     staged file only after the write committed. A failed write leaves the
//     staged file in place.
//
// Temp and staged files left by interrupted work are never removed
// automatically; Scanner lists them for an operator.
//
// Core Components:
//
//   - Coordinator: schedules per-metacard work units and aggregates failures
//   - PathResolver: derives sharded paths and creates shard directories
//   - AtomicWriter / AtomicDeleter: the write and two-phase delete protocols
//   - TaskExecutor: bounded worker pool shared by all batches
//   - ErrorSet / BatchError: per-batch failure collection and reporting
//   - Codec: self-describing snapshot envelope with optional compression and
//     encryption
//
// Example usage:
//
//	coordinator, err := backup.NewCoordinator(backup.Config{
//		RootDir:    "/var/lib/catalog/backup",
//		ShardDepth: 2,
//		Workers:    64,
//	})
//	if err != nil {
//		return err
//	}
//
//	if _, err := coordinator.HandleCreate(ctx, created); err != nil {
//		if batchErr, ok := backup.AsBatchError(err); ok {
//			log.Printf("failed: %v", batchErr.FailedIDs(backup.CategoryBackup))
//		}
//		return err
//	}
package backup
