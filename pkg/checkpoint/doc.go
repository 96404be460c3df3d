// Package checkpoint saves and restores harvest progress.
//
// A checkpoint is a JSON sidecar stored next to the snapshot it describes
// (<snapshot>.checkpoint.json). It tracks:
//   - the "before" cursor of every live collection
//   - collections whose queries ran dry
//   - round and record counts
//   - whether the snapshot has already been anonymized
//
// Checkpoint files are written atomically and carry a version number so
// older files can be recognized.
package checkpoint
