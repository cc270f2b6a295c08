// Package ingest decides which entries of the watched directory are ready to
// be classified.
//
// The Scanner applies the readiness filter in a fixed order (regular file,
// ignored extension, whitelisted extension, minimum age, already processed,
// lock probe). Files that are not ready yet are handed to a Deferrer, usually
// the retry scheduler. The Registry remembers which (path, modification time)
// pairs already reached a terminal outcome so re-running a scan has no effect
// on unchanged files.
package ingest
