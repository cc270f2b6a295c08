// Package relocate moves classified files to their destination without ever
// destroying data.
//
// Relocate resolves name collisions by content: an identical file already at
// the destination turns the incoming copy into a duplicate that is moved to
// the quarantine area, while differing content gets a "name(n).ext" suffix.
// ToReview parks unmatched files in the review folder with the same naming
// policy but no hashing. Restore moves a file back for undo. Every failure
// leaves the source where it was.
package relocate
