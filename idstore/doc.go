// Package idstore rewrites the device-identity fields the client
// application persists in its identity document.
//
// The document is a JSON object owned by an external application. The
// store only guarantees presence and type of the four telemetry keys
// (see the identity package); every other key passes through untouched.
//
// # Write Discipline
//
// A reset is read-modify-atomic-replace:
//
//  1. The current file is copied to a timestamped sibling backup. Backup
//     failure is logged as a warning and does not abort the reset.
//  2. The document is parsed as a generic map. A parse failure aborts the
//     reset before anything is written, leaving the original file
//     byte-for-byte unchanged.
//  3. A fresh DeviceIdentitySet is merged over the map.
//  4. The merged map is serialized to a temporary file in the same
//     directory and renamed over the original, so a concurrent reader
//     never observes a half-written document.
//
// The file is not locked against concurrent external writers: the rename
// protects against torn reads, not lost updates. Callers must serialize
// resets per path.
//
// AdvancedStore additionally rewrites the application's update URL to a
// non-resolving value to suppress auto-update checks. That side effect is
// independent and non-transactional: its failure does not roll back the
// identity reset.
package idstore
