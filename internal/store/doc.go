// Package store persists star-schema rows one source file at a time.
//
// PostgresStore opens a transaction per file, queues every insert into a
// single pgx.Batch and sends it on commit. MemoryStore keeps the same
// semantics in process memory for dry runs and tests.
//
// Both stores share these key rules:
//   - songs, artists and time keep the first row written for a key
//   - users keep the last row written for a user_id
//   - songplays are appended without any uniqueness check
package store
