// Package uuidtable provides an open-addressed hash table from UUIDs to int32
// values and its self-describing binary form.
//
// A Table is not safe for concurrent use; callers guard it with their own
// lock.
package uuidtable
