// Package items represents board items as typed records.
//
// A record declares its columns once, at construction, as an ordered list of
// (name, columns.Value) pairs. Writes through Item.Set go to the column's
// typed setter and merge the column's wire payload into the staged changes;
// Commit sends only that diff upstream. Staged changes are cleared after every
// successful load and commit.
//
// Cacheable records (Device, Product) read from the cache store first and
// fall back to the board API on a miss, raising an operator alert and
// repopulating the cache.
package items
