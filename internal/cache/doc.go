// Package cache implements the directory-per-identifier artifact cache.
// An entry counts as a hit only when the entry directory, metadata record,
// and finished artifact are all present; failed populations remove the
// entire entry so partial state is never served.
package cache
