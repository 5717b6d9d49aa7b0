// Package quota enforces the search call budget per window.
//
// A Counter aligns the current time to a window start in the configured
// timezone and delegates the atomic check-and-increment to a Backend keyed
// by that start, so a new window begins with zero usage without any reset
// step. The SQLite backend shares the record database; the Redis backend
// lets several machines draw from one provider key.
package quota
