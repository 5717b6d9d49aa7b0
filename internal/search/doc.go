// Package search finds candidate web pages for a normalized query.
//
// Every provider call is guarded by the quota counter: a unit is claimed
// before the request and refunded when the request fails, so the persisted
// usage counts only calls the provider billed.
package search
