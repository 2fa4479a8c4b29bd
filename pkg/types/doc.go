// Package types defines the boundary of the record/cache core: the raw item
// payloads exchanged with the board API, the collaborator interfaces the core
// depends on (UpstreamClient, CacheStore, Alerter), configuration, and the
// sentinel and structured errors shared by every package.
package types
