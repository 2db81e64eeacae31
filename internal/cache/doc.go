// Package cache holds tournament query data and the invalidation capability
// the feed binding drives.
//
// Two backends are provided: Memory for a single process and Redis for
// several processes sharing one cache. Both key entries as "prefix:id",
// mirroring the ["tournament", id] query key of the web client.
package cache
