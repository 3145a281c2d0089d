// Package stores persists tunable parameter snapshots in SQLite.
//
// A snapshot records every leaf parameter of a model instance in the text
// form accepted by config stores. Restoring a snapshot replays it through a
// config.Bridge, so the usual conversion, filtering and failure counting
// apply. Schema changes are shipped as embedded migrations.
package stores
