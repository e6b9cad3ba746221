// Package cache provides the file-backed store for resolver results.
//
// Each entry is one JSON document at <base>/<namespace>/<Filename(key)>
// holding {"lastUpdate": "YYYY-MM-DD HH:MM:SS", "data": <payload>}. Entries
// older than the configured TTL read as misses; a finite entry cap evicts the
// least recently written files after every store. That layout is the only
// durable contract: existing cache directories stay readable across releases.
//
// Keys for resolver results are built by [BudgetKey], which bounds their length
// by truncating the source context and finding signature to fixed shares of a
// 240 character budget.
package cache
