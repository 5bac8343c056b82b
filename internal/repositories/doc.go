// Package repositories implements SQLite persistence for the client's local
// state.
//
// Two things survive a process restart: the session token (only when
// persistence is enabled in configuration) and a mirror of the last-fetched
// download list, which lets the downloads command show the last-known
// listing while offline.
//
// Key Implementations:
//   - [SessionRepository] : single-row session token storage
//   - [DownloadRepository] : wholesale-replaced mirror of the server listing
package repositories
