// package models defines the data model for the yt2mp3 conversion client.
//
// Types mirror the backend's JSON wire shapes. The download record tolerates
// schema drift between backend revisions through field-name fallback chains
// (id/file_id, owner_username/owner, timestamp/ts/created_at).
package models
