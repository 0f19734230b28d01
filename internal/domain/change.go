// Canonical change records.
//
// This file defines the provider-agnostic shapes produced by the webhook
// normalizer and consumed by the importer and dimension resolver. One
// ChangeRecord describes a single (commit, file) pair; one ImportHeader
// describes the import invocation itself.
package domain

// Change types stored in Checkin.Type.
const (
	ChangeAdd    = "Add"
	ChangeRemove = "Remove"
	ChangeModify = "Change"
)

// ImportHeader carries the identity of one import invocation. RemoteAddr and
// RemoteUser come from the HTTP transport; SenderAddr and SenderUser are
// extracted from the webhook payload itself.
type ImportHeader struct {
	RemoteAddr string
	RemoteUser string
	SenderAddr string
	SenderUser string
}

// ChangeRecord is the canonical, fully normalized description of one file
// change within one commit. Timestamps are local-time strings in the
// "2006-01-02T15:04:05" layout; the importer parses them when building fact
// rows.
//
// The record intentionally carries every value the dimension resolver needs
// for extra-column computation: URL and RepositoryURL feed the repository URL
// guess, Author/Committer/CoWhen feed the commit identifier row.
type ChangeRecord struct {
	Type          string // ChangeAdd, ChangeRemove or ChangeModify
	CiWhen        string // checkin time (import time, or commit time on replay)
	CoWhen        string // original commit time
	Who           string // normalized author identity
	URL           string // display/web URL of the repository
	Repository    string // repository name
	RepositoryURL string // clone URL
	Dir           string // directory part of the path, "" at the root
	File          string // file name without directory
	Revision      string // per-file revision, or the commit identifier
	Branch        string // "" means default branch
	AddedLines    string // always "0" for webhook imports
	RemovedLines  string // always "0" for webhook imports
	Description   string // commit message
	CommitID      string // commit identifier (hash)
	Author        string // normalized author identity
	Committer     string // normalized committer identity
}
