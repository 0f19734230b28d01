// Package domain defines the persistence models for the commit database.
// The schema follows the classic Bonsai/ViewVC layout: one narrow dimension
// table per deduplicated attribute (repository, person, directory, file,
// branch, description, commit identifier) and a wide fact table (Checkin)
// holding one row per changed file per commit. These types are mapped with
// GORM and form the core data layer of the application.
package domain

import "time"

// Repository is the dimension row for a repository name. The URL columns are
// computed exactly once when the name is first seen (guessed from the webhook
// payload, optionally replaced by a configured override) and are never
// updated afterwards.
//
// The URL templates use the placeholders [repository], [commit], [revision]
// and [file], which the UI substitutes per checkin.
type Repository struct {
	ID            uint   `json:"id"             gorm:"primaryKey;column:id"`
	Repository    string `json:"repository"     gorm:"type:varchar(255);not null;uniqueIndex:ux_repositories_repository;column:repository"`
	BaseURL       string `json:"base_url"       gorm:"type:varchar(255);column:base_url"`
	RepositoryURL string `json:"repository_url" gorm:"type:varchar(255);column:repository_url"`
	FileURL       string `json:"file_url"       gorm:"type:varchar(255);column:file_url"`
	CommitURL     string `json:"commit_url"     gorm:"type:varchar(255);column:commit_url"`
	TrackerURL    string `json:"tracker_url"    gorm:"type:varchar(255);column:tracker_url"`
	IconURL       string `json:"icon_url"       gorm:"type:varchar(255);column:icon_url"`
}

// TableName returns the database table name for Repository.
func (Repository) TableName() string { return "repositories" }

// Person is the dimension row for an author/committer identity. The value is
// a lower-cased email address, or a lower-cased display name when the
// payload carries no email.
type Person struct {
	ID  uint   `json:"id"  gorm:"primaryKey;column:id"`
	Who string `json:"who" gorm:"type:varchar(128);not null;uniqueIndex:ux_people_who;column:who"`
}

// TableName returns the database table name for Person.
func (Person) TableName() string { return "people" }

// Directory is the dimension row for a directory path (empty string for
// files at the repository root).
type Directory struct {
	ID  uint   `json:"id"  gorm:"primaryKey;column:id"`
	Dir string `json:"dir" gorm:"type:varchar(255);not null;uniqueIndex:ux_dirs_dir;column:dir"`
}

// TableName returns the database table name for Directory.
func (Directory) TableName() string { return "dirs" }

// File is the dimension row for a file name (without its directory).
type File struct {
	ID   uint   `json:"id"   gorm:"primaryKey;column:id"`
	File string `json:"file" gorm:"type:varchar(255);not null;uniqueIndex:ux_files_file;column:file"`
}

// TableName returns the database table name for File.
func (File) TableName() string { return "files" }

// Branch is the dimension row for a branch name. The default branch
// (master/HEAD) is stored as the empty string.
type Branch struct {
	ID     uint   `json:"id"     gorm:"primaryKey;column:id"`
	Branch string `json:"branch" gorm:"type:varchar(128);not null;uniqueIndex:ux_branches_branch;column:branch"`
}

// TableName returns the database table name for Branch.
func (Branch) TableName() string { return "branches" }

// Description is the dimension row for a commit message. The legacy "hash"
// column stores the message length, a cheap differentiator carried over from
// the original schema. It is not a content hash; deduplication relies on
// exact string equality of Description only.
type Description struct {
	ID          uint   `json:"id"          gorm:"primaryKey;column:id"`
	Description string `json:"description" gorm:"type:text;not null;column:description"`
	Hash        int    `json:"hash"        gorm:"column:hash"`
}

// TableName returns the database table name for Description.
func (Description) TableName() string { return "descs" }

// CommitID is the dimension row for a commit identifier (git hash or
// Subversion revision). It additionally records the resolved author and
// committer Person keys and the commit's original timestamp, so resolving a
// CommitID requires the Person dimension to be resolved first.
type CommitID struct {
	ID          uint      `json:"id"          gorm:"primaryKey;column:id"`
	Hash        string    `json:"hash"        gorm:"type:varchar(60);not null;uniqueIndex:ux_commitids_hash;column:hash"`
	AuthorID    uint      `json:"authorid"    gorm:"column:authorid"`
	CommitterID uint      `json:"committerid" gorm:"column:committerid"`
	CoWhen      time.Time `json:"co_when"     gorm:"column:co_when"`
}

// TableName returns the database table name for CommitID.
func (CommitID) TableName() string { return "commitids" }

// Checkin is the fact row: one changed file within one commit. All string
// attributes are referenced through their dimension keys. AddedLines and
// RemovedLines are stored as strings for schema compatibility and are always
// "0" for webhook-sourced imports.
//
// The unique index over (type, commitid, fileid) is the natural key used to
// silently absorb redelivered webhooks.
type Checkin struct {
	ID             uint      `json:"id"             gorm:"primaryKey;column:id"`
	Type           string    `json:"type"           gorm:"type:varchar(8);not null;uniqueIndex:ux_checkins_natural,priority:1;column:type"`
	CiWhen         time.Time `json:"ci_when"        gorm:"index:idx_checkins_ci_when;column:ci_when"`
	WhoID          uint      `json:"whoid"          gorm:"not null;column:whoid"`
	RepositoryID   uint      `json:"repositoryid"   gorm:"not null;index:idx_checkins_repository;column:repositoryid"`
	DirID          uint      `json:"dirid"          gorm:"not null;column:dirid"`
	FileID         uint      `json:"fileid"         gorm:"not null;uniqueIndex:ux_checkins_natural,priority:3;column:fileid"`
	Revision       string    `json:"revision"       gorm:"type:varchar(32);column:revision"`
	BranchID       uint      `json:"branchid"       gorm:"not null;column:branchid"`
	AddedLines     string    `json:"addedlines"     gorm:"type:varchar(12);column:addedlines"`
	RemovedLines   string    `json:"removedlines"   gorm:"type:varchar(12);column:removedlines"`
	DescID         uint      `json:"descid"         gorm:"not null;column:descid"`
	StickyTag      string    `json:"stickytag"      gorm:"type:varchar(255);column:stickytag"`
	CommitIDRef    uint      `json:"commitid"       gorm:"uniqueIndex:ux_checkins_natural,priority:2;column:commitid"`
	ImportActionID uint      `json:"importactionid" gorm:"column:importactionid"`
}

// TableName returns the database table name for Checkin.
func (Checkin) TableName() string { return "checkins" }

// ImportAction records one import invocation: the transport-level remote
// identity of the caller, the sender identity extracted from the webhook
// payload, and the time of the import. Every Checkin created by one batch
// references the same ImportAction.
type ImportAction struct {
	ID         uint      `json:"id"          gorm:"primaryKey;column:id"`
	RemoteAddr string    `json:"remote_addr" gorm:"type:varchar(64);column:remote_addr"`
	RemoteUser string    `json:"remote_user" gorm:"type:varchar(64);column:remote_user"`
	SenderAddr string    `json:"sender_addr" gorm:"type:varchar(64);column:sender_addr"`
	SenderUser string    `json:"sender_user" gorm:"type:varchar(64);column:sender_user"`
	IaWhen     time.Time `json:"ia_when"     gorm:"column:ia_when"`
}

// TableName returns the database table name for ImportAction.
func (ImportAction) TableName() string { return "importactions" }
