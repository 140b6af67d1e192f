// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

// Package schema centralizes table and column identifiers for all SQL built
// by the storage layer.
//
// # Why constants instead of inline strings?
//
// Every query references columns through this package, so a rename is a
// single-file change and a typo is a compile error at the fmt.Sprintf call
// site rather than a runtime SQL error.
package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table          string
	ID             string
	SubjectID      string
	Username       string
	Email          string
	AvatarURL      string
	Role           string
	BanIsBanned    string
	BanUntil       string
	BanReason      string
	BadgeStatus    string
	BadgeMessage   string
	BadgeNote      string
	BadgeAppliedAt string
	BadgeReviewed  string
	BadgeReviewer  string
	Version        string
	CreatedAt      string
	UpdatedAt      string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:          "users.account",
	ID:             "id",
	SubjectID:      "subjectid",
	Username:       "username",
	Email:          "email",
	AvatarURL:      "avatarurl",
	Role:           "role",
	BanIsBanned:    "banisbanned",
	BanUntil:       "banuntil",
	BanReason:      "banreason",
	BadgeStatus:    "badgestatus",
	BadgeMessage:   "badgemessage",
	BadgeNote:      "badgenote",
	BadgeAppliedAt: "badgeappliedat",
	BadgeReviewed:  "badgereviewedat",
	BadgeReviewer:  "badgereviewedby",
	Version:        "version",
	CreatedAt:      "createdat",
	UpdatedAt:      "updatedat",
}
