// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

package schema

// ContentTable represents the 'core.content' table
type ContentTable struct {
	Table        string
	ID           string
	Title        string
	Slug         string
	Description  string
	Author       string
	Genres       string
	ThumbnailURL string
	PDFURL       string
	UploaderID   string
	ModStatus    string
	ModReason    string
	ModBy        string
	ModUpdatedAt string
	Version      string
	CreatedAt    string
	UpdatedAt    string
}

// Content is the schema definition for core.content
var Content = ContentTable{
	Table:        "core.content",
	ID:           "id",
	Title:        "title",
	Slug:         "slug",
	Description:  "description",
	Author:       "author",
	Genres:       "genres",
	ThumbnailURL: "thumbnailurl",
	PDFURL:       "pdfurl",
	UploaderID:   "uploaderid",
	ModStatus:    "modstatus",
	ModReason:    "modreason",
	ModBy:        "modbyaccountid",
	ModUpdatedAt: "modupdatedat",
	Version:      "version",
	CreatedAt:    "createdat",
	UpdatedAt:    "updatedat",
}

// ContentLikeTable represents the 'core.contentlike' table
type ContentLikeTable struct {
	Table     string
	ContentID string
	AccountID string
	CreatedAt string
}

// ContentLike is the schema definition for core.contentlike
var ContentLike = ContentLikeTable{
	Table:     "core.contentlike",
	ContentID: "contentid",
	AccountID: "accountid",
	CreatedAt: "createdat",
}
