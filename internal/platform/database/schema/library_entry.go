// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

package schema

// LibraryEntryTable represents the 'library.entry' table
type LibraryEntryTable struct {
	Table     string
	AccountID string
	ContentID string
	Status    string
	UpdatedAt string
}

// LibraryEntry is the schema definition for library.entry
var LibraryEntry = LibraryEntryTable{
	Table:     "library.entry",
	AccountID: "accountid",
	ContentID: "contentid",
	Status:    "status",
	UpdatedAt: "updatedat",
}

// ReadingProgressTable represents the 'library.readingprogress' table
type ReadingProgressTable struct {
	Table     string
	AccountID string
	ContentID string
	Page      string
	UpdatedAt string
}

// ReadingProgress is the schema definition for library.readingprogress
var ReadingProgress = ReadingProgressTable{
	Table:     "library.readingprogress",
	AccountID: "accountid",
	ContentID: "contentid",
	Page:      "page",
	UpdatedAt: "updatedat",
}
