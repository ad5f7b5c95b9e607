package gamebook

import "strings"

// DefaultLinkLabel is shown to readers for links without text.
const DefaultLinkLabel = "Next"

// Page is a node in the gamebook graph.
type Page struct {
	ID       int64
	Body     string
	IsEnding bool
	// Links is only populated by single-page lookups.
	Links []Link
}

// Link is a directed edge from one page to another.
type Link struct {
	ID         int64
	FromPageID int64
	ToPageID   int64
	Text       string
}

// Label returns the reader-facing text for the link.
func (l Link) Label() string {
	if strings.TrimSpace(l.Text) == "" {
		return DefaultLinkLabel
	}
	return l.Text
}

// IsSelfLink reports whether the link still points back at its own page.
func (l Link) IsSelfLink() bool {
	return l.FromPageID == l.ToPageID
}

// PageRecord is the persisted form of a Page.
type PageRecord struct {
	ID       int64  `gorm:"column:page_id;primaryKey;autoIncrement"`
	Body     string `gorm:"column:body;type:text;not null"`
	IsEnding bool   `gorm:"column:is_ending;not null"`
}

// TableName defines the table name for the PageRecord model.
func (PageRecord) TableName() string {
	return "pages"
}

// LinkRecord is the persisted form of a Link. No foreign keys are declared:
// deleting a page leaves links that target it in place.
type LinkRecord struct {
	ID         int64  `gorm:"column:link_id;primaryKey;autoIncrement"`
	FromPageID int64  `gorm:"column:from_page_id;not null;index:idx_links_from_page_id"`
	ToPageID   int64  `gorm:"column:to_page_id;not null"`
	Text       string `gorm:"column:text;type:text;not null"`
}

// TableName defines the table name for the LinkRecord model.
func (LinkRecord) TableName() string {
	return "links"
}

func toDomainPage(record *PageRecord) *Page {
	if record == nil {
		return nil
	}

	return &Page{
		ID:       record.ID,
		Body:     record.Body,
		IsEnding: record.IsEnding,
	}
}

func toDomainLink(record *LinkRecord) *Link {
	if record == nil {
		return nil
	}

	return &Link{
		ID:         record.ID,
		FromPageID: record.FromPageID,
		ToPageID:   record.ToPageID,
		Text:       record.Text,
	}
}
