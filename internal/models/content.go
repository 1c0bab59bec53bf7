// Package models defines the internal content model shared across the
// sync, webhook, and embedding paths.
package models

import "time"

// ContentStatus is the lifecycle status of a synced content item.
type ContentStatus string

const (
	// StatusActive marks an item present in the tenant's source database.
	StatusActive ContentStatus = "active"
	// StatusRemoved marks an item deleted from (or moved out of) the
	// tenant's source database. The row is kept; only status flips.
	StatusRemoved ContentStatus = "removed"
)

// ContentItem is the normalized representation of one synced source page.
// Unique per (tenant_id, source_page_id).
type ContentItem struct {
	ID           string          `json:"id" db:"id"`
	TenantID     string          `json:"tenant_id" db:"tenant_id"`
	SourcePageID string          `json:"source_page_id" db:"source_page_id"`
	SourceURL    string          `json:"source_url" db:"source_url"`
	Title        string          `json:"title" db:"title"`
	Description  string          `json:"description,omitempty" db:"description"`
	Category     string          `json:"category,omitempty" db:"category"`
	Tags         []string        `json:"tags,omitempty" db:"tags"`
	Blocks       []*ContentBlock `json:"blocks" db:"blocks"`
	CoverURL     string          `json:"cover_url,omitempty" db:"cover_url"`
	PreviewURL   string          `json:"preview_url,omitempty" db:"preview_url"`
	Status       ContentStatus   `json:"status" db:"status"`
	Visitors     int64           `json:"visitors" db:"visitors"`
	Embedding    []float32       `json:"-" db:"embedding"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// ContentBlock is one node of the normalized block tree. Container blocks
// keep their children nested; unknown source block types pass through with
// id and type preserved.
type ContentBlock struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Text        string          `json:"text,omitempty"`
	Annotations []Annotation    `json:"annotations,omitempty"`
	MediaType   string          `json:"media_type,omitempty"`
	MediaURL    string          `json:"media_url,omitempty"`
	Table       *Table          `json:"table,omitempty"`
	Children    []*ContentBlock `json:"children,omitempty"`
}

// Annotation is a style/position record over a block's concatenated text.
// The span is [Start, End). Color and BackgroundColor are mutually
// exclusive: a single styled run encodes only one color slot.
type Annotation struct {
	Start           int    `json:"start"`
	End             int    `json:"end"`
	Bold            bool   `json:"bold,omitempty"`
	Italic          bool   `json:"italic,omitempty"`
	Strikethrough   bool   `json:"strikethrough,omitempty"`
	Underline       bool   `json:"underline,omitempty"`
	Code            bool   `json:"code,omitempty"`
	Color           string `json:"color,omitempty"`
	BackgroundColor string `json:"background_color,omitempty"`
	Link            string `json:"link,omitempty"`
}

// HasStyle reports whether the annotation carries any non-default attribute.
func (a Annotation) HasStyle() bool {
	return a.Bold || a.Italic || a.Strikethrough || a.Underline || a.Code ||
		a.Color != "" || a.BackgroundColor != "" || a.Link != ""
}

// Table is the flattened grid form of a table block. Cell annotation
// offsets are local to the cell.
type Table struct {
	Width           int        `json:"width"`
	HasColumnHeader bool       `json:"has_column_header"`
	HasRowHeader    bool       `json:"has_row_header"`
	Rows            []TableRow `json:"rows"`
}

// TableRow holds the ordered cells of one table row.
type TableRow struct {
	Cells []TableCell `json:"cells"`
}

// TableCell is one flattened table cell.
type TableCell struct {
	Text        string       `json:"text"`
	Annotations []Annotation `json:"annotations,omitempty"`
}
