package source

import (
	"encoding/json"
	"sort"
	"strings"
)

// Block type tags the client recognizes. Anything else decodes into a
// passthrough block with id, type, and children intact.
const (
	TypeParagraph    = "paragraph"
	TypeHeading1     = "heading_1"
	TypeHeading2     = "heading_2"
	TypeHeading3     = "heading_3"
	TypeBulletedItem = "bulleted_list_item"
	TypeNumberedItem = "numbered_list_item"
	TypeToDo         = "to_do"
	TypeToggle       = "toggle"
	TypeQuote        = "quote"
	TypeCallout      = "callout"
	TypeCode         = "code"
	TypeImage        = "image"
	TypeVideo        = "video"
	TypeFile         = "file"
	TypePDF          = "pdf"
	TypeBookmark     = "bookmark"
	TypeTable        = "table"
	TypeTableRow     = "table_row"
	TypeColumnList   = "column_list"
	TypeColumn       = "column"
	TypeDivider      = "divider"
)

// textBearing lists the block types whose payload carries a rich_text run
// list.
var textBearing = map[string]bool{
	TypeParagraph:    true,
	TypeHeading1:     true,
	TypeHeading2:     true,
	TypeHeading3:     true,
	TypeBulletedItem: true,
	TypeNumberedItem: true,
	TypeToDo:         true,
	TypeToggle:       true,
	TypeQuote:        true,
	TypeCallout:      true,
	TypeCode:         true,
}

// IsTextBearing reports whether blocks of the given type carry rich text.
func IsTextBearing(blockType string) bool {
	return textBearing[blockType]
}

// mediaTypes lists block types whose payload is a media reference.
var mediaTypes = map[string]bool{
	TypeImage: true,
	TypeVideo: true,
	TypeFile:  true,
	TypePDF:   true,
}

// IsMedia reports whether blocks of the given type carry a media reference.
func IsMedia(blockType string) bool {
	return mediaTypes[blockType]
}

// RichText is one contiguous styled text fragment (a run).
type RichText struct {
	Type        string         `json:"type"`
	PlainText   string         `json:"plain_text"`
	Href        string         `json:"href,omitempty"`
	Annotations RunAnnotations `json:"annotations"`
}

// RunAnnotations are the style attributes the provider attaches to a run.
// Color "default" means unstyled; a "<name>_background" value selects the
// background slot instead.
type RunAnnotations struct {
	Bold          bool   `json:"bold"`
	Italic        bool   `json:"italic"`
	Strikethrough bool   `json:"strikethrough"`
	Underline     bool   `json:"underline"`
	Code          bool   `json:"code"`
	Color         string `json:"color"`
}

// Media is a block's media reference. URL is a transient signed URL when
// Kind is "file" and a caller-owned URL when Kind is "external".
type Media struct {
	Kind       string `json:"kind"`
	URL        string `json:"url"`
	ExpiryTime string `json:"expiry_time,omitempty"`
}

// TableInfo carries the header flags and width of a table block.
type TableInfo struct {
	Width           int  `json:"table_width"`
	HasColumnHeader bool `json:"has_column_header"`
	HasRowHeader    bool `json:"has_row_header"`
}

// Block is the tagged union over the provider's block kinds. Exactly one
// of the payload fields is populated according to Type; unrecognized types
// keep only ID, Type, and HasChildren (passthrough variant).
type Block struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	HasChildren bool        `json:"has_children"`
	RichText    []RichText  `json:"rich_text,omitempty"`
	Media       *Media      `json:"media,omitempty"`
	TableInfo   *TableInfo  `json:"table_info,omitempty"`
	Cells       [][]RichText `json:"cells,omitempty"`
	// Children are fetched separately and merged in by the caller before
	// normalization.
	Children []*Block `json:"children,omitempty"`
}

// UnmarshalJSON decodes the provider's block shape, where the payload
// lives under a key named after the block type.
func (b *Block) UnmarshalJSON(data []byte) error {
	var envelope struct {
		ID          string `json:"id"`
		Type        string `json:"type"`
		HasChildren bool   `json:"has_children"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}

	b.ID = envelope.ID
	b.Type = envelope.Type
	b.HasChildren = envelope.HasChildren

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	payload, ok := fields[b.Type]
	if !ok {
		// Unknown or payload-free type: passthrough.
		return nil
	}

	switch {
	case IsTextBearing(b.Type):
		var body struct {
			RichText []RichText `json:"rich_text"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		b.RichText = body.RichText

	case IsMedia(b.Type):
		var body struct {
			Type     string `json:"type"`
			File     struct {
				URL        string `json:"url"`
				ExpiryTime string `json:"expiry_time"`
			} `json:"file"`
			External struct {
				URL string `json:"url"`
			} `json:"external"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		media := &Media{Kind: body.Type}
		if body.Type == "external" {
			media.URL = body.External.URL
		} else {
			media.URL = body.File.URL
			media.ExpiryTime = body.File.ExpiryTime
		}
		b.Media = media

	case b.Type == TypeTable:
		var info TableInfo
		if err := json.Unmarshal(payload, &info); err != nil {
			return err
		}
		b.TableInfo = &info

	case b.Type == TypeTableRow:
		var body struct {
			Cells [][]RichText `json:"cells"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		b.Cells = body.Cells
	}

	return nil
}

// PlainText concatenates the plain text of a run list in order.
func PlainText(runs []RichText) string {
	var out string
	for _, r := range runs {
		out += r.PlainText
	}
	return out
}

// Page is one document from the tenant's source database.
type Page struct {
	ID             string          `json:"id"`
	URL            string          `json:"url"`
	CreatedTime    string          `json:"created_time"`
	LastEditedTime string          `json:"last_edited_time"`
	Parent         Parent          `json:"parent"`
	CoverURL       string          `json:"-"`
	Properties     PageProperties  `json:"-"`
	RawProperties  json.RawMessage `json:"properties"`
}

// Parent identifies what a page hangs off of in the source.
type Parent struct {
	Type       string `json:"type"`
	DatabaseID string `json:"database_id,omitempty"`
	PageID     string `json:"page_id,omitempty"`
}

// PageProperties are the normalized page-level fields extracted from the
// provider's loosely typed property map.
type PageProperties struct {
	Title       string
	Description string
	Category    string
	Tags        []string
}

// UnmarshalJSON extracts the typed page fields plus cover and property
// values from the provider's page shape.
func (p *Page) UnmarshalJSON(data []byte) error {
	type pageAlias Page
	var alias pageAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*p = Page(alias)

	var cover struct {
		Cover *struct {
			Type     string `json:"type"`
			File     struct {
				URL string `json:"url"`
			} `json:"file"`
			External struct {
				URL string `json:"url"`
			} `json:"external"`
		} `json:"cover"`
	}
	if err := json.Unmarshal(data, &cover); err == nil && cover.Cover != nil {
		if cover.Cover.Type == "external" {
			p.CoverURL = cover.Cover.External.URL
		} else {
			p.CoverURL = cover.Cover.File.URL
		}
	}

	p.Properties = parseProperties(p.RawProperties)
	return nil
}

// parseProperties picks title, description, category, and tags out of the
// provider property map. Property names vary by database, so matching is
// by property type first and conventional name second.
func parseProperties(raw json.RawMessage) PageProperties {
	var props PageProperties
	if len(raw) == 0 {
		return props
	}

	var fields map[string]struct {
		Type        string     `json:"type"`
		Title       []RichText `json:"title"`
		RichText    []RichText `json:"rich_text"`
		Select      *struct {
			Name string `json:"name"`
		} `json:"select"`
		MultiSelect []struct {
			Name string `json:"name"`
		} `json:"multi_select"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return props
	}

	// Property names are iterated in sorted order so the same snapshot
	// always extracts the same values regardless of map iteration order.
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f := fields[name]
		switch f.Type {
		case "title":
			props.Title = PlainText(f.Title)
		case "rich_text":
			// A property literally named "description" wins over any
			// other rich_text property; otherwise the first in name
			// order is kept.
			if strings.EqualFold(name, "description") || props.Description == "" {
				props.Description = PlainText(f.RichText)
			}
		case "select":
			if f.Select == nil {
				continue
			}
			if strings.EqualFold(name, "category") || props.Category == "" {
				props.Category = f.Select.Name
			}
		case "multi_select":
			for _, opt := range f.MultiSelect {
				props.Tags = append(props.Tags, opt.Name)
			}
		}
	}
	return props
}
