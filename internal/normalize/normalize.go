// Package normalize converts the source's heterogeneous recursive block
// representation into the internal content model. The full-resync path and
// the webhook path both run this exact pipeline; their outputs for the
// same source snapshot must be identical.
package normalize

import (
	"context"

	"github.com/northpages/contentsync/internal/models"
	"github.com/northpages/contentsync/internal/source"
)

// MediaBackup rewrites one media block's transient URL to a durable one.
// Implementations assign the block its position index; a failed backup
// must leave the block's last known URL in place rather than error out.
type MediaBackup interface {
	Backup(ctx context.Context, block *models.ContentBlock)
}

// Normalizer converts source block trees into ContentBlock trees.
type Normalizer struct {
	media MediaBackup
}

// New creates a Normalizer. media may be nil, in which case media blocks
// keep their source URLs.
func New(media MediaBackup) *Normalizer {
	return &Normalizer{media: media}
}

// NormalizeAll converts a page's block forest in document order. Traversal
// is sequential so media index assignment is a pure function of document
// order.
func (n *Normalizer) NormalizeAll(ctx context.Context, blocks []*source.Block) []*models.ContentBlock {
	out := make([]*models.ContentBlock, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, n.Normalize(ctx, b))
	}
	return out
}

// Normalize converts one source block, recursing into its already-fetched
// children. Block id and type tag are always preserved; unrecognized types
// degrade to a generic passthrough node with children still recursed.
func (n *Normalizer) Normalize(ctx context.Context, block *source.Block) *models.ContentBlock {
	out := &models.ContentBlock{
		ID:   block.ID,
		Type: block.Type,
	}

	switch {
	case source.IsTextBearing(block.Type):
		out.Text = source.PlainText(block.RichText)
		out.Annotations = ExtractAnnotations(block.RichText)
		out.Children = n.NormalizeAll(ctx, block.Children)

	case source.IsMedia(block.Type):
		out.MediaType = block.Type
		if block.Media != nil {
			out.MediaURL = block.Media.URL
		}
		if n.media != nil {
			n.media.Backup(ctx, out)
		}

	case block.Type == source.TypeTable:
		// Row children are consumed into the grid rather than kept as
		// nested child blocks.
		out.Table = ProcessTable(block, block.Children)

	case block.Type == source.TypeTableRow:
		// Reached only when a row arrives outside a table block; keep the
		// cell text so nothing is silently dropped.
		for _, cell := range block.Cells {
			out.Text += source.PlainText(cell)
		}

	default:
		// Containers (column_list, column) and unknown types pass through
		// with tree shape preserved.
		out.Children = n.NormalizeAll(ctx, block.Children)
	}

	return out
}
