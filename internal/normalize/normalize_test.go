package normalize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northpages/contentsync/internal/models"
	"github.com/northpages/contentsync/internal/source"
)

// recordingBackup captures the media blocks handed to it, in order.
type recordingBackup struct {
	blocks []*models.ContentBlock
}

func (r *recordingBackup) Backup(_ context.Context, block *models.ContentBlock) {
	r.blocks = append(r.blocks, block)
}

func TestNormalize_TextBlock(t *testing.T) {
	block := &source.Block{
		ID:   "b1",
		Type: source.TypeParagraph,
		RichText: []source.RichText{
			plain("hello "),
			styled("there", source.RunAnnotations{Bold: true}),
		},
		Children: []*source.Block{
			{ID: "b2", Type: source.TypeBulletedItem, RichText: []source.RichText{plain("nested")}},
		},
	}

	out := New(nil).Normalize(context.Background(), block)

	assert.Equal(t, "b1", out.ID)
	assert.Equal(t, source.TypeParagraph, out.Type)
	assert.Equal(t, "hello there", out.Text)
	require.Len(t, out.Annotations, 1)
	require.Len(t, out.Children, 1)
	assert.Equal(t, "nested", out.Children[0].Text)
}

func TestNormalize_MediaBlockInvokesBackup(t *testing.T) {
	backup := &recordingBackup{}
	block := &source.Block{
		ID:    "img1",
		Type:  source.TypeImage,
		Media: &source.Media{Kind: "file", URL: "https://cdn.example.com/a.png?sig=abc"},
	}

	out := New(backup).Normalize(context.Background(), block)

	assert.Equal(t, source.TypeImage, out.MediaType)
	require.Len(t, backup.blocks, 1)
	assert.Same(t, out, backup.blocks[0])
}

func TestNormalize_NilBackupKeepsSourceURL(t *testing.T) {
	block := &source.Block{
		ID:    "img1",
		Type:  source.TypeImage,
		Media: &source.Media{Kind: "file", URL: "https://cdn.example.com/a.png"},
	}

	out := New(nil).Normalize(context.Background(), block)
	assert.Equal(t, "https://cdn.example.com/a.png", out.MediaURL)
}

func TestNormalize_TableConsumesRowChildren(t *testing.T) {
	block := &source.Block{
		ID:        "t1",
		Type:      source.TypeTable,
		TableInfo: &source.TableInfo{Width: 1},
		Children: []*source.Block{
			tableRow(plainCell("cell")),
		},
	}

	out := New(nil).Normalize(context.Background(), block)

	require.NotNil(t, out.Table)
	assert.Len(t, out.Table.Rows, 1)
	// Rows live in the grid, not as nested child blocks.
	assert.Empty(t, out.Children)
}

func TestNormalize_UnknownTypePassesThrough(t *testing.T) {
	block := &source.Block{
		ID:   "u1",
		Type: "synced_block",
		Children: []*source.Block{
			{ID: "u2", Type: source.TypeParagraph, RichText: []source.RichText{plain("inside")}},
		},
	}

	out := New(nil).Normalize(context.Background(), block)

	assert.Equal(t, "synced_block", out.Type)
	require.Len(t, out.Children, 1)
	assert.Equal(t, "inside", out.Children[0].Text)
}

func TestNormalizeAll_DocumentOrder(t *testing.T) {
	backup := &recordingBackup{}
	blocks := []*source.Block{
		{ID: "p1", Type: source.TypeParagraph, RichText: []source.RichText{plain("one")}},
		{ID: "m1", Type: source.TypeImage, Media: &source.Media{URL: "https://cdn.example.com/1.png"}},
		{ID: "m2", Type: source.TypeVideo, Media: &source.Media{URL: "https://cdn.example.com/2.mp4"}},
	}

	out := New(backup).NormalizeAll(context.Background(), blocks)

	require.Len(t, out, 3)
	require.Len(t, backup.blocks, 2)
	assert.Equal(t, "m1", backup.blocks[0].ID)
	assert.Equal(t, "m2", backup.blocks[1].ID)
}
