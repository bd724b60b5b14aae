// Package pdf rasterises PDF inputs so they can be sent to a vision model.
package pdf

import (
	"context"
	"fmt"

	"openlet/internal/domain"

	"github.com/gen2brain/go-fitz"
)

// DefaultDPI is a 2x zoom of the 72 dpi PDF user space.
const DefaultDPI = 144

// FitzRenderer renders pages with MuPDF through go-fitz.
type FitzRenderer struct {
	dpi float64
}

// NewFitzRenderer returns a renderer at dpi, or DefaultDPI when dpi is not positive.
func NewFitzRenderer(dpi float64) *FitzRenderer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &FitzRenderer{dpi: dpi}
}

// Render returns PNG images of the first maxPages pages in page order.
func (r *FitzRenderer) Render(ctx context.Context, data []byte, maxPages int) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, domain.NewError(domain.ErrEmptyResult, domain.MsgEmptyPDF, err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if maxPages > 0 && pageCount > maxPages {
		pageCount = maxPages
	}
	if pageCount == 0 {
		return nil, domain.NewEmptyResultError(domain.MsgEmptyPDF)
	}

	pages := make([][]byte, 0, pageCount)
	for n := 0; n < pageCount; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		png, err := doc.ImagePNG(n, r.dpi)
		if err != nil {
			return nil, domain.NewInternalError(fmt.Sprintf("failed to render PDF page %d", n+1), err)
		}
		pages = append(pages, png)
	}
	return pages, nil
}

var _ domain.PageRenderer = (*FitzRenderer)(nil)
