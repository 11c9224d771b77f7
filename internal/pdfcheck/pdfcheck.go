// Package pdfcheck inspects PDF artifacts with pdfcpu.
package pdfcheck

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	ErrNotPDF  = errors.New("not a PDF document")
	ErrInvalid = errors.New("invalid PDF document")
)

var magic = []byte("%PDF-")

// Info summarizes a validated PDF.
type Info struct {
	PageCount int
	Title     string
	Producer  string
	Images    int // image objects across all pages
}

// HasMagic reports whether data starts with the PDF header.
func HasMagic(data []byte) bool {
	return bytes.HasPrefix(data, magic)
}

// Inspect parses and validates data.
func Inspect(data []byte) (*Info, error) {
	if !HasMagic(data) {
		return nil, ErrNotPDF
	}

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	info := &Info{
		PageCount: ctx.PageCount,
		Title:     ctx.Title,
		Producer:  ctx.Producer,
	}
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		info.Images += len(pdfcpu.ImageObjNrs(ctx, pageNr))
	}
	return info, nil
}
