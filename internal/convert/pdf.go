package convert

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"bindery/internal/services"
)

const jpegQuality = 85

// WritePDF assembles the decoded pages into a single PDF at artifactPath,
// one page per image at the given resolution. The destination directory is
// created if absent. Every image reference is released before return on all
// exit paths. An empty page set is a precondition failure; encode and disk
// failures are write failures.
func WritePDF(pages []image.Image, artifactPath string, dpi int) (err error) {
	defer func() {
		for i := range pages {
			pages[i] = nil
		}
	}()

	if len(pages) == 0 {
		return services.Wrap(services.ErrPrecondition, "convert", "write pdf", "no decodable pages", nil)
	}

	readers := make([]io.Reader, 0, len(pages))
	for i, page := range pages {
		var buf bytes.Buffer
		if encodeErr := jpeg.Encode(&buf, page, &jpeg.Options{Quality: jpegQuality}); encodeErr != nil {
			return services.Wrap(services.ErrWrite, "convert", "write pdf", fmt.Sprintf("encode page %d", i+1), encodeErr)
		}
		pages[i] = nil
		readers = append(readers, &buf)
	}

	if dirErr := os.MkdirAll(filepath.Dir(artifactPath), 0o755); dirErr != nil {
		return services.Wrap(services.ErrWrite, "convert", "write pdf", "create artifact directory", dirErr)
	}

	imp, impErr := api.Import(fmt.Sprintf("dpi:%d, pos:full", dpi), types.POINTS)
	if impErr != nil {
		return services.Wrap(services.ErrWrite, "convert", "write pdf", "build import settings", impErr)
	}

	out, createErr := os.Create(artifactPath)
	if createErr != nil {
		return services.Wrap(services.ErrWrite, "convert", "write pdf", "create artifact", createErr)
	}
	defer func() {
		closeErr := out.Close()
		if err == nil && closeErr != nil {
			err = services.Wrap(services.ErrWrite, "convert", "write pdf", "close artifact", closeErr)
		}
	}()

	if importErr := api.ImportImages(nil, out, readers, imp, nil); importErr != nil {
		os.Remove(artifactPath)
		return services.Wrap(services.ErrWrite, "convert", "write pdf", "assemble document", importErr)
	}
	return nil
}
