package convert

import (
	"context"
	"image"
	"log/slog"
	"os"
	"sync"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"bindery/internal/logging"
)

const maxDecodeWorkers = 10

// LoadPages decodes the given page files concurrently with a bounded worker
// pool and returns the successfully decoded images in input order. A page
// that fails to decode is logged and dropped; a single corrupt file never
// fails the chapter. An all-failure chapter yields an empty slice.
func LoadPages(ctx context.Context, paths []string, logger *slog.Logger) []image.Image {
	if len(paths) == 0 {
		return nil
	}

	workers := len(paths)
	if workers > maxDecodeWorkers {
		workers = maxDecodeWorkers
	}

	decoded := make([]image.Image, len(paths))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					return
				}
				img, err := decodePage(paths[idx])
				if err != nil {
					if logger != nil {
						logger.Warn("dropping undecodable page",
							logging.String("page", paths[idx]),
							logging.Error(err))
					}
					continue
				}
				decoded[idx] = img
			}
		}()
	}

dispatch:
	for idx := range paths {
		select {
		case jobs <- idx:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	result := make([]image.Image, 0, len(paths))
	for _, img := range decoded {
		if img != nil {
			result = append(result, img)
		}
	}
	return result
}

func decodePage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}
	return img, nil
}
