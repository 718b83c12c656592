// Package palette extracts dominant-colour palettes from cover images.
package palette

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"sort"
	"strings"
	"time"

	"chromafm/errs"
	"chromafm/model"

	_ "image/jpeg"
	_ "image/png"
)

const (
	// DefaultBucketSize splits each channel into 256/DefaultBucketSize ranges.
	DefaultBucketSize = 4
	maxPaletteColors  = 5
	// sampleTarget bounds the number of pixels inspected per image.
	sampleTarget = 1 << 16
)

// Generator fetches cover images and quantizes them into palettes.
type Generator struct {
	client *http.Client
}

// NewGenerator creates a generator whose image fetches are bounded by timeout.
func NewGenerator(timeout time.Duration) *Generator {
	return &Generator{client: &http.Client{Timeout: timeout}}
}

// FromURL fetches the image at url and returns its dominant colours, most
// frequent first. Only JPEG and PNG sources are accepted.
func (g *Generator) FromURL(ctx context.Context, url string, bucketSize int) (model.Palette, error) {
	if url == "" {
		return model.Palette{}, errs.Validationf("missing image URL")
	}
	if bucketSize <= 0 || bucketSize > 64 {
		bucketSize = DefaultBucketSize
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.Palette{}, errs.Validationf("invalid image URL: %v", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return model.Palette{}, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return model.Palette{}, fmt.Errorf("failed to fetch image: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "image/jpeg") && !strings.Contains(contentType, "image/png") {
		return model.Palette{}, errs.Validationf("unsupported image type: %s", contentType)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return model.Palette{}, errs.Validationf("could not decode image: %v", err)
	}
	return Quantize(img, bucketSize), nil
}

type bucket struct {
	count int
	sumR  uint64
	sumG  uint64
	sumB  uint64
	order int
}

// Quantize buckets the image's pixels in RGB space and returns the average
// colour of the most populated buckets, most frequent first. Ties keep scan
// order so the result is deterministic.
func Quantize(img image.Image, bucketSize int) model.Palette {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return model.Palette{Colors: []model.RGB{}}
	}

	stride := 1
	for (width/stride)*(height/stride) > sampleTarget {
		stride++
	}

	rangeSize := 256 / bucketSize
	if rangeSize == 0 {
		rangeSize = 1
	}

	buckets := make(map[[3]int]*bucket)
	order := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stride {
		for x := bounds.Min.X; x < bounds.Max.X; x += stride {
			r, g, b, a := img.At(x, y).RGBA()
			if a == 0 {
				continue
			}
			r8, g8, b8 := r>>8, g>>8, b>>8
			key := [3]int{int(r8) / rangeSize, int(g8) / rangeSize, int(b8) / rangeSize}
			bk := buckets[key]
			if bk == nil {
				bk = &bucket{order: order}
				order++
				buckets[key] = bk
			}
			bk.count++
			bk.sumR += uint64(r8)
			bk.sumG += uint64(g8)
			bk.sumB += uint64(b8)
		}
	}

	sorted := make([]*bucket, 0, len(buckets))
	for _, bk := range buckets {
		sorted = append(sorted, bk)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].order < sorted[j].order
	})

	limit := maxPaletteColors
	if len(sorted) < limit {
		limit = len(sorted)
	}
	colors := make([]model.RGB, 0, limit)
	for _, bk := range sorted[:limit] {
		n := uint64(bk.count)
		colors = append(colors, model.RGB{
			uint8(bk.sumR / n),
			uint8(bk.sumG / n),
			uint8(bk.sumB / n),
		})
	}
	return model.Palette{Colors: colors}
}
