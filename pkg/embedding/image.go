package embedding

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

const (
	imageGridSize  = 16
	histogramBins  = 8
	imageDimension = imageGridSize*imageGridSize + 3*histogramBins
)

// ImageFeatureExtractor derives a perceptual vector from an image: a mean-centred 16x16
// grayscale thumbnail followed by a normalized RGB histogram.
type ImageFeatureExtractor struct{}

// NewImageFeatureExtractor returns the extractor.
func NewImageFeatureExtractor() *ImageFeatureExtractor {
	return &ImageFeatureExtractor{}
}

// Name identifies the provider in plagiarism details.
func (e *ImageFeatureExtractor) Name() string { return "perceptual-image-embedding" }

// Dimensions is the length of every vector this extractor returns.
func (e *ImageFeatureExtractor) Dimensions() int { return imageDimension }

// EmbedImage decodes data and returns its feature vector.
func (e *ImageFeatureExtractor) EmbedImage(_ context.Context, data []byte) ([]float32, error) {
	start := time.Now()
	defer func() { embedDuration.WithLabelValues("image").Observe(time.Since(start).Seconds()) }()

	img, err := DecodeImage(data)
	if err != nil {
		embedFailures.WithLabelValues("image").Inc()
		return nil, err
	}
	return imageFeatures(img), nil
}

// DecodeImage sniffs the payload and decodes jpeg, png, gif, bmp, tiff and webp images.
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, mime.String())
	}

	if mime.Is("image/webp") {
		img, err := webp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode webp: %w", err)
		}
		return img, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return img, nil
}

func imageFeatures(img image.Image) []float32 {
	features := make([]float32, 0, imageDimension)

	thumb := imaging.Resize(imaging.Grayscale(img), imageGridSize, imageGridSize, imaging.Lanczos)
	gray := make([]float64, 0, imageGridSize*imageGridSize)
	var mean float64
	for y := 0; y < imageGridSize; y++ {
		for x := 0; x < imageGridSize; x++ {
			r, _, _, _ := thumb.At(x, y).RGBA()
			value := float64(r) / 65535.0
			gray = append(gray, value)
			mean += value
		}
	}
	mean /= float64(len(gray))
	for _, value := range gray {
		features = append(features, float32(value-mean))
	}

	sample := imaging.Resize(img, 64, 64, imaging.Box)
	bounds := sample.Bounds()
	var histogram [3 * histogramBins]float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := sample.At(x, y).RGBA()
			histogram[bin(r)]++
			histogram[histogramBins+bin(g)]++
			histogram[2*histogramBins+bin(b)]++
		}
	}
	pixels := float64(bounds.Dx() * bounds.Dy())
	for _, count := range histogram {
		features = append(features, float32(count/pixels))
	}
	return features
}

func bin(channel uint32) int {
	idx := int(channel>>8) * histogramBins / 256
	if idx >= histogramBins {
		return histogramBins - 1
	}
	return idx
}
