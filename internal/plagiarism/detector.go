// Package plagiarism compares a new submission against the other active answers to the same
// question and flags it when any of them is at least as similar as the configured threshold.
package plagiarism

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/questionbank-api/internal/models"
	"github.com/noah-isme/questionbank-api/internal/observability"
	"github.com/noah-isme/questionbank-api/internal/similarity"
	"github.com/noah-isme/questionbank-api/pkg/embedding"
)

// Modality names the kind of content compared.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
)

const (
	DefaultTextThreshold  = 0.8
	DefaultImageThreshold = 0.85
)

// CandidateSource lists the answers a submission is compared with.
type CandidateSource interface {
	ListActiveByQuestion(ctx context.Context, questionID uuid.UUID, excludeID uuid.UUID) ([]models.Answer, error)
}

// Config holds per-modality thresholds.
type Config struct {
	TextThreshold  float64
	ImageThreshold float64
}

// Match is a candidate whose similarity reached the threshold.
type Match struct {
	AnswerID    uuid.UUID `json:"answerId"`
	SubmittedBy string    `json:"submittedBy"`
	Similarity  float64   `json:"similarity"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Details is the blob persisted on the answer.
type Details struct {
	Type              Modality `json:"type"`
	Method            string   `json:"method,omitempty"`
	MaxSimilarity     float64  `json:"maxSimilarity"`
	Threshold         float64  `json:"threshold,omitempty"`
	MatchCount        int      `json:"matchCount"`
	Matches           []Match  `json:"matches"`
	AnalysisTimestamp int64    `json:"analysisTimestamp,omitempty"`
	Error             string   `json:"error,omitempty"`
}

// Result is the outcome of one check. Features carries the freshly extracted image vector
// so the caller can persist it.
type Result struct {
	MaxSimilarity float64
	IsPlagiarized bool
	Matches       []Match
	Details       Details
	Features      []float32
}

// Failed reports whether the check degraded because of an error.
func (r Result) Failed() bool {
	return r.Details.Error != ""
}

// Detector runs brute-force nearest-match searches.
//
// Checks take no lock. Two answers to the same question submitted close enough together can
// each be checked before the other is visible, so neither is flagged against the other.
type Detector struct {
	candidates CandidateSource
	text       embedding.TextEmbedder
	images     embedding.ImageEmbedder
	cfg        Config
	logger     zerolog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewDetector wires the detector. Zero thresholds fall back to the defaults.
func NewDetector(candidates CandidateSource, text embedding.TextEmbedder, images embedding.ImageEmbedder, cfg Config, logger zerolog.Logger) *Detector {
	if cfg.TextThreshold <= 0 {
		cfg.TextThreshold = DefaultTextThreshold
	}
	if cfg.ImageThreshold <= 0 {
		cfg.ImageThreshold = DefaultImageThreshold
	}
	return &Detector{
		candidates: candidates,
		text:       text,
		images:     images,
		cfg:        cfg,
		logger:     logger.With().Str("component", "plagiarism_detector").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/questionbank-api/internal/plagiarism"),
		now:        time.Now,
	}
}

// CheckText compares content against every other active answer to the question.
func (d *Detector) CheckText(ctx context.Context, content string, questionID, excludeAnswerID uuid.UUID) Result {
	ctx, span := d.tracer.Start(ctx, "plagiarism.check_text", trace.WithAttributes(
		attribute.String("question.id", questionID.String()),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		observability.PlagiarismDuration().WithLabelValues(string(ModalityText)).Observe(time.Since(start).Seconds())
	}()

	normalized := similarity.NormalizeText(content)
	if normalized == "" {
		return d.failure(span, ModalityText, fmt.Errorf("content is empty"))
	}

	candidates, err := d.candidates.ListActiveByQuestion(ctx, questionID, excludeAnswerID)
	if err != nil {
		return d.failure(span, ModalityText, fmt.Errorf("load candidates: %w", err))
	}

	var current []float32
	compare := func(answer models.Answer) (float64, bool, error) {
		if strings.TrimSpace(answer.Content) == "" {
			return 0, false, nil
		}
		if current == nil {
			vector, err := d.text.EmbedText(ctx, normalized)
			if err != nil {
				return 0, false, fmt.Errorf("embed submission: %w", err)
			}
			current = similarity.Normalize(vector)
		}
		other := similarity.NormalizeText(answer.Content)
		if other == "" {
			return 0, false, nil
		}
		vector, err := d.text.EmbedText(ctx, other)
		if errors.Is(err, embedding.ErrEmptyInput) {
			return 0, false, nil
		}
		if err != nil {
			return 0, false, fmt.Errorf("embed answer %s: %w", answer.ID, err)
		}
		semantic, err := similarity.DotProduct(current, similarity.Normalize(vector))
		if err != nil {
			return 0, false, fmt.Errorf("compare answer %s: %w", answer.ID, err)
		}
		return similarity.Blend(semantic, normalized, other), true, nil
	}

	result, err := d.scan(ModalityText, d.cfg.TextThreshold, candidates, compare)
	if err != nil {
		return d.failure(span, ModalityText, err)
	}
	result.Details.Method = embedding.NameOf(d.text, "semantic-embedding")
	d.record(span, ModalityText, result, excludeAnswerID, len(candidates))
	return result
}

// CheckImage extracts features from data and compares them with the stored image features
// of every other active answer to the question.
func (d *Detector) CheckImage(ctx context.Context, data []byte, questionID, excludeAnswerID uuid.UUID) Result {
	ctx, span := d.tracer.Start(ctx, "plagiarism.check_image", trace.WithAttributes(
		attribute.String("question.id", questionID.String()),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		observability.PlagiarismDuration().WithLabelValues(string(ModalityImage)).Observe(time.Since(start).Seconds())
	}()

	features, err := d.images.EmbedImage(ctx, data)
	if err != nil {
		return d.failure(span, ModalityImage, fmt.Errorf("extract features: %w", err))
	}

	candidates, err := d.candidates.ListActiveByQuestion(ctx, questionID, excludeAnswerID)
	if err != nil {
		result := d.failure(span, ModalityImage, fmt.Errorf("load candidates: %w", err))
		result.Features = features
		return result
	}

	compare := func(answer models.Answer) (float64, bool, error) {
		stored := answer.ImageFeatures()
		if len(stored) == 0 {
			return 0, false, nil
		}
		score, err := similarity.Cosine(features, stored)
		if err != nil {
			return 0, false, fmt.Errorf("compare answer %s: %w", answer.ID, err)
		}
		return score, true, nil
	}

	result, err := d.scan(ModalityImage, d.cfg.ImageThreshold, candidates, compare)
	if err != nil {
		result = d.failure(span, ModalityImage, err)
		result.Features = features
		return result
	}
	result.Details.Method = embedding.NameOf(d.images, "image-embedding")
	result.Features = features
	d.record(span, ModalityImage, result, excludeAnswerID, len(candidates))
	return result
}

type comparator func(answer models.Answer) (score float64, compared bool, err error)

func (d *Detector) scan(modality Modality, threshold float64, candidates []models.Answer, compare comparator) (Result, error) {
	var maxSimilarity float64
	matches := make([]Match, 0)

	for _, candidate := range candidates {
		score, compared, err := compare(candidate)
		if err != nil {
			return Result{}, err
		}
		if !compared {
			continue
		}
		if score > maxSimilarity {
			maxSimilarity = score
		}
		if score >= threshold {
			matches = append(matches, Match{
				AnswerID:    candidate.ID,
				SubmittedBy: candidate.SubmittedBy,
				Similarity:  score,
				SubmittedAt: candidate.CreatedAt,
			})
		}
	}

	return Result{
		MaxSimilarity: maxSimilarity,
		IsPlagiarized: len(matches) > 0,
		Matches:       matches,
		Details: Details{
			Type:              modality,
			MaxSimilarity:     maxSimilarity,
			Threshold:         threshold,
			MatchCount:        len(matches),
			Matches:           matches,
			AnalysisTimestamp: d.now().UnixMilli(),
		},
	}, nil
}

func (d *Detector) failure(span trace.Span, modality Modality, err error) Result {
	d.logger.Error().Err(err).Str("type", string(modality)).Msg("plagiarism check failed")
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	observability.PlagiarismChecks().WithLabelValues(string(modality), "error").Inc()

	return Result{
		Matches: []Match{},
		Details: Details{
			Type:    modality,
			Matches: []Match{},
			Error:   fmt.Sprintf("Failed to analyze %s for plagiarism: %s", modality, err.Error()),
		},
	}
}

func (d *Detector) record(span trace.Span, modality Modality, result Result, answerID uuid.UUID, candidates int) {
	span.SetAttributes(
		attribute.Float64("plagiarism.max_similarity", result.MaxSimilarity),
		attribute.Int("plagiarism.matches", len(result.Matches)),
	)
	observability.PlagiarismChecks().WithLabelValues(string(modality), "ok").Inc()

	event := d.logger.Info()
	if result.IsPlagiarized {
		observability.PlagiarismFlagged().WithLabelValues(string(modality)).Inc()
		event = d.logger.Warn()
	}
	event.
		Str("type", string(modality)).
		Str("answer_id", answerID.String()).
		Int("candidates", candidates).
		Float64("max_similarity", result.MaxSimilarity).
		Int("matches", len(result.Matches)).
		Msg("plagiarism check complete")
}
