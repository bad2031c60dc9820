package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/noble-platform/adaptive-assessment-core/internal/apperr"
	"github.com/noble-platform/adaptive-assessment-core/internal/models"
)

// cefrDescending is the band order bandFromCutoffs walks, evaluated
// from C2 down to A1 per models.Rubric.CEFRCutoffs's documented
// semantics: the first cutoff overallScore meets wins.
var cefrDescending = []models.CEFR{models.C2, models.C1, models.B2, models.B1, models.A2, models.A1}

// bandFromCutoffs maps a criteria-score overallScore onto the CEFR
// band whose configured cutoff it meets, per spec.md §4.5 ("Both map
// overallScore to a CEFR band using a configured monotone mapping").
// overallScore lives on whatever scale the external ASR/LLM service
// returns, never the θ scale the placement IRT kernel uses, so it is
// banded against the template's own Rubric.CEFRCutoffs rather than a
// proficiency θ-range. A submission meeting no configured cutoff bands
// at A1.
func bandFromCutoffs(overallScore float64, cutoffs map[models.CEFR]float64) models.CEFR {
	for _, band := range cefrDescending {
		if cutoff, ok := cutoffs[band]; ok && overallScore >= cutoff {
			return band
		}
	}
	return models.A1
}

// httpClient is the shared adapter shape behind SpeakingScorer and
// WritingScorer, a direct generalization of the teacher's
// intelligence.Client: same X-Service-Token/X-User-*/X-Correlation-ID
// header propagation, a per-client http.Client timeout plus the
// ctx.Value(correlation key) idiom, same "non-200 -> wrapped error"
// handling, retargeted from
// generating lesson content to scoring a submission.
type httpClient struct {
	baseURL    string
	httpClient *http.Client
	getToken   func() string
}

func newHTTPClient(baseURL string, timeout time.Duration, tokenProvider func() string) *httpClient {
	return &httpClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		getToken:   tokenProvider,
	}
}

// correlationIDKey is the context key score reads a correlation id from
// to forward as X-Correlation-ID. Nothing in internal/httpapi sets it.
type correlationIDKey struct{}

// CorrelationIDKey is the exported form of correlationIDKey for callers
// outside this package that need to set it via context.WithValue.
var CorrelationIDKey = correlationIDKey{}

type scoreRequest struct {
	SessionID   string                 `json:"session_id"`
	Responses   []scoreResponseItem    `json:"responses"`
	Weights     map[string]float64     `json:"criteria_weights"`
	RubricKeys  []string               `json:"rubric_keys"`
}

type scoreResponseItem struct {
	ItemID        string  `json:"item_id"`
	MediaKey      *string `json:"media_key,omitempty"`
	ResponseText  string  `json:"response_text,omitempty"`
	ASRTranscript *string `json:"asr_transcript,omitempty"`
}

type scoreResponse struct {
	CriteriaScores map[string]float64 `json:"criteria_scores"`
	Transcript     *string            `json:"transcript,omitempty"`
	EssayText      *string            `json:"essay_text,omitempty"`
	WordCount      int                `json:"word_count,omitempty"`
}

func (c *httpClient) score(ctx context.Context, path string, req scoreRequest) (*scoreResponse, error) {
	url := fmt.Sprintf("%s%s", c.baseURL, path)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to marshal scorer request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Wrap(apperr.ScorerUnavailable, "failed to build scorer request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Service-Token", c.getToken())
	if userID := ctx.Value(userIDKey{}); userID != nil {
		httpReq.Header.Set("X-User-Id", fmt.Sprintf("%v", userID))
	}
	if userEmail := ctx.Value(userEmailKey{}); userEmail != nil {
		httpReq.Header.Set("X-User-Email", fmt.Sprintf("%v", userEmail))
	}
	if userRole := ctx.Value(userRoleKey{}); userRole != nil {
		httpReq.Header.Set("X-User-Role", fmt.Sprintf("%v", userRole))
	}
	if correlationID := ctx.Value(CorrelationIDKey); correlationID != nil {
		httpReq.Header.Set("X-Correlation-ID", fmt.Sprintf("%v", correlationID))
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperr.Wrap(apperr.ScorerUnavailable, "failed to reach scorer service", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.ScorerUnavailable, "failed to read scorer response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Wrap(apperr.ScorerUnavailable,
			fmt.Sprintf("scorer service returned status %d", resp.StatusCode),
			fmt.Errorf("%s", string(respBody)))
	}

	var out scoreResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, apperr.Wrap(apperr.ScorerUnavailable, "failed to parse scorer response", err)
	}
	return &out, nil
}

// userIDKey, userEmailKey, userRoleKey are the context keys score reads
// to forward X-User-Id, X-User-Email and X-User-Role; a header is sent
// only when its key carries a value.
type userIDKey struct{}
type userEmailKey struct{}
type userRoleKey struct{}

// UserIDKey, UserEmailKey, UserRoleKey are the exported forms for
// callers outside this package that set them via context.WithValue.
// Nothing in internal/httpapi sets them.
var (
	UserIDKey    = userIDKey{}
	UserEmailKey = userEmailKey{}
	UserRoleKey  = userRoleKey{}
)

func weightedOverall(criteria map[string]float64, weights map[string]float64) float64 {
	var total, weightSum float64
	for key, score := range criteria {
		w, ok := weights[key]
		if !ok {
			w = 1.0
		}
		total += w * score
		weightSum += w
	}
	if weightSum == 0 {
		return 0
	}
	return total / weightSum
}

// SpeakingScorer calls the external ASR/speaking-grading service and
// maps its per-criterion scores onto overallScore and a CEFR band,
// per spec.md §4.5.
type SpeakingScorer struct {
	client *httpClient
}

func NewSpeakingScorer(baseURL string, timeout time.Duration, tokenProvider func() string) *SpeakingScorer {
	return &SpeakingScorer{client: newHTTPClient(baseURL, timeout, tokenProvider)}
}

func (s *SpeakingScorer) Score(ctx context.Context, session models.Session, responses []models.Response, config models.AssessmentConfig, rubric models.Rubric) (models.Result, error) {
	req := scoreRequest{
		SessionID: session.ID.String(),
		Weights:   config.SpeakingParams.CriteriaWeights,
	}
	for _, r := range responses {
		req.Responses = append(req.Responses, scoreResponseItem{
			ItemID:        r.ItemID.String(),
			MediaKey:      r.MediaKey,
			ASRTranscript: r.ASRTranscript,
		})
	}

	resp, err := s.client.score(ctx, "/score/speaking", req)
	if err != nil {
		return models.Result{}, err
	}

	overall := weightedOverall(resp.CriteriaScores, config.SpeakingParams.CriteriaWeights)
	return models.Result{
		SessionID:        session.ID,
		ProficiencyLevel: bandFromCutoffs(overall, rubric.CEFRCutoffs),
		OverallScore:     overall,
		ResultType:       models.ResultSpeaking,
		CriteriaScores:   resp.CriteriaScores,
		Transcript:       resp.Transcript,
	}, nil
}

// WritingScorer calls the external LLM essay-grading service.
type WritingScorer struct {
	client *httpClient
}

func NewWritingScorer(baseURL string, timeout time.Duration, tokenProvider func() string) *WritingScorer {
	return &WritingScorer{client: newHTTPClient(baseURL, timeout, tokenProvider)}
}

func (s *WritingScorer) Score(ctx context.Context, session models.Session, responses []models.Response, config models.AssessmentConfig, rubric models.Rubric) (models.Result, error) {
	req := scoreRequest{
		SessionID: session.ID.String(),
		Weights:   config.WritingParams.CriteriaWeights,
	}
	for _, r := range responses {
		text := ""
		if r.ResponseData != nil {
			if v, ok := r.ResponseData["text"].(string); ok {
				text = v
			}
		}
		req.Responses = append(req.Responses, scoreResponseItem{
			ItemID:       r.ItemID.String(),
			ResponseText: text,
		})
	}

	resp, err := s.client.score(ctx, "/score/writing", req)
	if err != nil {
		return models.Result{}, err
	}

	overall := weightedOverall(resp.CriteriaScores, config.WritingParams.CriteriaWeights)
	return models.Result{
		SessionID:        session.ID,
		ProficiencyLevel: bandFromCutoffs(overall, rubric.CEFRCutoffs),
		OverallScore:     overall,
		ResultType:       models.ResultWriting,
		CriteriaScores:   resp.CriteriaScores,
		EssayText:        resp.EssayText,
		WordCount:        resp.WordCount,
	}, nil
}
