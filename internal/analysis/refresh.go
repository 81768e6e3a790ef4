package analysis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/site-scout/internal/apperr"
	"github.com/sells-group/site-scout/internal/metrics"
	"github.com/sells-group/site-scout/internal/model"
	"github.com/sells-group/site-scout/internal/resilience"
)

// RefreshEventType labels a refresh progress event.
type RefreshEventType string

const (
	EventStarted   RefreshEventType = "started"
	EventKeyword   RefreshEventType = "keyword"
	EventCompleted RefreshEventType = "completed"
	EventFailed    RefreshEventType = "failed"
)

// RefreshEvent reports refresh progress.
type RefreshEvent struct {
	Type      RefreshEventType `json:"type"`
	RunID     string           `json:"run_id"`
	City      string           `json:"city"`
	Keyword   string           `json:"keyword,omitempty"`
	Index     int              `json:"index,omitempty"`
	Total     int              `json:"total"`
	Fetched   int              `json:"fetched"`
	Percent   float64          `json:"percent"`
	ErrorCode apperr.Code      `json:"error_code,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// RefreshRequest lists the keywords to re-fetch for a city.
type RefreshRequest struct {
	City     string
	Keywords []string
	// OnProgress is called synchronously for every event. Optional.
	OnProgress func(RefreshEvent)
}

// KeywordResult is the outcome of one keyword. Failed keywords have Fetched 0.
type KeywordResult struct {
	Keyword   string      `json:"keyword"`
	Fetched   int         `json:"fetched"`
	ErrorCode apperr.Code `json:"error_code,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// RefreshReport summarizes a refresh run.
type RefreshReport struct {
	RunID        string          `json:"run_id"`
	City         string          `json:"city"`
	Results      []KeywordResult `json:"results"`
	TotalFetched int             `json:"total_fetched"`
	StartedAt    time.Time       `json:"started_at"`
	Duration     time.Duration   `json:"duration"`
}

// Failed returns the keywords that recorded an error.
func (r *RefreshReport) Failed() []KeywordResult {
	var out []KeywordResult
	for _, kr := range r.Results {
		if kr.ErrorCode != "" {
			out = append(out, kr)
		}
	}
	return out
}

// Refresh fetches every keyword sequentially and upserts each keyword's POIs
// before moving on. Systemic provider failures and storage errors abort the run
// and are returned with the partial report; other keyword failures are recorded.
func (s *Service) Refresh(ctx context.Context, req RefreshRequest) (*RefreshReport, error) {
	city, err := requireCity(req.City)
	if err != nil {
		return nil, err
	}
	keywords := model.NormalizeKeywords(req.Keywords)
	if len(keywords) == 0 {
		return nil, apperr.Validationf("at least one keyword is required")
	}
	if !s.providerReady() {
		return nil, apperr.New(apperr.CodeProviderKeyMissing, "provider is not configured")
	}

	report := &RefreshReport{
		RunID:     uuid.NewString(),
		City:      city,
		Results:   make([]KeywordResult, 0, len(keywords)),
		StartedAt: s.now(),
	}
	total := len(keywords)
	emit := func(ev RefreshEvent) {
		ev.RunID = report.RunID
		ev.City = city
		ev.Total = total
		if req.OnProgress != nil {
			req.OnProgress(ev)
		}
	}
	fail := func(err error) (*RefreshReport, error) {
		report.Duration = s.now().Sub(report.StartedAt)
		emit(RefreshEvent{
			Type:      EventFailed,
			Fetched:   report.TotalFetched,
			ErrorCode: apperr.CodeOf(err),
			Error:     err.Error(),
		})
		return report, err
	}

	log := zap.L().With(zap.String("run_id", report.RunID), zap.String("city", city))
	log.Info("refresh: started", zap.Int("keywords", total))
	emit(RefreshEvent{Type: EventStarted})

	retry := s.retry
	retry.ShouldRetry = func(err error) bool { return apperr.Is(err, apperr.CodeProviderRateLimited) }
	retry.OnRetry = resilience.RetryLogger("refresh keyword", zap.String("run_id", report.RunID))

	for i, kw := range keywords {
		if err := ctx.Err(); err != nil {
			return fail(eris.Wrap(err, "refresh: cancelled"))
		}

		recs, err := resilience.DoVal(ctx, retry, func(ctx context.Context) ([]model.CachedPOI, error) {
			return s.fetchKeyword(ctx, city, kw)
		})

		result := KeywordResult{Keyword: kw}
		switch {
		case err != nil && ctx.Err() != nil:
			return fail(eris.Wrap(ctx.Err(), "refresh: cancelled"))
		case err != nil && apperr.IsSystemic(err):
			metrics.ObserveRefreshKeyword(string(apperr.CodeOf(err)), 0)
			log.Error("refresh: aborting on systemic provider error", zap.String("keyword", kw), zap.Error(err))
			report.Results = append(report.Results, KeywordResult{
				Keyword: kw, ErrorCode: apperr.CodeOf(err), Error: err.Error(),
			})
			return fail(err)
		case err != nil:
			result.ErrorCode = apperr.CodeOf(err)
			result.Error = err.Error()
			metrics.ObserveRefreshKeyword(string(result.ErrorCode), 0)
			log.Warn("refresh: keyword failed", zap.String("keyword", kw), zap.Error(err))
		default:
			n, err := s.pois.UpsertPOIs(ctx, recs)
			if err != nil {
				return fail(apperr.Storage(err, "cache fetched pois"))
			}
			result.Fetched = n
			report.TotalFetched += n
			metrics.ObserveRefreshKeyword("ok", n)
			log.Info("refresh: keyword cached", zap.String("keyword", kw), zap.Int("fetched", n))
		}
		report.Results = append(report.Results, result)

		emit(RefreshEvent{
			Type:      EventKeyword,
			Keyword:   kw,
			Index:     i + 1,
			Fetched:   result.Fetched,
			Percent:   float64(i+1) * 100 / float64(total),
			ErrorCode: result.ErrorCode,
			Error:     result.Error,
		})
	}

	report.Duration = s.now().Sub(report.StartedAt)
	emit(RefreshEvent{Type: EventCompleted, Fetched: report.TotalFetched, Percent: 100})
	log.Info("refresh: completed",
		zap.Int("total_fetched", report.TotalFetched),
		zap.Int("failed", len(report.Failed())),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}
