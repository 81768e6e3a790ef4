// Package planning manages candidate sites (planning points) per city and
// suggests provider POIs to seed them from.
package planning

import (
	"context"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/site-scout/internal/apperr"
	"github.com/sells-group/site-scout/internal/model"
	"github.com/sells-group/site-scout/internal/provider"
	"github.com/sells-group/site-scout/internal/store"
)

const (
	DefaultRadiusMeters = 1000
	MinRadiusMeters     = 100
	MaxRadiusMeters     = 2000

	DefaultPriorityRank = 100
	MinPriorityRank     = 1
	MaxPriorityRank     = 999

	maxNotesLen = 2000
	maxNameLen  = 120
	maxRefLen   = 120

	// DefaultSuggestionLimit and MaxSuggestionLimit bound SearchPOIs.
	DefaultSuggestionLimit = 8
	MaxSuggestionLimit     = 12
	maxSuggestionPage      = 25

	unnamedPOI = "未命名地点"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Service validates and persists planning points.
type Service struct {
	store    store.PlanningStore
	provider provider.Provider
	now      func() time.Time
	newID    func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDs overrides the point id generator.
func WithIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// New creates a Service. prov may be nil, in which case SearchPOIs reports the
// provider as not configured.
func New(st store.PlanningStore, prov provider.Provider, opts ...Option) *Service {
	s := &Service{store: st, provider: prov, now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest is the input for Create. Zero values take the defaults.
type CreateRequest struct {
	City         string
	Name         string
	Lng          float64
	Lat          float64
	RadiusMeters int
	Color        string
	ColorToken   string
	Status       string
	PriorityRank int
	Notes        string
	SourceType   string
	SourcePOIID  string
	UpdatedBy    string
}

// Patch is a partial update. Nil fields are left alone.
type Patch struct {
	City         *string
	Name         *string
	Lng          *float64
	Lat          *float64
	RadiusMeters *int
	Color        *string
	ColorToken   *string
	Status       *string
	PriorityRank *int
	Notes        *string
	SourceType   *string
	SourcePOIID  *string
	UpdatedBy    *string
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p == (Patch{})
}

// List returns the points in city, newest first. "" lists every city.
func (s *Service) List(ctx context.Context, city string) ([]model.PlanningPoint, error) {
	points, err := s.store.ListPlanningPoints(ctx, city)
	if err != nil {
		return nil, apperr.Storage(err, "list planning points")
	}
	if points == nil {
		points = []model.PlanningPoint{}
	}
	return points, nil
}

// Get returns one point or a NotFound error.
func (s *Service) Get(ctx context.Context, id string) (*model.PlanningPoint, error) {
	p, ok, err := s.store.GetPlanningPoint(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, apperr.Storage(err, "load planning point")
	}
	if !ok {
		return nil, apperr.NotFoundf("planning point %q does not exist", id)
	}
	return p, nil
}

// Create normalizes req and stores it as a new point.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*model.PlanningPoint, error) {
	city := strings.TrimSpace(req.City)
	if city == "" {
		return nil, apperr.Validationf("city is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validationf("name is required")
	}
	if err := checkCoordinate(req.Lng, req.Lat); err != nil {
		return nil, err
	}

	status := normalizeStatus(req.Status)
	token := status
	if strings.TrimSpace(req.ColorToken) != "" {
		token = normalizeStatus(req.ColorToken)
	}
	source := normalizeSource(req.SourceType)
	now := s.now().UTC().Truncate(time.Second)

	p := &model.PlanningPoint{
		ID:           s.newID(),
		City:         city,
		Name:         shorten(name, maxNameLen),
		Lng:          req.Lng,
		Lat:          req.Lat,
		RadiusMeters: clampRadius(orDefault(req.RadiusMeters, DefaultRadiusMeters)),
		Color:        resolveColor(token, req.Color),
		ColorToken:   token,
		Status:       status,
		PriorityRank: clampPriority(orDefault(req.PriorityRank, DefaultPriorityRank)),
		Notes:        shorten(strings.TrimSpace(req.Notes), maxNotesLen),
		SourceType:   source,
		SourcePOIID:  sourceRef(req.SourcePOIID, source),
		UpdatedBy:    shorten(strings.TrimSpace(req.UpdatedBy), maxRefLen),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreatePlanningPoint(ctx, p); err != nil {
		return nil, apperr.Storage(err, "create planning point")
	}
	zap.L().Info("planning: point created",
		zap.String("id", p.ID), zap.String("city", p.City), zap.String("status", string(p.Status)))
	return p, nil
}

// Update applies patch to an existing point. An empty patch returns the point
// unchanged. Changing any of status, color token or color re-resolves all three.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*model.PlanningPoint, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return p, nil
	}

	if patch.City != nil {
		city := strings.TrimSpace(*patch.City)
		if city == "" {
			return nil, apperr.Validationf("city is required")
		}
		p.City = city
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.Validationf("name is required")
		}
		p.Name = shorten(name, maxNameLen)
	}

	lng, lat := p.Lng, p.Lat
	if patch.Lng != nil {
		lng = *patch.Lng
	}
	if patch.Lat != nil {
		lat = *patch.Lat
	}
	if err := checkCoordinate(lng, lat); err != nil {
		return nil, err
	}
	p.Lng, p.Lat = lng, lat

	if patch.RadiusMeters != nil {
		p.RadiusMeters = clampRadius(*patch.RadiusMeters)
	}

	if patch.Status != nil || patch.ColorToken != nil || patch.Color != nil {
		if patch.Status != nil {
			p.Status = normalizeStatus(*patch.Status)
		}
		p.ColorToken = p.Status
		if patch.ColorToken != nil {
			p.ColorToken = normalizeStatus(*patch.ColorToken)
		}
		var custom string
		if patch.Color != nil {
			custom = *patch.Color
		}
		p.Color = resolveColor(p.ColorToken, custom)
	}

	if patch.PriorityRank != nil {
		p.PriorityRank = clampPriority(*patch.PriorityRank)
	}
	if patch.Notes != nil {
		p.Notes = shorten(strings.TrimSpace(*patch.Notes), maxNotesLen)
	}

	switch {
	case patch.SourceType != nil:
		source := normalizeSource(*patch.SourceType)
		if patch.SourcePOIID != nil || source != p.SourceType {
			var ref string
			if patch.SourcePOIID != nil {
				ref = *patch.SourcePOIID
			}
			p.SourcePOIID = sourceRef(ref, source)
		}
		p.SourceType = source
	case patch.SourcePOIID != nil:
		p.SourcePOIID = sourceRef(*patch.SourcePOIID, p.SourceType)
	}

	if patch.UpdatedBy != nil {
		p.UpdatedBy = shorten(strings.TrimSpace(*patch.UpdatedBy), maxRefLen)
	}
	p.UpdatedAt = s.now().UTC().Truncate(time.Second)

	ok, err := s.store.UpdatePlanningPoint(ctx, p)
	if err != nil {
		return nil, apperr.Storage(err, "update planning point")
	}
	if !ok {
		return nil, apperr.NotFoundf("planning point %q does not exist", id)
	}
	return p, nil
}

// Delete removes a point. A missing point is a NotFound error.
func (s *Service) Delete(ctx context.Context, id string) error {
	ok, err := s.store.DeletePlanningPoint(ctx, strings.TrimSpace(id))
	if err != nil {
		return apperr.Storage(err, "delete planning point")
	}
	if !ok {
		return apperr.NotFoundf("planning point %q does not exist", id)
	}
	zap.L().Info("planning: point deleted", zap.String("id", id))
	return nil
}

// SearchPOIs suggests up to limit provider POIs matching keyword in city.
// limit is clamped to [1, MaxSuggestionLimit]; 0 uses DefaultSuggestionLimit.
func (s *Service) SearchPOIs(ctx context.Context, city, keyword string, limit int) ([]model.POISuggestion, error) {
	city = strings.TrimSpace(city)
	keyword = strings.TrimSpace(keyword)
	if city == "" {
		return nil, apperr.Validationf("city is required")
	}
	if keyword == "" {
		return nil, apperr.Validationf("keyword is required")
	}
	if limit == 0 {
		limit = DefaultSuggestionLimit
	}
	limit = min(max(limit, 1), MaxSuggestionLimit)

	if s.provider == nil || !s.provider.Ready() {
		return nil, apperr.New(apperr.CodeProviderKeyMissing, "provider is not configured")
	}
	pois, err := s.provider.SearchByKeyword(ctx, keyword, city, min(limit, maxSuggestionPage))
	if err != nil {
		zap.L().Error("planning: poi search failed",
			zap.String("city", city), zap.String("keyword", keyword), zap.Error(err))
		return nil, apperr.FromProvider(err)
	}

	out := make([]model.POISuggestion, 0, min(len(pois), limit))
	for _, p := range pois[:min(len(pois), limit)] {
		sug := model.POISuggestion{ID: p.ID, Name: p.Name, Address: p.Address, Lng: p.Lng, Lat: p.Lat, City: p.City}
		if strings.TrimSpace(sug.Name) == "" {
			sug.Name = unnamedPOI
		}
		if sug.City == "" {
			sug.City = city
		}
		out = append(out, sug)
	}
	return out, nil
}

func checkCoordinate(lng, lat float64) error {
	if math.IsNaN(lng) || math.IsNaN(lat) || math.IsInf(lng, 0) || math.IsInf(lat, 0) {
		return apperr.Validationf("coordinate must be finite")
	}
	if !(model.Coordinate{Lng: lng, Lat: lat}).Valid() {
		return apperr.Validationf("coordinate %f,%f is out of range", lng, lat)
	}
	return nil
}

func clampRadius(r int) int {
	return min(max(r, MinRadiusMeters), MaxRadiusMeters)
}

func clampPriority(r int) int {
	return min(max(r, MinPriorityRank), MaxPriorityRank)
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// normalizeStatus lowercases v and falls back to pending for anything unknown.
func normalizeStatus(v string) model.PlanningStatus {
	st := model.PlanningStatus(strings.ToLower(strings.TrimSpace(v)))
	if _, ok := model.StatusColors[st]; ok {
		return st
	}
	return model.StatusPending
}

func normalizeSource(v string) model.PlanningSource {
	switch src := model.PlanningSource(strings.ToLower(strings.TrimSpace(v))); src {
	case model.PlanningSourcePOI, model.PlanningSourceManual:
		return src
	}
	return model.PlanningSourceManual
}

// resolveColor prefers a custom color. An invalid custom color falls back to
// the pending color, not the token's.
func resolveColor(token model.PlanningStatus, custom string) string {
	if custom != "" {
		c := strings.TrimSpace(custom)
		if hexColor.MatchString(c) {
			return strings.ToLower(c)
		}
		return model.StatusColors[model.StatusPending]
	}
	if c, ok := model.StatusColors[token]; ok {
		return c
	}
	return model.StatusColors[model.StatusPending]
}

// sourceRef keeps a POI reference only for POI-sourced points.
func sourceRef(ref string, source model.PlanningSource) string {
	if source != model.PlanningSourcePOI {
		return ""
	}
	return shorten(strings.TrimSpace(ref), maxRefLen)
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
