// Package review turns whatever a business owner pastes into a Google Maps
// link box into a place id, business details and the links built from them.
package review

import (
	"context"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/reviewlink/reviewlink/gmaps"
	"github.com/reviewlink/reviewlink/places"
)

// Resolver follows a URL and recovers a place id from where it lands.
type Resolver interface {
	Resolve(ctx context.Context, rawInput string) (string, error)
}

// PlaceLookup fetches business details. A nil result with a nil error means
// the place does not exist.
type PlaceLookup interface {
	Lookup(ctx context.Context, placeID string) (*places.BusinessInfo, error)
}

var (
	_ Resolver    = (*gmaps.Resolver)(nil)
	_ PlaceLookup = (*places.Client)(nil)
)

type Links struct {
	PlaceID         string `json:"placeId"`
	ReviewPageURL   string `json:"reviewPageUrl"`
	GoogleReviewURL string `json:"googleReviewUrl"`
}

type Service struct {
	resolver Resolver
	lookup   PlaceLookup
	cache    Cache
	baseURL  string
	logger   *zap.Logger
}

type Option func(*Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithCache(cache Cache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithBaseURL sets the public origin used for review page links.
func WithBaseURL(baseURL string) Option {
	return func(s *Service) {
		s.baseURL = baseURL
	}
}

func NewService(resolver Resolver, lookup PlaceLookup, opts ...Option) *Service {
	s := &Service{
		resolver: resolver,
		lookup:   lookup,
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ResolvePlaceID classifies input and, when the classification asks for it,
// resolves it over the network. Errors are ErrInvalidInput or
// ErrResolutionFailed.
func (s *Service) ResolvePlaceID(ctx context.Context, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrInvalidInput
	}

	parsed := gmaps.Classify(input)

	if parsed.CanonicalID != "" {
		if !gmaps.IsPlaceID(parsed.CanonicalID) {
			s.logger.Info("extracted id has no place id shape",
				zap.String("input", input),
				zap.Stringer("source_kind", parsed.SourceKind))

			return "", ErrResolutionFailed
		}

		return parsed.CanonicalID, nil
	}

	if !parsed.RequiresNetworkResolution {
		return "", ErrInvalidInput
	}

	id, err := s.resolver.Resolve(ctx, input)
	if err != nil {
		s.logger.Warn("place id resolution failed",
			zap.String("input", input),
			zap.Stringer("source_kind", parsed.SourceKind),
			zap.Error(err))

		return "", multierr.Append(ErrResolutionFailed, err)
	}

	if !gmaps.IsPlaceID(id) {
		return "", ErrResolutionFailed
	}

	return id, nil
}

// ResolveAndLookup is the single entry point from raw user input to
// normalized business details.
func (s *Service) ResolveAndLookup(ctx context.Context, input string) (*places.BusinessInfo, error) {
	id, err := s.ResolvePlaceID(ctx, input)
	if err != nil {
		return nil, err
	}

	return s.Lookup(ctx, id)
}

// Lookup fetches details of an already resolved place id, consulting the
// cache first.
func (s *Service) Lookup(ctx context.Context, placeID string) (*places.BusinessInfo, error) {
	if !gmaps.IsPlaceID(placeID) {
		return nil, ErrResolutionFailed
	}

	if s.cache != nil {
		if info, ok := s.cache.Get(ctx, placeID); ok {
			return info, nil
		}
	}

	info, err := s.lookup.Lookup(ctx, placeID)
	if err != nil {
		s.logger.Error("place lookup failed", zap.String("place_id", placeID), zap.Error(err))

		return nil, multierr.Append(ErrUpstream, err)
	}

	if info == nil {
		return nil, ErrNotFound
	}

	if s.cache != nil {
		s.cache.Set(ctx, placeID, info)
	}

	return info, nil
}

// Links resolves input and builds the review page and Google review links
// for it. No place lookup is made.
func (s *Service) Links(ctx context.Context, input string) (*Links, error) {
	id, err := s.ResolvePlaceID(ctx, input)
	if err != nil {
		return nil, err
	}

	return &Links{
		PlaceID:         id,
		ReviewPageURL:   gmaps.GenerateReviewPageURL(id, s.baseURL),
		GoogleReviewURL: gmaps.GenerateGoogleReviewURL(id),
	}, nil
}
