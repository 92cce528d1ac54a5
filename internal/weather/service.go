package weather

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Service combines geocoding and forecast lookup into one place-name query.
type Service struct {
	geocoder *Geocoder
	forecast *ForecastClient
	logger   *slog.Logger
}

// NewService creates the combined lookup service.
func NewService(geocoder *Geocoder, forecast *ForecastClient, logger *slog.Logger) *Service {
	return &Service{
		geocoder: geocoder,
		forecast: forecast,
		logger:   logger,
	}
}

// Lookup resolves the place and returns a user-facing forecast line for
// the given time.
func (s *Service) Lookup(ctx context.Context, placeName string, at time.Time) (string, error) {
	place, err := s.geocoder.Resolve(ctx, placeName)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", placeName, err)
	}

	report, err := s.forecast.Forecast(ctx, place.City, place.District, at)
	if err != nil {
		return "", fmt.Errorf("forecast for %s %s: %w", place.City, place.District, err)
	}

	s.logger.Debug("weather lookup answered",
		slog.String("city", place.City),
		slog.String("district", place.District))

	return fmt.Sprintf("%s %s：%s", place.City, place.District, report), nil
}
