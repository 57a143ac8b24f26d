package services

import (
	"biligate/internal/core/domain"
)

// QualityService clamps caller-requested quality codes to the ceiling
// granted by the access tier. Codes form a total order; the "auto" code
// (-1) ranks above every concrete level.
type QualityService struct {
	ranks map[string]int
}

func NewQualityService() *QualityService {
	return &QualityService{
		ranks: map[string]int{
			domain.Quality360p:  1,
			domain.Quality480p:  2,
			domain.Quality720p:  3,
			domain.Quality1080p: 4,
			domain.Quality4K:    5,
			domain.QualityAuto:  6,
		},
	}
}

// Clamp returns the requested quality unless it is absent, unknown, or
// ranks above the ceiling; in all of those cases the ceiling is returned.
// Malformed input degrades, it never fails.
func (qs *QualityService) Clamp(requested, ceiling string) string {
	ceilingRank, ok := qs.ranks[ceiling]
	if !ok {
		// Unknown ceiling means a misconfigured tier; treat it as
		// unrestricted rather than denying playback.
		ceilingRank = qs.ranks[domain.QualityAuto]
	}

	requestedRank, ok := qs.ranks[requested]
	if !ok {
		return ceiling
	}
	if requestedRank > ceilingRank {
		return ceiling
	}
	return requested
}

// Known reports whether the code is in the accepted quality set.
func (qs *QualityService) Known(quality string) bool {
	_, ok := qs.ranks[quality]
	return ok
}
