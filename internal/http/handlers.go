package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chamu-dev/chamu/internal/domain"
	"github.com/chamu-dev/chamu/internal/repository"
	"github.com/chamu-dev/chamu/internal/session"
	"github.com/chamu-dev/chamu/internal/survey"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type userRequest struct {
	ID              *string `json:"id"`
	Name            string  `json:"name"`
	Country         string  `json:"country"`
	CurrentLocation *string `json:"currentLocation"`
	TargetRegion    *string `json:"targetRegion"`
}

type userResponse struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Country         *string `json:"country,omitempty"`
	CurrentLocation *string `json:"currentLocation,omitempty"`
	TargetRegion    *string `json:"targetRegion,omitempty"`
}

type criterionResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	LeftLabel  string `json:"leftLabel"`
	RightLabel string `json:"rightLabel"`
	Reverse    bool   `json:"reverse"`
}

type evaluationRequest struct {
	Scores map[string]int `json:"scores"`
}

type evaluationResponse struct {
	Location string `json:"location"`
	Inserted int    `json:"inserted"`
}

type scoreEntryResponse struct {
	Criterion  criterionResponse `json:"criterion"`
	BaseScore  float64           `json:"baseScore"`
	AvgScore   *float64          `json:"avgScore,omitempty"`
	FinalScore float64           `json:"finalScore"`
}

type preferencesRequest struct {
	Ranking map[string]string `json:"ranking"`
}

type preferencesResponse struct {
	Token string `json:"token"`
}

type matchResponse struct {
	Location   string                      `json:"location"`
	Region     *string                     `json:"region,omitempty"`
	Composite  float64                     `json:"composite"`
	Percentage float64                     `json:"percentage"`
	Breakdown  []domain.CriterionBreakdown `json:"breakdown"`
}

func (s *Server) handleListCriteria(w http.ResponseWriter, r *http.Request) {
	criteria, err := s.repo.Criteria.List(r.Context())
	if err != nil {
		s.logger.Printf("list criteria error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list criteria")
		return
	}
	items := make([]criterionResponse, 0, len(criteria))
	for _, c := range criteria {
		items = append(items, toCriterionResponse(c))
	}
	s.respondJSON(w, http.StatusOK, items)
}

// handleSubmitUser creates a profile on first submission and overwrites it
// when the same id is resubmitted.
func (s *Server) handleSubmitUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required")
		return
	}
	if strings.TrimSpace(req.Country) == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "country is required")
		return
	}

	ctx := r.Context()
	country, err := s.repo.Countries.GetByName(ctx, strings.TrimSpace(req.Country))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("unknown country %q", req.Country))
			return
		}
		s.logger.Printf("resolve country error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save user")
		return
	}

	params := repository.UserParams{Name: strings.TrimSpace(req.Name), CountryID: &country.ID}

	if req.CurrentLocation != nil && strings.TrimSpace(*req.CurrentLocation) != "" {
		loc, err := s.repo.Locations.GetByName(ctx, strings.TrimSpace(*req.CurrentLocation))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("unknown location %q", *req.CurrentLocation))
				return
			}
			s.logger.Printf("resolve location error: %v", err)
			s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save user")
			return
		}
		params.LocationID = &loc.ID
	}

	if req.TargetRegion != nil && strings.TrimSpace(*req.TargetRegion) != "" {
		region, err := s.repo.Locations.GetRegionByName(ctx, strings.TrimSpace(*req.TargetRegion))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("unknown region %q", *req.TargetRegion))
				return
			}
			s.logger.Printf("resolve region error: %v", err)
			s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save user")
			return
		}
		params.TargetRegionID = &region.ID
	}

	var (
		user   domain.UserProfile
		status = http.StatusCreated
	)
	if req.ID != nil && *req.ID != "" {
		user, err = s.repo.Users.Update(ctx, *req.ID, params)
		status = http.StatusOK
	} else {
		user, err = s.repo.Users.Create(ctx, params)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}
		s.logger.Printf("save user error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save user")
		return
	}

	s.respondJSON(w, status, userResponse{
		ID:              user.ID,
		Name:            user.Name,
		Country:         &country.Name,
		CurrentLocation: req.CurrentLocation,
		TargetRegion:    req.TargetRegion,
	})
}

func (s *Server) handleSubmitEvaluation(w http.ResponseWriter, r *http.Request) {
	name, err := decodeNameParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
		return
	}

	location, err := s.repo.Locations.GetByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}
		s.logger.Printf("fetch location for evaluation failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process evaluation")
		return
	}

	var req evaluationRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	result, err := s.aggregator.Submit(r.Context(), userID, location.ID, req.Scores)
	if err != nil {
		var verr *survey.ValidationError
		switch {
		case errors.As(err, &verr):
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", verr.Error())
		case errors.Is(err, repository.ErrNotFound):
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
		default:
			s.logger.Printf("submit evaluation error: %v", err)
			s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process evaluation")
		}
		return
	}

	s.respondJSON(w, http.StatusCreated, evaluationResponse{
		Location: location.Name,
		Inserted: result.Inserted,
	})
}

func (s *Server) handleListScores(w http.ResponseWriter, r *http.Request) {
	name, err := decodeNameParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	countryName := strings.TrimSpace(r.URL.Query().Get("country"))
	if countryName == "" {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "country query parameter is required")
		return
	}

	ctx := r.Context()
	location, err := s.repo.Locations.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}
		s.logger.Printf("fetch location for scores failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch scores")
		return
	}
	country, err := s.repo.Countries.GetByName(ctx, countryName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}
		s.logger.Printf("fetch country for scores failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch scores")
		return
	}

	views, err := s.repo.Scores.ListForLocation(ctx, location.ID, country.ID)
	if err != nil {
		s.logger.Printf("list scores error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch scores")
		return
	}

	items := make([]scoreEntryResponse, 0, len(views))
	for _, v := range views {
		items = append(items, scoreEntryResponse{
			Criterion:  toCriterionResponse(v.Criterion),
			BaseScore:  v.Record.BaseScore,
			AvgScore:   v.Record.AvgScore,
			FinalScore: v.Record.FinalScore,
		})
	}
	s.respondJSON(w, http.StatusOK, items)
}

// handleSubmitPreferences validates a priority ranking, stores it in the
// session, and hands back the token the results step presents.
func (s *Server) handleSubmitPreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	ranking := make(domain.PreferenceRanking, len(req.Ranking))
	for rankStr, criterionID := range req.Ranking {
		rank, err := strconv.Atoi(rankStr)
		if err != nil {
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("rank %q is not a number", rankStr))
			return
		}
		ranking[rank] = criterionID
	}
	if err := ranking.Validate(); err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return
	}

	ids := make([]string, 0, len(ranking))
	for _, id := range ranking {
		ids = append(ids, id)
	}
	known, err := s.repo.Criteria.ByIDs(r.Context(), ids)
	if err != nil {
		s.logger.Printf("resolve ranking criteria error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save preferences")
		return
	}
	if len(known) != len(ids) {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "ranking references an unknown criterion")
		return
	}

	token := uuid.NewString()
	if err := s.sessions.SaveRanking(r.Context(), token, ranking); err != nil {
		s.logger.Printf("save ranking error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save preferences")
		return
	}
	s.respondJSON(w, http.StatusCreated, preferencesResponse{Token: token})
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.Header.Get("X-Session-Id"))
	if token == "" {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
		return
	}
	countryName := strings.TrimSpace(r.URL.Query().Get("country"))
	if countryName == "" {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "country query parameter is required")
		return
	}

	ctx := r.Context()
	ranking, err := s.sessions.Ranking(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "No preference ranking for this session")
			return
		}
		s.logger.Printf("load ranking error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute matches")
		return
	}

	country, err := s.repo.Countries.GetByName(ctx, countryName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}
		s.logger.Printf("fetch country for matches failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute matches")
		return
	}

	var regionID *string
	regionName := strings.TrimSpace(r.URL.Query().Get("region"))
	if regionName != "" {
		region, err := s.repo.Locations.GetRegionByName(ctx, regionName)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
				return
			}
			s.logger.Printf("fetch region for matches failed: %v", err)
			s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute matches")
			return
		}
		regionID = &region.ID
	}

	results, err := s.matcher.Match(ctx, ranking, country.ID, regionID)
	if err != nil {
		s.logger.Printf("match error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute matches")
		return
	}

	items := make([]matchResponse, 0, len(results))
	for _, res := range results {
		items = append(items, matchResponse{
			Location:   res.Location.Name,
			Region:     res.Location.RegionID,
			Composite:  res.Composite,
			Percentage: res.Percentage,
			Breakdown:  res.Breakdown,
		})
	}
	s.respondJSON(w, http.StatusOK, items)
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Printf("failed to encode response: %v", err)
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{Code: code, Message: message})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	default:
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse request body")
	}
}

func toCriterionResponse(c domain.Criterion) criterionResponse {
	return criterionResponse{
		ID:         c.ID,
		Name:       c.Name,
		Slug:       c.Slug,
		LeftLabel:  c.LeftLabel,
		RightLabel: c.RightLabel,
		Reverse:    c.Reverse,
	}
}

func decodeNameParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "name")
	if raw == "" {
		return "", fmt.Errorf("missing name parameter")
	}
	name, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("invalid name parameter")
	}
	return name, nil
}
