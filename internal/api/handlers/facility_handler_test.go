package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gramaarogya/backend/internal/api/handlers"
	"github.com/gramaarogya/backend/internal/application/services"
	"github.com/gramaarogya/backend/internal/domain/entities"
	"github.com/gramaarogya/backend/internal/domain/providers"
	apperrors "github.com/gramaarogya/backend/pkg/errors"
	"github.com/gramaarogya/backend/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var cuttack = geo.Coordinate{Latitude: 20.4625, Longitude: 85.8828}

func sampleOutcome() *services.SearchOutcome {
	center := cuttack
	near := entities.NewFacilityResult(center, entities.FacilityCandidate{
		Name:       "SCB Medical College",
		Address:    "Manglabag, Cuttack",
		Coordinate: geo.Coordinate{Latitude: 20.4710, Longitude: 85.8890},
		Website:    "https://scbmch.gov.in",
	})
	far := entities.NewFacilityResult(center, entities.FacilityCandidate{
		Name:       "City Hospital",
		Address:    "Badambadi, Cuttack",
		Coordinate: geo.Coordinate{Latitude: 20.4480, Longitude: 85.8660},
	})
	results := []entities.FacilityResult{near, far}
	return &services.SearchOutcome{
		State:        entities.SearchStateResults,
		Center:       center,
		CenterSource: entities.CenterSourceExplicit,
		Results:      results,
		Markers:      services.BuildMarkers(center, results),
	}
}

func TestFacilityHandler_NearbyWithCoordinates(t *testing.T) {
	searcher := new(MockSearcher)
	searcher.On("Search", mock.Anything, mock.MatchedBy(func(req services.SearchRequest) bool {
		return req.Center != nil && *req.Center == cuttack &&
			req.Term == "dentist" && req.FacilityType == services.FacilityTypePrivate
	})).Return(sampleOutcome(), nil)

	handler := handlers.NewFacilityHandler(searcher)
	req := httptest.NewRequest(http.MethodGet, "/api/facilities/nearby?lat=20.4625&lon=85.8828&q=+dentist+&type=private", nil)
	rec := httptest.NewRecorder()
	handler.Nearby(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body services.SearchOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, entities.SearchStateResults, body.State)
	require.Len(t, body.Results, 2)
	assert.Equal(t, "SCB Medical College", body.Results[0].Name)
	assert.Equal(t, services.UserMarkerLabel, body.Markers[0].Label)
	searcher.AssertExpectations(t)
}

func TestFacilityHandler_NearbyWithAddress(t *testing.T) {
	searcher := new(MockSearcher)
	searcher.On("Search", mock.Anything, mock.MatchedBy(func(req services.SearchRequest) bool {
		return req.Center == nil && req.Address == "Puri, Odisha"
	})).Return(&services.SearchOutcome{State: entities.SearchStateEmpty}, nil)

	handler := handlers.NewFacilityHandler(searcher)
	req := httptest.NewRequest(http.MethodGet, "/api/facilities/nearby?address=Puri,+Odisha", nil)
	rec := httptest.NewRecorder()
	handler.Nearby(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"empty"`)
	searcher.AssertExpectations(t)
}

func TestFacilityHandler_NearbyRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "lat only", query: "lat=20.1"},
		{name: "lat out of range", query: "lat=91&lon=85"},
		{name: "lon not a number", query: "lat=20&lon=east"},
		{name: "nan", query: "lat=NaN&lon=85"},
		{name: "unknown type", query: "type=veterinary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := new(MockSearcher)
			handler := handlers.NewFacilityHandler(searcher)

			rec := httptest.NewRecorder()
			handler.Nearby(rec, httptest.NewRequest(http.MethodGet, "/api/facilities/nearby?"+tt.query, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
			searcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
		})
	}
}

func TestFacilityHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{
			name:    "all strategies failed",
			err:     apperrors.NewExternalError("facility search is unavailable, please try again", services.ErrAllStrategiesFailed),
			status:  http.StatusBadGateway,
			message: "facility search is unavailable, please try again",
		},
		{
			name:    "address not found",
			err:     apperrors.NewNotFoundError("could not find that location"),
			status:  http.StatusNotFound,
			message: "could not find that location",
		},
		{
			name:    "term too long",
			err:     apperrors.NewValidationError("search term is too long"),
			status:  http.StatusBadRequest,
			message: "search term is too long",
		},
		{
			name:    "unclassified",
			err:     errors.New("boom: secret detail"),
			status:  http.StatusInternalServerError,
			message: "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := new(MockSearcher)
			searcher.On("Search", mock.Anything, mock.Anything).Return(nil, tt.err)
			handler := handlers.NewFacilityHandler(searcher)

			rec := httptest.NewRecorder()
			handler.Nearby(rec, httptest.NewRequest(http.MethodGet, "/api/facilities/nearby?lat=20&lon=85", nil))

			assert.Equal(t, tt.status, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.message, body["error"])
		})
	}
}

func TestFacilityHandler_HealthCenters(t *testing.T) {
	searcher := new(MockSearcher)
	searcher.On("Search", mock.Anything, mock.MatchedBy(func(req services.SearchRequest) bool {
		if req.Center != nil || req.FacilityType != services.FacilityTypePublic {
			return false
		}
		static, ok := req.Locator.(providers.StaticLocator)
		return ok && geo.Coordinate(static) == cuttack
	})).Return(sampleOutcome(), nil)

	handler := handlers.NewFacilityHandler(searcher)
	rec := httptest.NewRecorder()
	handler.HealthCenters(rec, httptest.NewRequest(http.MethodGet, "/api/health-centers?lat=20.4625&lng=85.8828&type=public", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Results []struct {
			Name     string  `json:"name"`
			Vicinity string  `json:"vicinity"`
			Lat      float64 `json:"lat"`
			Lng      float64 `json:"lng"`
			Website  string  `json:"website"`
			Distance float64 `json:"distance"`
			MapsLink string  `json:"mapsLink"`
		} `json:"results"`
		State string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 2)

	first := body.Results[0]
	assert.Equal(t, "SCB Medical College", first.Name)
	assert.Equal(t, "Manglabag, Cuttack", first.Vicinity)
	assert.Equal(t, 20.4710, first.Lat)
	assert.Equal(t, 85.8890, first.Lng)
	assert.Equal(t, "https://scbmch.gov.in", first.Website)
	assert.Equal(t, "https://www.google.com/maps/search/?api=1&query=20.471,85.889", first.MapsLink)
	assert.Less(t, first.Distance, body.Results[1].Distance)
	assert.Equal(t, "results", body.State)
}

func TestFacilityHandler_HealthCentersWithoutLocation(t *testing.T) {
	searcher := new(MockSearcher)
	searcher.On("Search", mock.Anything, mock.MatchedBy(func(req services.SearchRequest) bool {
		return req.Center == nil && req.Locator == nil && req.FacilityType == services.FacilityTypeAll
	})).Return(&services.SearchOutcome{State: entities.SearchStateEmpty}, nil)

	handler := handlers.NewFacilityHandler(searcher)
	rec := httptest.NewRecorder()
	handler.HealthCenters(rec, httptest.NewRequest(http.MethodGet, "/api/health-centers", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"results":[],"state":"empty","center":{"latitude":0,"longitude":0}}`, rec.Body.String())
	searcher.AssertExpectations(t)
}
