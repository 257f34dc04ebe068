package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/classifly/ad-service/internal/adapter/storage/s3"
	"github.com/classifly/ad-service/internal/domain/entity"
	"github.com/classifly/ad-service/internal/platform/logger"
	"github.com/classifly/ad-service/internal/port/http/middleware"
	"github.com/classifly/ad-service/internal/service"
	"github.com/classifly/ad-service/internal/taxonomy"
	"github.com/go-chi/chi/v5"
)

const maxImageUploadBytes = 10 << 20

type AdHandler struct {
	catalog  service.CatalogService
	search   service.SearchService
	payments service.PaymentService
	tax      *taxonomy.Tree
	images   s3.ImageStorage
	log      logger.Logger
}

func NewAdHandler(
	catalog service.CatalogService,
	search service.SearchService,
	payments service.PaymentService,
	tax *taxonomy.Tree,
	images s3.ImageStorage,
	log logger.Logger,
) *AdHandler {
	return &AdHandler{
		catalog:  catalog,
		search:   search,
		payments: payments,
		tax:      tax,
		images:   images,
		log:      log,
	}
}

type createAdRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Subcategory string           `json:"subcategory"`
	Price       float64          `json:"price"`
	Images      []string         `json:"images"`
	Location    *entity.Location `json:"location,omitempty"`
	Premium     bool             `json:"premium"`
}

type createAdResponse struct {
	Ad       *entity.Ad             `json:"ad"`
	Checkout *service.UpgradeHandle `json:"checkout,omitempty"`
}

type updateAdRequest struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Price       *float64  `json:"price,omitempty"`
	Images      *[]string `json:"images,omitempty"`
	Subcategory *string   `json:"subcategory,omitempty"`
}

type createSessionRequest struct {
	AdID string `json:"ad_id"`
}

type paymentStatusResponse struct {
	Status  service.UpgradeOutcome `json:"status"`
	Session *entity.PaymentSession `json:"session"`
}

func (h *AdHandler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"categories": h.tax.List()})
}

func (h *AdHandler) HandleSearchAds(w http.ResponseWriter, r *http.Request) {
	filter, err := parseSearchFilter(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	ads, err := h.search.Search(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"ads": ads, "count": len(ads)})
}

func parseSearchFilter(r *http.Request) (service.SearchFilter, error) {
	q := r.URL.Query()
	filter := service.SearchFilter{
		Category:    q.Get("category"),
		Subcategory: q.Get("subcategory"),
		Text:        q.Get("q"),
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return filter, &entity.ValidationError{Field: "limit", Reason: "must be an integer"}
		}
		filter.Limit = limit
	}
	if q.Get("include_expired") == "true" {
		filter.IncludeExpired = true
	}

	latRaw, lonRaw, radiusRaw := q.Get("lat"), q.Get("lon"), q.Get("radius_km")
	if latRaw != "" || lonRaw != "" || radiusRaw != "" {
		if latRaw == "" || lonRaw == "" || radiusRaw == "" {
			return filter, &entity.ValidationError{Field: "geo", Reason: "lat, lon and radius_km must all be provided"}
		}
		lat, err := strconv.ParseFloat(latRaw, 64)
		if err != nil {
			return filter, &entity.ValidationError{Field: "lat", Reason: "must be a number"}
		}
		lon, err := strconv.ParseFloat(lonRaw, 64)
		if err != nil {
			return filter, &entity.ValidationError{Field: "lon", Reason: "must be a number"}
		}
		radius, err := strconv.ParseFloat(radiusRaw, 64)
		if err != nil {
			return filter, &entity.ValidationError{Field: "radius_km", Reason: "must be a number"}
		}
		filter.Geo = &service.GeoFilter{Lat: lat, Lon: lon, RadiusKm: radius}
	}
	return filter, nil
}

func (h *AdHandler) HandleGetAd(w http.ResponseWriter, r *http.Request) {
	adID := chi.URLParam(r, "adID")
	ad, err := h.catalog.GetAd(r.Context(), adID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ad)
}

func (h *AdHandler) HandleCreateAd(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req createAdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	draft := entity.AdDraft{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Price:       req.Price,
		Images:      req.Images,
		Location:    req.Location,
	}

	ad, handle, err := h.catalog.CreateAd(r.Context(), userID, draft, req.Premium, requestOrigin(r))
	if err != nil {
		// A premium ad may exist even though the checkout could not be
		// opened; the client retries the upgrade separately.
		if ad != nil {
			h.log.Warnf("Ad %s created without checkout session: %v", ad.ID, err)
			respondJSON(w, http.StatusCreated, createAdResponse{Ad: ad})
			return
		}
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, createAdResponse{Ad: ad, Checkout: handle})
}

func requestOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		return origin
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func (h *AdHandler) HandleUpdateAd(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	adID := chi.URLParam(r, "adID")

	var req updateAdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ad, err := h.catalog.UpdateAd(r.Context(), adID, userID, service.AdPatch{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Images:      req.Images,
		Subcategory: req.Subcategory,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ad)
}

func (h *AdHandler) HandleDeleteAd(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	adID := chi.URLParam(r, "adID")

	if err := h.catalog.DeleteAd(r.Context(), adID, userID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdHandler) HandleListMyAds(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	ads, err := h.catalog.ListMyAds(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"ads": ads, "count": len(ads)})
}

func (h *AdHandler) HandleCreatePaymentSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AdID == "" {
		http.Error(w, "ad_id is required", http.StatusBadRequest)
		return
	}

	handle, err := h.payments.BeginUpgrade(r.Context(), userID, req.AdID, requestOrigin(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, handle)
}

func (h *AdHandler) HandlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	sessionID := chi.URLParam(r, "sessionID")

	outcome, session, err := h.payments.PollStatus(r.Context(), userID, middleware.UserEmailFromContext(r.Context()), sessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, paymentStatusResponse{Status: outcome, Session: session})
}

func (h *AdHandler) HandleUploadImage(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserIDFromContext(r.Context()); !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxImageUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageUploadBytes+1))
	if err != nil {
		http.Error(w, "failed to read uploaded file", http.StatusBadRequest)
		return
	}
	if len(data) > maxImageUploadBytes {
		http.Error(w, "file is too large", http.StatusRequestEntityTooLarge)
		return
	}

	url, err := h.images.Upload(r.Context(), header.Filename, data)
	if err != nil {
		h.log.Errorf("Failed to upload image %s: %v", header.Filename, err)
		http.Error(w, "failed to store image", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"url": url})
}

func (h *AdHandler) writeError(w http.ResponseWriter, err error) {
	var verr *entity.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Error()})
	case errors.Is(err, service.ErrAdNotFound), errors.Is(err, service.ErrSessionNotFound):
		respondJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		respondJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrConflict):
		respondJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		h.log.Errorf("Request failed: %v", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
