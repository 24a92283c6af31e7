package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"traveltales/middleware"
	"traveltales/models"
	"traveltales/services"
	"traveltales/utils/errors"
)

type RouteHandler struct {
	routeService *services.RouteService
}

type routeResponse struct {
	Message string        `json:"message"`
	Route   *models.Route `json:"route"`
}

type NearbyRoutesResponse struct {
	Routes []models.RouteView `json:"routes"`
	Count  int                `json:"count"`
	Lat    float64            `json:"lat"`
	Lon    float64            `json:"lon"`
	Radius float64            `json:"radius"`
}

func NewRouteHandler(routeService *services.RouteService) *RouteHandler {
	return &RouteHandler{routeService: routeService}
}

// CreateRoute saves a route for the caller. Place names are filled in later.
func (h *RouteHandler) CreateRoute(w http.ResponseWriter, r *http.Request) {
	var input struct {
		RoutePoints []models.Point `json:"routePoints"`
		IsDraft     bool           `json:"isDraft"`
		Title       string         `json:"title"`
		Description string         `json:"description"`
	}
	if err := decodeJSON(r, &input); err != nil {
		middleware.WriteError(w, err)
		return
	}

	route, err := h.routeService.Create(r.Context(), services.CreateRouteInput{
		UserID:      middleware.UserID(r.Context()),
		RoutePoints: input.RoutePoints,
		IsDraft:     input.IsDraft,
		Title:       input.Title,
		Description: input.Description,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, routeResponse{Message: "Route saved", Route: route})
}

func (h *RouteHandler) UpdateRoute(w http.ResponseWriter, r *http.Request) {
	var update models.RouteUpdate
	if err := decodeJSON(r, &update); err != nil {
		middleware.WriteError(w, err)
		return
	}

	route, err := h.routeService.UpdateFields(r.Context(), middleware.ActorFrom(r.Context()), mux.Vars(r)["id"], update)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, routeResponse{Message: "Route updated", Route: route})
}

// ListRoutes lists a user's routes: /routes?userId=...&isDraft=true|false.
func (h *RouteHandler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	isDraft := false
	if v := query.Get("isDraft"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			middleware.WriteError(w, errors.Validation("isDraft must be true or false"))
			return
		}
		isDraft = b
	}

	routes, err := h.routeService.ListByOwner(r.Context(), middleware.ActorFrom(r.Context()), query.Get("userId"), isDraft)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, routes)
}

func (h *RouteHandler) ListAllRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := h.routeService.ListAll(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, routes)
}

func (h *RouteHandler) NearbyRoutes(w http.ResponseWriter, r *http.Request) {
	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		middleware.WriteError(w, errors.Validation("lat is required"))
		return
	}
	lon, err := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err != nil {
		middleware.WriteError(w, errors.Validation("lon is required"))
		return
	}
	radius := services.DefaultNearbyRadius
	if v := r.URL.Query().Get("radius"); v != "" {
		if radius, err = strconv.ParseFloat(v, 64); err != nil {
			middleware.WriteError(w, errors.Validation("radius must be a number"))
			return
		}
	}

	routes, err := h.routeService.Nearby(r.Context(), models.Point{Latitude: lat, Longitude: lon}, radius)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NearbyRoutesResponse{
		Routes: routes,
		Count:  len(routes),
		Lat:    lat,
		Lon:    lon,
		Radius: radius,
	})
}

func (h *RouteHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	route, err := h.routeService.Get(r.Context(), middleware.ActorFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

func (h *RouteHandler) DeleteRoute(w http.ResponseWriter, r *http.Request) {
	if err := h.routeService.Delete(r.Context(), middleware.ActorFrom(r.Context()), mux.Vars(r)["id"]); err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Route deleted"})
}

func (h *RouteHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	likes, err := h.routeService.ToggleLike(r.Context(), middleware.ActorFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"likes": likes})
}

func (h *RouteHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &input); err != nil {
		middleware.WriteError(w, err)
		return
	}

	comment, err := h.routeService.AddComment(r.Context(), middleware.ActorFrom(r.Context()), mux.Vars(r)["id"], input.Text)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *RouteHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.routeService.DeleteComment(r.Context(), vars["id"], vars["commentId"], middleware.UserID(r.Context())); err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Comment deleted"})
}

// Feed returns recent published routes: /feed?limit=N.
func (h *RouteHandler) Feed(w http.ResponseWriter, r *http.Request) {
	limit := services.DefaultFeedLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			middleware.WriteError(w, errors.Validation("limit must be an integer"))
			return
		}
		limit = n
	}

	routes, err := h.routeService.ListFeed(r.Context(), limit)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, routes)
}
