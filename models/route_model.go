package models

import "time"

type Route struct {
	ID            string    `json:"_id" bson:"_id"`
	UserID        string    `json:"userId" bson:"user_id"`
	RoutePoints   []Point   `json:"routePoints" bson:"route_points"`
	StartLocation GeoPoint  `json:"-" bson:"start_location"`
	Title         string    `json:"title" bson:"title"`
	Description   string    `json:"description" bson:"description"`
	PlaceNames    []string  `json:"placeNames" bson:"place_names"`
	IsDraft       bool      `json:"isDraft" bson:"is_draft"`
	CreatedAt     time.Time `json:"createdAt" bson:"created_at"`
	Likes         []string  `json:"likes" bson:"likes"`
	Comments      []Comment `json:"comments" bson:"comments"`
}

type Comment struct {
	ID        string    `json:"_id" bson:"_id"`
	UserID    string    `json:"userId" bson:"user_id"`
	Text      string    `json:"text" bson:"text"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// FindComment returns the comment with the given id, or nil.
func (r *Route) FindComment(id string) *Comment {
	for i := range r.Comments {
		if r.Comments[i].ID == id {
			return &r.Comments[i]
		}
	}
	return nil
}

// RouteUpdate is a partial route edit. A nil field is absent and is never
// written; only supplied fields overwrite the stored document.
type RouteUpdate struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	RoutePoints *[]Point `json:"routePoints,omitempty"`
}

func (u RouteUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.RoutePoints == nil
}

// RouteView is a route with its owner and commenters resolved for display.
type RouteView struct {
	ID          string        `json:"_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	RoutePoints []Point       `json:"routePoints"`
	PlaceNames  []string      `json:"placeNames"`
	IsDraft     bool          `json:"isDraft"`
	CreatedAt   time.Time     `json:"createdAt"`
	Likes       []string      `json:"likes"`
	Comments    []CommentView `json:"comments"`
	User        UserSummary   `json:"user"`
}

type CommentView struct {
	ID        string      `json:"_id"`
	Text      string      `json:"text"`
	CreatedAt time.Time   `json:"createdAt"`
	User      UserSummary `json:"user"`
}
