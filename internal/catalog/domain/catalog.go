// Package domain holds the course-catalog entities as the platform API
// serves them. Field tags follow the server's French wire names.
package domain

// Course is a single course entry.
type Course struct {
	ID           string `json:"id"`
	Title        string `json:"titre"`
	Description  string `json:"description,omitempty"`
	Duration     int    `json:"duree,omitempty"`
	State        string `json:"etat,omitempty"`
	BookID       string `json:"livreId,omitempty"`
	CategoryID   string `json:"categorieId,omitempty"`
	ThumbnailURL string `json:"miniatureAccessUrl,omitempty"`
	AudioURL     string `json:"audioAccessUrl,omitempty"`
}

// Category groups courses.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"nom"`
}

// Book is a source text whose chapters map to courses.
type Book struct {
	ID     string `json:"id"`
	Title  string `json:"titre"`
	Author string `json:"auteur,omitempty"`
}

// DashboardStats is the aggregate view served to signed-in users.
type DashboardStats struct {
	CourseCount   int `json:"nombreCours"`
	BookCount     int `json:"nombreLivres"`
	CategoryCount int `json:"nombreCategories"`
}
