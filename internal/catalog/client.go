// Package catalog reads the course catalog through the authenticated request
// wrapper. Every call here requires a session; a 401 tears the session down
// inside the wrapper before the error reaches this package's callers.
package catalog

import (
	"context"
	"fmt"
	"net/url"

	catalogdomain "al-ilm/companion/internal/catalog/domain"
	"al-ilm/companion/internal/httpapi"
)

// Client reads the catalog endpoints.
type Client struct {
	api *httpapi.Client
}

// NewClient returns a catalog client over the given API client.
func NewClient(api *httpapi.Client) *Client {
	return &Client{api: api}
}

// Courses lists all courses visible to the current user.
func (c *Client) Courses(ctx context.Context) ([]catalogdomain.Course, error) {
	var out []catalogdomain.Course
	if err := c.api.Get(ctx, "/api/courses", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Course fetches one course by id.
func (c *Client) Course(ctx context.Context, id string) (*catalogdomain.Course, error) {
	var out catalogdomain.Course
	if err := c.api.Get(ctx, "/api/courses/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchCourses searches courses by free-text query.
func (c *Client) SearchCourses(ctx context.Context, query string) ([]catalogdomain.Course, error) {
	var out []catalogdomain.Course
	if err := c.api.Get(ctx, "/api/courses/search?q="+url.QueryEscape(query), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CoursesByCategory lists the courses in one category.
func (c *Client) CoursesByCategory(ctx context.Context, categoryID string) ([]catalogdomain.Course, error) {
	var out []catalogdomain.Course
	path := fmt.Sprintf("/api/categories/%s/courses", url.PathEscape(categoryID))
	if err := c.api.Get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCourse creates a course. The server enforces the role required.
func (c *Client) CreateCourse(ctx context.Context, course catalogdomain.Course) (*catalogdomain.Course, error) {
	var out catalogdomain.Course
	if err := c.api.Post(ctx, "/api/courses", course, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCourse updates an existing course.
func (c *Client) UpdateCourse(ctx context.Context, id string, course catalogdomain.Course) (*catalogdomain.Course, error) {
	var out catalogdomain.Course
	if err := c.api.Put(ctx, "/api/courses/"+url.PathEscape(id), course, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCourse deletes a course.
func (c *Client) DeleteCourse(ctx context.Context, id string) error {
	return c.api.Delete(ctx, "/api/courses/"+url.PathEscape(id))
}

// Categories lists the course categories.
func (c *Client) Categories(ctx context.Context) ([]catalogdomain.Category, error) {
	var out []catalogdomain.Category
	if err := c.api.Get(ctx, "/api/categories", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Category fetches one category by id.
func (c *Client) Category(ctx context.Context, id string) (*catalogdomain.Category, error) {
	var out catalogdomain.Category
	if err := c.api.Get(ctx, "/api/categories/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCategory creates a category.
func (c *Client) CreateCategory(ctx context.Context, category catalogdomain.Category) (*catalogdomain.Category, error) {
	var out catalogdomain.Category
	if err := c.api.Post(ctx, "/api/categories", category, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCategory updates an existing category.
func (c *Client) UpdateCategory(ctx context.Context, id string, category catalogdomain.Category) (*catalogdomain.Category, error) {
	var out catalogdomain.Category
	if err := c.api.Put(ctx, "/api/categories/"+url.PathEscape(id), category, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCategory deletes a category.
func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	return c.api.Delete(ctx, "/api/categories/"+url.PathEscape(id))
}

// Books lists the source texts.
func (c *Client) Books(ctx context.Context) ([]catalogdomain.Book, error) {
	var out []catalogdomain.Book
	if err := c.api.Get(ctx, "/api/livres", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// BooksByCategory lists the source texts in one category.
func (c *Client) BooksByCategory(ctx context.Context, categoryID string) ([]catalogdomain.Book, error) {
	var out []catalogdomain.Book
	path := fmt.Sprintf("/api/categories/%s/livres", url.PathEscape(categoryID))
	if err := c.api.Get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// BookCourses lists the courses belonging to one book.
func (c *Client) BookCourses(ctx context.Context, bookID string) ([]catalogdomain.Course, error) {
	var out []catalogdomain.Course
	path := fmt.Sprintf("/api/livres/%s/courses", url.PathEscape(bookID))
	if err := c.api.Get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DashboardStats fetches the aggregate counts for the signed-in user.
func (c *Client) DashboardStats(ctx context.Context) (*catalogdomain.DashboardStats, error) {
	var out catalogdomain.DashboardStats
	if err := c.api.Get(ctx, "/api/dashboard/stats", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
