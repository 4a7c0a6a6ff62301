package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	catalogdomain "al-ilm/companion/internal/catalog/domain"
	"al-ilm/companion/internal/httpapi"
)

type staticSession struct{ token string }

func (s staticSession) Token() string                   { return s.token }
func (s staticSession) ForceLogout(ctx context.Context) {}

func newTestCatalog(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	api := httpapi.NewClient(srv.URL, time.Second)
	api.BindSession(staticSession{token: "t1"})
	return NewClient(api)
}

func TestCourses_FrenchWireNames(t *testing.T) {
	c := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/courses" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`[{"id":"c1","titre":"Tajwid","duree":45,"etat":"PUBLIE","livreId":"b1","categorieId":"cat1","miniatureAccessUrl":"https://cdn/c1.jpg"}]`))
	})

	courses, err := c.Courses(context.Background())
	if err != nil {
		t.Fatalf("Courses: %v", err)
	}
	if len(courses) != 1 {
		t.Fatalf("got %d courses", len(courses))
	}
	got := courses[0]
	if got.Title != "Tajwid" || got.Duration != 45 || got.State != "PUBLIE" {
		t.Errorf("course = %+v", got)
	}
	if got.BookID != "b1" || got.CategoryID != "cat1" || got.ThumbnailURL != "https://cdn/c1.jpg" {
		t.Errorf("course = %+v", got)
	}
}

func TestBookCourses_PathEscaped(t *testing.T) {
	var gotPath string
	c := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(`[]`))
	})

	if _, err := c.BookCourses(context.Background(), "b 1/x"); err != nil {
		t.Fatalf("BookCourses: %v", err)
	}
	if gotPath != "/api/livres/b%201%2Fx/courses" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestSearchCourses_QueryEscaped(t *testing.T) {
	var gotQuery string
	c := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/courses/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("q")
		w.Write([]byte(`[]`))
	})

	if _, err := c.SearchCourses(context.Background(), "fiqh & usul"); err != nil {
		t.Fatalf("SearchCourses: %v", err)
	}
	if gotQuery != "fiqh & usul" {
		t.Errorf("q = %q", gotQuery)
	}
}

func TestCreateCourse_RoundTrip(t *testing.T) {
	c := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/courses" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["titre"] != "Nahw" {
			t.Errorf("body = %v, want titre=Nahw", body)
		}
		w.Write([]byte(`{"id":"c9","titre":"Nahw"}`))
	})

	created, err := c.CreateCourse(context.Background(), catalogdomain.Course{Title: "Nahw"})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	if created.ID != "c9" {
		t.Errorf("ID = %q", created.ID)
	}
}

func TestDeleteCourse(t *testing.T) {
	var gotMethod, gotPath string
	c := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.DeleteCourse(context.Background(), "c9"); err != nil {
		t.Fatalf("DeleteCourse: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/courses/c9" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
}

func TestCategories(t *testing.T) {
	c := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/categories" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`[{"id":"cat1","nom":"Fiqh"}]`))
	})

	cats, err := c.Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(cats) != 1 || cats[0].Name != "Fiqh" {
		t.Errorf("categories = %+v", cats)
	}
}

func TestDashboardStats(t *testing.T) {
	c := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"nombreCours":12,"nombreLivres":3,"nombreCategories":4}`))
	})

	stats, err := c.DashboardStats(context.Background())
	if err != nil {
		t.Fatalf("DashboardStats: %v", err)
	}
	if stats.CourseCount != 12 || stats.BookCount != 3 || stats.CategoryCount != 4 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCourses_RequiresSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the server without a token")
	}))
	t.Cleanup(srv.Close)
	api := httpapi.NewClient(srv.URL, time.Second)
	api.BindSession(staticSession{})
	c := NewClient(api)

	_, err := c.Courses(context.Background())
	if !errors.Is(err, httpapi.ErrNotAuthenticated) {
		t.Errorf("err = %v, want ErrNotAuthenticated", err)
	}
}
