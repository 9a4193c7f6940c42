package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// maxListRequests caps the page loop in ListAll. The catalog is
// cursor-paginated with no total count, so the loop needs a hard stop
// against a cursor that never drains.
const maxListRequests = 30

// List fetches one page of the course catalog. lastKey is the cursor from
// the previous page; empty for the first page. Listing works anonymously,
// the token is attached only when cached.
func (c *Client) List(ctx context.Context, limit int, lastKey string) (CoursePage, error) {
	u := fmt.Sprintf("%s/listar?limit=%d", c.endpoints.Catalog, limit)
	if lastKey != "" {
		u += "&lastKey=" + url.QueryEscape(lastKey)
	}

	var resp struct {
		Cursos           []Course `json:"cursos"`
		LastEvaluatedKey string   `json:"lastEvaluatedKey"`
	}
	if err := c.do(ctx, http.MethodGet, u, nil, &resp, false); err != nil {
		return CoursePage{}, err
	}
	return CoursePage{Courses: resp.Cursos, LastKey: resp.LastEvaluatedKey}, nil
}

// ListAll drains the catalog cursor page by page, up to maxListRequests
// pages of pageLimit courses each.
func (c *Client) ListAll(ctx context.Context, pageLimit int) ([]Course, error) {
	var all []Course
	lastKey := ""
	for i := 0; i < maxListRequests; i++ {
		page, err := c.List(ctx, pageLimit, lastKey)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Courses...)
		if page.LastKey == "" {
			break
		}
		lastKey = page.LastKey
	}
	return all, nil
}

// GetCourse looks up a single course by id. 404 maps to ErrNotFound.
func (c *Client) GetCourse(ctx context.Context, id string) (Course, error) {
	var resp struct {
		Curso *Course `json:"curso"`
		Course
	}
	err := c.do(ctx, http.MethodGet, c.endpoints.Catalog+"/buscar/"+url.PathEscape(id), nil, &resp, false)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound {
		return Course{}, ErrNotFound
	}
	if err != nil {
		return Course{}, err
	}

	// Some deployments nest the record under "curso", others return it bare.
	if resp.Curso != nil {
		return *resp.Curso, nil
	}
	return resp.Course, nil
}

// CreateCourse creates a course. Protected: fails with ErrAuthRequired
// before any network call when no token is cached.
func (c *Client) CreateCourse(ctx context.Context, req CreateCourseRequest) (Course, error) {
	if _, err := c.requireToken(); err != nil {
		return Course{}, err
	}

	var resp struct {
		Curso *Course `json:"curso"`
		Course
	}
	if err := c.do(ctx, http.MethodPost, c.endpoints.Catalog+"/crear", req, &resp, true); err != nil {
		return Course{}, err
	}
	if resp.Curso != nil {
		return *resp.Curso, nil
	}
	return resp.Course, nil
}

// UpdateCourse overwrites a course's attribute block. Protected.
func (c *Client) UpdateCourse(ctx context.Context, id string, req CreateCourseRequest) (Course, error) {
	if _, err := c.requireToken(); err != nil {
		return Course{}, err
	}

	var resp struct {
		Curso *Course `json:"curso"`
		Course
	}
	u := c.endpoints.Catalog + "/modificar/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPut, u, req, &resp, true); err != nil {
		return Course{}, err
	}
	if resp.Curso != nil {
		return *resp.Curso, nil
	}
	return resp.Course, nil
}

// DeleteCourse removes a course. Protected. The server's confirmation
// message, when present, is returned for display.
func (c *Client) DeleteCourse(ctx context.Context, id string) (string, error) {
	if _, err := c.requireToken(); err != nil {
		return "", err
	}

	var resp struct {
		Mensaje string `json:"mensaje"`
	}
	u := c.endpoints.Catalog + "/eliminar/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodDelete, u, nil, &resp, true); err != nil {
		return "", err
	}
	return resp.Mensaje, nil
}

// PopulateCourses asks the catalog to seed n demo courses. Protected.
func (c *Client) PopulateCourses(ctx context.Context, n int) ([]Course, error) {
	if _, err := c.requireToken(); err != nil {
		return nil, err
	}

	var resp struct {
		Cursos []Course `json:"cursos"`
	}
	body := map[string]int{"cantidad": n}
	if err := c.do(ctx, http.MethodPost, c.endpoints.Catalog+"/poblar", body, &resp, true); err != nil {
		return nil, err
	}
	return resp.Cursos, nil
}
