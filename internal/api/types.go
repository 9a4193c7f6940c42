package api

import (
	"fmt"
	"math"
)

// Wire types mirror the EduCloud service payloads, Spanish field names
// included. Rendering types flatten them for the CLI.

// Course is the catalog service's course record.
type Course struct {
	CursoID  string     `json:"curso_id,omitempty"`
	TenantID string     `json:"tenant_id,omitempty"`
	Datos    CourseData `json:"curso_datos"`
}

// CourseData is the nested attribute block of a course record.
type CourseData struct {
	Nombre        string   `json:"nombre,omitempty"`
	Descripcion   string   `json:"descripcion"`
	Precio        float64  `json:"precio"`
	Categoria     string   `json:"categoria,omitempty"`
	Estado        string   `json:"estado,omitempty"`
	Instructor    string   `json:"instructor,omitempty"`
	DuracionHoras float64  `json:"duracion_horas,omitempty"`
	FechaCreacion string   `json:"fecha_creacion,omitempty"`
	Nivel         string   `json:"nivel,omitempty"`
	Etiquetas     []string `json:"etiquetas,omitempty"`
	Publicado     bool     `json:"publicado,omitempty"`
}

// DisplayCourse is the flattened view the CLI renders and the cart consumes.
type DisplayCourse struct {
	ID          string
	Title       string
	Description string
	Price       float64
	Category    string
	State       string
	Instructor  string
	Duration    string
	Level       string
	Tags        []string
}

// Display flattens a wire course, substituting neutral fallbacks for absent
// fields the way the storefront always has.
func (c Course) Display() DisplayCourse {
	d := DisplayCourse{
		ID:          c.CursoID,
		Title:       c.Datos.Nombre,
		Description: c.Datos.Descripcion,
		Price:       c.Datos.Precio,
		Category:    c.Datos.Categoria,
		State:       c.Datos.Estado,
		Instructor:  c.Datos.Instructor,
		Level:       c.Datos.Nivel,
		Tags:        c.Datos.Etiquetas,
	}
	if d.Title == "" {
		d.Title = "Untitled course"
	}
	if d.Description == "" {
		d.Description = "No description"
	}
	if d.Category == "" {
		d.Category = "Uncategorized"
	}
	if d.State == "" {
		d.State = "activo"
	}
	if d.Instructor == "" {
		d.Instructor = "Instructor not specified"
	}
	if d.Level == "" {
		d.Level = "Intermedio"
	}
	if c.Datos.DuracionHoras > 0 {
		d.Duration = formatHours(c.Datos.DuracionHoras)
	}
	return d
}

func formatHours(h float64) string {
	if h == math.Trunc(h) {
		return fmt.Sprintf("%dh", int(h))
	}
	return fmt.Sprintf("%.1fh", h)
}

// CoursePage is one page of the cursor-paginated course listing.
type CoursePage struct {
	Courses []Course
	LastKey string
}

// CreateCourseRequest is the payload for creating or updating a course.
type CreateCourseRequest struct {
	Datos CourseData `json:"curso_datos"`
}

// SearchResult is the search service's response.
type SearchResult struct {
	Courses      []Course `json:"cursos"`
	Total        int      `json:"total"`
	ResponseTime float64  `json:"tiempo_respuesta"`
}

// PurchaseRequest registers one purchase unit with the purchase service.
type PurchaseRequest struct {
	CourseID   string  `json:"curso_id"`
	CourseName string  `json:"nombre_curso"`
	AmountPaid float64 `json:"monto_pagado"`
}

// Purchase is one row of the purchase ledger.
type Purchase struct {
	CompraID    string  `json:"compra_id"`
	CursoID     string  `json:"curso_id"`
	NombreCurso string  `json:"nombre_curso"`
	MontoPagado float64 `json:"monto_pagado"`
	FechaCompra string  `json:"fecha_compra"`
	UsuarioID   string  `json:"usuario_id,omitempty"`
}
