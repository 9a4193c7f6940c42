package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/educloud/educloud-cli/internal/api"
)

// coursesPerPage is the client-side page size of the catalog listing.
const coursesPerPage = 9

// CoursesOptions holds flags for the courses list command.
type CoursesOptions struct {
	*RootOptions
	Category string
	Sort     string
	Page     int
}

var validSorts = []string{"name", "price-asc", "price-desc"}

// NewCoursesCommand creates the courses command group.
func NewCoursesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "courses",
		Short: "Browse and manage the course catalog",
	}

	cmd.AddCommand(newCoursesListCommand(rootOpts))
	cmd.AddCommand(newCoursesShowCommand(rootOpts))
	cmd.AddCommand(newCoursesCreateCommand(rootOpts))
	cmd.AddCommand(newCoursesEditCommand(rootOpts))
	cmd.AddCommand(newCoursesDeleteCommand(rootOpts))
	cmd.AddCommand(newCoursesPopulateCommand(rootOpts))

	return cmd
}

func newCoursesListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CoursesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog courses",
		Long: `List the course catalog.

The full catalog is fetched through the cursor-paginated listing endpoint,
then filtered, sorted, and paged locally.

Example:
  educloud courses list --category Programming --sort price-asc --page 2`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCoursesList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "", "filter by category")
	cmd.Flags().StringVar(&opts.Sort, "sort", "name", "sort order (name|price-asc|price-desc)")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number")

	return cmd
}

func runCoursesList(opts *CoursesOptions, cmd *cobra.Command) error {
	if !containsString(validSorts, opts.Sort) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid sort %q: must be one of %v", opts.Sort, validSorts))
	}
	if opts.Page < 1 {
		return NewExitError(ExitCommandError, "page must be at least 1")
	}

	app, err := openApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer app.Close()

	courses, err := app.API.ListAll(cmd.Context(), app.Config.PageLimit)
	if err != nil {
		return apiExitError("failed to list courses", err)
	}

	displays := make([]api.DisplayCourse, 0, len(courses))
	for _, c := range courses {
		d := c.Display()
		if opts.Category != "" && !strings.EqualFold(d.Category, opts.Category) {
			continue
		}
		displays = append(displays, d)
	}
	sortCourses(displays, opts.Sort)

	total := len(displays)
	pages := (total + coursesPerPage - 1) / coursesPerPage
	start := (opts.Page - 1) * coursesPerPage
	if start >= total {
		displays = nil
	} else {
		end := start + coursesPerPage
		if end > total {
			end = total
		}
		displays = displays[start:end]
	}

	f := newFormatter(opts.RootOptions, cmd)
	if f.JSON() {
		return f.Success(map[string]any{
			"courses": displays,
			"total":   total,
			"page":    opts.Page,
			"pages":   pages,
		})
	}

	out := cmd.OutOrStdout()
	if len(displays) == 0 {
		fmt.Fprintln(out, "No courses found.")
		return nil
	}
	renderCourseTable(out, displays)
	fmt.Fprintf(out, "\nPage %d of %d (%d courses)\n", opts.Page, pages, total)
	return nil
}

func sortCourses(courses []api.DisplayCourse, order string) {
	switch order {
	case "price-asc":
		sort.SliceStable(courses, func(i, j int) bool { return courses[i].Price < courses[j].Price })
	case "price-desc":
		sort.SliceStable(courses, func(i, j int) bool { return courses[i].Price > courses[j].Price })
	default:
		sort.SliceStable(courses, func(i, j int) bool {
			return strings.ToLower(courses[i].Title) < strings.ToLower(courses[j].Title)
		})
	}
}

func newCoursesShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "show <course-id>",
		Short:         "Show one course in detail",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			course, err := app.API.GetCourse(cmd.Context(), args[0])
			if errors.Is(err, api.ErrNotFound) {
				return NewExitError(ExitCommandError, fmt.Sprintf("course %s not found", args[0]))
			}
			if err != nil {
				return apiExitError("failed to fetch course", err)
			}

			f := newFormatter(rootOpts, cmd)
			if f.JSON() {
				return f.Success(course.Display())
			}
			renderCourseDetail(cmd.OutOrStdout(), course.Display())
			return nil
		},
	}
	return cmd
}

// courseFields holds the editable course attribute flags shared by
// create and edit.
type courseFields struct {
	Title       string
	Description string
	Price       float64
	Category    string
	Instructor  string
	Duration    float64
	Level       string
	Tags        []string
}

func (cf *courseFields) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&cf.Title, "title", "", "course title")
	cmd.Flags().StringVar(&cf.Description, "description", "", "course description")
	cmd.Flags().Float64Var(&cf.Price, "price", 0, "price in USD")
	cmd.Flags().StringVar(&cf.Category, "category", "", "category")
	cmd.Flags().StringVar(&cf.Instructor, "instructor", "", "instructor name")
	cmd.Flags().Float64Var(&cf.Duration, "duration", 0, "duration in hours")
	cmd.Flags().StringVar(&cf.Level, "level", "", "difficulty level")
	cmd.Flags().StringSliceVar(&cf.Tags, "tag", nil, "tag (repeatable)")
}

func newCoursesCreateCommand(rootOpts *RootOptions) *cobra.Command {
	fields := &courseFields{}

	cmd := &cobra.Command{
		Use:           "create",
		Short:         "Create a course (requires sign-in)",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fields.Title == "" {
				return NewExitError(ExitCommandError, "course title required")
			}
			if fields.Price < 0 {
				return NewExitError(ExitCommandError, "price must not be negative")
			}

			app, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			req := api.CreateCourseRequest{Datos: api.CourseData{
				Nombre:        fields.Title,
				Descripcion:   fields.Description,
				Precio:        fields.Price,
				Categoria:     fields.Category,
				Instructor:    fields.Instructor,
				DuracionHoras: fields.Duration,
				Nivel:         fields.Level,
				Etiquetas:     fields.Tags,
			}}
			course, err := app.API.CreateCourse(cmd.Context(), req)
			if err != nil {
				return apiExitError("failed to create course", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created course %s (%s)\n", course.CursoID, course.Display().Title)
			return nil
		},
	}
	fields.register(cmd)
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newCoursesEditCommand(rootOpts *RootOptions) *cobra.Command {
	fields := &courseFields{}

	cmd := &cobra.Command{
		Use:           "edit <course-id>",
		Short:         "Update a course (requires sign-in)",
		Long:          "Update a course. Only the attributes named by flags change; the rest keep their current value.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			current, err := app.API.GetCourse(cmd.Context(), args[0])
			if errors.Is(err, api.ErrNotFound) {
				return NewExitError(ExitCommandError, fmt.Sprintf("course %s not found", args[0]))
			}
			if err != nil {
				return apiExitError("failed to fetch course", err)
			}

			datos := current.Datos
			if cmd.Flags().Changed("title") {
				datos.Nombre = fields.Title
			}
			if cmd.Flags().Changed("description") {
				datos.Descripcion = fields.Description
			}
			if cmd.Flags().Changed("price") {
				datos.Precio = fields.Price
			}
			if cmd.Flags().Changed("category") {
				datos.Categoria = fields.Category
			}
			if cmd.Flags().Changed("instructor") {
				datos.Instructor = fields.Instructor
			}
			if cmd.Flags().Changed("duration") {
				datos.DuracionHoras = fields.Duration
			}
			if cmd.Flags().Changed("level") {
				datos.Nivel = fields.Level
			}
			if cmd.Flags().Changed("tag") {
				datos.Etiquetas = fields.Tags
			}

			course, err := app.API.UpdateCourse(cmd.Context(), args[0], api.CreateCourseRequest{Datos: datos})
			if err != nil {
				return apiExitError("failed to update course", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Updated course %s\n", course.CursoID)
			return nil
		},
	}
	fields.register(cmd)

	return cmd
}

func newCoursesDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "delete <course-id>",
		Short:         "Delete a course (requires sign-in)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			msg, err := app.API.DeleteCourse(cmd.Context(), args[0])
			if err != nil {
				return apiExitError("failed to delete course", err)
			}
			if msg == "" {
				msg = fmt.Sprintf("Deleted course %s", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	return cmd
}

func newCoursesPopulateCommand(rootOpts *RootOptions) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:           "populate",
		Short:         "Seed the catalog with sample courses (requires sign-in)",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return NewExitError(ExitCommandError, "count must be at least 1")
			}

			app, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			created, err := app.API.PopulateCourses(cmd.Context(), count)
			if err != nil {
				return apiExitError("failed to populate catalog", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d sample courses\n", len(created))
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 10, "number of sample courses")

	return cmd
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
