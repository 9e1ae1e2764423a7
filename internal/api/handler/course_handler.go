package handler

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/studyon/coursehub/internal/api/middleware"
	"github.com/studyon/coursehub/internal/core/ports"
)

type CourseHandler struct {
	courseService ports.CourseService
}

func NewCourseHandler(courseService ports.CourseService) *CourseHandler {
	return &CourseHandler{courseService: courseService}
}

// List returns the catalog annotated with prices and the viewer's entitlements.
//
// @Summary      List courses
// @Tags         courses
// @Produce      json
// @Success      200  {array}   courseListingResponse
// @Router       /courses [get]
func (h *CourseHandler) List(c echo.Context) error {
	listings, err := h.courseService.List(c.Request().Context(), middleware.Principal(c))
	if err != nil {
		return err
	}

	out := make([]courseListingResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, newCourseListingResponse(l))
	}
	return c.JSON(http.StatusOK, out)
}

// Show returns a course with its lessons. Authenticated viewers also get the
// billing descriptor, their balance and entitlement.
//
// @Summary      Show course
// @Tags         courses
// @Produce      json
// @Param        id              path   string  true   "Course ID"
// @Param        payment_status  query  string  false  "Outcome of the last pay attempt"
// @Success      200  {object}  courseDetailResponse
// @Failure      404  {object}  map[string]string
// @Router       /courses/{id} [get]
func (h *CourseHandler) Show(c echo.Context) error {
	detail, err := h.courseService.Show(
		c.Request().Context(),
		c.Param("id"),
		middleware.Principal(c),
		c.QueryParam("payment_status"),
	)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newCourseDetailResponse(detail, middleware.CSRFToken(c)))
}

// Create adds a course to billing and to the local catalog.
//
// @Summary      Create course
// @Tags         courses
// @Accept       json
// @Produce      json
// @Param        body  body      courseRequest  true  "Course"
// @Success      201   {object}  domain.Course
// @Failure      403   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      422   {object}  map[string]any
// @Router       /courses [post]
func (h *CourseHandler) Create(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}

	var req courseRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	course, err := h.courseService.Create(c.Request().Context(), p, req.toInput())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, course)
}

// Update edits a course. A code change is propagated to billing.
//
// @Summary      Update course
// @Tags         courses
// @Accept       json
// @Produce      json
// @Param        id    path      string         true  "Course ID"
// @Param        body  body      courseRequest  true  "Course"
// @Success      200   {object}  domain.Course
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      422   {object}  map[string]any
// @Router       /courses/{id} [put]
func (h *CourseHandler) Update(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}

	var req courseRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	course, err := h.courseService.Update(c.Request().Context(), p, c.Param("id"), req.toInput())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, course)
}

// Delete removes a course and its lessons from the local catalog.
//
// @Summary      Delete course
// @Tags         courses
// @Param        id  path  string  true  "Course ID"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /courses/{id} [delete]
func (h *CourseHandler) Delete(c echo.Context) error {
	if err := h.courseService.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Pay charges the viewer for a course and always redirects back to the
// course page with the outcome in the payment_status query parameter. An
// unknown course is reported as a failed payment.
//
// @Summary      Pay for course
// @Tags         courses
// @Param        id  path  string  true  "Course ID"
// @Success      303
// @Router       /courses/{id}/pay [post]
func (h *CourseHandler) Pay(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}

	id := c.Param("id")
	course, outcome := h.courseService.Pay(c.Request().Context(), p, id)
	if course != nil {
		id = course.ID
	}

	q := url.Values{"payment_status": {string(outcome)}}
	return c.Redirect(http.StatusSeeOther, "/courses/"+url.PathEscape(id)+"?"+q.Encode())
}
