package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/studyon/coursehub/internal/api/middleware"
	"github.com/studyon/coursehub/internal/core/ports"
)

type LessonHandler struct {
	lessonService ports.LessonService
}

func NewLessonHandler(lessonService ports.LessonService) *LessonHandler {
	return &LessonHandler{lessonService: lessonService}
}

// Show returns a lesson to a viewer entitled to its course.
//
// @Summary      Show lesson
// @Tags         lessons
// @Produce      json
// @Param        id  path  string  true  "Lesson ID"
// @Success      200  {object}  domain.Lesson
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /lessons/{id} [get]
func (h *LessonHandler) Show(c echo.Context) error {
	lesson, err := h.lessonService.Show(c.Request().Context(), c.Param("id"), middleware.Principal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, lesson)
}

// Create adds a lesson to a course.
//
// @Summary      Create lesson
// @Tags         lessons
// @Accept       json
// @Produce      json
// @Param        id    path      string         true  "Course ID"
// @Param        body  body      lessonRequest  true  "Lesson"
// @Success      201   {object}  domain.Lesson
// @Failure      404   {object}  map[string]string
// @Failure      422   {object}  map[string]any
// @Router       /courses/{id}/lessons [post]
func (h *LessonHandler) Create(c echo.Context) error {
	var req lessonRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	lesson, err := h.lessonService.Create(c.Request().Context(), c.Param("id"), req.toInput())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, lesson)
}

// @Summary      Update lesson
// @Tags         lessons
// @Accept       json
// @Produce      json
// @Param        id    path      string         true  "Lesson ID"
// @Param        body  body      lessonRequest  true  "Lesson"
// @Success      200   {object}  domain.Lesson
// @Failure      404   {object}  map[string]string
// @Failure      422   {object}  map[string]any
// @Router       /lessons/{id} [put]
func (h *LessonHandler) Update(c echo.Context) error {
	var req lessonRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	lesson, err := h.lessonService.Update(c.Request().Context(), c.Param("id"), req.toInput())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, lesson)
}

// @Summary      Delete lesson
// @Tags         lessons
// @Param        id  path  string  true  "Lesson ID"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /lessons/{id} [delete]
func (h *LessonHandler) Delete(c echo.Context) error {
	if err := h.lessonService.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
