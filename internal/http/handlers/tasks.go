package handlers

import (
	"net/http"

	"leadcrm/internal/services"

	"github.com/labstack/echo/v4"
)

// TaskHandler serves follow-up tasks
type TaskHandler struct {
	tasks *services.TaskService
}

func NewTaskHandler(tasks *services.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

func (h *TaskHandler) List(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}

	tasks, err := h.tasks.List(c.Request().Context(), s)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) Create(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}

	var req services.CreateTaskRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	task, err := h.tasks.Create(c.Request().Context(), s, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) Update(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req services.UpdateTaskRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	task, err := h.tasks.Update(c.Request().Context(), s, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}
