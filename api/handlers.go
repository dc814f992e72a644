package api

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"fluxo-board/board"
	"fluxo-board/domain"
	"fluxo-board/remote"
)

const requestBodyMaxSize = 1 << 20

// Register wires up all board routes on the provided Echo instance.
func Register(e *echo.Echo, view BoardView, tasks TaskOps, moves MoveReconciler, auth Authenticator, scope domain.Scope, logger *log.Logger) {
	e.GET("/api/board", getBoard(view, auth))
	e.POST("/api/board/move", postMove(moves, auth, logger))
	e.POST("/api/board/reload", postReload(tasks, auth, scope))
	e.GET("/api/board/stream", streamBoard(view, auth))
	e.POST("/api/tasks", postTask(tasks, auth))
	e.PUT("/api/tasks/:id", putTask(tasks, auth))
	e.DELETE("/api/tasks", deleteTasks(tasks, auth))
	e.GET("/healthz", healthz())
}

type boardResponse struct {
	Columns map[int64][]domain.Task `json:"columns"`
}

type moveRequest struct {
	TaskID int64 `json:"taskId"`
	StepID int64 `json:"stepId"`
}

type reloadRequest struct {
	SprintID *int64 `json:"sprintId"`
}

type deleteRequest struct {
	IDs []int64 `json:"ids"`
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func getBoard(view BoardView, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization")); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		return c.JSON(http.StatusOK, boardResponse{Columns: view.View()})
	}
}

func postMove(moves MoveReconciler, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newMoveRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		_, authErr := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		req, decodeErr := decodeBody[moveRequest](c)
		if decodeErr != nil {
			metrics.SetErrorStage("decode")
			err = c.String(http.StatusBadRequest, "invalid body")
			return err
		}
		if req.TaskID <= 0 {
			metrics.SetErrorStage("invalid_task_id")
			err = c.String(http.StatusBadRequest, "invalid task id")
			return err
		}

		// One controller per request: the gesture begins with the payload's
		// task and resolves on its drop target in the same call.
		var moveErr error
		gesture := board.NewDragController(func(intent domain.MoveIntent) {
			reconcileStart := time.Now()
			moveErr = moves.Reconcile(ctx, intent)
			metrics.ObserveReconcile(time.Since(reconcileStart))
		})
		gesture.Begin(req.TaskID)
		gesture.Drop(req.StepID)

		if req.StepID <= 0 {
			err = c.NoContent(http.StatusNoContent)
			return err
		}
		if moveErr != nil {
			metrics.SetErrorStage("reconcile")
			metrics.SetRolledBack(true)
			err = c.String(http.StatusConflict, "could not move task, reverted")
			return err
		}
		err = c.NoContent(http.StatusOK)
		return err
	}
}

func postReload(tasks TaskOps, auth Authenticator, scope domain.Scope) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization")); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		if c.Request().ContentLength != 0 {
			req, err := decodeBody[reloadRequest](c)
			if err != nil {
				return c.String(http.StatusBadRequest, "invalid body")
			}
			if req.SprintID != nil {
				scope.SprintID = req.SprintID
			}
		}
		if err := tasks.Reload(ctx, scope); err != nil {
			c.Logger().Error(err)
			return remoteErrorResponse(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func postTask(tasks TaskOps, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization")); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		draft, err := decodeBody[domain.TaskDraft](c)
		if err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		created, err := tasks.QuickCreate(ctx, draft)
		if err != nil {
			return remoteErrorResponse(c, err)
		}
		return c.JSON(http.StatusCreated, created)
	}
}

func putTask(tasks TaskOps, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization")); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			return c.String(http.StatusBadRequest, "invalid task id")
		}
		patch, err := decodeBody[domain.TaskPatch](c)
		if err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		updated, err := tasks.Edit(ctx, id, patch)
		if err != nil {
			return remoteErrorResponse(c, err)
		}
		return c.JSON(http.StatusOK, updated)
	}
}

func deleteTasks(tasks TaskOps, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization")); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		req, err := decodeBody[deleteRequest](c)
		if err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := tasks.Delete(ctx, req.IDs); err != nil {
			c.Logger().Error(err)
			return remoteErrorResponse(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func streamBoard(view BoardView, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := c.QueryParam("token")
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" && token != "" {
			authHeader = "Bearer " + token
		}
		if _, err := auth.UserIDFromAuthHeader(authHeader); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}
		ctx := c.Request().Context()
		ch := view.Subscribe()
		defer view.Unsubscribe(ch)
		for {
			data, err := sonic.ConfigStd.Marshal(boardResponse{Columns: view.View()})
			if err != nil {
				c.Logger().Error(err)
				return err
			}
			if _, err := c.Response().Write([]byte("data: ")); err != nil {
				c.Logger().Error(err)
				return err
			}
			if _, err := c.Response().Write(data); err != nil {
				c.Logger().Error(err)
				return err
			}
			if _, err := c.Response().Write([]byte("\n\n")); err != nil {
				c.Logger().Error(err)
				return err
			}
			flusher.Flush()
			select {
			case <-ctx.Done():
				return nil
			case <-ch:
				continue
			}
		}
	}
}

func decodeBody[T any](c echo.Context) (T, error) {
	var out T
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

// remoteErrorResponse maps repository failures onto HTTP statuses. Local
// validation failures surface before any remote call and land on 400 too.
func remoteErrorResponse(c echo.Context, err error) error {
	switch {
	case remote.IsNotFound(err):
		return c.String(http.StatusNotFound, err.Error())
	case remote.IsTransport(err):
		return c.String(http.StatusBadGateway, err.Error())
	default:
		return c.String(http.StatusBadRequest, err.Error())
	}
}
