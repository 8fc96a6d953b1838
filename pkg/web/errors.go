package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/gatehouse-id/gatehouse/pkg/compiler"
	"github.com/gatehouse-id/gatehouse/pkg/engine"
	"github.com/gatehouse-id/gatehouse/pkg/persistence"
	"github.com/gatehouse-id/gatehouse/pkg/sessionlock"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, problemType, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func gone(c fiber.Ctx, problemType, detail string) error {
	problem := problems.NewStatusProblem(410).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(fiber.StatusGone).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleDomainError maps engine and lifecycle errors onto problem+json
// responses. Compile errors are editor mistakes, never retried; invariant
// violations and everything unrecognized surface as internal errors.
func handleDomainError(c fiber.Ctx, err error) error {
	switch {
	case compiler.IsValidationError(err):
		problem := problems.NewStatusProblem(400).
			WithInstance(c.Path()).
			WithType("compile_error").
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadRequest).JSON(problem)

	case persistence.IsNotFound(err):
		return notFound(c, err.Error())

	case errors.Is(err, persistence.ErrVersionConflict):
		return conflict(c, "version_conflict", "a concurrent publish claimed this version number, retry")

	case errors.Is(err, persistence.ErrStaleSession):
		return conflict(c, "stale_session", "session changed concurrently, re-fetch and retry")

	case errors.Is(err, sessionlock.ErrLocked):
		return conflict(c, "session_busy", "another request is advancing this session")

	case errors.Is(err, engine.ErrSessionFinished):
		return conflict(c, "session_finished", "session already reached a terminal state")

	case errors.Is(err, engine.ErrSessionExpired):
		return gone(c, "session_expired", "session expired, restart the flow")

	case errors.Is(err, engine.ErrActionExpired):
		return gone(c, "action_expired", "continuation ticket expired")

	case errors.Is(err, persistence.ErrActionConsumed):
		return conflict(c, "action_consumed", "continuation ticket was already used")

	case errors.Is(err, engine.ErrActionMismatch):
		return conflict(c, "action_mismatch", "session has moved past this continuation ticket")

	default:
		return internalError(c, err)
	}
}
