package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/helixcrm/helix/pkg/persistence"
	"github.com/helixcrm/helix/pkg/providers"
	"github.com/helixcrm/helix/pkg/workflow"
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

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleError maps domain errors onto RFC 7807 problem responses.
func handleError(c fiber.Ctx, err error) error {
	switch {
	case persistence.IsWorkflowNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("workflow_not_found").
			WithDetail("workflow not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case persistence.IsExecutionNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("execution_not_found").
			WithDetail("execution not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case errors.Is(err, workflow.ErrInvalidWorkflow):
		problem := problems.NewStatusProblem(400).
			WithInstance(c.Path()).
			WithType("validation_error").
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadRequest).JSON(problem)

	case errors.Is(err, workflow.ErrWorkflowInactive):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("workflow_inactive").
			WithDetail("workflow is not active")

		return c.Status(fiber.StatusConflict).JSON(problem)

	case errors.Is(err, providers.ErrUnknownProvider):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("provider_not_found").
			WithDetail(err.Error())

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case errors.Is(err, providers.ErrWrongFamily):
		problem := problems.NewStatusProblem(400).
			WithInstance(c.Path()).
			WithType("wrong_provider_family").
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadRequest).JSON(problem)

	case errors.Is(err, providers.ErrAuthFailed):
		problem := problems.NewStatusProblem(502).
			WithInstance(c.Path()).
			WithType("upstream_auth_failed").
			WithDetail("provider rejected the stored credentials")

		return c.Status(fiber.StatusBadGateway).JSON(problem)

	case errors.Is(err, providers.ErrConnectionFailed):
		problem := problems.NewStatusProblem(502).
			WithInstance(c.Path()).
			WithType("upstream_unreachable").
			WithDetail("provider is unreachable")

		return c.Status(fiber.StatusBadGateway).JSON(problem)

	default:
		return internalError(c, err)
	}
}
