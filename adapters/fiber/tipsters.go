package fiber

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/lborres/tipsapi/core"
)

// TipsterService is the tipster catalogue consumed by the handlers.
type TipsterService interface {
	List(ctx context.Context, q core.TipsterQuery) (*core.TipsterPage, error)
	Get(ctx context.Context, id string) (*core.Tipster, error)
	Create(ctx context.Context, input core.TipsterInput) (*core.Tipster, error)
	Update(ctx context.Context, id string, input core.TipsterInput) (*core.Tipster, error)
	Delete(ctx context.Context, id string) error
}

type viewer struct {
	ID       int64     `json:"id"`
	Username string    `json:"username"`
	Role     core.Role `json:"role"`
}

func (a *Adapter) listTipsters(c fiber.Ctx) error {
	page, err := a.tipsters.List(c.Context(), core.TipsterQuery{
		Page:      c.Query("page"),
		Limit:     c.Query("limit"),
		Platform:  c.Query("platform"),
		Type:      c.Query("type"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	})
	if err != nil {
		return writeError(c, a.logger, err)
	}

	body := fiber.Map{
		"success":    true,
		"data":       page.Data,
		"pagination": page.Pagination,
	}
	if identity, ok := IdentityFrom(c); ok {
		body["viewer"] = viewer{ID: identity.UserID, Username: identity.Username, Role: identity.Role}
	}
	return c.Status(http.StatusOK).JSON(body)
}

func (a *Adapter) getTipster(c fiber.Ctx) error {
	t, err := a.tipsters.Get(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, a.logger, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "data": t})
}

func (a *Adapter) createTipster(c fiber.Ctx) error {
	var input core.TipsterInput
	if err := bindJSON(c, &input); err != nil {
		return writeError(c, a.logger, err)
	}

	t, err := a.tipsters.Create(c.Context(), input)
	if err != nil {
		return writeError(c, a.logger, err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Tipster created successfully",
		"data":    t,
	})
}

func (a *Adapter) updateTipster(c fiber.Ctx) error {
	var input core.TipsterInput
	if err := bindJSON(c, &input); err != nil {
		return writeError(c, a.logger, err)
	}

	t, err := a.tipsters.Update(c.Context(), c.Params("id"), input)
	if err != nil {
		return writeError(c, a.logger, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Tipster updated successfully",
		"data":    t,
	})
}

func (a *Adapter) deleteTipster(c fiber.Ctx) error {
	if err := a.tipsters.Delete(c.Context(), c.Params("id")); err != nil {
		return writeError(c, a.logger, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Tipster deleted successfully",
	})
}
