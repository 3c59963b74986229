package fiber

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/lborres/tipsapi/core"
)

// MatchService is the read-only match catalogue consumed by the handlers.
type MatchService interface {
	List(ctx context.Context, q core.MatchQuery) (*core.MatchPage, error)
	Get(ctx context.Context, id string) (*core.MatchDetail, error)
}

func (a *Adapter) listMatches(c fiber.Ctx) error {
	page, err := a.matches.List(c.Context(), core.MatchQuery{
		Page:        c.Query("page"),
		Limit:       c.Query("limit"),
		Date:        c.Query("date"),
		Competition: c.Query("competition"),
		Team:        c.Query("team"),
		Status:      c.Query("status"),
		Sport:       c.Query("sport"),
		SortBy:      c.Query("sortBy"),
		SortOrder:   c.Query("sortOrder"),
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

func (a *Adapter) getMatch(c fiber.Ctx) error {
	m, err := a.matches.Get(c.Context(), c.Params("matchId"))
	if err != nil {
		return writeError(c, a.logger, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "data": m})
}
