package handler

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"

	"boxstore/internal/store"
)

// RegisterStoreRoutes binds the document verbs under prefix (e.g.
// /store). The backend instance is injected once at startup; handlers
// never branch on the driver kind.
func RegisterStoreRoutes(app *fiber.App, prefix string, backend store.Backend) {
	app.Get(prefix+"/:boxId/", ListResources(backend))
	app.Get(prefix+"/:boxId/:id", GetResource(backend))
	app.Post(prefix+"/:boxId/:id?", SaveResource(backend))
	app.Put(prefix+"/:boxId/:id", UpdateResource(backend))
	app.Delete(prefix+"/:boxId/:id", DeleteResource(backend))
}

// ListResources handles GET {prefix}/:boxId/ with limit, skip, sort,
// fields and q query parameters. A leading '-' on sort reverses order;
// the textual convention is translated here, before the backend sees it.
func ListResources(backend store.Backend) fiber.Handler {
	return func(c *fiber.Ctx) error {
		boxID := c.Params("boxId")
		if err := validBoxID(boxID); err != nil {
			return err
		}
		if !backend.CheckSecurity(c.UserContext(), boxID, "", false) {
			return fiber.NewError(fiber.StatusForbidden, msgNeedRead)
		}

		limit := c.QueryInt("limit", 50)
		skip := c.QueryInt("skip", 0)

		sort := c.Query("sort", store.FieldCreatedOn)
		asc := true
		if strings.HasPrefix(sort, "-") {
			sort = sort[1:]
			asc = false
		}

		var fields []string
		if f := c.Query("fields"); f != "" {
			fields = strings.Split(f, ",")
		}

		docs, err := backend.List(c.UserContext(), boxID, store.ListOptions{
			Sort:   sort,
			Asc:    asc,
			Limit:  limit,
			Skip:   skip,
			Fields: fields,
			Query:  c.Query("q"),
		})
		if err != nil {
			return translateStoreErr(err)
		}
		return c.JSON(docs)
	}
}

// GetResource handles GET {prefix}/:boxId/:id.
func GetResource(backend store.Backend) fiber.Handler {
	return func(c *fiber.Ctx) error {
		boxID, id := c.Params("boxId"), c.Params("id")
		if err := validBoxID(boxID); err != nil {
			return err
		}
		if !backend.CheckSecurity(c.UserContext(), boxID, id, false) {
			return fiber.NewError(fiber.StatusForbidden, msgNeedRead)
		}

		doc, err := backend.Get(c.UserContext(), boxID, id)
		if err != nil {
			return translateStoreErr(err)
		}
		return c.JSON(doc)
	}
}

// SaveResource handles POST {prefix}/:boxId/:id? — create or full
// replace. With no id path segment the backend assigns one; the response
// always carries the stored resource including its id.
func SaveResource(backend store.Backend) fiber.Handler {
	return func(c *fiber.Ctx) error {
		boxID, id := c.Params("boxId"), c.Params("id")
		if err := validBoxID(boxID); err != nil {
			return err
		}
		if !backend.CheckSecurity(c.UserContext(), boxID, id, true) {
			return fiber.NewError(fiber.StatusForbidden, msgNeedWrite)
		}

		var doc store.Document
		if err := json.Unmarshal(c.Body(), &doc); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
		}

		saved, err := backend.Save(c.UserContext(), boxID, id, doc)
		if err != nil {
			return translateStoreErr(err)
		}
		return c.JSON(saved)
	}
}

// UpdateResource handles PUT {prefix}/:boxId/:id with merge semantics:
// fields absent from the payload are retained.
func UpdateResource(backend store.Backend) fiber.Handler {
	return func(c *fiber.Ctx) error {
		boxID, id := c.Params("boxId"), c.Params("id")
		if err := validBoxID(boxID); err != nil {
			return err
		}
		if !backend.CheckSecurity(c.UserContext(), boxID, id, true) {
			return fiber.NewError(fiber.StatusForbidden, msgNeedWrite)
		}

		var patch store.Document
		if err := json.Unmarshal(c.Body(), &patch); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
		}

		merged, err := backend.Update(c.UserContext(), boxID, id, patch)
		if err != nil {
			return translateStoreErr(err)
		}
		return c.JSON(merged)
	}
}

// DeleteResource handles DELETE {prefix}/:boxId/:id. Deleting an absent
// resource reports 404, never silent success.
func DeleteResource(backend store.Backend) fiber.Handler {
	return func(c *fiber.Ctx) error {
		boxID, id := c.Params("boxId"), c.Params("id")
		if err := validBoxID(boxID); err != nil {
			return err
		}
		if !backend.CheckSecurity(c.UserContext(), boxID, id, true) {
			return fiber.NewError(fiber.StatusForbidden, msgNeedWrite)
		}

		n, err := backend.Delete(c.UserContext(), boxID, id)
		if err != nil {
			return translateStoreErr(err)
		}
		if n == 0 {
			return fiber.NewError(fiber.StatusNotFound, msgNotFound)
		}
		return c.JSON(fiber.Map{"message": msgDeleted})
	}
}
