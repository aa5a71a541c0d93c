package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"boxstore/internal/filestore"
	"boxstore/internal/store"
)

// ErrorHandler is the terminal error-formatting stage: any error escaping
// a handler becomes a JSON {message} body with the matching status code.
// Unclassified errors map to 500 without leaking internal details.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		message := "internal server error"

		var e *fiber.Error
		if errors.As(err, &e) {
			status = e.Code
			message = e.Message
		}
		return c.Status(status).JSON(fiber.Map{"message": message})
	}
}

// Messages shared across verbs, matching the store's public contract.
const (
	msgReservedBox  = "'_' char is forbidden for first letter of a box id parameter"
	msgNotFound     = "Box or resource not found"
	msgNeedRead     = "You need read access for this box"
	msgNeedWrite    = "You need write access for this box"
	msgDeleted      = "Deleted"
	msgFileRequired = "A multipart 'file' field is required"
)

// validBoxID rejects the reserved system prefix before any backend call.
func validBoxID(boxID string) error {
	if boxID == "" || boxID[0] == '_' {
		return fiber.NewError(fiber.StatusBadRequest, msgReservedBox)
	}
	return nil
}

// translateStoreErr maps backend sentinel errors onto HTTP statuses.
// Anything unclassified passes through and surfaces as 500.
func translateStoreErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, filestore.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, msgNotFound)
	case errors.Is(err, store.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, "invalid resource payload")
	}
	return err
}
