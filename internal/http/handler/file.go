package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"boxstore/internal/filestore"
)

// RegisterFileRoutes binds the binary file verbs under prefix (e.g.
// /file), mirroring the document routes over a swappable driver.
func RegisterFileRoutes(app *fiber.App, prefix string, driver filestore.Driver) {
	app.Post(prefix+"/:boxId/", UploadFile(prefix, driver))
	app.Get(prefix+"/:boxId/", ListFiles(prefix, driver))
	app.Get(prefix+"/:boxId/:id", DownloadFile(driver))
	app.Delete(prefix+"/:boxId/:id", DeleteFile(driver))
}

func fileURL(prefix, boxID, id string) string {
	return fmt.Sprintf("%s/%s/%s", prefix, boxID, id)
}

// UploadFile handles POST {prefix}/:boxId/ with a single multipart part
// named "file". The response body is the relative URL of the new file.
func UploadFile(prefix string, driver filestore.Driver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		boxID := c.Params("boxId")
		if err := validBoxID(boxID); err != nil {
			return err
		}
		if !driver.CheckSecurity(c.UserContext(), boxID, "", true) {
			return fiber.NewError(fiber.StatusForbidden, msgNeedWrite)
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, msgFileRequired)
		}

		f, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "cannot open uploaded file")
		}
		defer f.Close()

		// Content type comes from the upload's declared MIME type; the
		// driver falls back to a generic binary type when absent.
		contentType := fh.Header.Get(fiber.HeaderContentType)

		info, err := driver.Save(c.UserContext(), boxID, f, contentType, fh.Size)
		if err != nil {
			return translateStoreErr(err)
		}
		return c.SendString(fileURL(prefix, boxID, info.ID))
	}
}

// DownloadFile handles GET {prefix}/:boxId/:id, streaming the stored
// bytes with the original content type.
func DownloadFile(driver filestore.Driver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		boxID, id := c.Params("boxId"), c.Params("id")
		if err := validBoxID(boxID); err != nil {
			return err
		}
		if !driver.CheckSecurity(c.UserContext(), boxID, id, false) {
			return fiber.NewError(fiber.StatusForbidden, msgNeedRead)
		}

		f, err := driver.Get(c.UserContext(), boxID, id)
		if err != nil {
			return translateStoreErr(err)
		}

		c.Set(fiber.HeaderContentType, f.ContentType)
		if f.Size >= 0 {
			return c.SendStream(f.Content, int(f.Size))
		}
		return c.SendStream(f.Content)
	}
}

// ListFiles handles GET {prefix}/:boxId/, returning a JSON array of
// relative URLs in the same form the upload response uses.
func ListFiles(prefix string, driver filestore.Driver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		boxID := c.Params("boxId")
		if err := validBoxID(boxID); err != nil {
			return err
		}
		if !driver.CheckSecurity(c.UserContext(), boxID, "", false) {
			return fiber.NewError(fiber.StatusForbidden, msgNeedRead)
		}

		infos, err := driver.List(c.UserContext(), boxID)
		if err != nil {
			return translateStoreErr(err)
		}

		urls := make([]string, 0, len(infos))
		for _, info := range infos {
			urls = append(urls, fileURL(prefix, boxID, info.ID))
		}
		return c.JSON(urls)
	}
}

// DeleteFile handles DELETE {prefix}/:boxId/:id, removing payload and
// metadata together.
func DeleteFile(driver filestore.Driver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		boxID, id := c.Params("boxId"), c.Params("id")
		if err := validBoxID(boxID); err != nil {
			return err
		}
		if !driver.CheckSecurity(c.UserContext(), boxID, id, true) {
			return fiber.NewError(fiber.StatusForbidden, msgNeedWrite)
		}

		n, err := driver.Delete(c.UserContext(), boxID, id)
		if err != nil {
			return translateStoreErr(err)
		}
		if n == 0 {
			return fiber.NewError(fiber.StatusNotFound, msgNotFound)
		}
		return c.JSON(fiber.Map{"message": msgDeleted})
	}
}
