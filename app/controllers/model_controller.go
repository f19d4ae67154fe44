package controllers

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/foodar/foodar/app/models"
	"github.com/foodar/foodar/app/repository"
	"github.com/foodar/foodar/internal/pkg/storage"
	"github.com/foodar/foodar/internal/pkg/upload"
)

// ObjectStore persists uploaded model files.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*storage.UploadResult, error)
	Delete(ctx context.Context, key string) error
}

type ModelController struct {
	models3d repository.Model3DRepository
	store    ObjectStore
}

func NewModelController(models3d repository.Model3DRepository, store ObjectStore) *ModelController {
	return &ModelController{models3d: models3d, store: store}
}

// HandleList serves GET /api/v1/models.
func (mc *ModelController) HandleList(c *fiber.Ctx) error {
	r, ok := currentRestaurant(c)
	if !ok {
		return errorResponse(c, fiber.StatusNotFound, "not_found", "Restaurant not found")
	}
	list, err := mc.models3d.ListByRestaurant(c.UserContext(), r.ID)
	if err != nil {
		log.Errorf("[Model] List for %s failed: %v", r.ID, err)
		return errorResponse(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to list models")
	}
	return c.JSON(fiber.Map{"models": list})
}

// HandleGet serves GET /api/v1/models/:id.
func (mc *ModelController) HandleGet(c *fiber.Ctx) error {
	r, ok := currentRestaurant(c)
	if !ok {
		return errorResponse(c, fiber.StatusNotFound, "not_found", "Restaurant not found")
	}
	m, err := mc.models3d.GetByID(c.UserContext(), r.ID, c.Params("id"))
	if errors.Is(err, repository.ErrNotFound) {
		return errorResponse(c, fiber.StatusNotFound, "not_found", "Model not found")
	}
	if err != nil {
		log.Errorf("[Model] Lookup failed: %v", err)
		return errorResponse(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load model")
	}
	return c.JSON(m)
}

// HandleUpload serves POST /api/v1/models (multipart field "file", optional
// "name").
func (mc *ModelController) HandleUpload(c *fiber.Ctx) error {
	r, ok := currentRestaurant(c)
	if !ok {
		return errorResponse(c, fiber.StatusNotFound, "not_found", "Restaurant not found")
	}
	if mc.store == nil {
		return errorResponse(c, fiber.StatusServiceUnavailable, "storage_unavailable", "Model storage is not configured")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "validation_failed", "Missing file")
	}
	f, err := fh.Open()
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "validation_failed", "Unreadable file")
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	contentType, err := upload.ValidateModel(fh.Filename, fh.Size, head[:n])
	if err != nil {
		status := fiber.StatusBadRequest
		if errors.Is(err, upload.ErrFileTooLarge) {
			status = fiber.StatusRequestEntityTooLarge
		}
		return errorResponse(c, status, "invalid_model", err.Error())
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		log.Errorf("[Model] Rewind of upload failed: %v", err)
		return errorResponse(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to read upload")
	}

	ctx := c.UserContext()
	modelID := uuid.New().String()
	key := storage.ModelObjectKey(r.ID, modelID, upload.ModelExtension(fh.Filename))
	res, err := mc.store.Upload(ctx, key, f, fh.Size, contentType)
	if err != nil {
		log.Errorf("[Model] Upload of %s failed: %v", key, err)
		return errorResponse(c, fiber.StatusBadGateway, "storage_error", "Failed to store model")
	}

	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(fh.Filename), filepath.Ext(fh.Filename))
	}
	m := &models.Model3D{
		ID:              modelID,
		RestaurantID:    r.ID,
		Name:            name,
		FileKey:         res.Key,
		FileURL:         res.URL,
		ContentType:     res.ContentType,
		FileSize:        res.Size,
		StorageProvider: models.StorageProviderS3,
	}
	if err := mc.models3d.Create(ctx, m); err != nil {
		log.Errorf("[Model] Saving %s failed: %v", modelID, err)
		if derr := mc.store.Delete(ctx, key); derr != nil {
			log.Warnf("[Model] Orphaned object %s: %v", key, derr)
		}
		return errorResponse(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save model")
	}
	log.Infof("[Model] Stored %s for restaurant %s (%d bytes)", key, r.ID, m.FileSize)
	return c.Status(fiber.StatusCreated).JSON(m)
}
