package controller

import (
	"fmt"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"net/http"
	"os"
	"path/filepath"
	"qrmenu/database"
	"qrmenu/excel"
	"qrmenu/model"
	"strings"
	"time"
)

const maxImageSize = 5 << 20

var allowedImageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

type MenuController struct {
	store     database.Store
	log       *zap.Logger
	uploadDir string
}

func NewMenuController(store database.Store, log *zap.Logger, uploadDir string) *MenuController {
	return &MenuController{store: store, log: log, uploadDir: uploadDir}
}

// PublicMenu lists available items, category then name.
func (m *MenuController) PublicMenu(c *gin.Context) {
	items, err := m.store.ListMenuItems(c.Request.Context(), true)
	if err != nil {
		respondError(c, m.log, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (m *MenuController) ListMenu(c *gin.Context) {
	items, err := m.store.ListMenuItems(c.Request.Context(), false)
	if err != nil {
		respondError(c, m.log, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

type createMenuItemRequest struct {
	Name                 string            `json:"name"`
	Price                *float64          `json:"price"`
	Category             model.Category    `json:"category"`
	Available            *bool             `json:"available"`
	ImageURL             string            `json:"imageUrl"`
	IsVeg                *bool             `json:"isVeg"`
	Stock                int               `json:"stock"`
	Popularity           int               `json:"popularity"`
	Tags                 model.StringList  `json:"tags"`
	DiscountLabel        string            `json:"discountLabel"`
	CustomizationOptions *model.StringList `json:"customizationOptions"`
}

func (r createMenuItemRequest) toItem() model.MenuItem {
	item := model.MenuItem{
		Name:                 strings.TrimSpace(r.Name),
		Category:             r.Category,
		Available:            true,
		ImageURL:             r.ImageURL,
		IsVeg:                true,
		Stock:                r.Stock,
		Popularity:           r.Popularity,
		Tags:                 r.Tags,
		DiscountLabel:        r.DiscountLabel,
		CustomizationOptions: append(model.StringList{}, model.DefaultCustomizationOptions...),
	}
	if r.Price != nil {
		item.Price = *r.Price
	}
	if r.Available != nil {
		item.Available = *r.Available
	}
	if r.IsVeg != nil {
		item.IsVeg = *r.IsVeg
	}
	if r.CustomizationOptions != nil {
		item.CustomizationOptions = *r.CustomizationOptions
	}
	if item.Tags == nil {
		item.Tags = model.StringList{}
	}
	return item
}

func (m *MenuController) CreateMenuItem(c *gin.Context) {
	var req createMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	// Validate the required fields are provided
	if strings.TrimSpace(req.Name) == "" || req.Price == nil || req.Category == "" {
		badRequest(c, "Missing fields")
		return
	}

	item := req.toItem()
	if err := item.Validate(); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := m.store.CreateMenuItem(c.Request.Context(), &item); err != nil {
		respondError(c, m.log, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// UpdateMenuItem handles a partial update of a menu item.
func (m *MenuController) UpdateMenuItem(c *gin.Context) {
	var update model.MenuItemUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if err := update.Validate(); err != nil {
		badRequest(c, err.Error())
		return
	}

	item, err := m.store.UpdateMenuItem(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		respondError(c, m.log, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeleteMenuItem handles removing a menu item. Past orders keep their snapshot.
func (m *MenuController) DeleteMenuItem(c *gin.Context) {
	if err := m.store.DeleteMenuItem(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, m.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ImportMenu bulk-creates items from an uploaded workbook.
func (m *MenuController) ImportMenu(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "Excel file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, m.log, fmt.Errorf("open upload: %w", err))
		return
	}
	defer file.Close()

	result, err := excel.ParseMenu(file)
	if err != nil {
		respondError(c, m.log, err)
		return
	}
	if len(result.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No valid rows found", "skipped": result.Skipped})
		return
	}

	if err := m.store.CreateMenuItems(c.Request.Context(), result.Items); err != nil {
		respondError(c, m.log, err)
		return
	}

	m.log.Info("Menu imported", zap.Int("imported", len(result.Items)), zap.Int("skipped", len(result.Skipped)))
	c.JSON(http.StatusCreated, gin.H{
		"imported": len(result.Items),
		"skipped":  result.Skipped,
	})
}

// UploadImage stores a picture for the item under the upload directory and
// points imageUrl at it. A previously uploaded picture is removed.
func (m *MenuController) UploadImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		badRequest(c, "Image file is required")
		return
	}
	if file.Size > maxImageSize {
		badRequest(c, "Image size exceeds 5MB limit")
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImageExts[ext] {
		badRequest(c, "Invalid file type, only JPG/JPEG/PNG/WEBP allowed")
		return
	}

	id := c.Param("id")
	current, err := m.store.GetMenuItem(c.Request.Context(), id)
	if err != nil {
		respondError(c, m.log, err)
		return
	}

	if err := os.MkdirAll(m.uploadDir, 0755); err != nil {
		respondError(c, m.log, fmt.Errorf("create upload directory: %w", err))
		return
	}
	fileName := fmt.Sprintf("menu-%s-%d%s", id, time.Now().UnixNano(), ext)
	filePath := filepath.Join(m.uploadDir, fileName)
	if err := c.SaveUploadedFile(file, filePath); err != nil {
		respondError(c, m.log, fmt.Errorf("save image: %w", err))
		return
	}

	imageURL := "/uploads/" + fileName
	item, err := m.store.UpdateMenuItem(c.Request.Context(), id, model.MenuItemUpdate{ImageURL: &imageURL})
	if err != nil {
		if rmErr := os.Remove(filePath); rmErr != nil {
			m.log.Warn("Failed to remove orphaned image", zap.String("file", fileName), zap.Error(rmErr))
		}
		respondError(c, m.log, err)
		return
	}

	if old := strings.TrimPrefix(current.ImageURL, "/uploads/"); old != current.ImageURL && old != "" {
		if err := os.Remove(filepath.Join(m.uploadDir, filepath.Base(old))); err != nil && !os.IsNotExist(err) {
			m.log.Warn("Failed to remove old image", zap.String("file", old), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, item)
}
