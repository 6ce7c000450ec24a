package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pgnest/internal/app/dto"
	"pgnest/internal/domain/property"
)

// PropertyHTTP exposes the property catalog endpoints.
type PropertyHTTP interface {
	Search(c *gin.Context)
	Get(c *gin.Context)
	Create(c *gin.Context)
	ListMine(c *gin.Context)
}

type PropertyHandler struct {
	Repo   property.Repository
	Logger *slog.Logger
}

func (h PropertyHandler) Search(c *gin.Context) {
	params := property.SearchParams{
		City:       c.Query("city"),
		Locality:   c.Query("locality"),
		Sharing:    property.SharingType(strings.ToLower(c.Query("sharing"))),
		Gender:     property.GenderPreference(strings.ToLower(c.Query("gender"))),
		MinRent:    parseInt64(c.Query("minRent")),
		MaxRent:    parseInt64(c.Query("maxRent")),
		Amenities:  c.QueryArray("amenity"),
		OnlyActive: true,
		Limit:      int(parseInt64(c.Query("limit"))),
		Offset:     int(parseInt64(c.Query("offset"))),
	}
	if raw := c.Query("foodIncluded"); raw != "" {
		food := raw == "true" || raw == "1"
		params.FoodIncluded = &food
	}
	props, err := h.Repo.Search(c.Request.Context(), params)
	if err != nil {
		h.logError("property search failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	out := make([]dto.Property, 0, len(props))
	for _, prop := range props {
		out = append(out, dto.FromProperty(prop))
	}
	c.JSON(http.StatusOK, out)
}

func (h PropertyHandler) Get(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	prop, err := h.Repo.ByID(c.Request.Context(), property.PropertyID(id))
	if err != nil {
		if errors.Is(err, property.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		h.logError("property load failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, dto.FromProperty(prop))
}

// Create registers a new listing for the authenticated owner.
func (h PropertyHandler) Create(c *gin.Context) {
	p, ok := requireRole(c, "owner")
	if !ok {
		return
	}
	var req dto.CreatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	prop, err := property.New(property.CreateParams{
		ID:            property.PropertyID(uuid.NewString()),
		Owner:         property.OwnerID(p.ID),
		OwnerName:     p.Name,
		OwnerPhone:    p.Phone,
		Title:         req.Title,
		Description:   req.Description,
		Address: property.Address{
			Line1:    req.Address.Line1,
			Locality: req.Address.Locality,
			City:     req.Address.City,
			State:    req.Address.State,
			Pincode:  req.Address.Pincode,
		},
		MonthlyRent:   req.MonthlyRent,
		DepositMonths: req.DepositMonths,
		Sharing:       property.SharingType(strings.ToLower(req.Sharing)),
		Gender:        property.GenderPreference(strings.ToLower(req.Gender)),
		FoodIncluded:  req.FoodIncluded,
		Amenities:     req.Amenities,
		HouseRules:    req.HouseRules,
		AvailableBeds: req.AvailableBeds,
		ThumbnailURL:  req.ThumbnailURL,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Repo.Save(c.Request.Context(), prop); err != nil {
		h.logError("property save failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, dto.FromProperty(prop))
}

// ListMine returns the authenticated owner's listings for the dashboard.
func (h PropertyHandler) ListMine(c *gin.Context) {
	p, ok := requireRole(c, "owner")
	if !ok {
		return
	}
	props, err := h.Repo.ByOwner(c.Request.Context(), property.OwnerID(p.ID))
	if err != nil {
		h.logError("owner properties load failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	out := make([]dto.Property, 0, len(props))
	for _, prop := range props {
		out = append(out, dto.FromProperty(prop))
	}
	c.JSON(http.StatusOK, out)
}

func (h PropertyHandler) logError(msg string, err error) {
	if h.Logger != nil {
		h.Logger.Error(msg, "error", err)
	}
}

func parseInt64(raw string) int64 {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || value < 0 {
		return 0
	}
	return value
}

var _ PropertyHTTP = (*PropertyHandler)(nil)
