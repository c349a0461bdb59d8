package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"pawhaven/internal/errors"
	"pawhaven/internal/model"
	"pawhaven/internal/service"
)

// PetHandler handles pet catalog endpoints.
type PetHandler struct {
	petService service.PetService
}

// NewPetHandler creates a new pet handler.
func NewPetHandler(petService service.PetService) *PetHandler {
	return &PetHandler{petService: petService}
}

// PetRequest creates or updates a catalog entry.
type PetRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Breed       string `json:"breed" validate:"required,max=100"`
	AgeYears    int    `json:"age_years" validate:"min=0"`
	AgeMonths   int    `json:"age_months" validate:"min=0,max=11"`
	Gender      string `json:"gender" validate:"required,oneof=M F"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
	Price       string `json:"price" validate:"required"`
}

// LandingResponse is the landing-page sample of the catalog.
type LandingResponse struct {
	Pets        []model.Pet `json:"pets"`
	ShowViewAll bool        `json:"show_view_all"`
}

// Landing godoc
// @Summary Most recent available pets for the landing page
// @Tags pets
// @Produce json
// @Success 200 {object} LandingResponse
// @Router /pets/landing [get]
func (h *PetHandler) Landing(c echo.Context) error {
	pets, more, err := h.petService.Landing(c.Request().Context())
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, LandingResponse{Pets: pets, ShowViewAll: more})
}

// List godoc
// @Summary List all pets available for adoption
// @Tags pets
// @Produce json
// @Success 200 {array} model.Pet
// @Router /pets [get]
func (h *PetHandler) List(c echo.Context) error {
	pets, err := h.petService.ListAvailable(c.Request().Context())
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, pets)
}

// Get godoc
// @Summary Get a pet by ID
// @Tags pets
// @Produce json
// @Param id path string true "Pet ID"
// @Success 200 {object} model.Pet
// @Failure 404 {object} errors.ErrorResponse
// @Router /pets/{id} [get]
func (h *PetHandler) Get(c echo.Context) error {
	petID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: "invalid pet id", Code: "INVALID_UUID"})
	}

	pet, err := h.petService.Get(c.Request().Context(), petID)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, pet)
}

// Create godoc
// @Summary Add a pet to the catalog (staff only)
// @Tags pets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PetRequest true "Pet data"
// @Success 201 {object} model.Pet
// @Failure 400 {object} errors.ErrorResponse
// @Router /pets [post]
func (h *PetHandler) Create(c echo.Context) error {
	pet, httpErr := h.bindPet(c, &model.Pet{})
	if httpErr != nil {
		return httpErr
	}

	if err := h.petService.Create(c.Request().Context(), pet); err != nil {
		mapped := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(mapped.StatusCode, mapped.ToErrorResponse())
	}
	return c.JSON(http.StatusCreated, pet)
}

// Update godoc
// @Summary Update a catalog entry (staff only)
// @Tags pets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Pet ID"
// @Param request body PetRequest true "Pet data"
// @Success 200 {object} model.Pet
// @Failure 404 {object} errors.ErrorResponse
// @Router /pets/{id} [put]
func (h *PetHandler) Update(c echo.Context) error {
	petID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: "invalid pet id", Code: "INVALID_UUID"})
	}

	existing, err := h.petService.Get(c.Request().Context(), petID)
	if err != nil {
		mapped := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(mapped.StatusCode, mapped.ToErrorResponse())
	}

	pet, httpErr := h.bindPet(c, existing)
	if httpErr != nil {
		return httpErr
	}

	if err := h.petService.Update(c.Request().Context(), pet); err != nil {
		mapped := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(mapped.StatusCode, mapped.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, pet)
}

// Delete godoc
// @Summary Remove a pet from the catalog (staff only)
// @Tags pets
// @Security BearerAuth
// @Param id path string true "Pet ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /pets/{id} [delete]
func (h *PetHandler) Delete(c echo.Context) error {
	petID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: "invalid pet id", Code: "INVALID_UUID"})
	}

	if err := h.petService.Delete(c.Request().Context(), petID); err != nil {
		mapped := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(mapped.StatusCode, mapped.ToErrorResponse())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *PetHandler) bindPet(c echo.Context, pet *model.Pet) (*model.Pet, error) {
	var req PetRequest
	if err := c.Bind(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
	}
	if err := c.Validate(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: err.Error(), Code: "VALIDATION_ERROR"})
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		return nil, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: "invalid price", Code: "INVALID_AMOUNT"})
	}

	pet.Name = req.Name
	pet.Breed = req.Breed
	pet.AgeYears = req.AgeYears
	pet.AgeMonths = req.AgeMonths
	pet.Gender = req.Gender
	pet.Description = req.Description
	pet.ImageURL = req.ImageURL
	pet.Price = price
	return pet, nil
}
