package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"placesapi/internal/apperr"
	"placesapi/internal/geocode"
	"placesapi/internal/models"
	"placesapi/internal/repository"
)

type UpdatePlaceRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
}

func GetPlaceByID(places repository.PlaceRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /places/:placeId"
		defer handlePanic(c, route)

		placeID, err := primitive.ObjectIDFromHex(c.Param("placeId"))
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "could not find place for this id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		place, err := places.FindByID(ctx, placeID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				respondWithError(c, http.StatusNotFound, route, "could not find place for this id")
				return
			}
			log.Println("[PLACE] [ERROR] get place failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "could not fetch place")
			return
		}

		c.JSON(http.StatusOK, gin.H{"place": place})
	}
}

func GetPlacesByUser(places repository.PlaceRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /places/user/:uid"
		defer handlePanic(c, route)

		userID, err := primitive.ObjectIDFromHex(c.Param("uid"))
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "could not find places for this user")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		list, err := places.FindByCreator(ctx, userID)
		if err != nil {
			log.Println("[PLACE] [ERROR] get places by user failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "fetching places failed")
			return
		}

		if len(list) == 0 {
			respondWithError(c, http.StatusNotFound, route, "could not find places for this user")
			return
		}

		c.JSON(http.StatusOK, gin.H{"places": list})
	}
}

// CreatePlace geocodes the address, checks the creator exists, then
// commits the place insert and the owner's place-list append as one
// transaction. Carries no caller identity check: the creator comes from
// the form, not from a verified token.
func CreatePlace(places repository.PlaceRepository, users repository.UserRepository, geocoder geocode.Resolver, uploadRoot string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /places"
		defer handlePanic(c, route)

		form, err := parsePlaceForm(c, uploadRoot)
		if err != nil {
			log.Println("[PLACE] [ERROR] create place form invalid:", err)
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		if form.Title == "" || form.Description == "" || form.Address == "" || form.Creator == "" {
			cleanupUpload(uploadRoot, form.ImagePath)
			respondWithError(c, http.StatusBadRequest, route, "title, description, address and creator are required")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()

		location, err := geocoder.Resolve(ctx, form.Address)
		if err != nil {
			cleanupUpload(uploadRoot, form.ImagePath)
			if errors.Is(err, geocode.ErrAddressNotFound) {
				respondWithError(c, http.StatusBadRequest, route, "could not resolve address to coordinates")
				return
			}
			log.Println("[PLACE] [ERROR] geocoding failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "creating place failed")
			return
		}

		creatorID, err := primitive.ObjectIDFromHex(form.Creator)
		if err != nil {
			cleanupUpload(uploadRoot, form.ImagePath)
			respondWithError(c, http.StatusNotFound, route, "could not find user for provided id")
			return
		}

		if _, err := users.FindByID(ctx, creatorID); err != nil {
			cleanupUpload(uploadRoot, form.ImagePath)
			if errors.Is(err, apperr.ErrNotFound) {
				respondWithError(c, http.StatusNotFound, route, "could not find user for provided id")
				return
			}
			log.Println("[PLACE] [ERROR] creator lookup failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "creating place failed")
			return
		}

		now := time.Now()
		place := models.Place{
			Title:       form.Title,
			Description: form.Description,
			Address:     form.Address,
			Location:    location,
			Image:       form.ImagePath,
			Creator:     creatorID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := places.Create(ctx, &place); err != nil {
			cleanupUpload(uploadRoot, form.ImagePath)
			if errors.Is(err, apperr.ErrNotFound) {
				respondWithError(c, http.StatusNotFound, route, "could not find user for provided id")
				return
			}
			log.Println("[PLACE] [ERROR] create place transaction failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "creating place failed")
			return
		}

		log.Println("[PLACE] [INFO] place created:", place.ID.Hex())
		c.JSON(http.StatusCreated, gin.H{"place": place})
	}
}

func UpdatePlace(places repository.PlaceRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /places/:placeId"
		defer handlePanic(c, route)

		placeID, err := primitive.ObjectIDFromHex(c.Param("placeId"))
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "could not find place for this id")
			return
		}

		var req UpdatePlaceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		place, err := places.Update(ctx, placeID, req.Title, req.Description)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				respondWithError(c, http.StatusNotFound, route, "could not find place for this id")
				return
			}
			log.Println("[PLACE] [ERROR] update place failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "could not update place")
			return
		}

		c.JSON(http.StatusOK, gin.H{"place": place})
	}
}

// DeletePlace removes the place and its back-reference transactionally,
// then unlinks the stored image. Image cleanup failure is logged only;
// the record deletion has already committed and is the source of truth.
func DeletePlace(places repository.PlaceRepository, uploadRoot string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /places/:placeId"
		defer handlePanic(c, route)

		placeID, err := primitive.ObjectIDFromHex(c.Param("placeId"))
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "could not find place for this id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		place, err := places.Delete(ctx, placeID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				respondWithError(c, http.StatusNotFound, route, "could not find place for this id")
				return
			}
			log.Println("[PLACE] [ERROR] delete place failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "could not delete place")
			return
		}

		if err := safeDeleteUpload(uploadRoot, place.Image); err != nil {
			log.Println("[PLACE] [ERROR] place image cleanup failed:", err)
		}

		log.Println("[PLACE] [INFO] place deleted:", placeID.Hex())
		c.JSON(http.StatusOK, gin.H{"message": "Deleted place"})
	}
}

func userIDFromContext(c *gin.Context) (primitive.ObjectID, bool) {
	value, ok := c.Get("userId")
	if !ok {
		return primitive.NilObjectID, false
	}
	userID, ok := value.(primitive.ObjectID)
	return userID, ok
}
