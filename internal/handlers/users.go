package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"placesapi/internal/apperr"
	"placesapi/internal/auth"
	"placesapi/internal/models"
	"placesapi/internal/repository"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// GetUsers lists every account. The password hash is projected away in
// the repository and additionally hidden from JSON on the model.
func GetUsers(users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /users"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		list, err := users.List(ctx)
		if err != nil {
			log.Println("[USER] [ERROR] list users failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "could not fetch users")
			return
		}

		c.JSON(http.StatusOK, gin.H{"users": list})
	}
}

func Signup(users repository.UserRepository, uploadRoot, jwtSecret string, tokenTTL time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /users/signup"
		defer handlePanic(c, route)

		form, err := parseSignupForm(c, uploadRoot)
		if err != nil {
			log.Println("[AUTH] [ERROR] signup form invalid:", err)
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		if form.Name == "" || form.Email == "" || form.Password == "" {
			cleanupUpload(uploadRoot, form.ImagePath)
			respondWithError(c, http.StatusBadRequest, route, "name, email and password are required")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		// Fast path only; the unique email index decides the race.
		if _, err := users.FindByEmail(ctx, form.Email); err == nil {
			log.Println("[AUTH] [ERROR] signup email exists:", form.Email)
			cleanupUpload(uploadRoot, form.ImagePath)
			respondWithError(c, http.StatusUnprocessableEntity, route, "user exists already")
			return
		} else if !errors.Is(err, apperr.ErrNotFound) {
			log.Println("[AUTH] [ERROR] signup lookup failed:", err)
			cleanupUpload(uploadRoot, form.ImagePath)
			respondWithError(c, http.StatusInternalServerError, route, "signing up failed")
			return
		}

		hash, err := auth.HashPassword(form.Password)
		if err != nil {
			log.Println("[AUTH] [ERROR] signup password hash failed:", err)
			cleanupUpload(uploadRoot, form.ImagePath)
			respondWithError(c, http.StatusInternalServerError, route, "signing up failed")
			return
		}

		now := time.Now()
		user := models.User{
			Name:         form.Name,
			Email:        form.Email,
			PasswordHash: hash,
			Image:        form.ImagePath,
			Places:       []primitive.ObjectID{},
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := users.Create(ctx, &user); err != nil {
			cleanupUpload(uploadRoot, form.ImagePath)
			if errors.Is(err, apperr.ErrEmailTaken) {
				log.Println("[AUTH] [ERROR] signup duplicate email on insert:", form.Email)
				respondWithError(c, http.StatusUnprocessableEntity, route, "user exists already")
				return
			}
			log.Println("[AUTH] [ERROR] signup insert failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "signing up failed")
			return
		}

		token, err := auth.IssueToken(user.ID, user.Email, jwtSecret, tokenTTL)
		if err != nil {
			log.Println("[AUTH] [ERROR] signup token generation failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "signing up failed")
			return
		}

		log.Println("[AUTH] [INFO] user registered:", user.Email)
		c.JSON(http.StatusCreated, gin.H{
			"userId": user.ID.Hex(),
			"email":  user.Email,
			"token":  token,
		})
	}
}

// Login answers unknown email and wrong password with the same 401 body
// so the response never reveals which one failed.
func Login(users repository.UserRepository, jwtSecret string, tokenTTL time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /users/login"
		defer handlePanic(c, route)

		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		user, err := users.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				log.Println("[AUTH] [ERROR] login invalid credentials")
				respondWithError(c, http.StatusUnauthorized, route, "invalid credentials")
				return
			}
			log.Println("[AUTH] [ERROR] login lookup failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "logging in failed")
			return
		}

		if !auth.CheckPassword(req.Password, user.PasswordHash) {
			log.Println("[AUTH] [ERROR] login invalid credentials")
			respondWithError(c, http.StatusUnauthorized, route, "invalid credentials")
			return
		}

		token, err := auth.IssueToken(user.ID, user.Email, jwtSecret, tokenTTL)
		if err != nil {
			log.Println("[AUTH] [ERROR] login token generation failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "logging in failed")
			return
		}

		log.Println("[AUTH] [INFO] user login succeeded:", user.Email)
		c.JSON(http.StatusOK, gin.H{
			"userId": user.ID.Hex(),
			"email":  user.Email,
			"token":  token,
		})
	}
}

func GetMe(users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /users/me"
		defer handlePanic(c, route)

		userID, ok := userIDFromContext(c)
		if !ok {
			log.Println("[AUTH] [ERROR] userId missing in context")
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		user, err := users.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				respondWithError(c, http.StatusNotFound, route, "user not found")
				return
			}
			log.Println("[AUTH] [ERROR] get me failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "could not fetch user")
			return
		}

		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

func cleanupUpload(uploadRoot, imagePath string) {
	if err := safeDeleteUpload(uploadRoot, imagePath); err != nil {
		log.Println("[UPLOAD] [ERROR] orphaned upload cleanup failed:", err)
	}
}
