package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"placesapi/internal/config"
	"placesapi/internal/database"
	"placesapi/internal/geocode"
	"placesapi/internal/handlers"
	"placesapi/internal/middleware"
	"placesapi/internal/repository"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("user index warning: %v", err)
	}
	if err := database.EnsurePlaceIndexes(db); err != nil {
		log.Printf("place index warning: %v", err)
	}

	users := repository.NewMongoUserRepository(db)
	places := repository.NewMongoPlaceRepository(db)
	geocoder := geocode.NewClient(config.AppEnv.GeocoderBaseURL, config.AppEnv.GeocoderAPIKey)

	r := gin.Default()
	r.Static("/uploads", filepath.Join(config.AppEnv.UploadRoot, "uploads"))

	api := r.Group("/api")

	api.GET("/places/:placeId", handlers.GetPlaceByID(places))
	api.GET("/places/user/:uid", handlers.GetPlacesByUser(places))
	api.POST("/places", handlers.CreatePlace(places, users, geocoder, config.AppEnv.UploadRoot))
	api.PATCH("/places/:placeId", handlers.UpdatePlace(places))
	api.DELETE("/places/:placeId", handlers.DeletePlace(places, config.AppEnv.UploadRoot))

	api.GET("/users", handlers.GetUsers(users))
	api.POST("/users/signup", handlers.Signup(users, config.AppEnv.UploadRoot, config.AppEnv.JWTSecret, config.AppEnv.TokenTTL))
	api.POST("/users/login", handlers.Login(users, config.AppEnv.JWTSecret, config.AppEnv.TokenTTL))
	api.GET("/users/me", middleware.UserAuth(config.AppEnv.JWTSecret), handlers.GetMe(users))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
