package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"placesapi/internal/apperr"
	"placesapi/internal/models"
)

type PlaceRepository interface {
	Create(ctx context.Context, place *models.Place) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Place, error)
	FindByCreator(ctx context.Context, creator primitive.ObjectID) ([]models.Place, error)
	Update(ctx context.Context, id primitive.ObjectID, title, description string) (*models.Place, error)
	Delete(ctx context.Context, id primitive.ObjectID) (*models.Place, error)
}

type mongoPlaceRepository struct {
	db *mongo.Database
}

func NewMongoPlaceRepository(db *mongo.Database) PlaceRepository {
	return &mongoPlaceRepository{db: db}
}

// Create inserts the place and appends its id to the creator's place
// list in one transaction. Either both documents change or neither
// does; a place without a back-reference must never be observable.
func (r *mongoPlaceRepository) Create(ctx context.Context, place *models.Place) error {
	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("places create session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		res, err := r.db.Collection("places").InsertOne(sessCtx, place)
		if err != nil {
			return nil, err
		}

		id, ok := res.InsertedID.(primitive.ObjectID)
		if !ok {
			return nil, errors.New("places insert returned unexpected id type")
		}

		update, err := r.db.Collection("users").UpdateByID(sessCtx, place.Creator, bson.M{
			"$push": bson.M{"places": id},
			"$set":  bson.M{"updatedAt": time.Now()},
		})
		if err != nil {
			return nil, err
		}
		if update.MatchedCount == 0 {
			return nil, apperr.ErrNotFound
		}

		place.ID = id
		return nil, nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.ErrNotFound
		}
		return fmt.Errorf("places create transaction: %w", err)
	}
	return nil
}

func (r *mongoPlaceRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Place, error) {
	var place models.Place
	err := r.db.Collection("places").FindOne(ctx, bson.M{"_id": id}).Decode(&place)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("places find by id: %w", err)
	}
	return &place, nil
}

func (r *mongoPlaceRepository) FindByCreator(ctx context.Context, creator primitive.ObjectID) ([]models.Place, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.db.Collection("places").Find(ctx, bson.M{"creator": creator}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("places find by creator: %w", err)
	}
	defer cursor.Close(ctx)

	places := make([]models.Place, 0)
	if err := cursor.All(ctx, &places); err != nil {
		return nil, fmt.Errorf("places decode: %w", err)
	}
	return places, nil
}

// Update touches title and description only. Address, location, image
// and creator stay as written at creation.
func (r *mongoPlaceRepository) Update(ctx context.Context, id primitive.ObjectID, title, description string) (*models.Place, error) {
	updateOptions := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var place models.Place
	err := r.db.Collection("places").FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"title":       title,
			"description": description,
			"updatedAt":   time.Now(),
		},
	}, updateOptions).Decode(&place)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("places update: %w", err)
	}
	return &place, nil
}

// Delete removes the place and pulls its id from the owner's place list
// in one transaction, then returns the removed document so the caller
// can clean up the stored image after commit.
func (r *mongoPlaceRepository) Delete(ctx context.Context, id primitive.ObjectID) (*models.Place, error) {
	var place models.Place
	err := r.db.Collection("places").FindOne(ctx, bson.M{"_id": id}).Decode(&place)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("places delete lookup: %w", err)
	}

	session, err := r.db.Client().StartSession()
	if err != nil {
		return nil, fmt.Errorf("places delete session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		res, err := r.db.Collection("places").DeleteOne(sessCtx, bson.M{"_id": id})
		if err != nil {
			return nil, err
		}
		if res.DeletedCount == 0 {
			return nil, apperr.ErrNotFound
		}

		_, err = r.db.Collection("users").UpdateByID(sessCtx, place.Creator, bson.M{
			"$pull": bson.M{"places": id},
			"$set":  bson.M{"updatedAt": time.Now()},
		})
		if err != nil {
			return nil, err
		}

		return nil, nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("places delete transaction: %w", err)
	}

	return &place, nil
}
