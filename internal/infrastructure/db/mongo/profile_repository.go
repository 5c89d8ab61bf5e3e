package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/inventory-web/internal/core/domain"
)

type ProfileRepository struct {
	col    *mongo.Collection
	tokens *Tokens
}

func NewProfileRepository(db *mongo.Database, tokens *Tokens) *ProfileRepository {
	return &ProfileRepository{col: db.Collection(collectionProfiles), tokens: tokens}
}

type profileDoc struct {
	ID        string    `bson:"_id"`
	Username  string    `bson:"username"`
	Email     string    `bson:"email"`
	Role      string    `bson:"role"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d profileDoc) toDomain() domain.Profile {
	return domain.Profile{
		ID:        d.ID,
		Username:  d.Username,
		Email:     d.Email,
		Role:      domain.Role(d.Role),
		CreatedAt: d.CreatedAt,
	}
}

// FindByID returns nil, nil when no profile row exists.
func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	if _, err := r.tokens.authorize(ctx); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc profileDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	p := doc.toDomain()
	return &p, nil
}

func (r *ProfileRepository) List(ctx context.Context) ([]domain.Profile, error) {
	if _, err := r.tokens.authorize(ctx); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	var docs []profileDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}

	out := make([]domain.Profile, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
