package mongo

import (
	"context"
	"errors"

	"github.com/geocoder89/inventoryhub/internal/domain/oid"
	"github.com/geocoder89/inventoryhub/internal/domain/user"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const usersCollection = "users"

// emailCollation compares emails case-insensitively. Records written before
// emails were normalised may still hold mixed case.
var emailCollation = &options.Collation{Locale: "en", Strength: 2}

type userDoc struct {
	ID       bson.ObjectID `bson:"_id"`
	Username string        `bson:"username"`
	Email    string        `bson:"email"`
	Password string        `bson:"password"`
	Role     string        `bson:"role"`
}

// older records keep the bcrypt hash as binary, so read it raw
type storedUserDoc struct {
	ID       bson.ObjectID `bson:"_id"`
	Username string        `bson:"username"`
	Email    string        `bson:"email"`
	Password bson.RawValue `bson:"password"`
	Role     string        `bson:"role"`
}

func (d storedUserDoc) toUser() user.User {
	var hash string

	if s, ok := d.Password.StringValueOK(); ok {
		hash = s
	} else if _, data, ok := d.Password.BinaryOK(); ok {
		hash = string(data)
	}

	role := d.Role
	if role == "" {
		role = user.DefaultRole
	}

	return user.User{
		ID:           oid.FromObjectID(d.ID),
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: hash,
		Role:         role,
	}
}

type UsersRepo struct {
	coll *mongo.Collection
}

func NewUsersRepo(db *mongo.Database) *UsersRepo {
	return &UsersRepo{coll: db.Collection(usersCollection)}
}

// EnsureIndexes creates the unique email index that makes Create atomic and
// the collated index that serves case-insensitive lookups.
func (r *UsersRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("users_email_unique"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetCollation(emailCollation).SetName("users_email_ci"),
		},
	})

	return err
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) error {
	_, err := r.coll.InsertOne(ctx, userDoc{
		ID:       u.ID.ObjectID(),
		Username: u.Username,
		Email:    u.Email,
		Password: u.PasswordHash,
		Role:     u.Role,
	})

	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.ErrEmailTaken
		}
		return err
	}

	return nil
}

// GetByEmail prefers an exact match and falls back to a case-insensitive one.
// New accounts are always stored lower-cased, so the fallback only finds
// older mixed-case records.
func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	filter := bson.D{{Key: "email", Value: email}}

	u, err := r.findOne(ctx, filter)
	if !errors.Is(err, user.ErrNotFound) {
		return u, err
	}

	return r.findOne(ctx, filter, options.FindOne().SetCollation(emailCollation))
}

func (r *UsersRepo) GetByID(ctx context.Context, id oid.ID) (user.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id.ObjectID()}})
}

func (r *UsersRepo) findOne(ctx context.Context, filter bson.D, opts ...options.Lister[options.FindOneOptions]) (user.User, error) {
	var d storedUserDoc

	err := r.coll.FindOne(ctx, filter, opts...).Decode(&d)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	return d.toUser(), nil
}
